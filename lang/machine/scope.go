package machine

import "bvm/lang/token"

// scopeFrame tracks one enclosing container header during a sweep's linear
// scan: pushed on the header, popped on its matching `end`. executed
// becomes true once a child of that container has caused a non-trivial
// rewrite, governing seq/useq's one-instruction-per-sweep rule and
// ulist/useq auto-dissolution. Grounded on spec §4.2.
type scopeFrame struct {
	headerIndex int
	executed    bool
}

type scopeStack struct {
	frames []scopeFrame
}

func (s *scopeStack) push(headerIndex int) {
	s.frames = append(s.frames, scopeFrame{headerIndex: headerIndex})
}

func (s *scopeStack) pop() (scopeFrame, bool) {
	if len(s.frames) == 0 {
		return scopeFrame{}, false
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top, true
}

func (s *scopeStack) top() (*scopeFrame, bool) {
	if len(s.frames) == 0 {
		return nil, false
	}
	return &s.frames[len(s.frames)-1], true
}

// parentOpcode returns the opcode name of tokens[i]'s parent, or "" if i is
// a root token.
func parentOpcode(tokens []token.Token, i int) string {
	p := tokens[i].ParentIndex
	if p < 0 {
		return ""
	}
	op, ok := tokens[p].Opcode()
	if !ok {
		return ""
	}
	return op.Name
}

// parentIsContainer reports whether tokens[i] sits in a container-child
// slot. A root-level token counts: the program itself is treated as the
// outermost container.
func parentIsContainer(tokens []token.Token, i int) bool {
	p := tokens[i].ParentIndex
	if p < 0 {
		return true
	}
	return tokens[p].IsContainerHeader()
}

func parentIsSeqOrUseq(tokens []token.Token, i int) bool {
	switch parentOpcode(tokens, i) {
	case "seq", "useq":
		return true
	default:
		return false
	}
}

func parentIsUlistOrUseq(tokens []token.Token, i int) bool {
	switch parentOpcode(tokens, i) {
	case "ulist", "useq":
		return true
	default:
		return false
	}
}

func parentIsIf(tokens []token.Token, i int) bool {
	return parentOpcode(tokens, i) == "if"
}

// endMoveRange clamps a move/mrep destination that targets an `end` token to
// a legal container-child slot: [header.ParentIndex+1, outerHeader.LastIndex]
// if the header itself has an enclosing container, else the end of the
// program. Grounded on spec §4.4 "End-move range".
func endMoveRange(tokens []token.Token, endIdx int) (lo, hi int) {
	header := tokens[endIdx].ParentIndex
	outer := tokens[header].ParentIndex
	if outer < 0 {
		return tokens[header].FirstIndex, len(tokens) - 1
	}
	return tokens[outer].FirstIndex, tokens[outer].LastIndex
}

// ulistShouldDissolve reports whether a ulist/useq header should drop
// itself and its matching end: when every child is static, or when it has
// exactly one child and its own parent is a container. Grounded on spec
// §4.4.
func ulistShouldDissolve(tokens []token.Token, headerIdx int) bool {
	header := tokens[headerIdx]
	if len(header.Arguments) == 1 && parentIsContainer(tokens, headerIdx) {
		return true
	}
	for _, childIdx := range header.Arguments {
		if !tokens[childIdx].IsStatic() {
			return false
		}
	}
	return true
}
