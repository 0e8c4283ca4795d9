package machine

import (
	"bvm/lang/token"
)

// frame is an open parent awaiting its children during Parse: either a
// fixed-arity instruction waiting for `remaining` more subtrees, or a
// dynamic container waiting for its matching "end".
type frame struct {
	index     int
	dynamic   bool
	remaining int
	args      []int
}

// Parse annotates every token in tokens with its tree fields (ParentIndex,
// ArgCount, Arguments, FirstIndex, LastIndex), in place, via a single linear
// pass with an explicit stack of open parents. Grounded on
// original_source/interpreter.cpp's parse(); see spec §4.1.
func Parse(tokens []token.Token) error {
	var stack []frame

	// complete attaches the already-closed subtree rooted at idx (spanning
	// [first,last]) to its parent, cascading upward through any fixed-arity
	// ancestors that this completion itself closes out.
	var complete func(idx, last int)
	complete = func(idx, last int) {
		for {
			if len(stack) == 0 {
				tokens[idx].ParentIndex = -1
				return
			}
			top := &stack[len(stack)-1]
			tokens[idx].ParentIndex = top.index
			top.args = append(top.args, idx)
			if top.dynamic {
				return
			}
			top.remaining--
			if top.remaining > 0 {
				return
			}
			done := *top
			stack = stack[:len(stack)-1]
			tokens[done.index].Arguments = done.args
			tokens[done.index].ArgCount = len(done.args)
			tokens[done.index].FirstIndex = done.index + 1
			tokens[done.index].LastIndex = last
			idx = done.index
		}
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		op, isInstr := tok.Opcode()
		switch {
		case isInstr && op.Name == "end":
			if len(stack) == 0 || !stack[len(stack)-1].dynamic {
				return newParseError("unmatched end at index %d", i)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			tokens[top.index].Arguments = top.args
			tokens[top.index].ArgCount = len(top.args)
			tokens[top.index].FirstIndex = top.index + 1
			tokens[top.index].LastIndex = i
			tokens[i].FirstIndex = i
			tokens[i].LastIndex = i
			tokens[i].ParentIndex = top.index
			complete(top.index, i)
		case isInstr && op.ArgCount == token.DynamicArity:
			stack = append(stack, frame{index: i, dynamic: true})
		case isInstr && op.ArgCount > 0:
			stack = append(stack, frame{index: i, remaining: op.ArgCount})
		default:
			tokens[i].FirstIndex = i
			tokens[i].LastIndex = i
			complete(i, i)
		}
	}

	if len(stack) != 0 {
		return newParseError("missing end for container opened at index %d", stack[len(stack)-1].index)
	}
	return nil
}
