package machine

import (
	"bytes"

	"bvm/lang/token"
)

// evalState is the read-only context a handler inspects and the two
// write-only sinks it may append to: the scheduler (structural edits) and
// the local print buffer. Handlers never touch tokens directly.
type evalState struct {
	prev   []token.Token
	sched  *Scheduler
	print  *bytes.Buffer
}

// handler evaluates the instruction at pc against the sweep snapshot and
// reports whether it fired (queued an op or printed). A false return with a
// nil error means "not ready, retry next sweep" or "shape error, retry
// next sweep" -- both are silent per spec §7.
type handler func(ev *evalState, pc int) (bool, error)

var handlerTable map[string]handler

func init() {
	handlerTable = map[string]handler{
		"add": binaryArith(token.Add), "sub": binaryArith(token.Sub),
		"mul": binaryArith(token.Mul), "div": binaryArith(token.Div),
		"mod": binaryArith(token.Mod), "pow": binaryArith(token.Pow),
		"atan2": binaryArith(token.Atan2), "and": binaryArith(token.And),
		"or": binaryArith(token.Or), "xor": binaryArith(token.Xor),
		"cmp": binaryArith(token.Cmp), "lt": binaryArith(token.Lt), "gt": binaryArith(token.Gt),
		"log": unaryArith(token.Log), "log2": unaryArith(token.Log2),
		"sin": unaryArith(token.Sin), "cos": unaryArith(token.Cos), "tan": unaryArith(token.Tan),
		"asin": unaryArith(token.Asin), "acos": unaryArith(token.Acos), "atan": unaryArith(token.Atan),
		"floor": unaryArith(token.Floor), "ceil": unaryArith(token.Ceil), "not": unaryArith(token.Not),
		"cpy": handleCpy, "del": handleDel, "get": handleGet, "set": handleSet,
		"repl": handleRepl, "ins": handleIns, "move": handleMove, "mrep": handleMrep,
		"if": handleIf, "cast": handleCast, "print": handlePrint, "str": handleStr,
		"box": handleBox, "unbox": handleUnbox,
	}
}

// ready reports whether every positional argument of the instruction at pc
// is already static (numeric/pointer, or a q-quoted subtree): spec §4.4's
// "Operand readiness".
func ready(prev []token.Token, pc int) bool {
	for _, argIdx := range prev[pc].Arguments {
		if !prev[argIdx].IsStatic() {
			return false
		}
	}
	return true
}

// resolveTarget computes the absolute index an offset-operand token (a
// number or ptr at argIdx) addresses, per the relative-pointer invariant:
// (argIdx + payload) mod (N+1).
func resolveTarget(prev []token.Token, argIdx int) int {
	n := len(prev)
	payload := token.DataAs[int64](prev[argIdx])
	return int(mod(int64(argIdx)+payload, int64(n+1)))
}

// unwrapQ returns the body of a q-quoted subtree one level in, or idx
// unchanged if prev[idx] is not a q.
func unwrapQ(prev []token.Token, idx int) int {
	if prev[idx].Is("q") {
		return prev[idx].Arguments[0]
	}
	return idx
}

// cloneRange returns verbatim clones of prev[lo..hi] (inclusive), tree
// fields reset, for splicing elsewhere.
func cloneRange(prev []token.Token, lo, hi int) []token.Token {
	out := make([]token.Token, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, prev[i].Clone())
	}
	return out
}

func span(prev []token.Token, pc int) (lo, hi int) { return pc, prev[pc].LastIndex }

func binaryArith(f func(a, b token.Token) token.Token) handler {
	return func(ev *evalState, pc int) (bool, error) {
		prev := ev.prev
		if !ready(prev, pc) {
			return false, nil
		}
		args := prev[pc].Arguments
		result := f(prev[args[0]], prev[args[1]])
		lo, hi := span(prev, pc)
		ev.sched.AddReplace(lo, hi+1, []token.Token{result}, []int{-1}, priFuncReplace)
		return true, nil
	}
}

func unaryArith(f func(a token.Token) token.Token) handler {
	return func(ev *evalState, pc int) (bool, error) {
		prev := ev.prev
		if !ready(prev, pc) {
			return false, nil
		}
		args := prev[pc].Arguments
		result := f(prev[args[0]])
		lo, hi := span(prev, pc)
		ev.sched.AddReplace(lo, hi+1, []token.Token{result}, []int{-1}, priFuncReplace)
		return true, nil
	}
}

// handleCpy splices a verbatim copy of the subtree at offset a into the
// container-child slot addressed by offset b; the cpy opcode and its two
// operands are weakly deleted.
func handleCpy(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	srcIdx := resolveTarget(prev, args[0])
	dstIdx := resolveTarget(prev, args[1])
	if srcIdx >= len(prev) || dstIdx >= len(prev) || !parentIsContainer(prev, dstIdx) {
		return false, nil
	}
	src := unwrapQ(prev, srcIdx)
	copied := cloneRange(prev, src, prev[src].LastIndex)
	ev.sched.AddInsert(dstIdx, copied, nil, priReplace)
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}

// handleDel strongly deletes the subtree at offset a and weakly deletes
// its own opcode and operand.
func handleDel(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	targetIdx := resolveTarget(prev, args[0])
	if targetIdx >= len(prev) {
		return false, nil
	}
	ev.sched.AddDelete(targetIdx, prev[targetIdx].LastIndex+1, priStrongDelete)
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}

// handleGet replaces the get opcode and its operand with a verbatim copy
// of the subtree at offset a.
func handleGet(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	targetIdx := resolveTarget(prev, args[0])
	if targetIdx >= len(prev) || prev[targetIdx].Is("end") {
		return false, nil
	}
	src := unwrapQ(prev, targetIdx)
	copied := cloneRange(prev, src, prev[src].LastIndex)
	lo, hi := span(prev, pc)
	ev.sched.AddReplace(lo, hi+1, copied, nil, priReplace)
	return true, nil
}

// handleSet replaces the subtree at offset d with a verbatim copy of the
// literal subtree argument, then weakly deletes the whole set instruction
// (opcode, offset and literal).
func handleSet(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	targetIdx := resolveTarget(prev, args[0])
	if targetIdx >= len(prev) || prev[targetIdx].Is("end") {
		return false, nil
	}
	lit := unwrapQ(prev, args[1])
	copied := cloneRange(prev, lit, prev[lit].LastIndex)
	ev.sched.AddReplace(targetIdx, prev[targetIdx].LastIndex+1, copied, nil, priReplace)
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}

// handleRepl replaces the subtree at offset d with a verbatim copy of the
// subtree at offset s, then weakly deletes its own opcode+operands.
func handleRepl(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	targetD := resolveTarget(prev, args[0])
	targetS := resolveTarget(prev, args[1])
	if targetD >= len(prev) || targetS >= len(prev) || prev[targetD].Is("end") || prev[targetS].Is("end") {
		return false, nil
	}
	src := unwrapQ(prev, targetS)
	copied := cloneRange(prev, src, prev[src].LastIndex)
	ev.sched.AddReplace(targetD, prev[targetD].LastIndex+1, copied, nil, priReplace)
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}

// handleIns splices a verbatim copy of the literal subtree argument into
// the container-child slot addressed by offset d.
func handleIns(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	targetD := resolveTarget(prev, args[0])
	if targetD >= len(prev) || !parentIsContainer(prev, targetD) {
		return false, nil
	}
	lit := unwrapQ(prev, args[1])
	copied := cloneRange(prev, lit, prev[lit].LastIndex)
	ev.sched.AddInsert(targetD, copied, nil, priReplace)
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}

// handleMove relocates the subtree at offset s into the container-child
// slot addressed by offset d, preserving the moved tokens' identity so
// their pointers repair relative to their new position.
func handleMove(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	srcIdx := resolveTarget(prev, args[0])
	dstIdx := resolveTarget(prev, args[1])
	if srcIdx >= len(prev) || dstIdx >= len(prev) {
		return false, nil
	}
	if prev[dstIdx].Is("end") {
		lo, hi := endMoveRange(prev, dstIdx)
		if dstIdx < lo || dstIdx > hi {
			dstIdx = lo
		}
	}
	if !parentIsContainer(prev, srcIdx) || !parentIsContainer(prev, dstIdx) {
		return false, nil
	}
	moved := cloneRange(prev, srcIdx, prev[srcIdx].LastIndex)
	ev.sched.AddMove(srcIdx, prev[srcIdx].LastIndex+1, dstIdx, moved)
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}

// handleMrep moves the subtree at s over the subtree at d, replacing the
// destination and deleting the source.
func handleMrep(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	srcIdx := resolveTarget(prev, args[0])
	dstIdx := resolveTarget(prev, args[1])
	if srcIdx >= len(prev) || dstIdx >= len(prev) {
		return false, nil
	}
	if prev[dstIdx].Is("end") {
		lo, hi := endMoveRange(prev, dstIdx)
		if dstIdx < lo || dstIdx > hi {
			dstIdx = lo
		}
	}
	moved := cloneRange(prev, srcIdx, prev[srcIdx].LastIndex)
	ev.sched.AddMoveReplace(srcIdx, prev[srcIdx].LastIndex+1, dstIdx, prev[dstIdx].LastIndex+1, moved)
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}

// handleIf replaces the whole if subtree with a copy of whichever branch
// the condition selects, once the condition is static.
func handleIf(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	cond := args[0]
	if !prev[cond].IsStatic() {
		return false, nil
	}
	branch := args[2]
	if token.DataAs[int64](prev[cond]) != 0 {
		branch = args[1]
	}
	src := unwrapQ(prev, branch)
	copied := cloneRange(prev, src, prev[src].LastIndex)
	lo, hi := span(prev, pc)
	ev.sched.AddReplace(lo, hi+1, copied, nil, priReplace)
	return true, nil
}

// handleCast reinterprets x as type index tau, replacing the whole cast
// subtree with the single cast result. The result's pointer-repair origin
// is x's own old index, so the scheduler's ordinary repair pass recomputes
// the payload relative to x's former absolute position -- no ad hoc
// +offset correction needed (see DESIGN.md).
func handleCast(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	tau := token.DataAs[int32](prev[args[0]])
	if tau < 0 || int(tau) >= int(token.Ptr)+1 {
		return false, newTypeError("cast: unknown type index %d", tau)
	}
	result := prev[args[1]].Cast(token.Type(tau))
	lo, hi := span(prev, pc)
	ev.sched.AddReplace(lo, hi+1, []token.Token{result}, []int{args[1]}, priReplace)
	return true, nil
}

// handlePrint emits x's payload to the local print buffer and removes the
// whole print instruction: a list of chars is concatenated byte-for-byte,
// a single number is emitted as one byte.
func handlePrint(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	x := args[0]
	if prev[x].IsContainerHeader() && prev[x].Is("list") {
		for _, childIdx := range prev[x].Arguments {
			if !prev[childIdx].IsNum() {
				return false, nil
			}
		}
		for _, childIdx := range prev[x].Arguments {
			ev.print.WriteByte(byte(token.DataAs[int32](prev[childIdx])))
		}
	} else if prev[x].IsNum() {
		ev.print.WriteByte(byte(token.DataAs[int32](prev[x])))
	} else {
		return false, nil
	}
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}

// handleStr expands x's display string (Token.String: the decimal value
// plus its type suffix, if any) into a list-bracketed sequence of char
// tokens, replacing the whole str subtree.
func handleStr(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	x := args[0]
	if !prev[x].IsNum() {
		return false, nil
	}
	s := prev[x].String()
	listOp, _ := token.LookupOpcode("list")
	endOp, _ := token.LookupOpcode("end")
	out := make([]token.Token, 0, len(s)+2)
	out = append(out, token.NewInstr(listOp.Index))
	for _, b := range []byte(s) {
		out = append(out, token.New[int32](int32(b)))
	}
	out = append(out, token.NewInstr(endOp.Index))
	lo, hi := span(prev, pc)
	ev.sched.AddReplace(lo, hi+1, out, nil, priReplace)
	return true, nil
}

// handleBox wraps the inclusive sibling range between offsets a and b in a
// fresh list ... end pair.
func handleBox(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	ta := resolveTarget(prev, args[0])
	tb := resolveTarget(prev, args[1])
	if ta >= len(prev) || tb >= len(prev) {
		return false, nil
	}
	if ta > tb {
		ta, tb = tb, ta
	}
	hiLast := prev[tb].LastIndex
	if !parentIsContainer(prev, ta) || tokenParentOf(prev, ta) != tokenParentOf(prev, tb) {
		return false, nil
	}
	listOp, _ := token.LookupOpcode("list")
	endOp, _ := token.LookupOpcode("end")
	inner := cloneRange(prev, ta, hiLast)
	out := make([]token.Token, 0, len(inner)+2)
	out = append(out, token.NewInstr(listOp.Index))
	out = append(out, inner...)
	out = append(out, token.NewInstr(endOp.Index))
	ev.sched.AddReplace(ta, hiLast+1, out, nil, priReplace)
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}

func tokenParentOf(prev []token.Token, idx int) int { return prev[idx].ParentIndex }

// handleUnbox dissolves the container header addressed by offset a,
// dropping just its header and matching end and keeping its children.
func handleUnbox(ev *evalState, pc int) (bool, error) {
	prev := ev.prev
	args := prev[pc].Arguments
	if !ready(prev, pc) {
		return false, nil
	}
	headerIdx := resolveTarget(prev, args[0])
	if headerIdx >= len(prev) || !prev[headerIdx].IsContainerHeader() {
		return false, nil
	}
	if !(parentIsContainer(prev, headerIdx) || len(prev[headerIdx].Arguments) == 1) {
		return false, nil
	}
	endIdx := prev[headerIdx].LastIndex
	ev.sched.AddDelete(headerIdx, headerIdx+1, priStrongDelete)
	ev.sched.AddDelete(endIdx, endIdx+1, priStrongDelete)
	lo, hi := span(prev, pc)
	ev.sched.AddDelete(lo, hi+1, priWeakDelete)
	return true, nil
}
