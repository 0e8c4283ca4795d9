package machine

import (
	"github.com/dolthub/swiss"

	"bvm/lang/token"
)

// opPriority totally orders pending-op kinds so overlapping edits resolve
// deterministically: higher wins. Grounded on spec §4.5's priority lattice.
type opPriority int8

const (
	priNull opPriority = iota
	priTemp
	priFuncReplace
	priMove
	priMrepSrc
	priWeakDelete
	priReplace
	priStrongDelete
)

// editKind distinguishes the five pending-op shapes the scheduler commits in
// a fixed order.
type editKind int8

const (
	editDelete editKind = iota
	editInsert
	editMove
	editMoveReplace
	editReplace
)

// pendingOp is one queued structural edit, recorded against the
// sweep-snapshot's old indices only. begin/end is a half-open old-index
// delete range (used by delete/move/moveReplace/replace); for
// editMoveReplace, dstBegin/dstEnd is the additional destination range that
// gets deleted. anchor is the old index new tokens are spliced before (N is
// "at the very end"). origin parallels tokens: the old index each inserted
// token is sourced from (for pointer repair), or -1 if freshly synthesized.
type pendingOp struct {
	kind             editKind
	prio             opPriority
	begin, end       int
	dstBegin, dstEnd int
	anchor           int
	tokens           []token.Token
	origin           []int
	seq              int
}

// Scheduler accumulates one sweep's pending operations and commits them into
// a single rewritten token vector, repairing every surviving relative
// pointer. This is the evaluator's reconciliation engine (spec §4.5).
type Scheduler struct {
	ops         []pendingOp
	newPointers *swiss.Map[int, int64]
	seq         int
}

// NewScheduler returns an empty scheduler ready to accumulate one sweep's
// pending operations.
func NewScheduler() *Scheduler {
	return &Scheduler{newPointers: swiss.NewMap[int, int64](8)}
}

func (s *Scheduler) next() int {
	s.seq++
	return s.seq
}

// AddDelete queues removal of the old-index range [begin,end) at priority
// prio.
func (s *Scheduler) AddDelete(begin, end int, prio opPriority) {
	if begin >= end {
		return
	}
	s.ops = append(s.ops, pendingOp{kind: editDelete, prio: prio, begin: begin, end: end, seq: s.next()})
}

// AddInsert queues splicing tokens (with per-token origin, or nil for all
// freshly synthesized) immediately before old index anchor.
func (s *Scheduler) AddInsert(anchor int, tokens []token.Token, origin []int, prio opPriority) {
	s.ops = append(s.ops, pendingOp{kind: editInsert, prio: prio, anchor: anchor, tokens: tokens, origin: origin, seq: s.next()})
}

// AddReplace queues deleting [begin,end) and splicing tokens in its place,
// at priority prio (priReplace for data rewrites, priFuncReplace for
// arithmetic results so they never clobber a data rewrite of the same
// slot).
func (s *Scheduler) AddReplace(begin, end int, tokens []token.Token, origin []int, prio opPriority) {
	s.ops = append(s.ops, pendingOp{kind: editReplace, prio: prio, begin: begin, end: end, anchor: begin, tokens: tokens, origin: origin, seq: s.next()})
}

// AddMove queues relocating old-index range [begin,end) to just before old
// index dstAnchor: the source range is deleted at priMove and the same
// tokens are spliced at the destination, with origin tracking back to their
// pre-move old indices for pointer repair.
func (s *Scheduler) AddMove(begin, end, dstAnchor int, tokens []token.Token) {
	origin := make([]int, len(tokens))
	for i := range origin {
		origin[i] = begin + i
	}
	s.ops = append(s.ops, pendingOp{kind: editMove, prio: priMove, begin: begin, end: end, anchor: dstAnchor, tokens: tokens, origin: origin, seq: s.next()})
}

// AddMoveReplace queues relocating [begin,end) over [dstBegin,dstEnd): the
// source range is deleted at priMrepSrc, the destination range is deleted
// at priReplace, and the moved tokens are spliced at dstBegin.
func (s *Scheduler) AddMoveReplace(begin, end, dstBegin, dstEnd int, tokens []token.Token) {
	origin := make([]int, len(tokens))
	for i := range origin {
		origin[i] = begin + i
	}
	s.ops = append(s.ops, pendingOp{
		kind: editMoveReplace, prio: priMrepSrc,
		begin: begin, end: end, dstBegin: dstBegin, dstEnd: dstEnd,
		anchor: dstBegin, tokens: tokens, origin: origin, seq: s.next(),
	})
}

// SetPointer records an explicit relative-pointer payload override for the
// token originally at oldIndex, consulted during pointer repair instead of
// the snapshot's own payload. No instruction handler calls it: cast instead
// passes its operand's old index as the result's origin to AddReplace (see
// DESIGN.md's open-question decisions).
func (s *Scheduler) SetPointer(oldIndex int, payload int64) {
	s.newPointers.Put(oldIndex, payload)
}

// Empty reports whether no operations were queued this sweep.
func (s *Scheduler) Empty() bool { return len(s.ops) == 0 }

// PriorityWeakDelete and PriorityStrongDelete expose the two delete-priority
// levels for tests exercising the scheduler directly against a hand-built
// snapshot, without going through the instruction handlers.
func PriorityWeakDelete() opPriority   { return priWeakDelete }
func PriorityStrongDelete() opPriority { return priStrongDelete }

type slotState struct {
	deleted bool
	prio    opPriority
}

// Commit reconciles every queued operation against snapshot and returns the
// rewritten token vector. N = len(snapshot); old index N is the sentinel
// "one past the end", always a valid pointer target and never deleted.
func (s *Scheduler) Commit(snapshot []token.Token) ([]token.Token, error) {
	n := len(snapshot)
	slots := make([]slotState, n+1) // index n is the sentinel: never deleted.

	applyDelete := func(begin, end int, prio opPriority) {
		for i := begin; i < end && i < n; i++ {
			if prio >= slots[i].prio {
				slots[i].prio = prio
				slots[i].deleted = true
			}
		}
	}

	// Phase 1: mark every slot's fate. Commit order: delete, (insert has no
	// delete-side effect), move (reverse), movereplace (reverse), replace
	// (reverse; func-replace shares the replace kind but lower priority so
	// it is naturally dominated where it overlaps a data replace).
	byKindReversed := func(kind editKind) []pendingOp {
		var out []pendingOp
		for i := len(s.ops) - 1; i >= 0; i-- {
			if s.ops[i].kind == kind {
				out = append(out, s.ops[i])
			}
		}
		return out
	}

	for _, op := range s.ops {
		if op.kind == editDelete {
			applyDelete(op.begin, op.end, op.prio)
		}
	}
	for _, op := range byKindReversed(editMove) {
		applyDelete(op.begin, op.end, op.prio)
	}
	for _, op := range byKindReversed(editMoveReplace) {
		applyDelete(op.begin, op.end, priMrepSrc)
		applyDelete(op.dstBegin, op.dstEnd, priReplace)
	}
	for _, op := range byKindReversed(editReplace) {
		applyDelete(op.begin, op.end, op.prio)
	}

	// Phase 2: gather insertion batches by anchor, preserving the same
	// commit-order precedence (delete ops carry no inserts; insert, then
	// move, then movereplace, then replace/funcReplace, each group in the
	// order just used for deletion marking).
	type insertBatch struct {
		tokens []token.Token
		origin []int
		seq    int
		moved  bool
	}
	byAnchor := make(map[int][]insertBatch)
	addBatch := func(anchor int, tokens []token.Token, origin []int, seq int, moved bool) {
		if len(tokens) == 0 {
			return
		}
		byAnchor[anchor] = append(byAnchor[anchor], insertBatch{tokens: tokens, origin: origin, seq: seq, moved: moved})
	}
	for _, op := range s.ops {
		if op.kind == editInsert {
			addBatch(op.anchor, op.tokens, op.origin, op.seq, false)
		}
	}
	for _, op := range byKindReversed(editMove) {
		addBatch(op.anchor, op.tokens, op.origin, op.seq, true)
	}
	for _, op := range byKindReversed(editMoveReplace) {
		addBatch(op.anchor, op.tokens, op.origin, op.seq, true)
	}
	// A replace whose range an op of higher priority also claimed is
	// dominated: its tokens are not spliced in.
	dominated := func(op pendingOp) bool {
		for i := op.begin; i < op.end && i < n; i++ {
			if slots[i].prio > op.prio {
				return true
			}
		}
		return false
	}
	for _, op := range byKindReversed(editReplace) {
		if dominated(op) {
			continue
		}
		addBatch(op.anchor, op.tokens, op.origin, op.seq, false)
	}

	// Phase 3: walk old positions 0..n, emitting queued insertion batches
	// (lowest seq first within an anchor, to keep a stable order) before
	// any surviving token at that position, then finally the batches
	// anchored at the sentinel n.
	newIndexOf := make([]int, n+1)
	newLen := 0
	var out []token.Token
	var indexShiftRev []int // new index -> old index, or -1 if synthesized
	// movedOldToNew records, for every old index relocated by move/
	// moveReplace, the new index its token landed at: per spec §4.5 a
	// pointer targeting a relocated token must follow it to its new
	// position rather than resolve to the nearest surviving successor.
	movedOldToNew := make(map[int]int)

	emitAnchor := func(anchor int) {
		batches := byAnchor[anchor]
		for bi := 0; bi < len(batches); bi++ {
			best := bi
			for bj := bi + 1; bj < len(batches); bj++ {
				if batches[bj].seq < batches[best].seq {
					best = bj
				}
			}
			batches[bi], batches[best] = batches[best], batches[bi]
		}
		for _, b := range batches {
			for i, t := range b.tokens {
				out = append(out, t)
				origin := -1
				if b.origin != nil {
					origin = b.origin[i]
				}
				indexShiftRev = append(indexShiftRev, origin)
				if b.moved && origin >= 0 {
					movedOldToNew[origin] = newLen
				}
				newLen++
			}
		}
	}

	for old := 0; old < n; old++ {
		emitAnchor(old)
		if !slots[old].deleted {
			out = append(out, snapshot[old])
			indexShiftRev = append(indexShiftRev, old)
			newIndexOf[old] = newLen
			newLen++
		} else {
			newIndexOf[old] = -1
		}
	}
	emitAnchor(n)
	newIndexOf[n] = newLen // sentinel always maps past the final token

	// Fill in newIndexOf for deleted slots: a slot whose token was
	// relocated by move/moveReplace resolves to that new position; every
	// other deleted slot resolves to the next surviving (or sentinel) old
	// index.
	nextSurviving := newIndexOf[n]
	for old := n - 1; old >= 0; old-- {
		if newIndexOf[old] == -1 {
			if newIdx, ok := movedOldToNew[old]; ok {
				newIndexOf[old] = newIdx
			} else {
				newIndexOf[old] = nextSurviving
			}
		} else {
			nextSurviving = newIndexOf[old]
		}
	}

	if err := s.repairPointers(out, snapshot, indexShiftRev, newIndexOf, slots, n); err != nil {
		return nil, err
	}
	return out, nil
}

// repairPointers rewrites every ptr token's payload in place so relative
// addressing survives the rewrite, per spec §4.5's "Pointer repair".
func (s *Scheduler) repairPointers(out, snapshot []token.Token, indexShiftRev []int, newIndexOf []int, slots []slotState, nOld int) error {
	for newIdx := range out {
		if out[newIdx].Type != token.Ptr {
			continue
		}
		oldIdx := indexShiftRev[newIdx]
		if oldIdx < 0 {
			continue // freshly synthesized pointer: left as the handler computed it.
		}
		var payload int64
		if v, ok := s.newPointers.Get(oldIdx); ok {
			payload = v
		} else if oldIdx < len(snapshot) {
			payload = token.DataAs[int64](snapshot[oldIdx])
		} else {
			payload = token.DataAs[int64](out[newIdx])
		}
		oldTarget := int(mod(int64(oldIdx)+payload, int64(nOld+1)))
		// newIndexOf already resolves a deleted target: to its token's new
		// position if move/mrep relocated it, else to the nearest surviving
		// successor.
		newTarget := newIndexOf[oldTarget]
		newPayload := int64(newTarget - newIdx)
		out[newIdx] = token.SetData[int64](out[newIdx], newPayload)
	}
	return nil
}

// mod is Euclidean modulo, matching the ring arithmetic used for pointer
// targets (never negative).
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
