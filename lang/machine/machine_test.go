package machine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"bvm/lang/compiler"
	"bvm/lang/machine"
	"bvm/lang/token"
)

func runSource(t *testing.T, src string) *machine.Interpreter {
	t.Helper()
	toks, err := compiler.Compile(src)
	require.NoError(t, err)
	cfg := machine.DefaultConfig()
	cfg.PrintBufferEnabled = true
	m := machine.New(toks, cfg)
	require.NoError(t, m.Run(context.Background()))
	return m
}

func TestRunAddProducesSingleToken(t *testing.T) {
	m := runSource(t, "add 2 3")
	out := m.Tokens()
	require.Len(t, out, 1)
	require.Equal(t, token.Int32, out[0].Type)
	require.Equal(t, int32(5), token.DataAs[int32](out[0]))
	// One sweep computes 5, a second confirms the fixed point.
	require.Equal(t, 2, m.Iterations)
}

func TestRunIfSelectsBranchAfterTwoSweeps(t *testing.T) {
	m := runSource(t, "if 1 q 42 q 99")
	out := m.Tokens()
	require.Len(t, out, 1)
	require.Equal(t, int32(42), token.DataAs[int32](out[0]))
	require.Equal(t, 2, m.Iterations)
}

func TestRunIfSelectsFalseBranch(t *testing.T) {
	m := runSource(t, "if 0 q 42 q 99")
	out := m.Tokens()
	require.Len(t, out, 1)
	require.Equal(t, int32(99), token.DataAs[int32](out[0]))
}

func TestRunPrintListOfCharsLeavesDataUntouched(t *testing.T) {
	m := runSource(t, "list 1 2 3 end print list 72 105 end")
	require.Equal(t, "Hi", m.PrintBuffer.String())
	out := m.Tokens()
	require.Len(t, out, 5)
	require.True(t, out[0].Is("list"))
	require.Equal(t, int32(1), token.DataAs[int32](out[1]))
	require.Equal(t, int32(2), token.DataAs[int32](out[2]))
	require.Equal(t, int32(3), token.DataAs[int32](out[3]))
	require.True(t, out[4].Is("end"))
}

func TestRunPrintSingleNumber(t *testing.T) {
	m := runSource(t, "print 72")
	require.Equal(t, "H", m.PrintBuffer.String())
	require.Empty(t, m.Tokens())
}

func TestRunDelRemovesTargetAndItself(t *testing.T) {
	// The operand "1" at index 1 targets index (1+1)=2, the literal "99".
	m := runSource(t, "del 1 99")
	require.Empty(t, m.Tokens())
}

func TestRunGetCopiesSubtree(t *testing.T) {
	// The operand "2" at index 1 targets index (1+2)=3, the literal "7";
	// "get 2" becomes a copy of it and the untouched "0 7" follow.
	m := runSource(t, "get 2 0 7")
	out := m.Tokens()
	require.Len(t, out, 3)
	require.Equal(t, int32(7), token.DataAs[int32](out[0]))
	require.Equal(t, int32(0), token.DataAs[int32](out[1]))
	require.Equal(t, int32(7), token.DataAs[int32](out[2]))
}

func TestRunCastNumericToDouble(t *testing.T) {
	toks, err := compiler.Compile("cast double 3")
	require.NoError(t, err)
	m := machine.New(toks, machine.DefaultConfig())
	require.NoError(t, m.Run(context.Background()))
	out := m.Tokens()
	require.Len(t, out, 1)
	require.Equal(t, token.Double, out[0].Type)
	require.Equal(t, float64(3), token.DataAs[float64](out[0]))
}

func TestParseTreeFixedArity(t *testing.T) {
	toks, err := compiler.Compile("add 1 2")
	require.NoError(t, err)
	require.NoError(t, machine.Parse(toks))
	require.Equal(t, 2, toks[0].ArgCount)
	require.Equal(t, []int{1, 2}, toks[0].Arguments)
	require.Equal(t, 2, toks[0].LastIndex)
	require.Equal(t, 0, toks[1].ParentIndex)
	require.Equal(t, 0, toks[2].ParentIndex)
}

func TestParseTreeContainerSpansToEnd(t *testing.T) {
	toks, err := compiler.Compile("list 1 2 3 end")
	require.NoError(t, err)
	require.NoError(t, machine.Parse(toks))
	require.Equal(t, 4, toks[0].LastIndex)
	require.Equal(t, 3, toks[0].ArgCount)
	require.Equal(t, 0, toks[4].ParentIndex)
}

func TestParseUnmatchedEndErrors(t *testing.T) {
	toks, err := compiler.Compile("end")
	require.NoError(t, err)
	require.Error(t, machine.Parse(toks))
}

func TestParseMissingEndErrors(t *testing.T) {
	toks, err := compiler.Compile("list 1 2")
	require.NoError(t, err)
	require.Error(t, machine.Parse(toks))
}

func TestSchedulerStrongDeleteDominatesWeakDelete(t *testing.T) {
	snapshot := []token.Token{token.New[int32](1), token.New[int32](2), token.New[int32](3)}
	sched := machine.NewScheduler()
	sched.AddDelete(1, 2, machine.PriorityWeakDelete())
	sched.AddDelete(0, 3, machine.PriorityStrongDelete())
	out, err := sched.Commit(snapshot)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestSchedulerPointerRepairTracksSurvivingSuccessor(t *testing.T) {
	// ptr at index 0 targets index 1 (payload 1); index 1 gets deleted, so
	// repair should retarget to index 2, the nearest surviving successor.
	ptr := token.Token{Type: token.Ptr, Data: int64(1)}
	snapshot := []token.Token{ptr, token.New[int32](99), token.New[int32](7)}
	sched := machine.NewScheduler()
	sched.AddDelete(1, 2, machine.PriorityStrongDelete())
	out, err := sched.Commit(snapshot)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, token.Ptr, out[0].Type)
	require.Equal(t, int64(1), token.DataAs[int64](out[0])) // new index 0 -> new index 1 (the surviving "7").
}
