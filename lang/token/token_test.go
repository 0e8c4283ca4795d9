package token_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"bvm/lang/token"
)

func TestNewAndDataAs(t *testing.T) {
	tok := token.New[int32](7)
	require.Equal(t, token.Int32, tok.Type)
	require.Equal(t, int64(7), token.DataAs[int64](tok))
	require.Equal(t, float64(7), token.DataAs[float64](tok))
}

func TestCastIsNumericNotBitwise(t *testing.T) {
	f := token.New[float64](3.75)
	i := f.Cast(token.Int32)
	require.Equal(t, token.Int32, i.Type)
	require.Equal(t, int32(3), token.DataAs[int32](i))
}

func TestPromote(t *testing.T) {
	require.Equal(t, token.Double, token.Promote(token.Int32, token.Double))
	require.Equal(t, token.Ptr, token.Promote(token.Ptr, token.Int64))
	require.Equal(t, token.Uint64, token.Promote(token.Int64, token.Uint64))
	require.Equal(t, token.Int32, token.Promote(token.Int32, token.Int32))
}

func TestAddSubMulDiv(t *testing.T) {
	a, b := token.New[int32](4), token.New[int32](3)
	require.Equal(t, int32(7), token.DataAs[int32](token.Add(a, b)))
	require.Equal(t, int32(1), token.DataAs[int32](token.Sub(a, b)))
	require.Equal(t, int32(12), token.DataAs[int32](token.Mul(a, b)))
	require.Equal(t, int32(1), token.DataAs[int32](token.Div(a, b)))
}

func TestDivByZeroPromotesToFloat(t *testing.T) {
	a, b := token.New[int32](4), token.New[int32](0)
	r := token.Div(a, b)
	require.Equal(t, token.IntZeroDivResultType, r.Type)
	require.True(t, math.IsInf(float64(token.DataAs[float32](r)), 1))
}

func TestModEuclidean(t *testing.T) {
	a, b := token.New[int32](-1), token.New[int32](4)
	r := token.Mod(a, b)
	require.Equal(t, int32(3), token.DataAs[int32](r))
}

func TestCmpNaNNotEqual(t *testing.T) {
	nan := token.New[float64](math.NaN())
	r := token.Cmp(nan, nan)
	require.Equal(t, int32(0), token.DataAs[int32](r))
}

func TestTokenEqualNaNIsEqual(t *testing.T) {
	a := token.New[float64](math.NaN())
	b := token.New[float64](math.NaN())
	require.True(t, a.Equal(b))
}

func TestLtGt(t *testing.T) {
	a, b := token.New[int32](2), token.New[int32](5)
	require.Equal(t, int32(1), token.DataAs[int32](token.Lt(a, b)))
	require.Equal(t, int32(0), token.DataAs[int32](token.Gt(a, b)))
}

func TestBitwise(t *testing.T) {
	a, b := token.New[int32](0b1100), token.New[int32](0b1010)
	require.Equal(t, int32(0b1000), token.DataAs[int32](token.And(a, b)))
	require.Equal(t, int32(0b1110), token.DataAs[int32](token.Or(a, b)))
	require.Equal(t, int32(0b0110), token.DataAs[int32](token.Xor(a, b)))
}

func TestLookupOpcode(t *testing.T) {
	op, ok := token.LookupOpcode("add")
	require.True(t, ok)
	require.Equal(t, 2, op.ArgCount)

	_, ok = token.LookupOpcode("nope")
	require.False(t, ok)

	op, ok = token.LookupOpcode("box")
	require.True(t, ok)
	require.Equal(t, 2, op.ArgCount)
}

func TestEqualSlice(t *testing.T) {
	a := []token.Token{token.New[int32](1), token.New[int32](2)}
	b := []token.Token{token.New[int32](1), token.New[int32](2)}
	require.True(t, token.Equal(a, b))
	c := []token.Token{token.New[int32](1), token.New[int32](3)}
	require.False(t, token.Equal(a, c))
}
