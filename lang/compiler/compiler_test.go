package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bvm/lang/compiler"
	"bvm/lang/token"
)

func TestCompileSimpleArithmetic(t *testing.T) {
	toks, err := compiler.Compile("add 2 3")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	require.True(t, toks[0].Is("add"))
	require.Equal(t, token.Int32, toks[1].Type)
	require.Equal(t, int32(2), token.DataAs[int32](toks[1]))
	require.Equal(t, int32(3), token.DataAs[int32](toks[2]))
}

func TestCompileSkipsComments(t *testing.T) {
	toks, err := compiler.Compile("add 2 3 # trailing comment\n")
	require.NoError(t, err)
	require.Len(t, toks, 3)
}

func TestCompileNumericSuffixes(t *testing.T) {
	toks, err := compiler.Compile("7L 3u 9U 1.5f 2.25 4p")
	require.NoError(t, err)
	require.Equal(t, token.Int64, toks[0].Type)
	require.Equal(t, token.Uint32, toks[1].Type)
	require.Equal(t, token.Uint64, toks[2].Type)
	require.Equal(t, token.Float, toks[3].Type)
	require.Equal(t, token.Double, toks[4].Type)
	require.Equal(t, token.Ptr, toks[5].Type)
}

func TestCompileStringLiteralExpandsToList(t *testing.T) {
	toks, err := compiler.Compile(`"Hi"`)
	require.NoError(t, err)
	require.Len(t, toks, 4) // list 'H' 'i' end
	require.True(t, toks[0].Is("list"))
	require.Equal(t, int32('H'), token.DataAs[int32](toks[1]))
	require.Equal(t, int32('i'), token.DataAs[int32](toks[2]))
	require.True(t, toks[3].Is("end"))
}

func TestCompileTypeLiteral(t *testing.T) {
	toks, err := compiler.Compile("cast int32 5")
	require.NoError(t, err)
	require.True(t, toks[0].Is("cast"))
	require.Equal(t, int32(token.Int32), token.DataAs[int32](toks[1]))
}

func TestCompileLabelResolvesToRelativePointer(t *testing.T) {
	toks, err := compiler.Compile("0 :here here")
	require.NoError(t, err)
	// words: "0" "here" -- ":here" tags index 0 (the word right before it);
	// the bare word "here" at index 1 resolves to a ptr with payload -1.
	require.Len(t, toks, 2)
	require.Equal(t, token.Int32, toks[0].Type)
	require.Equal(t, token.Ptr, toks[1].Type)
	require.Equal(t, int64(-1), token.DataAs[int64](toks[1]))
}

func TestCompileUnknownTokenErrors(t *testing.T) {
	_, err := compiler.Compile("bogus_instr 1 2")
	require.Error(t, err)
}

func TestCompileUnterminatedStringErrors(t *testing.T) {
	_, err := compiler.Compile(`"unterminated`)
	require.Error(t, err)
}
