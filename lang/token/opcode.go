package token

import "github.com/dolthub/swiss"

// DynamicArity marks an instruction whose argument count is not fixed
// (list, seq, ulist, useq): their subtree ends at the matching "end"
// instead of after a declared number of children.
const DynamicArity = -1

// Opcode is one entry of the fixed, ordered instruction table: a name, the
// number of positional arguments it takes (or DynamicArity), and its
// stable table index (usable as an Instr token's payload).
type Opcode struct {
	Name     string
	ArgCount int
	Index    int32
}

// OpcodeTable is the fixed, ordered instruction table. Indices are stable
// and double as the payload of Instr tokens; the cast instruction can
// transmute between Instr and the numeric types using these indices.
var OpcodeTable = buildOpcodeTable([]struct {
	name     string
	argCount int
}{
	{"add", 2},
	{"sub", 2},
	{"mul", 2},
	{"div", 2},
	{"mod", 2},
	{"pow", 2},
	{"log", 1},
	{"log2", 1},
	{"sin", 1},
	{"cos", 1},
	{"tan", 1},
	{"asin", 1},
	{"acos", 1},
	{"atan", 1},
	{"atan2", 2},
	{"floor", 1},
	{"ceil", 1},
	{"cmp", 2},
	{"lt", 2},
	{"gt", 2},
	{"and", 2},
	{"or", 2},
	{"xor", 2},
	{"not", 1},
	{"cpy", 2},
	{"del", 1},
	{"set", 2},
	{"repl", 2},
	{"get", 1},
	{"ins", 2},
	{"move", 2},
	{"mrep", 2},
	{"if", 3},
	{"list", DynamicArity},
	{"seq", DynamicArity},
	{"ulist", DynamicArity},
	{"useq", DynamicArity},
	{"end", 0},
	{"q", 1},
	{"cast", 2},
	{"print", 1},
	{"str", 1},
	// Supplemented from original_source/interpreter.cpp (see SPEC_FULL.md §4.6).
	{"box", 2},
	{"unbox", 1},
})

// opcodeIndex is a name -> table-index lookup, backed by a swiss.Map for
// O(1) resolution instead of a linear scan over OpcodeTable -- used by the
// compiler for every instruction word and by handlers that synthesize
// list/end tokens. Token.Opcode (and so the tree parser) indexes
// OpcodeTable directly.
var opcodeIndex = buildOpcodeIndex(OpcodeTable)

func buildOpcodeTable(defs []struct {
	name     string
	argCount int
}) []Opcode {
	table := make([]Opcode, len(defs))
	for i, d := range defs {
		table[i] = Opcode{Name: d.name, ArgCount: d.argCount, Index: int32(i)}
	}
	return table
}

func buildOpcodeIndex(table []Opcode) *swiss.Map[string, int32] {
	m := swiss.NewMap[string, int32](uint32(len(table)))
	for _, op := range table {
		m.Put(op.Name, op.Index)
	}
	return m
}

// LookupOpcode resolves an instruction name to its Opcode, or reports
// !ok if the name does not name an instruction.
func LookupOpcode(name string) (Opcode, bool) {
	idx, ok := opcodeIndex.Get(name)
	if !ok {
		return Opcode{}, false
	}
	return OpcodeTable[idx], true
}
