// Package token defines the single value representation shared by code and
// data in a BVM program: a flat, tagged cell that is either a number, a
// relative pointer, or an instruction opcode.
package token

import (
	"fmt"
	"math"
)

// Type tags the payload a Token carries.
type Type int8

const (
	Int32 Type = iota
	Int64
	Uint32
	Uint64
	Float
	Double
	Instr
	Ptr
	numTypes // keep last
)

func (t Type) String() string {
	switch t {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float:
		return "float"
	case Double:
		return "double"
	case Instr:
		return "instr"
	case Ptr:
		return "ptr"
	default:
		return "unknown"
	}
}

// ParseType resolves a type-name literal (as it appears in source, e.g.
// "int32") to its Type, used by the compiler's type-literal pass.
func ParseType(s string) (Type, bool) {
	for tp := Type(0); tp < numTypes; tp++ {
		if tp.String() == s {
			return tp, true
		}
	}
	return 0, false
}

// IsIntType reports whether t's payload is integral under the promotion
// rules in Promote (ptr and instr count as integral).
func IsIntType(t Type) bool {
	switch t {
	case Int32, Int64, Uint32, Uint64, Ptr, Instr:
		return true
	default:
		return false
	}
}

// Token is one cell of the flat program vector: a typed numeric value, a
// relative pointer, or an instruction opcode, plus the transient tree fields
// the tree parser fills in at the top of every sweep.
type Token struct {
	Type Type
	// Data holds the payload as the canonical Go numeric type for Type:
	// int32 for Int32/Instr, int64 for Int64/Ptr, uint32 for Uint32, uint64
	// for Uint64, float32 for Float, float64 for Double.
	Data any
	// OrigStr is the display string preserved from source; used only for
	// diagnostics and tracing, never read by instruction semantics.
	OrigStr string

	// Tree fields: valid only between a Parse call and the next mutation of
	// the token vector. Stale otherwise.
	ParentIndex int
	ArgCount    int
	Arguments   []int
	FirstIndex  int
	LastIndex   int
}

// HasParent reports whether the token has an enclosing parent in the tree
// view computed by the last Parse.
func (t Token) HasParent() bool { return t.ParentIndex >= 0 }

// IsNum reports whether the token carries one of the six numeric types.
func (t Token) IsNum() bool {
	switch t.Type {
	case Int32, Int64, Uint32, Uint64, Float, Double:
		return true
	default:
		return false
	}
}

// IsPtr reports whether the token is a relative pointer.
func (t Token) IsPtr() bool { return t.Type == Ptr }

// IsNumOrPtr reports whether the token is immediately usable as an operand:
// a number or a pointer.
func (t Token) IsNumOrPtr() bool { return t.IsNum() || t.IsPtr() }

// IsInstr reports whether the token is an instruction opcode cell.
func (t Token) IsInstr() bool { return t.Type == Instr }

// Opcode returns the instruction this token names, or (Opcode{}, false) if
// the token is not an instruction cell.
func (t Token) Opcode() (Opcode, bool) {
	if t.Type != Instr {
		return Opcode{}, false
	}
	idx := DataAs[int32](t)
	if int(idx) < 0 || int(idx) >= len(OpcodeTable) {
		return Opcode{}, false
	}
	return OpcodeTable[idx], true
}

// Is reports whether the token is the named instruction opcode.
func (t Token) Is(name string) bool {
	op, ok := t.Opcode()
	return ok && op.Name == name
}

// IsContainerHeader reports whether the token opens a dynamic-arity
// container (list, seq, ulist or useq).
func (t Token) IsContainerHeader() bool {
	op, ok := t.Opcode()
	if !ok {
		return false
	}
	switch op.Name {
	case "list", "seq", "ulist", "useq":
		return true
	default:
		return false
	}
}

// IsStatic reports whether the token is a value that cannot itself trigger
// further reduction: a number, a pointer, or the head of a q-quoted
// subtree (treated as opaque data).
func (t Token) IsStatic() bool {
	return t.IsNumOrPtr() || t.Is("q")
}

// New builds a numeric or pointer token directly from a Go value, deriving
// Type from T.
func New[T Numeric](v T) Token {
	var t Token
	t.Type = typeOf[T]()
	t.Data = canonicalize(t.Type, v)
	t.OrigStr = t.String()
	return t
}

// NewInstr builds an instruction-opcode token for the given opcode index.
func NewInstr(opcodeIndex int32) Token {
	t := Token{Type: Instr, Data: opcodeIndex}
	t.OrigStr = t.String()
	return t
}

// Clone returns a copy of t with its tree fields reset (as after a fresh
// token leaves a sweep's commit, before the next Parse fills them back in).
func (t Token) Clone() Token {
	c := t
	c.ParentIndex = -1
	c.ArgCount = 0
	c.Arguments = nil
	c.FirstIndex = 0
	c.LastIndex = 0
	return c
}

// Cast reinterprets t's payload as newType, performing a numeric
// conversion (never a bit reinterpretation).
func (t Token) Cast(newType Type) Token {
	c := t
	c.Type = newType
	switch newType {
	case Int32:
		c.Data = DataAs[int32](t)
	case Int64:
		c.Data = DataAs[int64](t)
	case Uint32:
		c.Data = DataAs[uint32](t)
	case Uint64:
		c.Data = DataAs[uint64](t)
	case Float:
		c.Data = DataAs[float32](t)
	case Double:
		c.Data = DataAs[float64](t)
	case Instr:
		c.Data = int32(DataAs[int64](t))
	case Ptr:
		c.Data = int64(DataAs[int64](t))
	}
	return c
}

// String renders the token the way the compiler/tracer display it: the
// numeric literal with its type suffix, the opcode name, or the pointer
// offset with a trailing "p".
func (t Token) String() string {
	switch t.Type {
	case Int32:
		return fmt.Sprintf("%d", DataAs[int32](t))
	case Int64:
		return fmt.Sprintf("%dL", DataAs[int64](t))
	case Uint32:
		return fmt.Sprintf("%du", DataAs[uint32](t))
	case Uint64:
		return fmt.Sprintf("%dU", DataAs[uint64](t))
	case Float:
		return fmt.Sprintf("%ff", DataAs[float32](t))
	case Double:
		return fmt.Sprintf("%f", DataAs[float64](t))
	case Instr:
		idx := DataAs[int32](t)
		if int(idx) >= 0 && int(idx) < len(OpcodeTable) {
			return OpcodeTable[idx].Name
		}
		return fmt.Sprintf("<bad-instr:%d>", idx)
	case Ptr:
		return fmt.Sprintf("%dp", DataAs[int64](t))
	default:
		return "<unknown>"
	}
}

// Equal is the canonical token equality used for fixed-point detection: it
// compares Type and Data, and treats NaN == NaN as true so that a
// NaN-producing program can still reach (and detect) a fixed point.
func (t Token) Equal(o Token) bool {
	if t.Type != o.Type {
		return false
	}
	switch t.Type {
	case Float:
		a, b := DataAs[float64](t), DataAs[float64](o)
		if isNaN(a) && isNaN(b) {
			return true
		}
		return a == b
	case Double:
		a, b := DataAs[float64](t), DataAs[float64](o)
		if isNaN(a) && isNaN(b) {
			return true
		}
		return a == b
	default:
		return numericEqual(t, o)
	}
}

// numericEqual is the ordinary (non-NaN-normalized) numeric comparison,
// used by Cmp.
func numericEqual(t, o Token) bool {
	if t.Type != o.Type {
		return false
	}
	switch t.Type {
	case Float, Double:
		return DataAs[float64](t) == DataAs[float64](o)
	default:
		return DataAs[int64](t) == DataAs[int64](o) && DataAs[uint64](t) == DataAs[uint64](o)
	}
}

func isNaN(f float64) bool { return math.IsNaN(f) }

// Equal reports whether two token slices are element-wise Token.Equal,
// the core of the per-sweep fixed-point check.
func Equal(a, b []Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
