package token

import "fmt"

// Numeric is the set of Go types a Token's Data field can hold.
type Numeric interface {
	~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func typeOf[T Numeric]() Type {
	var zero T
	switch any(zero).(type) {
	case int32:
		return Int32
	case int64:
		return Int64
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float
	case float64:
		return Double
	default:
		panic(fmt.Sprintf("token: unknown numeric type %T", zero))
	}
}

// canonicalize converts v to the canonical Go storage type for typ.
func canonicalize[T Numeric](typ Type, v T) any {
	switch typ {
	case Int32, Instr:
		return int32(v)
	case Int64, Ptr:
		return int64(v)
	case Uint32:
		return uint32(v)
	case Uint64:
		return uint64(v)
	case Float:
		return float32(v)
	case Double:
		return float64(v)
	default:
		panic(fmt.Sprintf("token: unknown token type %v", typ))
	}
}

// DataAs reads t's payload as T via a genuine numeric conversion (matching
// get_data_cast in the reference implementation): never a bit
// reinterpretation, regardless of the token's own Type.
func DataAs[T Numeric](t Token) T {
	switch v := t.Data.(type) {
	case int32:
		return T(v)
	case int64:
		return T(v)
	case uint32:
		return T(v)
	case uint64:
		return T(v)
	case float32:
		return T(v)
	case float64:
		return T(v)
	default:
		panic(fmt.Sprintf("token: unknown token data type %T", t.Data))
	}
}

// SetData overwrites t's payload with v, converted to t's current Type.
func SetData[T Numeric](t Token, v T) Token {
	t.Data = canonicalize(t.Type, v)
	t.OrigStr = t.String()
	return t
}

// Promote picks the wider of two operand types under the promotion order
// double > float > ptr > uint64 > int64 > uint32 > int32.
func Promote(a, b Type) Type {
	switch {
	case a == Double || b == Double:
		return Double
	case a == Float || b == Float:
		return Float
	case a == Ptr || b == Ptr:
		return Ptr
	case a == Uint64 || b == Uint64:
		return Uint64
	case a == Int64 || b == Int64:
		return Int64
	case a == Uint32 || b == Uint32:
		return Uint32
	case a == Int32 || b == Int32:
		return Int32
	default:
		panic(fmt.Sprintf("token: cannot determine promoted type for %v, %v", a, b))
	}
}

// floatOnly widens an int-family type to Float for the trigonometric
// and other float-only unary ops.
func floatOnly(t Type) Type {
	if IsIntType(t) {
		return Float
	}
	return t
}

func isZero(t Token) bool {
	switch t.Type {
	case Float, Double:
		return DataAs[float64](t) == 0
	default:
		return DataAs[int64](t) == 0 && DataAs[uint64](t) == 0
	}
}

func binaryResult(retType Type, a, b Token, f func(x, y float64) float64) Token {
	r := Token{Type: retType}
	switch retType {
	case Int32:
		r.Data = int32(f(float64(DataAs[int32](a)), float64(DataAs[int32](b))))
	case Int64:
		r.Data = int64(f(float64(DataAs[int64](a)), float64(DataAs[int64](b))))
	case Uint32:
		r.Data = uint32(f(float64(DataAs[uint32](a)), float64(DataAs[uint32](b))))
	case Uint64:
		r.Data = uint64(f(float64(DataAs[uint64](a)), float64(DataAs[uint64](b))))
	case Float:
		r.Data = float32(f(float64(DataAs[float32](a)), float64(DataAs[float32](b))))
	case Double:
		r.Data = f(DataAs[float64](a), DataAs[float64](b))
	case Ptr:
		r.Data = int64(f(float64(DataAs[int64](a)), float64(DataAs[int64](b))))
	case Instr:
		r.Data = int32(f(float64(DataAs[int32](a)), float64(DataAs[int32](b))))
	default:
		panic(fmt.Sprintf("token: unknown token type %v", retType))
	}
	r.OrigStr = r.String()
	return r
}

func unaryResult(retType Type, a Token, f func(x float64) float64) Token {
	r := Token{Type: retType}
	switch retType {
	case Int32:
		r.Data = int32(f(float64(DataAs[int32](a))))
	case Int64:
		r.Data = int64(f(float64(DataAs[int64](a))))
	case Uint32:
		r.Data = uint32(f(float64(DataAs[uint32](a))))
	case Uint64:
		r.Data = uint64(f(float64(DataAs[uint64](a))))
	case Float:
		r.Data = float32(f(float64(DataAs[float32](a))))
	case Double:
		r.Data = f(DataAs[float64](a))
	case Ptr:
		r.Data = int64(f(float64(DataAs[int64](a))))
	case Instr:
		r.Data = int32(f(float64(DataAs[int32](a))))
	default:
		panic(fmt.Sprintf("token: unknown token type %v", retType))
	}
	r.OrigStr = r.String()
	return r
}
