package token

import "math"

// CmpReturnType is the canonical type comparison operators (cmp, lt, gt)
// cast their boolean result to.
const CmpReturnType = Int32

// IntZeroDivResultType is the type an integer division or modulo by zero
// promotes its result to.
const IntZeroDivResultType = Float

// Add computes first + second in the promoted type.
func Add(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	return binaryResult(rt, first, second, func(a, b float64) float64 { return a + b })
}

// Sub computes first - second in the promoted type.
func Sub(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	return binaryResult(rt, first, second, func(a, b float64) float64 { return a - b })
}

// Mul computes first * second in the promoted type.
func Mul(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	return binaryResult(rt, first, second, func(a, b float64) float64 { return a * b })
}

// Div computes first / second in the promoted type; integer division by
// zero promotes the result to IntZeroDivResultType.
func Div(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	if IsIntType(rt) && isZero(second) {
		rt = IntZeroDivResultType
	}
	return binaryResult(rt, first, second, func(a, b float64) float64 { return a / b })
}

// euclideanMod is the (a%b + b)%b convention used for both the integer
// and the float modulo.
func euclideanMod(a, b float64) float64 {
	return math.Mod(math.Mod(a, b)+b, b)
}

// Mod computes the Euclidean remainder of first by second in the promoted
// type; integer modulo by zero promotes the result to IntZeroDivResultType.
func Mod(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	if IsIntType(rt) && isZero(second) {
		rt = IntZeroDivResultType
	}
	return binaryResult(rt, first, second, euclideanMod)
}

// Pow computes first raised to second in the promoted type.
func Pow(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	return binaryResult(rt, first, second, math.Pow)
}

// Log computes the natural logarithm of arg, widening integer types to
// Float.
func Log(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Log) }

// Log2 computes the base-2 logarithm of arg, widening integer types to
// Float.
func Log2(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Log2) }

// Sin computes the sine of arg, widening integer types to Float.
func Sin(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Sin) }

// Cos computes the cosine of arg, widening integer types to Float.
func Cos(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Cos) }

// Tan computes the tangent of arg, widening integer types to Float.
func Tan(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Tan) }

// Asin computes the arcsine of arg, widening integer types to Float.
func Asin(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Asin) }

// Acos computes the arccosine of arg, widening integer types to Float.
func Acos(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Acos) }

// Atan computes the arctangent of arg, widening integer types to Float.
func Atan(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Atan) }

// Atan2 computes atan2(first, second), widening integer types to Float.
func Atan2(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	rt = floatOnly(rt)
	return binaryResult(rt, first, second, math.Atan2)
}

// Floor rounds arg down, widening integer types to Float.
func Floor(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Floor) }

// Ceil rounds arg up, widening integer types to Float.
func Ceil(arg Token) Token { return unaryResult(floatOnly(arg.Type), arg, math.Ceil) }

func bitwiseBinary(first, second Token, f func(a, b int64) int64) Token {
	rt := Promote(first.Type, second.Type)
	r := Token{Type: rt}
	a, b := DataAs[int64](first), DataAs[int64](second)
	res := f(a, b)
	switch rt {
	case Int32:
		r.Data = int32(res)
	case Int64:
		r.Data = res
	case Uint32:
		r.Data = uint32(res)
	case Uint64:
		r.Data = uint64(res)
	case Float:
		r.Data = float32(res)
	case Double:
		r.Data = float64(res)
	case Ptr:
		r.Data = res
	case Instr:
		r.Data = int32(res)
	}
	r.OrigStr = r.String()
	return r
}

// And computes the bitwise AND of first and second in the promoted type.
func And(first, second Token) Token {
	return bitwiseBinary(first, second, func(a, b int64) int64 { return a & b })
}

// Or computes the bitwise OR of first and second in the promoted type.
func Or(first, second Token) Token {
	return bitwiseBinary(first, second, func(a, b int64) int64 { return a | b })
}

// Xor computes the bitwise XOR of first and second in the promoted type.
func Xor(first, second Token) Token {
	return bitwiseBinary(first, second, func(a, b int64) int64 { return a ^ b })
}

// Not computes the bitwise complement of arg in its own type.
func Not(arg Token) Token {
	r := Token{Type: arg.Type}
	res := ^DataAs[int64](arg)
	switch arg.Type {
	case Int32:
		r.Data = int32(res)
	case Int64:
		r.Data = res
	case Uint32:
		r.Data = uint32(res)
	case Uint64:
		r.Data = uint64(res)
	case Float:
		r.Data = float32(res)
	case Double:
		r.Data = float64(res)
	case Ptr:
		r.Data = res
	case Instr:
		r.Data = int32(res)
	}
	r.OrigStr = r.String()
	return r
}

func boolToken(b bool) Token {
	var v int32
	if b {
		v = 1
	}
	t := Token{Type: CmpReturnType, Data: v}
	t.OrigStr = t.String()
	return t
}

// Cmp reports numeric equality of first and second (NaN != NaN, unlike
// Token.Equal), cast to CmpReturnType.
func Cmp(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	a, b := coerce(rt, first), coerce(rt, second)
	return boolToken(numericEqual(a, b))
}

// Lt reports whether first < second in the promoted type, cast to
// CmpReturnType.
func Lt(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	switch rt {
	case Float, Double:
		return boolToken(DataAs[float64](first) < DataAs[float64](second))
	case Uint32, Uint64:
		return boolToken(DataAs[uint64](first) < DataAs[uint64](second))
	default:
		return boolToken(DataAs[int64](first) < DataAs[int64](second))
	}
}

// Gt reports whether first > second in the promoted type, cast to
// CmpReturnType.
func Gt(first, second Token) Token {
	rt := Promote(first.Type, second.Type)
	switch rt {
	case Float, Double:
		return boolToken(DataAs[float64](first) > DataAs[float64](second))
	case Uint32, Uint64:
		return boolToken(DataAs[uint64](first) > DataAs[uint64](second))
	default:
		return boolToken(DataAs[int64](first) > DataAs[int64](second))
	}
}

// coerce returns a token equal to src but with Type t, reusing Cast's
// numeric-conversion semantics.
func coerce(t Type, src Token) Token { return src.Cast(t) }
