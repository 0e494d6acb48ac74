package number

import (
	"cmp"
	"math"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Op is an arithmetic operator.
type Op int8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpQuo
	OpRem
	OpPow
)

var opnames = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpQuo: "/",
	OpRem: "%",
	OpPow: "^",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(opnames) {
		return "Op(" + strconv.Itoa(int(op)) + ")"
	}
	return opnames[op]
}

// Add returns x + y.
func Add(c *Context, x, y Value) (Value, error) {
	return arith(c, OpAdd, x, y)
}

// Sub returns x - y.
func Sub(c *Context, x, y Value) (Value, error) {
	return arith(c, OpSub, x, y)
}

// Mul returns x * y.
func Mul(c *Context, x, y Value) (Value, error) {
	return arith(c, OpMul, x, y)
}

// Quo returns x / y. Division by zero is an error for both kinds.
func Quo(c *Context, x, y Value) (Value, error) {
	return arith(c, OpQuo, x, y)
}

// Rem returns the remainder of x / y truncated toward zero. The result has
// the sign of x.
func Rem(c *Context, x, y Value) (Value, error) {
	return arith(c, OpRem, x, y)
}

// Pow returns x raised to the power y. A negative base with a fractional
// exponent is an error for both kinds.
func Pow(c *Context, x, y Value) (Value, error) {
	return arith(c, OpPow, x, y)
}

// Arith applies op to x and y.
func Arith(c *Context, op Op, x, y Value) (Value, error) {
	return arith(c, op, x, y)
}

func arith(c *Context, op Op, x, y Value) (Value, error) {
	if x.kind == Float && y.kind == Float {
		r, err := floatOp(op, x.f, y.f)
		if err != nil {
			return Value{}, err
		}
		return Float64(r), nil
	}
	a, err := x.dec()
	if err != nil {
		return Value{}, err
	}
	b, err := y.dec()
	if err != nil {
		return Value{}, err
	}
	r, err := decOp(c.dec(), op, a, b)
	if err != nil {
		return Value{}, err
	}
	return decValue(r), nil
}

// Neg returns -x.
func Neg(x Value) Value {
	if x.kind == Decimal {
		return decValue(new(apd.Decimal).Neg(x.d))
	}
	return Float64(-x.f)
}

// Abs returns |x|.
func Abs(x Value) Value {
	if x.kind == Decimal {
		return decValue(new(apd.Decimal).Abs(x.d))
	}
	return Float64(math.Abs(x.f))
}

// Cmp compares x and y numerically, returning -1, 0, or 1. Float NaN
// compares less than every other value, as with cmp.Compare.
func Cmp(x, y Value) int {
	if x.kind == Float && y.kind == Float || x.IsNaN() || y.IsNaN() {
		return cmp.Compare(x.Float64(), y.Float64())
	}
	// Neither operand is NaN, so both convert.
	a, _ := x.dec()
	b, _ := y.dec()
	return a.Cmp(b)
}

// floatOp performs op on floats. Results that are NaN, and quotients, remainders,
// or powers that overflow from finite operands, are errors.
func floatOp(op Op, x, y float64) (float64, error) {
	var r float64
	switch op {
	case OpAdd:
		r = x + y
	case OpSub:
		r = x - y
	case OpMul:
		r = x * y
	case OpQuo:
		if y == 0 {
			return 0, &ArithmeticError{Op: op.String(), Msg: "division by zero"}
		}
		r = x / y
	case OpRem:
		if y == 0 {
			return 0, &ArithmeticError{Op: op.String(), Msg: "division by zero"}
		}
		r = math.Mod(x, y)
	case OpPow:
		if x < 0 && y != math.Trunc(y) && !math.IsInf(y, 0) {
			return 0, &ArithmeticError{Op: op.String(), Msg: "negative base " + ftoa(x) + " with fractional exponent " + ftoa(y)}
		}
		r = math.Pow(x, y)
	default:
		panic("number: invalid op " + op.String())
	}
	if math.IsNaN(r) && !math.IsNaN(x) && !math.IsNaN(y) {
		return 0, &ArithmeticError{Op: op.String(), Msg: "result of " + ftoa(x) + " " + op.String() + " " + ftoa(y) + " is not a number"}
	}
	if op >= OpQuo && math.IsInf(r, 0) && !math.IsInf(x, 0) && !math.IsInf(y, 0) {
		return 0, &ArithmeticError{Op: op.String(), Msg: "result of " + ftoa(x) + " " + op.String() + " " + ftoa(y) + " is not finite"}
	}
	return r, nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// decOp performs op on decimals with the given context.
func decOp(ac *apd.Context, op Op, x, y *apd.Decimal) (*apd.Decimal, error) {
	r := new(apd.Decimal)
	var err error
	switch op {
	case OpAdd:
		_, err = ac.Add(r, x, y)
	case OpSub:
		_, err = ac.Sub(r, x, y)
	case OpMul:
		_, err = ac.Mul(r, x, y)
	case OpQuo:
		if y.IsZero() {
			return nil, &ArithmeticError{Op: op.String(), Msg: "division by zero"}
		}
		_, err = ac.Quo(r, x, y)
	case OpRem:
		if y.IsZero() {
			return nil, &ArithmeticError{Op: op.String(), Msg: "division by zero"}
		}
		_, err = ac.Rem(r, x, y)
	case OpPow:
		if x.Sign() < 0 && y.Form == apd.Finite {
			if _, frac, _ := splitDec(y); frac {
				return nil, &ArithmeticError{Op: op.String(), Msg: "negative base " + x.String() + " with fractional exponent " + y.String()}
			}
		}
		_, err = ac.Pow(r, x, y)
	default:
		panic("number: invalid op " + op.String())
	}
	if err != nil {
		return nil, &ArithmeticError{Op: op.String(), Err: err}
	}
	return r, nil
}

// Not returns the bitwise complement of x, -x - 1. x must be an integer.
func Not(x Value) (Value, error) {
	a, err := x.bigInt("not", true)
	if err != nil {
		return Value{}, err
	}
	return BigInt(x.kind, a.Not(a)), nil
}

// And returns the bitwise conjunction of integers x and y.
func And(x, y Value) (Value, error) {
	return bitwise("and", (*big.Int).And, x, y)
}

// Or returns the bitwise disjunction of integers x and y.
func Or(x, y Value) (Value, error) {
	return bitwise("or", (*big.Int).Or, x, y)
}

// Xor returns the bitwise exclusive disjunction of integers x and y.
func Xor(x, y Value) (Value, error) {
	return bitwise("xor", (*big.Int).Xor, x, y)
}

func bitwise(op string, f func(z, x, y *big.Int) *big.Int, x, y Value) (Value, error) {
	a, err := x.bigInt(op, true)
	if err != nil {
		return Value{}, err
	}
	b, err := y.bigInt(op, true)
	if err != nil {
		return Value{}, err
	}
	k := Float
	if x.kind == Decimal || y.kind == Decimal {
		k = Decimal
	}
	return BigInt(k, f(a, a, b)), nil
}
