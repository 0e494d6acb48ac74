package number

import (
	"math"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Width is a raw representation for a pair of untyped numbers, ordered from
// narrowest to widest.
type Width int8

const (
	WidthInt64 Width = iota
	WidthBigInt
	WidthFloat64
	WidthDecimal
)

func (w Width) String() string {
	switch w {
	case WidthInt64:
		return "int64"
	case WidthBigInt:
		return "bigint"
	case WidthFloat64:
		return "float64"
	case WidthDecimal:
		return "decimal"
	default:
		return "Width(" + strconv.Itoa(int(w)) + ")"
	}
}

// maxExactFloatInt is the largest magnitude below which every integer is
// exactly representable as a float64.
const maxExactFloatInt = 1 << 53

// raw is an untyped number sorted into its family.
type raw struct {
	// isInt marks Go integers and *big.Int.
	isInt bool
	// fits is set for integers within int64.
	fits bool
	i    int64
	b    *big.Int
	// isFloat marks float32, float64 and float-kind Values.
	isFloat bool
	f       float64
	// d is set for decimals and decimal-kind Values.
	d *apd.Decimal
}

func classify(v any) (raw, error) {
	switch v := v.(type) {
	case int:
		return raw{isInt: true, fits: true, i: int64(v)}, nil
	case int8:
		return raw{isInt: true, fits: true, i: int64(v)}, nil
	case int16:
		return raw{isInt: true, fits: true, i: int64(v)}, nil
	case int32:
		return raw{isInt: true, fits: true, i: int64(v)}, nil
	case int64:
		return raw{isInt: true, fits: true, i: v}, nil
	case uint8:
		return raw{isInt: true, fits: true, i: int64(v)}, nil
	case uint16:
		return raw{isInt: true, fits: true, i: int64(v)}, nil
	case uint32:
		return raw{isInt: true, fits: true, i: int64(v)}, nil
	case uint:
		return classifyBig(new(big.Int).SetUint64(uint64(v))), nil
	case uint64:
		return classifyBig(new(big.Int).SetUint64(v)), nil
	case *big.Int:
		if v != nil {
			return classifyBig(v), nil
		}
	case float32:
		return raw{isFloat: true, f: float64(v)}, nil
	case float64:
		return raw{isFloat: true, f: v}, nil
	case *apd.Decimal:
		if v != nil {
			return raw{d: v}, nil
		}
	case Value:
		if v.kind == Float {
			return raw{isFloat: true, f: v.f}, nil
		}
		return raw{d: v.d}, nil
	}
	return raw{}, &TypeError{Value: v}
}

func classifyBig(b *big.Int) raw {
	if b.IsInt64() {
		return raw{isInt: true, fits: true, i: b.Int64()}
	}
	return raw{isInt: true, b: b}
}

// integral reports whether r has no fractional part.
func (r raw) integral() bool {
	switch {
	case r.isInt:
		return true
	case r.isFloat:
		return !math.IsInf(r.f, 0) && r.f == math.Trunc(r.f)
	}
	_, frac, err := splitDec(r.d)
	return err == nil && !frac
}

// floaty reports whether r is exactly representable as a float64.
func (r raw) floaty() bool {
	switch {
	case r.isFloat:
		return true
	case r.isInt && r.fits:
		return -maxExactFloatInt <= r.i && r.i <= maxExactFloatInt
	}
	return false
}

func (r raw) bigInt() *big.Int {
	switch {
	case r.isInt && r.fits:
		return big.NewInt(r.i)
	case r.isInt:
		return r.b
	case r.isFloat:
		b, _ := new(big.Float).SetFloat64(r.f).Int(nil)
		return b
	}
	b, _, _ := splitDec(r.d)
	return b
}

func (r raw) float64() float64 {
	if r.isFloat {
		return r.f
	}
	return float64(r.i)
}

func (r raw) decimal() (*apd.Decimal, error) {
	switch {
	case r.isInt && r.fits:
		return apd.New(r.i, 0), nil
	case r.isInt:
		return bigToDec(r.b), nil
	case r.isFloat:
		return floatToDec(r.f)
	}
	return r.d, nil
}

func widen(x, y raw) Width {
	switch {
	case x.fits && y.fits:
		return WidthInt64
	case x.isInt && !x.fits && y.integral(), y.isInt && !y.fits && x.integral():
		return WidthBigInt
	case x.floaty() && y.floaty():
		return WidthFloat64
	}
	return WidthDecimal
}

// Widen returns the narrowest representation that is exact for both a and b:
// int64 if both are integers that fit in an int64; otherwise *big.Int if
// either is an integer too large for int64 and the other is integral;
// otherwise float64 if both are floats or integers small enough to convert
// exactly; otherwise decimal.
func Widen(a, b any) (Width, error) {
	x, err := classify(a)
	if err != nil {
		return 0, err
	}
	y, err := classify(b)
	if err != nil {
		return 0, err
	}
	return widen(x, y), nil
}

// Raw applies op to untyped numbers a and b in the representation chosen by
// Widen. The result is an int64, *big.Int, float64, or *apd.Decimal. Integer
// results that overflow int64 become *big.Int, big integer results that fit
// become int64 again, and inexact integer quotients or negative integer
// powers become decimals.
func Raw(c *Context, op Op, a, b any) (any, error) {
	x, err := classify(a)
	if err != nil {
		return nil, err
	}
	y, err := classify(b)
	if err != nil {
		return nil, err
	}
	switch widen(x, y) {
	case WidthInt64:
		return rawInt64(c, op, x, y)
	case WidthBigInt:
		return rawBig(c, op, x.bigInt(), y.bigInt())
	case WidthFloat64:
		r, err := floatOp(op, x.float64(), y.float64())
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return rawDec(c, op, x, y)
}

// RawCmp compares untyped numbers a and b in the representation chosen by
// Widen.
func RawCmp(a, b any) (int, error) {
	x, err := classify(a)
	if err != nil {
		return 0, err
	}
	y, err := classify(b)
	if err != nil {
		return 0, err
	}
	switch widen(x, y) {
	case WidthInt64:
		switch {
		case x.i < y.i:
			return -1, nil
		case x.i > y.i:
			return 1, nil
		}
		return 0, nil
	case WidthBigInt:
		return x.bigInt().Cmp(y.bigInt()), nil
	case WidthFloat64:
		return Cmp(Float64(x.float64()), Float64(y.float64())), nil
	}
	// NaN sorts below everything, as with cmp.Compare.
	xnan, ynan := x.isFloat && math.IsNaN(x.f), y.isFloat && math.IsNaN(y.f)
	switch {
	case xnan && ynan:
		return 0, nil
	case xnan:
		return -1, nil
	case ynan:
		return 1, nil
	}
	p, err := x.decimal()
	if err != nil {
		return 0, err
	}
	q, err := y.decimal()
	if err != nil {
		return 0, err
	}
	return p.Cmp(q), nil
}

func rawInt64(c *Context, op Op, x, y raw) (any, error) {
	a, b := x.i, y.i
	switch op {
	case OpAdd:
		r := a + b
		if (b > 0 && r < a) || (b < 0 && r > a) {
			break
		}
		return r, nil
	case OpSub:
		r := a - b
		if (b > 0 && r > a) || (b < 0 && r < a) {
			break
		}
		return r, nil
	case OpMul:
		if a == 0 || b == 0 {
			return int64(0), nil
		}
		r := a * b
		if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			break
		}
		return r, nil
	case OpQuo:
		if b == 0 {
			return nil, &ArithmeticError{Op: op.String(), Msg: "division by zero"}
		}
		if a%b != 0 {
			return rawDec(c, op, x, y)
		}
		if a == math.MinInt64 && b == -1 {
			break
		}
		return a / b, nil
	case OpRem:
		if b == 0 {
			return nil, &ArithmeticError{Op: op.String(), Msg: "division by zero"}
		}
		if b == -1 {
			return int64(0), nil
		}
		return a % b, nil
	case OpPow:
		if b < 0 {
			return rawDec(c, op, x, y)
		}
	}
	return rawBig(c, op, big.NewInt(a), big.NewInt(b))
}

// maxExpBits limits integer exponents so that powers stay computable.
const maxExpBits = 24

func rawBig(c *Context, op Op, a, b *big.Int) (any, error) {
	r := new(big.Int)
	switch op {
	case OpAdd:
		r.Add(a, b)
	case OpSub:
		r.Sub(a, b)
	case OpMul:
		r.Mul(a, b)
	case OpQuo:
		if b.Sign() == 0 {
			return nil, &ArithmeticError{Op: op.String(), Msg: "division by zero"}
		}
		var m big.Int
		r.QuoRem(a, b, &m)
		if m.Sign() != 0 {
			return boxDec(decOp(c.dec(), op, bigToDec(a), bigToDec(b)))
		}
	case OpRem:
		if b.Sign() == 0 {
			return nil, &ArithmeticError{Op: op.String(), Msg: "division by zero"}
		}
		r.Rem(a, b)
	case OpPow:
		if b.Sign() < 0 {
			return boxDec(decOp(c.dec(), op, bigToDec(a), bigToDec(b)))
		}
		if b.BitLen() > maxExpBits && a.CmpAbs(big.NewInt(1)) > 0 {
			return nil, &ArithmeticError{Op: op.String(), Msg: "exponent " + b.String() + " is too large"}
		}
		r.Exp(a, b, nil)
	default:
		panic("number: invalid op " + op.String())
	}
	if r.IsInt64() {
		return r.Int64(), nil
	}
	return r, nil
}

func rawDec(c *Context, op Op, x, y raw) (any, error) {
	a, err := x.decimal()
	if err != nil {
		return nil, err
	}
	b, err := y.decimal()
	if err != nil {
		return nil, err
	}
	return boxDec(decOp(c.dec(), op, a, b))
}

// boxDec converts a decimal result to an interface without boxing a nil
// pointer.
func boxDec(d *apd.Decimal, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}
