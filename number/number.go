// Package number implements the numeric value model used by expression
// evaluation.
//
// A Value holds either a float64 or an arbitrary-precision decimal. Which one
// new values use is decided by the Kind of a Context, so the same expression
// can be evaluated quickly with machine floats or exactly with decimals.
// Operations on mixed kinds promote the float operand to decimal.
//
// Separately, Raw and Widen operate on untyped Go numbers (int64, *big.Int,
// float64, *apd.Decimal, ...) and pick the narrowest representation that is
// exact for both operands.
package number

import (
	"math"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Kind selects the representation of a Value.
type Kind int8

const (
	// Float values are IEEE-754 binary64.
	Float Kind = iota
	// Decimal values are arbitrary-precision decimals.
	Decimal
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable number. The zero Value is float 0.
type Value struct {
	kind Kind
	f    float64
	// d is never modified after the Value is created.
	d *apd.Decimal
}

// Float64 returns a float Value.
func Float64(f float64) Value {
	return Value{kind: Float, f: f}
}

// FromDecimal returns a decimal Value holding a copy of d.
func FromDecimal(d *apd.Decimal) Value {
	return decValue(new(apd.Decimal).Set(d))
}

// decValue wraps d without copying it. d must not be modified afterward.
func decValue(d *apd.Decimal) Value {
	return Value{kind: Decimal, d: d}
}

// Int64 returns the Value of kind k equal to i. Float values may round if i
// has more than 53 significant bits.
func Int64(k Kind, i int64) Value {
	if k == Decimal {
		return decValue(apd.New(i, 0))
	}
	return Float64(float64(i))
}

// BigInt returns the Value of kind k equal to b.
func BigInt(k Kind, b *big.Int) Value {
	if k == Decimal {
		return decValue(bigToDec(b))
	}
	f, _ := new(big.Float).SetInt(b).Float64()
	return Float64(f)
}

// Parse parses a number of kind k from its text.
func Parse(k Kind, s string) (Value, error) {
	if k == Decimal {
		d, _, err := apd.NewFromString(s)
		if err != nil {
			return Value{}, &SyntaxError{Text: s, Err: err}
		}
		return decValue(d), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return Value{}, &SyntaxError{Text: s, Err: err}
		}
	}
	return Float64(f), nil
}

// Kind returns the representation of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Float64 returns v as a float64. Decimals outside the range of float64
// become infinities.
func (v Value) Float64() float64 {
	if v.kind == Float {
		return v.f
	}
	f, _ := v.d.Float64()
	return f
}

// Decimal returns v as a new decimal. Float NaN cannot be represented.
func (v Value) Decimal() (*apd.Decimal, error) {
	d, err := v.dec()
	if err != nil {
		return nil, err
	}
	return new(apd.Decimal).Set(d), nil
}

// dec returns v's decimal representation, which may be shared with v.
func (v Value) dec() (*apd.Decimal, error) {
	if v.kind == Decimal {
		return v.d, nil
	}
	return floatToDec(v.f)
}

// As returns v re-tagged as kind k.
func (v Value) As(k Kind) (Value, error) {
	if v.kind == k {
		return v, nil
	}
	if k == Float {
		return Float64(v.Float64()), nil
	}
	d, err := floatToDec(v.f)
	if err != nil {
		return Value{}, err
	}
	return decValue(d), nil
}

// Sign returns -1, 0, or 1 according to the sign of v. NaN has sign 0.
func (v Value) Sign() int {
	if v.kind == Decimal {
		return v.d.Sign()
	}
	switch {
	case v.f < 0:
		return -1
	case v.f > 0:
		return 1
	}
	return 0
}

// IsNaN reports whether v is a float NaN.
func (v Value) IsNaN() bool {
	return v.kind == Float && math.IsNaN(v.f)
}

// IsInf reports whether v is infinite.
func (v Value) IsInf() bool {
	if v.kind == Decimal {
		return v.d.Form == apd.Infinite
	}
	return math.IsInf(v.f, 0)
}

// IsInt reports whether v is finite with no fractional part.
func (v Value) IsInt() bool {
	if v.kind == Float {
		return !math.IsInf(v.f, 0) && v.f == math.Trunc(v.f)
	}
	_, frac, err := splitDec(v.d)
	return err == nil && !frac
}

// Equal reports whether v and w are numerically equal, regardless of kind.
// NaN is equal to nothing.
func (v Value) Equal(w Value) bool {
	if v.IsNaN() || w.IsNaN() {
		return false
	}
	return Cmp(v, w) == 0
}

// Int64 truncates v toward zero. It fails if v is not finite or the integer
// part does not fit in an int64.
func (v Value) Int64() (int64, error) {
	return v.int64(false)
}

// Int64Exact is like Int64, but it also fails if v has a fractional part.
func (v Value) Int64Exact() (int64, error) {
	return v.int64(true)
}

func (v Value) int64(exact bool) (int64, error) {
	if v.kind == Float {
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return 0, &ArithmeticError{Op: "int64", Msg: v.String() + " is not finite"}
		}
		t := math.Trunc(v.f)
		if exact && t != v.f {
			return 0, &ArithmeticError{Op: "int64", Msg: v.String() + " has a fractional part"}
		}
		if t < -(1<<63) || t >= 1<<63 {
			return 0, &ArithmeticError{Op: "int64", Msg: v.String() + " overflows int64"}
		}
		return int64(t), nil
	}
	b, err := v.bigInt("int64", exact)
	if err != nil {
		return 0, err
	}
	if !b.IsInt64() {
		return 0, &ArithmeticError{Op: "int64", Msg: v.String() + " overflows int64"}
	}
	return b.Int64(), nil
}

// BigInt truncates v toward zero. It fails if v is not finite.
func (v Value) BigInt() (*big.Int, error) {
	return v.bigInt("bigint", false)
}

// BigIntExact is like BigInt, but it also fails if v has a fractional part.
func (v Value) BigIntExact() (*big.Int, error) {
	return v.bigInt("bigint", true)
}

func (v Value) bigInt(op string, exact bool) (*big.Int, error) {
	if v.kind == Float {
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, &ArithmeticError{Op: op, Msg: v.String() + " is not finite"}
		}
		t := math.Trunc(v.f)
		if exact && t != v.f {
			return nil, &ArithmeticError{Op: op, Msg: v.String() + " has a fractional part"}
		}
		b, _ := new(big.Float).SetFloat64(t).Int(nil)
		return b, nil
	}
	b, frac, err := splitDec(v.d)
	if err != nil {
		return nil, &ArithmeticError{Op: op, Msg: v.String() + " is not finite"}
	}
	if exact && frac {
		return nil, &ArithmeticError{Op: op, Msg: v.String() + " has a fractional part"}
	}
	return b, nil
}

// String formats v in the shortest form that reads back as the same value.
func (v Value) String() string {
	if v.kind == Decimal {
		return v.d.String()
	}
	return strconv.FormatFloat(v.f, 'g', -1, 64)
}

// floatToDec converts f exactly as formatted by the shortest representation.
func floatToDec(f float64) (*apd.Decimal, error) {
	switch {
	case math.IsNaN(f):
		return nil, &ArithmeticError{Op: "decimal", Msg: "NaN has no decimal representation"}
	case math.IsInf(f, 0):
		return &apd.Decimal{Form: apd.Infinite, Negative: f < 0}, nil
	}
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return nil, &ArithmeticError{Op: "decimal", Msg: "cannot convert " + strconv.FormatFloat(f, 'g', -1, 64), Err: err}
	}
	return d, nil
}

func bigToDec(b *big.Int) *apd.Decimal {
	return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(b), 0)
}

var bigTen = big.NewInt(10)

// splitDec returns the integer part of d truncated toward zero and whether d
// has a nonzero fractional part.
func splitDec(d *apd.Decimal) (*big.Int, bool, error) {
	if d.Form != apd.Finite {
		return nil, false, &ArithmeticError{Op: "split", Msg: d.String() + " is not finite"}
	}
	coeff := d.Coeff.MathBigInt()
	frac := false
	switch {
	case d.Exponent > 0:
		coeff.Mul(coeff, new(big.Int).Exp(bigTen, big.NewInt(int64(d.Exponent)), nil))
	case d.Exponent < 0:
		if int64(-d.Exponent) > d.NumDigits() {
			// Every digit is fractional.
			frac = coeff.Sign() != 0
			coeff.SetInt64(0)
			break
		}
		var r big.Int
		coeff.QuoRem(coeff, new(big.Int).Exp(bigTen, big.NewInt(int64(-d.Exponent)), nil), &r)
		frac = r.Sign() != 0
	}
	if d.Negative {
		coeff.Neg(coeff)
	}
	return coeff, frac, nil
}
