package number

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// DefaultPrecision is the number of significant digits kept by decimal
// arithmetic when a Context does not say otherwise. It matches decimal128.
const DefaultPrecision uint32 = 34

// Context holds the settings for arithmetic. A nil *Context uses float
// values and DefaultPrecision.
type Context struct {
	// Kind is the representation of values created from raw numbers.
	Kind Kind
	// Decimal controls precision and rounding of decimal operations.
	Decimal *apd.Context
}

// NewContext returns a context creating values of kind k with decimal
// operations rounded half-up to prec significant digits. If prec is 0,
// DefaultPrecision is used.
func NewContext(k Kind, prec uint32) *Context {
	if prec == 0 {
		prec = DefaultPrecision
	}
	d := apd.BaseContext.WithPrecision(prec)
	d.Rounding = apd.RoundHalfUp
	return &Context{Kind: k, Decimal: d}
}

var defaultDecimal = func() *apd.Context {
	d := apd.BaseContext.WithPrecision(DefaultPrecision)
	d.Rounding = apd.RoundHalfUp
	return d
}()

func (c *Context) kind() Kind {
	if c == nil {
		return Float
	}
	return c.Kind
}

func (c *Context) dec() *apd.Context {
	if c == nil || c.Decimal == nil {
		return defaultDecimal
	}
	return c.Decimal
}

// Precision returns the number of significant digits of decimal operations.
func (c *Context) Precision() uint32 {
	return c.dec().Precision
}

// Value tags a raw number with the context's kind. Values that are already
// tagged keep their kind. The second result is false if v is not a number.
func (c *Context) Value(v any) (Value, bool) {
	k := c.kind()
	switch v := v.(type) {
	case Value:
		return v, true
	case int:
		return Int64(k, int64(v)), true
	case int8:
		return Int64(k, int64(v)), true
	case int16:
		return Int64(k, int64(v)), true
	case int32:
		return Int64(k, int64(v)), true
	case int64:
		return Int64(k, v), true
	case uint:
		return BigInt(k, new(big.Int).SetUint64(uint64(v))), true
	case uint8:
		return Int64(k, int64(v)), true
	case uint16:
		return Int64(k, int64(v)), true
	case uint32:
		return Int64(k, int64(v)), true
	case uint64:
		return BigInt(k, new(big.Int).SetUint64(v)), true
	case float32:
		return c.fromFloat(float64(v)), true
	case float64:
		return c.fromFloat(v), true
	case *big.Int:
		if v == nil {
			return Value{}, false
		}
		return BigInt(k, v), true
	case *apd.Decimal:
		if v == nil {
			return Value{}, false
		}
		if k == Float {
			f, _ := v.Float64()
			return Float64(f), true
		}
		return FromDecimal(v), true
	}
	return Value{}, false
}

func (c *Context) fromFloat(f float64) Value {
	if c.kind() == Decimal {
		if d, err := floatToDec(f); err == nil {
			return decValue(d)
		}
		// NaN stays a float so that it compares unequal to everything.
	}
	return Float64(f)
}
