package exprtree

import (
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/zephyrtronium/exprtree/number"
)

// Type is a target type for conversion.
type Type int8

const (
	// TypeAny accepts every value unchanged.
	TypeAny Type = iota
	// TypeBool converts to bool.
	TypeBool
	// TypeText converts to string.
	TypeText
	// TypeNumber converts to number.Value of the context's kind.
	TypeNumber
	// TypeInteger converts to int64, failing on fractions.
	TypeInteger
	// TypeList converts to []any.
	TypeList
	// TypeFunc converts to Func.
	TypeFunc
	// TypeTime converts to time.Time.
	TypeTime
)

var typenames = [...]string{
	TypeAny:     "any",
	TypeBool:    "bool",
	TypeText:    "text",
	TypeNumber:  "number",
	TypeInteger: "integer",
	TypeList:    "list",
	TypeFunc:    "function",
	TypeTime:    "time",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typenames) {
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
	return typenames[t]
}

// Converter converts values between types.
type Converter interface {
	// Convert converts v to the type to. The context supplies the numeric
	// kind and the function library.
	Convert(ctx Context, v any, to Type) (any, error)
}

// ConverterFunc adapts a function to a Converter.
type ConverterFunc func(ctx Context, v any, to Type) (any, error)

// Convert calls f.
func (f ConverterFunc) Convert(ctx Context, v any, to Type) (any, error) {
	return f(ctx, v, to)
}

// StdConverter is the default Converter. Numbers convert to text in their
// shortest form, text parses as numbers, booleans, and RFC 3339 times,
// booleans convert to the numbers 0 and 1, and single values convert to
// one-element lists.
type StdConverter struct{}

// Convert converts v to the type to.
func (StdConverter) Convert(ctx Context, v any, to Type) (any, error) {
	switch to {
	case TypeAny:
		return v, nil
	case TypeBool:
		return toBool(ctx, v)
	case TypeText:
		return toText(v)
	case TypeNumber:
		return toNumber(ctx, v)
	case TypeInteger:
		return toInteger(ctx, v)
	case TypeList:
		switch v := v.(type) {
		case nil:
			return []any{}, nil
		case []any:
			return v, nil
		}
		return []any{v}, nil
	case TypeFunc:
		switch f := v.(type) {
		case Func:
			return f, nil
		case FuncName:
			return ctx.Func(f)
		case string:
			return ctx.Func(FuncName(f))
		}
	case TypeTime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			r, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t))
			if err != nil {
				return nil, &ConversionError{Value: v, To: to, Err: err}
			}
			return r, nil
		}
	}
	return nil, &ConversionError{Value: v, To: to}
}

func toBool(ctx Context, v any) (any, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, &ConversionError{Value: v, To: TypeBool, Err: err}
		}
		return b, nil
	}
	if x, ok := ctx.Numbers().Value(v); ok {
		return x.Sign() != 0, nil
	}
	return nil, &ConversionError{Value: v, To: TypeBool}
}

func toText(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case *big.Int:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case *apd.Decimal:
		return v.String(), nil
	case number.Value:
		return v.String(), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case Reference:
		return string(v), nil
	case FuncName:
		return string(v), nil
	}
	return nil, &ConversionError{Value: v, To: TypeText}
}

func toNumber(ctx Context, v any) (any, error) {
	nc := ctx.Numbers()
	if x, ok := nc.Value(v); ok {
		return x, nil
	}
	switch v := v.(type) {
	case string:
		x, err := number.Parse(nc.Kind, strings.TrimSpace(v))
		if err != nil {
			return nil, &ConversionError{Value: v, To: TypeNumber, Err: err}
		}
		return x, nil
	case bool:
		if v {
			return number.Int64(nc.Kind, 1), nil
		}
		return number.Int64(nc.Kind, 0), nil
	}
	return nil, &ConversionError{Value: v, To: TypeNumber}
}

func toInteger(ctx Context, v any) (any, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	}
	x, err := toNumber(ctx, v)
	if err != nil {
		var ce *ConversionError
		if errors.As(err, &ce) {
			ce.To = TypeInteger
		}
		return nil, err
	}
	i, err := x.(number.Value).Int64Exact()
	if err != nil {
		return nil, &ConversionError{Value: v, To: TypeInteger, Err: err}
	}
	return i, nil
}

// convert converts v through ctx. A failure goes to the context's handler,
// which may supply a replacement that is converted in turn.
func convert(ctx Context, v any, to Type) (any, error) {
	r, err := convertOnce(ctx, v, to)
	if err == nil {
		return r, nil
	}
	s, herr := ctx.Handle(err)
	if herr != nil {
		return nil, herr
	}
	r, cerr := convertOnce(ctx, s, to)
	if cerr != nil {
		return nil, err
	}
	return r, nil
}

// convertOnce calls the converter of ctx with ctx itself, or ctx.Convert if
// ctx does not expose its converter.
func convertOnce(ctx Context, v any, to Type) (any, error) {
	if c := converterOf(ctx); c != nil {
		return c.Convert(ctx, v, to)
	}
	return ctx.Convert(v, to)
}

// numberOf converts v to a number through ctx.
func numberOf(ctx Context, v any) (number.Value, error) {
	if x, ok := ctx.Numbers().Value(v); ok {
		return x, nil
	}
	r, err := convert(ctx, v, TypeNumber)
	if err != nil {
		return number.Value{}, err
	}
	x, ok := ctx.Numbers().Value(r)
	if !ok {
		return number.Value{}, &ConversionError{Value: r, To: TypeNumber}
	}
	return x, nil
}
