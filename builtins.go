package exprtree

import (
	"maps"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zephyrtronium/bigfloat"

	"github.com/zephyrtronium/exprtree/number"
)

var builtins = map[FuncName]Func{
	"exp": Monadic(bigfloat.Exp),
	"ln":  Monadic(positive(bigfloat.Log)),
	"log": Monadic(positive(func(out, in *big.Float) *big.Float {
		bigfloat.Log(out, in)
		in.SetFloat64(10).SetPrec(out.Prec())
		bigfloat.Log(in, in)
		return out.Quo(out, in)
	})),
	"sqrt": Monadic((*big.Float).Sqrt),
	"pow": Dyadic(func(out, x, y *big.Float) *big.Float {
		if x.Signbit() && !y.IsInt() {
			f, _ := x.Float64()
			panic(&DomainError{X: number.Float64(f), Arg: 1, Func: "pow"})
		}
		return bigfloat.Pow(out, x, y)
	}),

	// constants
	"pi": Niladic(bigfloat.Pi),
	"e": Niladic(func(out *big.Float) *big.Float {
		var one big.Float
		one.SetFloat64(1)
		return bigfloat.Exp(out, &one)
	}),

	"abs": NewFunc([]Param{Value("x", TypeNumber)}, TypeNumber, true, func(ctx Context, args *Args) (any, error) {
		x, err := args.Number(0)
		if err != nil {
			return nil, err
		}
		return number.Abs(x), nil
	}),
	"trunc": NewFunc([]Param{Value("x", TypeNumber)}, TypeNumber, true, func(ctx Context, args *Args) (any, error) {
		x, err := args.Number(0)
		if err != nil {
			return nil, err
		}
		if x.IsInt() {
			return x, nil
		}
		b, err := x.BigInt()
		if err != nil {
			return nil, err
		}
		return number.BigInt(x.Kind(), b), nil
	}),
	"sum": NewFunc([]Param{Variadic("x", TypeNumber, true)}, TypeNumber, true, func(ctx Context, args *Args) (any, error) {
		r := number.Int64(ctx.Numbers().Kind, 0)
		for i := range args.Len() {
			x, err := args.Number(i)
			if err != nil {
				return nil, err
			}
			r, err = number.Add(ctx.Numbers(), r, x)
			if err != nil {
				return nil, err
			}
		}
		return r, nil
	}),
	"count": NewFunc([]Param{Variadic("x", TypeAny, true)}, TypeNumber, true, func(ctx Context, args *Args) (any, error) {
		return number.Int64(ctx.Numbers().Kind, int64(args.Len())), nil
	}),
	"min": NewFunc([]Param{Variadic("x", TypeNumber, true)}, TypeNumber, true, func(ctx Context, args *Args) (any, error) {
		return extremum("min", args, -1)
	}),
	"max": NewFunc([]Param{Variadic("x", TypeNumber, true)}, TypeNumber, true, func(ctx Context, args *Args) (any, error) {
		return extremum("max", args, 1)
	}),

	"if": NewFunc([]Param{Value("cond", TypeBool), Lazy("then"), Lazy("else")}, TypeAny, true, func(ctx Context, args *Args) (any, error) {
		c, err := args.Bool(0)
		if err != nil {
			return nil, err
		}
		k := 2
		if c {
			k = 1
		}
		v, err := args.At(k)
		if err != nil {
			return nil, err
		}
		return force(ctx, v)
	}),
	"defined": NewFunc([]Param{{Name: "ref", Eval: true}}, TypeBool, false, func(ctx Context, args *Args) (any, error) {
		v, err := args.At(0)
		if err != nil {
			return nil, err
		}
		ref, ok := v.(Reference)
		if !ok {
			return true, nil
		}
		_, known, err := ctx.Resolve(ref)
		if err != nil {
			return nil, err
		}
		return known, nil
	}),

	"concat": NewFunc([]Param{Variadic("s", TypeText, true)}, TypeText, true, func(ctx Context, args *Args) (any, error) {
		var b strings.Builder
		for i := range args.Len() {
			s, err := args.Text(i)
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
		}
		return b.String(), nil
	}),
	"len": NewFunc([]Param{Value("x", TypeAny)}, TypeNumber, true, func(ctx Context, args *Args) (any, error) {
		v, err := args.At(0)
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case string:
			return number.Int64(ctx.Numbers().Kind, int64(utf8.RuneCountInString(v))), nil
		case []any:
			return number.Int64(ctx.Numbers().Kind, int64(len(v))), nil
		}
		return nil, &UnsupportedError{Op: "len", Operand: describe(v)}
	}),
	"text": NewFunc([]Param{Value("x", TypeText)}, TypeText, true, func(ctx Context, args *Args) (any, error) {
		return args.At(0)
	}),
	"number": NewFunc([]Param{Value("x", TypeNumber)}, TypeNumber, true, func(ctx Context, args *Args) (any, error) {
		return args.At(0)
	}),

	"time": NewFunc([]Param{Value("s", TypeTime)}, TypeTime, true, func(ctx Context, args *Args) (any, error) {
		return args.At(0)
	}),
	"now": NewFunc(nil, TypeTime, false, func(ctx Context, args *Args) (any, error) {
		return time.Now(), nil
	}),

	"map": NewFunc([]Param{Value("f", TypeFunc), Value("list", TypeList)}, TypeList, false, func(ctx Context, args *Args) (any, error) {
		f, err := args.At(0)
		if err != nil {
			return nil, err
		}
		l, err := args.At(1)
		if err != nil {
			return nil, err
		}
		in := l.([]any)
		r := make([]any, len(in))
		for i, x := range in {
			r[i], err = Invoke(ctx, "", f.(Func), x)
			if err != nil {
				return nil, err
			}
		}
		return r, nil
	}),
	"apply": NewFunc([]Param{Value("f", TypeFunc), Variadic("args", TypeAny, true)}, TypeAny, false, func(ctx Context, args *Args) (any, error) {
		f, err := args.At(0)
		if err != nil {
			return nil, err
		}
		all, err := args.All()
		if err != nil {
			return nil, err
		}
		return Invoke(ctx, "", f.(Func), all[1:]...)
	}),
}

// Builtins returns a new map of the default function library.
func Builtins() map[FuncName]Func {
	return maps.Clone(builtins)
}

// positive wraps f to panic with big.ErrNaN on negative inputs.
func positive(f func(out, in *big.Float) *big.Float) func(out, in *big.Float) *big.Float {
	return func(out, in *big.Float) *big.Float {
		if in.Sign() < 0 {
			panic(big.ErrNaN{})
		}
		return f(out, in)
	}
}

// extremum returns the least (dir < 0) or greatest (dir > 0) argument.
func extremum(name string, args *Args, dir int) (any, error) {
	n := args.Len()
	if n == 0 {
		// Flattening may leave nothing from arguments that were all empty lists.
		return nil, &ArityError{Func: name, Min: 1, Max: -1}
	}
	r, err := args.Number(0)
	if err != nil {
		return nil, err
	}
	if r.IsNaN() {
		return r, nil
	}
	for i := 1; i < n; i++ {
		x, err := args.Number(i)
		if err != nil {
			return nil, err
		}
		if x.IsNaN() {
			return x, nil
		}
		if number.Cmp(x, r)*dir > 0 {
			r = x
		}
	}
	return r, nil
}
