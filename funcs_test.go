package exprtree_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/exprtree"
	"github.com/zephyrtronium/exprtree/number"
)

// counter returns an impure function that counts its calls.
func counter(n *int) exprtree.Func {
	return exprtree.NewFunc(nil, exprtree.TypeNumber, false, func(ctx exprtree.Context, args *exprtree.Args) (any, error) {
		*n++
		return int64(*n), nil
	})
}

func TestArgsLazy(t *testing.T) {
	var ticks int
	env := exprtree.NewEnv(exprtree.WithFunc("tick", counter(&ticks)))
	fn := exprtree.NewFunc([]exprtree.Param{exprtree.Value("x", exprtree.TypeAny)}, exprtree.TypeAny, true, nil)

	args := exprtree.PrepareArgs(env, fn, []any{exprtree.MustParse("tick()")})
	assert.Zero(t, ticks, "nothing is prepared before access")
	assert.Equal(t, 1, args.Len())
	assert.Zero(t, ticks)
	for range 3 {
		v, err := args.At(0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	}
	assert.Equal(t, 1, ticks, "arguments are prepared at most once")
}

func TestArgsMemoizeInCall(t *testing.T) {
	var ticks int
	twice := exprtree.NewFunc([]exprtree.Param{exprtree.Value("x", exprtree.TypeNumber)}, exprtree.TypeNumber, true,
		func(ctx exprtree.Context, args *exprtree.Args) (any, error) {
			x, err := args.Number(0)
			if err != nil {
				return nil, err
			}
			y, err := args.Number(0)
			if err != nil {
				return nil, err
			}
			return number.Add(ctx.Numbers(), x, y)
		})
	env := exprtree.NewEnv(exprtree.WithFunc("tick", counter(&ticks)), exprtree.WithFunc("twice", twice))
	r, err := exprtree.MustParse("twice(tick())").EvalNumber(env)
	require.NoError(t, err)
	assert.Equal(t, 2.0, r.Float64())
	assert.Equal(t, 1, ticks)

	// Lazy arguments that are never accessed are never evaluated.
	r, err = exprtree.MustParse("if(true, 5, tick())").EvalNumber(env)
	require.NoError(t, err)
	assert.Equal(t, 5.0, r.Float64())
	assert.Equal(t, 1, ticks)
}

func TestArgsMemoizeErrors(t *testing.T) {
	var ticks int
	failing := exprtree.NewFunc(nil, exprtree.TypeAny, false, func(ctx exprtree.Context, args *exprtree.Args) (any, error) {
		ticks++
		return nil, &exprtree.UnsupportedError{Op: "fail", Operand: "nothing"}
	})
	env := exprtree.NewEnv(exprtree.WithFunc("fail", failing))
	fn := exprtree.NewFunc([]exprtree.Param{exprtree.Value("x", exprtree.TypeAny)}, exprtree.TypeAny, true, nil)
	args := exprtree.PrepareArgs(env, fn, []any{exprtree.MustParse("fail()")})
	_, err1 := args.At(0)
	_, err2 := args.At(0)
	require.Error(t, err1)
	assert.Same(t, err1, err2)
	assert.Equal(t, 1, ticks)
}

func TestArgsFlatten(t *testing.T) {
	env := exprtree.NewEnv(exprtree.SetVar("xs", []any{int64(1), []any{int64(2)}}))
	cases := []struct {
		name   string
		params []exprtree.Param
		raw    []any
		want   []any
	}{
		{
			name:   "nested",
			params: []exprtree.Param{exprtree.Variadic("x", exprtree.TypeAny, true)},
			raw:    []any{int64(1), []any{int64(2), int64(3)}, []any{[]any{int64(4)}}},
			want:   []any{int64(1), int64(2), int64(3), int64(4)},
		},
		{
			name:   "literals",
			params: []exprtree.Param{exprtree.Variadic("x", exprtree.TypeAny, true)},
			raw:    []any{exprtree.MustParse("{1, {2}}"), exprtree.MustParse("{}"), exprtree.Int(3)},
			want:   []any{int64(1), int64(2), int64(3)},
		},
		{
			name:   "reference",
			params: []exprtree.Param{exprtree.Variadic("x", exprtree.TypeAny, true)},
			raw:    []any{exprtree.Ref("xs"), exprtree.Reference("xs")},
			want:   []any{int64(1), int64(2), int64(1), int64(2)},
		},
		{
			name:   "no-flatten",
			params: []exprtree.Param{exprtree.Variadic("x", exprtree.TypeAny, false)},
			raw:    []any{[]any{int64(1), int64(2)}, int64(3)},
			want:   []any{[]any{int64(1), int64(2)}, int64(3)},
		},
		{
			name:   "fixed-then-variadic",
			params: []exprtree.Param{exprtree.Value("first", exprtree.TypeAny), exprtree.Variadic("x", exprtree.TypeAny, true)},
			raw:    []any{[]any{int64(1)}, []any{int64(2), int64(3)}},
			want:   []any{[]any{int64(1)}, int64(2), int64(3)},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fn := exprtree.NewFunc(c.params, exprtree.TypeAny, true, nil)
			args := exprtree.PrepareArgs(env, fn, c.raw)
			got, err := args.All()
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
			assert.Equal(t, len(c.want), args.Len())
		})
	}
}

func TestArgsPreparation(t *testing.T) {
	env := exprtree.NewEnv(exprtree.SetVar("x", int64(7)))
	fn := exprtree.NewFunc([]exprtree.Param{
		exprtree.Value("value", exprtree.TypeNumber),
		exprtree.Lazy("lazy"),
		{Name: "ref", Eval: true},
		{Name: "resolve", Resolve: true},
		exprtree.Value("text", exprtree.TypeText),
	}, exprtree.TypeAny, true, nil)
	raw := []any{
		exprtree.MustParse("x + 1"),
		exprtree.MustParse("x"),
		exprtree.MustParse("x"),
		exprtree.MustParse("x"),
		exprtree.MustParse("x * 2"),
	}
	args := exprtree.PrepareArgs(env, fn, raw)

	v, err := args.Number(0)
	require.NoError(t, err)
	assert.Equal(t, 8.0, v.Float64())

	lazy, err := args.At(1)
	require.NoError(t, err)
	assert.Same(t, raw[1], lazy)

	ref, err := args.At(2)
	require.NoError(t, err)
	assert.Equal(t, exprtree.Reference("x"), ref)

	res, err := args.At(3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res)

	s, err := args.Text(4)
	require.NoError(t, err)
	assert.Equal(t, "14", s)

	assert.Same(t, raw[0], args.Raw(0))
	p, err := args.Param(2)
	require.NoError(t, err)
	assert.Equal(t, "ref", p.Name)
}

func TestArgsIndexErrors(t *testing.T) {
	env := exprtree.NewEnv()
	fn := exprtree.NewFunc([]exprtree.Param{exprtree.Value("x", exprtree.TypeAny)}, exprtree.TypeAny, true, nil)
	args := exprtree.PrepareArgs(env, fn, []any{int64(1), int64(2)})

	var pe *exprtree.ParamIndexError
	_, err := args.At(2)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Index)
	assert.Equal(t, 2, pe.Len)
	assert.False(t, pe.Params)

	_, err = args.At(-1)
	assert.ErrorAs(t, err, &pe)

	_, err = args.At(1)
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Params, "the second argument has no parameter")
	_, err = args.Param(1)
	assert.ErrorAs(t, err, &pe)
}

func TestArgsFlattenError(t *testing.T) {
	env := exprtree.NewEnv()
	fn := exprtree.NewFunc([]exprtree.Param{exprtree.Variadic("x", exprtree.TypeAny, true)}, exprtree.TypeAny, true,
		func(ctx exprtree.Context, args *exprtree.Args) (any, error) { return args.All() })
	_, err := exprtree.Invoke(env, "f", fn, exprtree.MustParse("nope"))
	var re *exprtree.ReferenceError
	assert.ErrorAs(t, err, &re)
}

func TestArgsConversionHandler(t *testing.T) {
	env := exprtree.NewEnv(exprtree.WithHandler(func(err error) (any, error) { return "0", nil }))
	fn := exprtree.NewFunc([]exprtree.Param{exprtree.Value("x", exprtree.TypeNumber)}, exprtree.TypeNumber, true, nil)
	args := exprtree.PrepareArgs(env, fn, []any{"abc"})
	v, err := args.Number(0)
	require.NoError(t, err)
	assert.Zero(t, v.Float64())
}

func TestInvokeArity(t *testing.T) {
	env := exprtree.NewEnv()
	fn := exprtree.NewFunc(
		[]exprtree.Param{exprtree.Value("a", exprtree.TypeAny), exprtree.Variadic("b", exprtree.TypeAny, false)},
		exprtree.TypeAny, true,
		func(ctx exprtree.Context, args *exprtree.Args) (any, error) { return int64(args.Len()), nil },
	)
	r, err := exprtree.Invoke(env, "f", fn, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r)

	_, err = exprtree.Invoke(env, "f", fn)
	var ae *exprtree.ArityError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 1, ae.Min)
	assert.Equal(t, -1, ae.Max)
	assert.Equal(t, "cannot call f with 0 arguments (want at least 1)", ae.Error())
}

func TestPartial(t *testing.T) {
	env := exprtree.NewEnv()
	cases := []struct {
		src    string
		params int
		args   []any
		want   float64
	}{
		{"@pow(2)", 1, []any{int64(10)}, 1024},
		{"@pow", 2, []any{int64(3), int64(2)}, 9},
		{"@sum(1, 2, 3)", 1, []any{int64(4)}, 10},
		{"@sum", 1, nil, 0},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			v, err := exprtree.MustParse(c.src).Eval(env)
			require.NoError(t, err)
			p, ok := v.(*exprtree.Partial)
			require.True(t, ok)
			assert.Len(t, p.Params(), c.params)
			assert.True(t, p.Pure())
			assert.Equal(t, exprtree.TypeNumber, p.Returns())
			r, err := exprtree.Invoke(env, "", p, c.args...)
			require.NoError(t, err)
			x, ok := r.(number.Value)
			require.True(t, ok)
			assert.InDelta(t, c.want, x.Float64(), 1e-9)
		})
	}

	v, err := exprtree.MustParse("@exp(1, 2)").Eval(env)
	require.NoError(t, err)
	_, err = exprtree.Invoke(env, "", v.(exprtree.Func))
	var ae *exprtree.ArityError
	assert.ErrorAs(t, err, &ae)
	assert.Equal(t, "@exp", v.(*exprtree.Partial).String())
}

func TestClosure(t *testing.T) {
	env := exprtree.NewEnv(exprtree.SetVar("k", int64(3)))
	v, err := exprtree.MustParse(`\(x) x + k`).Eval(env)
	require.NoError(t, err)
	c, ok := v.(*exprtree.Closure)
	require.True(t, ok)
	assert.Equal(t, `(\(x) (x + k))`, c.String())
	assert.Equal(t, exprtree.TypeAny, c.Returns())
	require.Len(t, c.Params(), 1)
	assert.Equal(t, "x", c.Params()[0].Name)

	r, err := exprtree.Invoke(env, "", c, int64(4))
	require.NoError(t, err)
	assert.Equal(t, 7.0, r.(number.Value).Float64())

	// The closure sees the context where it was created.
	r, err = exprtree.Invoke(env.Clone(exprtree.SetVar("k", int64(100))), "", c, int64(4))
	require.NoError(t, err)
	assert.Equal(t, 7.0, r.(number.Value).Float64())
}

func TestBigFuncs(t *testing.T) {
	half := exprtree.Monadic(func(out, in *big.Float) *big.Float {
		return out.Quo(in, big.NewFloat(2))
	})
	hyp := exprtree.Dyadic(func(out, x, y *big.Float) *big.Float {
		var a, b, s big.Float
		a.Mul(x, x)
		b.Mul(y, y)
		s.Add(&a, &b)
		return out.Sqrt(&s)
	})
	answer := exprtree.Niladic(func(out *big.Float) *big.Float {
		return out.SetInt64(42)
	})
	picky := exprtree.Monadic(func(out, in *big.Float) *big.Float {
		if in.Sign() == 0 {
			panic(&exprtree.DomainError{X: number.Float64(0), Arg: 1, Func: "picky"})
		}
		return out.Set(in)
	})
	boom := exprtree.Monadic(func(out, in *big.Float) *big.Float {
		panic("boom")
	})
	env := exprtree.NewEnv(exprtree.WithFuncs(map[exprtree.FuncName]exprtree.Func{
		"half":   half,
		"hyp":    hyp,
		"answer": answer,
		"picky":  picky,
		"boom":   boom,
	}))
	cases := []struct {
		src  string
		want float64
	}{
		{"half(5)", 2.5},
		{"hyp(3, 4)", 5},
		{"answer()", 42},
		{"picky(3)", 3},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			r, err := exprtree.MustParse(c.src).EvalNumber(env)
			require.NoError(t, err)
			assert.Equal(t, c.want, r.Float64())
		})
	}
	assert.True(t, half.Pure())
	assert.Equal(t, exprtree.TypeNumber, hyp.Returns())

	_, err := exprtree.MustParse("picky(0)").Eval(env)
	var de *exprtree.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "0 outside domain of picky (argument 1)", de.Error())

	_, err = exprtree.MustParse("half(nan)").Eval(env)
	assert.ErrorAs(t, err, &de)

	assert.Panics(t, func() { exprtree.MustParse("boom(1)").Eval(env) })
}

func TestBigFuncsDecimal(t *testing.T) {
	half := exprtree.Monadic(func(out, in *big.Float) *big.Float {
		return out.Quo(in, big.NewFloat(2))
	})
	env := exprtree.NewEnv(exprtree.NumberKind(number.Decimal), exprtree.WithFunc("half", half))
	r, err := exprtree.MustParse("half(0.1)").EvalNumber(env)
	require.NoError(t, err)
	assert.Equal(t, number.Decimal, r.Kind())
	assert.Equal(t, "0.05", r.String())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "number", exprtree.TypeNumber.String())
	assert.Equal(t, "function", exprtree.TypeFunc.String())
	assert.Equal(t, "Type(42)", exprtree.Type(42).String())
}

func TestStdConverter(t *testing.T) {
	env := exprtree.NewEnv()
	conv := exprtree.StdConverter{}
	cases := []struct {
		name string
		v    any
		to   exprtree.Type
		want any
	}{
		{"any", 1, exprtree.TypeAny, 1},
		{"bool-text", " true ", exprtree.TypeBool, true},
		{"bool-number", number.Float64(0), exprtree.TypeBool, false},
		{"bool-int", int64(2), exprtree.TypeBool, true},
		{"text-int", int64(-3), exprtree.TypeText, "-3"},
		{"text-bigint", big.NewInt(12), exprtree.TypeText, "12"},
		{"text-float", 0.5, exprtree.TypeText, "0.5"},
		{"text-ref", exprtree.Reference("r"), exprtree.TypeText, "r"},
		{"number-text", "2.5", exprtree.TypeNumber, number.Float64(2.5)},
		{"number-bool", true, exprtree.TypeNumber, number.Float64(1)},
		{"integer-float", 3.0, exprtree.TypeInteger, int64(3)},
		{"integer-int", 3, exprtree.TypeInteger, int64(3)},
		{"list-nil", nil, exprtree.TypeList, []any{}},
		{"list-single", "a", exprtree.TypeList, []any{"a"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := conv.Convert(env, c.v, c.to)
			require.NoError(t, err)
			assert.Equal(t, c.want, r)
		})
	}

	failures := []struct {
		name string
		v    any
		to   exprtree.Type
	}{
		{"bool-text", "maybe", exprtree.TypeBool},
		{"bool-list", []any{}, exprtree.TypeBool},
		{"text-list", []any{}, exprtree.TypeText},
		{"number-text", "x", exprtree.TypeNumber},
		{"integer-frac", 2.5, exprtree.TypeInteger},
		{"integer-text", "x", exprtree.TypeInteger},
		{"time-number", 1, exprtree.TypeTime},
		{"func-number", 1, exprtree.TypeFunc},
	}
	for _, c := range failures {
		t.Run(c.name, func(t *testing.T) {
			_, err := conv.Convert(env, c.v, c.to)
			var ce *exprtree.ConversionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, c.to, ce.To)
		})
	}

	f, err := conv.Convert(env, "exp", exprtree.TypeFunc)
	require.NoError(t, err)
	assert.Implements(t, (*exprtree.Func)(nil), f)
	_, err = conv.Convert(env, exprtree.FuncName("nope"), exprtree.TypeFunc)
	var ue *exprtree.UnknownFunctionError
	assert.ErrorAs(t, err, &ue)
}
