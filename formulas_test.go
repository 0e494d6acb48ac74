package exprtree_test

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/exprtree"
)

type formula struct {
	name exprtree.Reference
	src  string
}

func newFormulas(t *testing.T, defs ...formula) *exprtree.Formulas {
	t.Helper()
	f := exprtree.NewFormulas()
	for _, d := range defs {
		require.NoError(t, f.Set(d.name, exprtree.MustParse(d.src)))
	}
	return f
}

func TestFormulasEval(t *testing.T) {
	f := newFormulas(t,
		formula{"a", "b + 1"},
		formula{"b", "c * 2"},
		formula{"c", "3"},
	)
	env := exprtree.NewEnv(exprtree.WithResolver(f))
	r, err := exprtree.MustParse("a").EvalNumber(env)
	require.NoError(t, err)
	assert.Equal(t, 7.0, r.Float64())

	// Redefinition takes effect on the next evaluation.
	require.NoError(t, f.Set("c", exprtree.MustParse("10")))
	r, err = exprtree.MustParse("a * 2").EvalNumber(env)
	require.NoError(t, err)
	assert.Equal(t, 42.0, r.Float64())

	// Variables of the context come before formulas.
	r, err = exprtree.MustParse("a").EvalNumber(env.Clone(exprtree.SetVar("b", 1)))
	require.NoError(t, err)
	assert.Equal(t, 2.0, r.Float64())
}

func TestFormulasOrder(t *testing.T) {
	f := newFormulas(t,
		formula{"a", "b + 1"},
		formula{"b", "c * 2"},
		formula{"c", "3"},
	)
	order, err := f.Order()
	require.NoError(t, err)
	assert.Equal(t, []exprtree.Reference{"c", "b", "a"}, order)

	require.NoError(t, f.Set("d", exprtree.MustParse("a + c + x")))
	require.NoError(t, f.Set("e", exprtree.MustParse("y")))
	order, err = f.Order()
	require.NoError(t, err)
	assert.ElementsMatch(t, []exprtree.Reference{"a", "b", "c", "d", "e"}, order)
	for _, name := range order {
		deps, err := f.Dependencies(name)
		require.NoError(t, err)
		for _, dep := range deps {
			if _, ok := f.Lookup(dep); !ok {
				continue
			}
			assert.Less(t, slices.Index(order, dep), slices.Index(order, name), "%s uses %s", name, dep)
		}
	}

	again, err := f.Order()
	require.NoError(t, err)
	assert.Equal(t, order, again)
}

func TestFormulasGraph(t *testing.T) {
	f := newFormulas(t,
		formula{"a", "b + b + x"},
		formula{"b", "c * 2"},
		formula{"c", `sum(y, \(q) q)`},
	)
	deps, err := f.Dependencies("a")
	require.NoError(t, err)
	assert.Equal(t, []exprtree.Reference{"b", "x"}, deps)
	deps, err = f.Dependencies("c")
	require.NoError(t, err)
	assert.Equal(t, []exprtree.Reference{"y"}, deps, "lambda parameters are not dependencies")
	deps, err = f.Dependencies("zzz")
	require.NoError(t, err)
	assert.Empty(t, deps)

	users, err := f.Dependents("b")
	require.NoError(t, err)
	assert.Equal(t, []exprtree.Reference{"a"}, users)
	users, err = f.Dependents("a")
	require.NoError(t, err)
	assert.Empty(t, users)

	undef, err := f.Undefined()
	require.NoError(t, err)
	assert.Equal(t, []exprtree.Reference{"x", "y"}, undef)
	assert.Equal(t, []exprtree.Reference{"a", "b", "c"}, f.Names())

	n, ok := f.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "(c * 2)", n.String())
	_, ok = f.Lookup("x")
	assert.False(t, ok)
}

func TestFormulasCycles(t *testing.T) {
	f := newFormulas(t,
		formula{"q", "p"},
		formula{"p", "q + 1"},
		formula{"s", "s + 1"},
		formula{"t", "p + 2"},
		formula{"u", "4"},
	)
	cycles, err := f.Cycles()
	require.NoError(t, err)
	assert.Equal(t, [][]exprtree.Reference{{"p", "q"}, {"s"}}, cycles)

	_, err = f.Order()
	var ce *exprtree.CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, exprtree.Reference("p"), ce.Ref)

	env := exprtree.NewEnv(exprtree.WithResolver(f))
	for _, src := range []string{"p", "q", "s", "t"} {
		_, err := exprtree.MustParse(src).Eval(env)
		assert.ErrorAs(t, err, &ce, src)
	}
	r, err := exprtree.MustParse("u").EvalNumber(env)
	require.NoError(t, err)
	assert.Equal(t, 4.0, r.Float64())

	// Breaking the cycles restores an order.
	require.NoError(t, f.Set("q", exprtree.MustParse("1")))
	require.NoError(t, f.Delete("s"))
	cycles, err = f.Cycles()
	require.NoError(t, err)
	assert.Empty(t, cycles)
	order, err := f.Order()
	require.NoError(t, err)
	assert.ElementsMatch(t, []exprtree.Reference{"p", "q", "t", "u"}, order)
	r, err = exprtree.MustParse("t").EvalNumber(env)
	require.NoError(t, err)
	assert.Equal(t, 4.0, r.Float64())
}

func TestFormulasDelete(t *testing.T) {
	f := newFormulas(t,
		formula{"a", "b + 1"},
		formula{"b", "c * 2"},
		formula{"c", "3"},
	)
	require.NoError(t, f.Delete("b"))
	_, ok := f.Lookup("b")
	assert.False(t, ok)
	assert.Equal(t, []exprtree.Reference{"a", "c"}, f.Names())
	undef, err := f.Undefined()
	require.NoError(t, err)
	assert.Equal(t, []exprtree.Reference{"b"}, undef, "a still uses b")
	users, err := f.Dependents("c")
	require.NoError(t, err)
	assert.Empty(t, users)

	env := exprtree.NewEnv(exprtree.WithResolver(f))
	_, err = exprtree.MustParse("a").Eval(env)
	var re *exprtree.ReferenceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, exprtree.Reference("b"), re.Ref)

	require.NoError(t, f.Delete("a"))
	undef, err = f.Undefined()
	require.NoError(t, err)
	assert.Empty(t, undef, "unused undefined references are dropped")
	require.NoError(t, f.Delete("nothing"))
	assert.Equal(t, []exprtree.Reference{"c"}, f.Names())
}

func TestFormulasRedefine(t *testing.T) {
	f := newFormulas(t, formula{"a", "x + y"})
	require.NoError(t, f.Set("a", exprtree.MustParse("y * z")))
	deps, err := f.Dependencies("a")
	require.NoError(t, err)
	assert.Equal(t, []exprtree.Reference{"y", "z"}, deps)
	undef, err := f.Undefined()
	require.NoError(t, err)
	assert.Equal(t, []exprtree.Reference{"y", "z"}, undef)

	var ce *exprtree.ConstructionError
	assert.ErrorAs(t, f.Set("b", nil), &ce)
	_, ok := f.Lookup("b")
	assert.False(t, ok)
}

func TestFormulasConcurrent(t *testing.T) {
	f := newFormulas(t, formula{"base", "2"})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := exprtree.Reference([]string{"a", "b", "c", "d", "e", "f", "g", "h"}[i])
			assert.NoError(t, f.Set(name, exprtree.MustParse("base * base")))
			env := exprtree.NewEnv(exprtree.WithResolver(f))
			r, err := exprtree.Ref(name).EvalNumber(env)
			if assert.NoError(t, err) {
				assert.Equal(t, 4.0, r.Float64())
			}
		}()
	}
	wg.Wait()
	assert.Len(t, f.Names(), 9)
	order, err := f.Order()
	require.NoError(t, err)
	assert.Equal(t, exprtree.Reference("base"), order[0])
}
