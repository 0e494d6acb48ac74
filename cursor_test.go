package exprtree_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/exprtree"
)

func TestCursorReplace(t *testing.T) {
	n := exprtree.MustParse("(1 + 2) * x")
	c := exprtree.Root(n).Child(0).Child(1)
	require.Equal(t, "2", c.Node().String())

	r, err := c.Replace(exprtree.Int(5))
	require.NoError(t, err)
	assert.Equal(t, "5", r.Node().String())
	assert.Equal(t, []int{0, 1}, r.Path())
	assert.Equal(t, 2, r.Depth())
	assert.Equal(t, 1, r.Index())
	m := r.Top().Node()
	assert.Equal(t, "((1 + 5) * x)", m.String())
	assert.Equal(t, "((1 + 2) * x)", n.String(), "the original tree must not change")
	assert.Same(t, n.Child(1), m.Child(1), "subtrees off the path are shared")
	assert.Same(t, n.Child(0).Child(0), m.Child(0).Child(0))
	assert.NotSame(t, n.Child(0), m.Child(0))

	same, err := c.Replace(exprtree.Int(2))
	require.NoError(t, err)
	assert.Same(t, c, same, "replacing with an equal node changes nothing")

	_, err = c.Replace(nil)
	var ce *exprtree.ConstructionError
	assert.ErrorAs(t, err, &ce)
}

func TestCursorReplaceRoot(t *testing.T) {
	n := exprtree.MustParse("x")
	r, err := exprtree.Root(n).Replace(exprtree.MustParse("y + 1"))
	require.NoError(t, err)
	assert.True(t, r.IsRoot())
	assert.Equal(t, exprtree.NoIndex, r.Index())
	assert.Equal(t, "(y + 1)", r.Node().String())
}

func TestCursorReplaceChildren(t *testing.T) {
	n := exprtree.MustParse("f(x + 1)")
	c := exprtree.Root(n).Child(0)

	same, err := c.ReplaceChildren(exprtree.Ref("x"), exprtree.Int(1))
	require.NoError(t, err)
	assert.Same(t, c, same)

	r, err := c.ReplaceChildren(exprtree.Int(1), exprtree.Ref("x"))
	require.NoError(t, err)
	assert.Equal(t, "f((1 + x))", r.Top().Node().String())

	_, err = c.ReplaceChildren(exprtree.Int(1))
	var ce *exprtree.ConstructionError
	assert.ErrorAs(t, err, &ce)
	_, err = c.ReplaceChildren(exprtree.Int(1), nil)
	assert.ErrorAs(t, err, &ce)

	r, err = exprtree.Root(n).ReplaceChildren()
	require.NoError(t, err)
	assert.Equal(t, "f()", r.Node().String())
}

func TestCursorChildren(t *testing.T) {
	n := exprtree.MustParse("f(1)")
	c := exprtree.Root(n)

	r, err := c.AppendChild(exprtree.Int(2))
	require.NoError(t, err)
	assert.Equal(t, "f(1, 2)", r.Node().String())
	r, err = r.InsertChild(0, exprtree.Ref("x"))
	require.NoError(t, err)
	assert.Equal(t, "f(x, 1, 2)", r.Node().String())
	r, err = r.RemoveChildAt(1)
	require.NoError(t, err)
	assert.Equal(t, "f(x, 2)", r.Node().String())
	r, err = r.RemoveChildAt(0)
	require.NoError(t, err)
	r, err = r.RemoveChildAt(0)
	require.NoError(t, err)
	assert.Equal(t, "f()", r.Node().String())
	assert.Equal(t, "f(1)", n.String())

	var ce *exprtree.ConstructionError
	_, err = r.RemoveChildAt(0)
	assert.ErrorAs(t, err, &ce)
	_, err = r.InsertChild(1, exprtree.Int(1))
	assert.ErrorAs(t, err, &ce)
	_, err = r.AppendChild(nil)
	assert.ErrorAs(t, err, &ce)

	// Nested lists rebuild their ancestors.
	l := exprtree.MustParse("g({1}, y)")
	r, err = exprtree.Root(l).Child(0).AppendChild(exprtree.Int(2))
	require.NoError(t, err)
	assert.Equal(t, "g({1, 2}, y)", r.Top().Node().String())
	assert.Same(t, l.Child(1), r.Top().Node().Child(1))
}

func TestCursorChildrenUnsupported(t *testing.T) {
	var ue *exprtree.UnsupportedError
	for _, src := range []string{"x + 1", "-x", "x", `\(x) x`} {
		c := exprtree.Root(exprtree.MustParse(src))
		_, err := c.AppendChild(exprtree.Int(1))
		assert.ErrorAs(t, err, &ue, src)
		_, err = c.RemoveChildAt(0)
		assert.ErrorAs(t, err, &ue, src)
	}
}

func TestCursorRemoveParent(t *testing.T) {
	n := exprtree.MustParse("a * (b + c)")
	c := exprtree.Root(n).Descend(1, 0)
	require.Equal(t, "b", c.Node().String())
	r := c.RemoveParent()
	assert.True(t, r.IsRoot())
	assert.Same(t, c.Node(), r.Node())
	assert.Nil(t, r.Parent())
	assert.Same(t, r, r.RemoveParent())
	assert.Equal(t, "(a * (b + c))", n.String())
}

func TestCursorIndexOf(t *testing.T) {
	n := exprtree.MustParse("x + x")
	i, err := exprtree.Root(n).IndexOf()
	require.NoError(t, err)
	assert.Equal(t, exprtree.NoIndex, i)
	i, err = exprtree.Root(n).Child(1).IndexOf()
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	i, err = exprtree.Root(n).Child(0).IndexOf()
	require.NoError(t, err)
	assert.Equal(t, 0, i)
}

func TestCursorDescend(t *testing.T) {
	n := exprtree.MustParse("f(1, {2, g(3)})")
	c := exprtree.Root(n).Descend(1, 1, 0)
	assert.Equal(t, "3", c.Node().String())
	assert.Equal(t, []int{1, 1, 0}, c.Path())
	assert.Same(t, n, c.Top().Node())
	assert.Equal(t, "g(3)", c.Parent().Node().String())
}

func TestWalk(t *testing.T) {
	n := exprtree.MustParse("1 + f(x, -y)")
	var got []string
	for m := range exprtree.Nodes(n) {
		got = append(got, m.Kind().String())
	}
	want := []string{"Add", "Int", "Call", "Ref", "Neg", "Ref"}
	assert.Equal(t, want, got)

	// Iterators restart from the root each time.
	got = got[:0]
	for c := range exprtree.Walk(n) {
		got = append(got, c.Node().Kind().String())
	}
	assert.Equal(t, want, got)

	// And stop when asked.
	k := 0
	for range exprtree.Walk(n) {
		k++
		if k == 2 {
			break
		}
	}
	assert.Equal(t, 2, k)

	depths := slices.Collect(func(yield func(int) bool) {
		for c := range exprtree.Walk(n) {
			if !yield(c.Depth()) {
				return
			}
		}
	})
	assert.Equal(t, []int{0, 1, 1, 2, 2, 3}, depths)
}

func TestFind(t *testing.T) {
	n := exprtree.MustParse("1 + f(x, -y)")
	c := exprtree.Find(n, func(m *exprtree.Node) bool { return m.Kind() == exprtree.KindNeg })
	require.NotNil(t, c)
	assert.Equal(t, []int{1, 1}, c.Path())
	assert.Nil(t, exprtree.Find(n, func(m *exprtree.Node) bool { return m.Kind() == exprtree.KindText }))
}

func TestRefsAndCalls(t *testing.T) {
	n := exprtree.MustParse(`w + f(x, y) + map(\(z) z + y, {w}) + apply(@sum, 1)`)
	assert.Equal(t, []exprtree.Reference{"w", "x", "y"}, exprtree.Refs(n))
	assert.Equal(t, []exprtree.FuncName{"apply", "f", "map", "sum"}, exprtree.Calls(n))

	// A parameter only shadows inside its lambda.
	n = exprtree.MustParse(`z + apply(\(z) z, 1)`)
	assert.Equal(t, []exprtree.Reference{"z"}, exprtree.Refs(n))
	assert.Empty(t, exprtree.Refs(exprtree.MustParse("1 + 2")))
}

func TestCursorConcurrentRebuild(t *testing.T) {
	n := exprtree.MustParse("a + b")
	done := make(chan string)
	for i := range 4 {
		go func() {
			r, err := exprtree.Root(n).Child(0).Replace(exprtree.Int(int64(i)))
			if err != nil {
				done <- ""
				return
			}
			done <- r.Top().Node().String()
		}()
	}
	seen := make(map[string]bool)
	for range 4 {
		seen[<-done] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, "(a + b)", n.String())
}
