package exprtree

import (
	"log/slog"

	"github.com/zephyrtronium/exprtree/number"
)

// Fold replaces constant subexpressions of n with their values. A
// subexpression is constant if it uses no references and calls only functions
// that ctx reports as pure. Subexpressions that fail to evaluate are left in
// place, so that evaluating the folded tree reports the same error.
//
// Arithmetic on two integer literals keeps an integer literal when the result
// is exact in ctx's number kind. Other constants become leaves of the values
// they evaluate to; constants whose values have no leaf form, like lists and
// lambdas, are kept.
//
// The result shares every subtree that did not change with n.
func Fold(ctx Context, n *Node) (*Node, error) {
	ctx = guard(ctx)
	c, err := fold(ctx, Root(n))
	if err != nil {
		return nil, err
	}
	return c.Node(), nil
}

// fold folds the subtree at c in post-order and returns the cursor at the
// same position of the rebuilt tree.
func fold(ctx Context, c *Cursor) (*Cursor, error) {
	for i := range c.Node().Len() {
		k, err := fold(ctx, c.Child(i))
		if err != nil {
			return nil, err
		}
		c = k.Parent()
	}
	n := c.Node()
	switch n.kind.Shape() {
	case ShapeLeaf:
		return c, nil
	case ShapeVariadic:
		if n.kind != KindCall {
			return c, nil
		}
	}
	if n.kind == KindLambda || !constant(ctx, n) {
		return c, nil
	}
	r := foldInts(ctx, n)
	if r == nil {
		v, err := n.eval(ctx)
		if err != nil {
			loggerOf(ctx).Debug("not folding", slog.String("expr", n.String()), slog.Any("err", err))
			return c, nil
		}
		r, err = LeafOf(v)
		if err != nil {
			return c, nil
		}
	}
	return c.Replace(r)
}

// constant reports whether every child of n is a literal.
func constant(ctx Context, n *Node) bool {
	if n.kind == KindCall && !ctx.IsPure(n.val.(FuncName)) {
		return false
	}
	for _, k := range n.kids {
		if !literal(ctx, k) {
			return false
		}
	}
	return true
}

// literal reports whether n is a value leaf or a list of them.
func literal(ctx Context, n *Node) bool {
	switch n.kind {
	case KindRef, KindFuncName:
		return false
	case KindList:
		for _, k := range n.kids {
			if !literal(ctx, k) {
				return false
			}
		}
		return true
	}
	return n.kind.Shape() == ShapeLeaf
}

// foldInts computes arithmetic on two integer literals with the raw widening
// ladder. The result is nil unless it is an integer that ctx's number kind
// represents exactly, so that the folded tree evaluates the same.
func foldInts(ctx Context, n *Node) *Node {
	if int(n.kind) >= len(arithOps) || n.kind.Shape() != ShapeBinary {
		return nil
	}
	x, y := n.kids[0], n.kids[1]
	if x.kind != KindInt || y.kind != KindInt {
		return nil
	}
	nc := ctx.Numbers()
	v, err := number.Raw(nc, arithOps[n.kind], x.val, y.val)
	if err != nil {
		return nil
	}
	r, ok := v.(int64)
	if !ok || !exactInt(nc, r) || !exactInt(nc, x.val.(int64)) || !exactInt(nc, y.val.(int64)) {
		return nil
	}
	return Int(r)
}

// exactInt reports whether arithmetic in nc represents i exactly.
func exactInt(nc *number.Context, i int64) bool {
	if i < 0 {
		i = -i
	}
	if i < 0 || i >= 1<<53 {
		return false
	}
	if nc.Kind == number.Float {
		return true
	}
	digits := uint32(1)
	for ; i >= 10; i /= 10 {
		digits++
	}
	return digits <= nc.Precision()
}
