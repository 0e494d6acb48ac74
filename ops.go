package exprtree

import (
	"strings"
	"time"

	"github.com/zephyrtronium/exprtree/number"
)

var arithOps = [...]number.Op{
	KindAdd: number.OpAdd,
	KindSub: number.OpSub,
	KindMul: number.OpMul,
	KindDiv: number.OpQuo,
	KindMod: number.OpRem,
	KindPow: number.OpPow,
}

// unary applies a negation or not node to its evaluated operand.
func (n *Node) unary(ctx Context, x any) (any, error) {
	if n.kind == KindNot {
		if b, ok := x.(bool); ok {
			return !b, nil
		}
	}
	v, err := numberOf(ctx, x)
	if err != nil {
		return nil, err
	}
	if n.kind == KindNeg {
		return number.Neg(v), nil
	}
	r, err := number.Not(v)
	if err != nil {
		return nil, &EvalError{Expr: n.String(), Err: err}
	}
	return r, nil
}

// binary applies a binary operator node to its evaluated operands.
func (n *Node) binary(ctx Context, x, y any) (any, error) {
	switch n.kind {
	case KindAnd, KindOr, KindXor:
		return n.logical(ctx, x, y)
	case KindEq, KindNe, KindLt, KindLe, KindGt, KindGe:
		return n.compare(ctx, x, y)
	}
	return n.arith(ctx, x, y)
}

func (n *Node) arith(ctx Context, x, y any) (any, error) {
	if s, ok := x.(string); ok {
		if n.kind != KindAdd {
			return nil, &UnsupportedError{Op: n.kind.Symbol(), Operand: "text"}
		}
		t, err := convert(ctx, y, TypeText)
		if err != nil {
			return nil, err
		}
		return s + t.(string), nil
	}
	a, err := numberOf(ctx, x)
	if err != nil {
		return nil, err
	}
	b, err := numberOf(ctx, y)
	if err != nil {
		return nil, err
	}
	r, err := number.Arith(ctx.Numbers(), arithOps[n.kind], a, b)
	if err != nil {
		return nil, &EvalError{Expr: n.String(), Err: err}
	}
	return r, nil
}

func (n *Node) compare(ctx Context, x, y any) (any, error) {
	switch a := x.(type) {
	case string:
		if b, ok := y.(string); ok {
			return n.ordered(strings.Compare(a, b)), nil
		}
	case time.Time:
		if b, ok := y.(time.Time); ok {
			return n.ordered(a.Compare(b)), nil
		}
	case bool:
		if b, ok := y.(bool); ok && (n.kind == KindEq || n.kind == KindNe) {
			return (a == b) == (n.kind == KindEq), nil
		}
	case nil:
		if y == nil && (n.kind == KindEq || n.kind == KindNe) {
			return n.kind == KindEq, nil
		}
	}
	a, err := numberOf(ctx, x)
	if err != nil {
		return nil, err
	}
	b, err := numberOf(ctx, y)
	if err != nil {
		return nil, err
	}
	if a.IsNaN() || b.IsNaN() {
		// NaN is unordered and unequal to everything.
		return n.kind == KindNe, nil
	}
	return n.ordered(number.Cmp(a, b)), nil
}

// ordered gives the result of a comparison node from a three-way comparison.
func (n *Node) ordered(c int) bool {
	switch n.kind {
	case KindEq:
		return c == 0
	case KindNe:
		return c != 0
	case KindLt:
		return c < 0
	case KindLe:
		return c <= 0
	case KindGt:
		return c > 0
	case KindGe:
		return c >= 0
	}
	panic("exprtree: ordered on " + n.kind.String())
}

func (n *Node) logical(ctx Context, x, y any) (any, error) {
	if a, ok := x.(bool); ok {
		r, err := convert(ctx, y, TypeBool)
		if err != nil {
			return nil, err
		}
		b := r.(bool)
		switch n.kind {
		case KindAnd:
			return a && b, nil
		case KindOr:
			return a || b, nil
		default:
			return a != b, nil
		}
	}
	a, err := numberOf(ctx, x)
	if err != nil {
		return nil, err
	}
	b, err := numberOf(ctx, y)
	if err != nil {
		return nil, err
	}
	var r number.Value
	switch n.kind {
	case KindAnd:
		r, err = number.And(a, b)
	case KindOr:
		r, err = number.Or(a, b)
	default:
		r, err = number.Xor(a, b)
	}
	if err != nil {
		return nil, &EvalError{Expr: n.String(), Err: err}
	}
	return r, nil
}
