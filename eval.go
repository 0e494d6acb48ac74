package exprtree

import (
	"io"
	"math/big"
	"slices"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/zephyrtronium/exprtree/number"
)

// Eval evaluates n and returns its value. References are resolved through ctx
// with cycle detection. The result is one of bool, string, number.Value,
// int64, float64, *big.Int, *apd.Decimal, time.Time, []any, Func,
// FuncName, or whatever values ctx supplies for references and functions
// return.
func (n *Node) Eval(ctx Context) (any, error) {
	return n.eval(guard(ctx))
}

// EvalRef is like Eval, except that a reference node evaluates to its
// Reference rather than to the value it refers to.
func (n *Node) EvalRef(ctx Context) (any, error) {
	if n.kind == KindRef {
		return n.val, nil
	}
	return n.Eval(ctx)
}

// EvalBool evaluates n and converts the result to bool.
func (n *Node) EvalBool(ctx Context) (bool, error) {
	v, err := n.Eval(ctx)
	if err != nil {
		return false, err
	}
	r, err := convert(ctx, v, TypeBool)
	if err != nil {
		return false, err
	}
	return r.(bool), nil
}

// EvalNumber evaluates n and converts the result to a number. Raw numbers
// take the kind of ctx.Numbers(); number.Value results keep their own.
func (n *Node) EvalNumber(ctx Context) (number.Value, error) {
	v, err := n.Eval(ctx)
	if err != nil {
		return number.Value{}, err
	}
	return numberOf(ctx, v)
}

// EvalText evaluates n and converts the result to text.
func (n *Node) EvalText(ctx Context) (string, error) {
	v, err := n.Eval(ctx)
	if err != nil {
		return "", err
	}
	r, err := convert(ctx, v, TypeText)
	if err != nil {
		return "", err
	}
	return r.(string), nil
}

// EvalReader is a shortcut to parse an expression and evaluate it in a new
// Env created with opts. The parser recognizes the functions of that Env.
func EvalReader(src io.RuneScanner, opts ...EnvOption) (any, error) {
	env := NewEnv(opts...)
	n, err := Parse(src, ParseEnv(env))
	if err != nil {
		return nil, err
	}
	return n.Eval(env)
}

// EvalString is a shortcut to parse and evaluate a string expression.
func EvalString(src string, opts ...EnvOption) (any, error) {
	return EvalReader(strings.NewReader(src), opts...)
}

// eval computes the value of n. ctx must already detect cycles.
func (n *Node) eval(ctx Context) (any, error) {
	switch n.kind {
	case KindBool, KindText, KindInt, KindFloat, KindNumber, KindTime, KindFuncName:
		return n.val, nil
	case KindBigInt:
		return new(big.Int).Set(n.val.(*big.Int)), nil
	case KindDecimal:
		return new(apd.Decimal).Set(n.val.(*apd.Decimal)), nil
	case KindRef:
		return resolveRef(ctx, n.val.(Reference))
	case KindNeg, KindNot:
		x, err := n.kids[0].eval(ctx)
		if err != nil {
			return nil, err
		}
		return n.unary(ctx, x)
	case KindLambda:
		env, _ := unguard(ctx)
		return &Closure{params: n.params, body: n.kids[0], env: env}, nil
	case KindCall:
		name := n.val.(FuncName)
		fn, err := ctx.Func(name)
		if err != nil {
			return nil, err
		}
		raw := make([]any, len(n.kids))
		for i, k := range n.kids {
			raw[i] = k
		}
		return Invoke(ctx, name, fn, raw...)
	case KindList:
		r := make([]any, len(n.kids))
		for i, k := range n.kids {
			v, err := k.eval(ctx)
			if err != nil {
				return nil, err
			}
			r[i] = v
		}
		return r, nil
	case KindHandle:
		name := n.val.(FuncName)
		fn, err := ctx.Func(name)
		if err != nil {
			return nil, err
		}
		bound := make([]any, len(n.kids))
		for i, k := range n.kids {
			v, err := k.eval(ctx)
			if err != nil {
				return nil, err
			}
			bound[i] = v
		}
		return &Partial{name: name, fn: fn, bound: bound}, nil
	}
	if n.kind.Shape() != ShapeBinary {
		return nil, &InternalError{Msg: "eval on invalid node kind " + n.kind.String()}
	}
	x, err := n.kids[0].eval(ctx)
	if err != nil {
		return nil, err
	}
	y, err := n.kids[1].eval(ctx)
	if err != nil {
		return nil, err
	}
	return n.binary(ctx, x, y)
}

// resolveRef returns the value of ref, reducing references and expressions
// it is bound to. Contexts that detect cycles reduce them already; the chain
// check covers those that hand back references unreduced.
func resolveRef(ctx Context, ref Reference) (any, error) {
	var chain []Reference
	for {
		if slices.Contains(chain, ref) {
			return nil, &CycleError{Ref: ref}
		}
		chain = append(chain, ref)
		v, known, err := ctx.Resolve(ref)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, &ReferenceError{Ref: ref}
		}
		switch r := v.(type) {
		case Reference:
			ref = r
			continue
		case *Node:
			if r.kind == KindRef {
				ref = r.val.(Reference)
				continue
			}
			return r.eval(ctx)
		}
		return v, nil
	}
}

// force evaluates v if it is an expression and otherwise returns it.
func force(ctx Context, v any) (any, error) {
	switch v := v.(type) {
	case *Node:
		return v.eval(ctx)
	case Reference:
		return resolveRef(ctx, v)
	}
	return v, nil
}
