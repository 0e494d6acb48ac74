package exprtree

import (
	"github.com/zephyrtronium/exprtree/number"
)

// Args is the argument list of a function call. Each argument is prepared
// according to the function's declared parameters the first time it is
// accessed, and the result, or the error, is kept for later accesses.
//
// An Args belongs to one call and must not be used concurrently.
type Args struct {
	ctx    Context
	params []Param
	raw    []any
	vals   []argState
	// ready is set once raw has been flattened.
	ready bool
	ferr  error
}

// argState is the preparation state of one argument.
type argState struct {
	done bool
	v    any
	err  error
}

// PrepareArgs creates the argument list for a call of fn with raw arguments.
// Raw arguments may be values, references, or unevaluated expressions.
// Nothing is prepared until the arguments are accessed.
func PrepareArgs(ctx Context, fn Func, raw []any) *Args {
	return &Args{ctx: guard(ctx), params: fn.Params(), raw: raw}
}

// variadic returns the trailing variadic parameter, if there is one.
func (a *Args) variadic() (Param, bool) {
	if len(a.params) == 0 {
		return Param{}, false
	}
	p := a.params[len(a.params)-1]
	return p, p.Variadic
}

// prepare flattens the arguments at and after a flattening variadic
// parameter.
func (a *Args) prepare() error {
	if a.ready {
		return a.ferr
	}
	a.ready = true
	if p, ok := a.variadic(); ok && p.Flatten && len(a.raw) >= len(a.params) {
		k := len(a.params) - 1
		flat := make([]any, k, len(a.raw))
		copy(flat, a.raw[:k])
		for _, v := range a.raw[k:] {
			var err error
			flat, err = a.flatten(flat, v, p)
			if err != nil {
				a.ferr = err
				return err
			}
		}
		a.raw = flat
	}
	a.vals = make([]argState, len(a.raw))
	return nil
}

// flatten appends the elements of v to dst, unwrapping lists recursively.
// Expressions that are not list literals are evaluated if p asks for it, so
// that lists they produce are unwrapped too.
func (a *Args) flatten(dst []any, v any, p Param) ([]any, error) {
	switch x := v.(type) {
	case []any:
		for _, e := range x {
			var err error
			dst, err = a.flatten(dst, e, p)
			if err != nil {
				return dst, err
			}
		}
		return dst, nil
	case *Node:
		if x.kind == KindList {
			for _, e := range x.kids {
				var err error
				dst, err = a.flatten(dst, e, p)
				if err != nil {
					return dst, err
				}
			}
			return dst, nil
		}
		if !p.Eval {
			break
		}
		r, err := x.EvalRef(a.ctx)
		if err != nil {
			return dst, err
		}
		if _, ok := r.(*Node); ok {
			// An expression evaluating to an expression is a value here.
			return append(dst, r), nil
		}
		return a.flatten(dst, r, p)
	case Reference:
		if !p.Resolve {
			break
		}
		r, err := a.resolve(x, p)
		if err != nil {
			return dst, err
		}
		if _, ok := r.(Reference); ok {
			return append(dst, r), nil
		}
		return a.flatten(dst, r, p)
	}
	return append(dst, v), nil
}

// Len returns the number of arguments after flattening. If flattening fails,
// the error is reported by At.
func (a *Args) Len() int {
	a.prepare()
	return len(a.raw)
}

// count is Len with the flattening error.
func (a *Args) count() (int, error) {
	if err := a.prepare(); err != nil {
		return 0, err
	}
	return len(a.raw), nil
}

// Raw returns the argument at i before preparation. It panics if i is out of
// range.
func (a *Args) Raw(i int) any {
	a.prepare()
	return a.raw[i]
}

// Param returns the declared parameter that applies to the argument at i.
func (a *Args) Param(i int) (Param, error) {
	if i < len(a.params) && !a.params[i].Variadic {
		return a.params[i], nil
	}
	if p, ok := a.variadic(); ok && i >= len(a.params)-1 {
		return p, nil
	}
	return Param{}, &ParamIndexError{Index: i, Len: len(a.params), Params: true}
}

// At returns the prepared argument at i. Preparation evaluates the argument
// if it is an expression and the parameter has Eval, resolves it if it is a
// reference and the parameter has Resolve, and converts it to the parameter's
// type. Failed conversions go through the context's handler.
func (a *Args) At(i int) (any, error) {
	if err := a.prepare(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(a.raw) {
		return nil, &ParamIndexError{Index: i, Len: len(a.raw)}
	}
	p, err := a.Param(i)
	if err != nil {
		return nil, err
	}
	s := &a.vals[i]
	if !s.done {
		s.v, s.err = a.prepareOne(a.raw[i], p)
		s.done = true
	}
	return s.v, s.err
}

func (a *Args) prepareOne(v any, p Param) (any, error) {
	if n, ok := v.(*Node); ok {
		switch {
		case p.Eval:
			var err error
			v, err = n.EvalRef(a.ctx)
			if err != nil {
				return nil, err
			}
		case p.Resolve && n.kind == KindRef:
			v = n.val
		}
	}
	if ref, ok := v.(Reference); ok && p.Resolve {
		var err error
		v, err = a.resolve(ref, p)
		if err != nil {
			return nil, err
		}
	}
	if p.Convert == TypeAny {
		return v, nil
	}
	return convert(a.ctx, v, p.Convert)
}

// resolve looks up ref and, if p has Eval, reduces the value it finds.
func (a *Args) resolve(ref Reference, p Param) (any, error) {
	v, known, err := a.ctx.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, &ReferenceError{Ref: ref}
	}
	if p.Eval {
		return force(a.ctx, v)
	}
	return v, nil
}

// All returns every prepared argument. It stops at the first failure.
func (a *Args) All() ([]any, error) {
	n, err := a.count()
	if err != nil {
		return nil, err
	}
	r := make([]any, n)
	for i := range r {
		r[i], err = a.At(i)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Number returns the prepared argument at i as a number.
func (a *Args) Number(i int) (number.Value, error) {
	v, err := a.At(i)
	if err != nil {
		return number.Value{}, err
	}
	return numberOf(a.ctx, v)
}

// Text returns the prepared argument at i as text.
func (a *Args) Text(i int) (string, error) {
	v, err := a.At(i)
	if err != nil {
		return "", err
	}
	r, err := convert(a.ctx, v, TypeText)
	if err != nil {
		return "", err
	}
	return r.(string), nil
}

// Bool returns the prepared argument at i as a bool.
func (a *Args) Bool(i int) (bool, error) {
	v, err := a.At(i)
	if err != nil {
		return false, err
	}
	r, err := convert(a.ctx, v, TypeBool)
	if err != nil {
		return false, err
	}
	return r.(bool), nil
}

// Context returns the context in which the arguments are prepared.
func (a *Args) Context() Context {
	return a.ctx
}
