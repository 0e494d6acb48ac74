package exprtree

import (
	"errors"
	"math"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"github.com/zephyrtronium/exprtree/number"
)

// Func is a function callable from expressions.
type Func interface {
	// Params declares the function's parameters, which control how each
	// argument is prepared before Apply sees it. Only the last parameter may
	// be variadic.
	Params() []Param
	// Returns is the type of the function's result.
	Returns() Type
	// Pure reports whether the function always gives the same result for the
	// same arguments without side effects.
	Pure() bool
	// Apply computes the function's result. Arguments are prepared lazily as
	// Apply accesses them through args.
	Apply(ctx Context, args *Args) (any, error)
}

// Param describes how a function wants an argument prepared.
type Param struct {
	// Name is the parameter name, used in messages and by lambdas.
	Name string
	// Eval requests that sub-expression arguments be evaluated. Otherwise the
	// function receives the *Node itself.
	Eval bool
	// Resolve requests that reference arguments be replaced by their values.
	// Otherwise the function receives the Reference.
	Resolve bool
	// Convert is the type the argument is converted to. TypeAny leaves it
	// unchanged.
	Convert Type
	// Variadic marks the last parameter as accepting any number of arguments,
	// including none.
	Variadic bool
	// Flatten unwraps nested lists among the variadic arguments so that each
	// element becomes an argument of its own.
	Flatten bool
}

// Value returns a parameter that is evaluated, resolved, and converted to t.
func Value(name string, t Type) Param {
	return Param{Name: name, Eval: true, Resolve: true, Convert: t}
}

// Variadic returns a variadic parameter that is evaluated, resolved, and
// converted to t.
func Variadic(name string, t Type, flatten bool) Param {
	return Param{Name: name, Eval: true, Resolve: true, Convert: t, Variadic: true, Flatten: flatten}
}

// Lazy returns a parameter that receives its argument unevaluated.
func Lazy(name string) Param {
	return Param{Name: name}
}

// arity returns the minimum and maximum numbers of arguments for params. max
// is -1 if the last parameter is variadic.
func arity(params []Param) (min, max int) {
	if len(params) > 0 && params[len(params)-1].Variadic {
		return len(params) - 1, -1
	}
	return len(params), len(params)
}

type funcImpl struct {
	params  []Param
	returns Type
	pure    bool
	apply   func(ctx Context, args *Args) (any, error)
}

func (f *funcImpl) Params() []Param { return f.params }
func (f *funcImpl) Returns() Type   { return f.returns }
func (f *funcImpl) Pure() bool      { return f.pure }

func (f *funcImpl) Apply(ctx Context, args *Args) (any, error) {
	return f.apply(ctx, args)
}

// NewFunc creates a function from its parameters, result type, purity, and
// implementation.
func NewFunc(params []Param, returns Type, pure bool, apply func(ctx Context, args *Args) (any, error)) Func {
	return &funcImpl{params: params, returns: returns, pure: pure, apply: apply}
}

// Invoke prepares raw arguments for fn, checks their number, and applies fn.
// name identifies the function in errors and may be empty.
func Invoke(ctx Context, name FuncName, fn Func, raw ...any) (any, error) {
	args := PrepareArgs(ctx, fn, raw)
	n, err := args.count()
	if err != nil {
		return nil, err
	}
	min, max := arity(fn.Params())
	if n < min || max >= 0 && n > max {
		return nil, &ArityError{Func: string(name), Min: min, Max: max, Got: n}
	}
	return fn.Apply(args.ctx, args)
}

// Closure is the value of a lambda: a body with named parameters, evaluated
// in a scope of the context where the lambda was evaluated. A Closure holds
// no state of the evaluation that created it, so it may be stored and
// applied concurrently.
type Closure struct {
	params []string
	body   *Node
	// env never contains a CycleDetector. Each application supplies the
	// caller's.
	env Context
}

// Params declares one evaluated parameter per lambda parameter.
func (c *Closure) Params() []Param {
	p := make([]Param, len(c.params))
	for i, name := range c.params {
		p[i] = Param{Name: name, Eval: true, Resolve: true}
	}
	return p
}

// Returns is TypeAny.
func (c *Closure) Returns() Type {
	return TypeAny
}

// Pure reports whether every function the body calls is pure.
func (c *Closure) Pure() bool {
	return pureTree(c.env, c.body)
}

// Apply evaluates the body with the parameters bound to the arguments.
func (c *Closure) Apply(ctx Context, args *Args) (any, error) {
	b := make(Bindings, len(c.params))
	for i, name := range c.params {
		v, err := args.At(i)
		if err != nil {
			return nil, err
		}
		b[Reference(name)] = v
	}
	var env Context
	if d := detectorOf(ctx); d != nil {
		env = rebase(c.env, d)
	} else {
		env = DetectCycles(c.env)
	}
	return c.body.eval(EnterScope(env, b))
}

func (c *Closure) String() string {
	return Lambda(c.params, c.body).String()
}

// Partial is the value of a function handle: a function with some leading
// arguments already supplied.
type Partial struct {
	name  FuncName
	fn    Func
	bound []any
}

// Params declares the parameters of the function that remain unbound.
func (p *Partial) Params() []Param {
	params := p.fn.Params()
	n := len(p.bound)
	if len(params) > 0 && params[len(params)-1].Variadic && n >= len(params)-1 {
		// Every fixed parameter is bound; the variadic one still accepts more.
		return params[len(params)-1:]
	}
	if n > len(params) {
		n = len(params)
	}
	return params[n:]
}

// Returns is the result type of the function.
func (p *Partial) Returns() Type {
	return p.fn.Returns()
}

// Pure reports the purity of the function.
func (p *Partial) Pure() bool {
	return p.fn.Pure()
}

// Apply calls the function with the bound arguments followed by args.
func (p *Partial) Apply(ctx Context, args *Args) (any, error) {
	rest, err := args.All()
	if err != nil {
		return nil, err
	}
	raw := make([]any, 0, len(p.bound)+len(rest))
	raw = append(raw, p.bound...)
	raw = append(raw, rest...)
	return Invoke(ctx, p.name, p.fn, raw...)
}

func (p *Partial) String() string {
	return "@" + string(p.name)
}

// pureTree reports whether every call in n is to a pure function of ctx.
func pureTree(ctx Context, n *Node) bool {
	for m := range Nodes(n) {
		switch m.kind {
		case KindCall, KindHandle:
			if !ctx.IsPure(m.val.(FuncName)) {
				return false
			}
		}
	}
	return true
}

// bigFunc computes a function of big floats.
type bigFunc struct {
	params []Param
	f      func(out *big.Float, in []*big.Float) *big.Float
}

func (b *bigFunc) Params() []Param { return b.params }
func (b *bigFunc) Returns() Type   { return TypeNumber }
func (b *bigFunc) Pure() bool      { return true }

func (b *bigFunc) Apply(ctx Context, args *Args) (r any, err error) {
	nc := ctx.Numbers()
	prec := bigPrec(nc)
	xs := make([]number.Value, len(b.params))
	in := make([]*big.Float, len(b.params))
	for i := range in {
		x, err := args.Number(i)
		if err != nil {
			return nil, err
		}
		xs[i] = x
		in[i], err = toBig(x, prec, i+1)
		if err != nil {
			return nil, err
		}
	}
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		e := p.(error) // panic if not error
		if errors.As(e, new(*DomainError)) {
			err = e
			return
		}
		if errors.As(e, &big.ErrNaN{}) {
			// The big.Float functions only know that something was NaN.
			d := &DomainError{}
			if len(xs) > 0 {
				d.X, d.Arg = xs[0], 1
			}
			err = d
			return
		}
		panic(p)
	}()
	out := new(big.Float).SetPrec(prec)
	b.f(out, in)
	return fromBig(nc, out)
}

// Monadic wraps a function of one variable into a Func. f must set out to its
// result, to the precision of out; its return value is always ignored. If f
// is called on an argument outside f's domain, it should panic with a
// *DomainError, or with an error of type big.ErrNaN or that unwraps to it.
func Monadic(f func(out, in *big.Float) *big.Float) Func {
	return &bigFunc{
		params: []Param{Value("x", TypeNumber)},
		f: func(out *big.Float, in []*big.Float) *big.Float {
			return f(out, in[0])
		},
	}
}

// Dyadic wraps a function of two variables into a Func, like Monadic.
func Dyadic(f func(out, x, y *big.Float) *big.Float) Func {
	return &bigFunc{
		params: []Param{Value("x", TypeNumber), Value("y", TypeNumber)},
		f: func(out *big.Float, in []*big.Float) *big.Float {
			return f(out, in[0], in[1])
		},
	}
}

// Niladic wraps a function of zero variables, generally a function which
// computes a constant, into a Func. f must set out to its result; its return
// value is always ignored. Unlike Monadic, the wrapped function is expected
// never to panic.
func Niladic(f func(out *big.Float) *big.Float) Func {
	return &bigFunc{
		f: func(out *big.Float, _ []*big.Float) *big.Float {
			return f(out)
		},
	}
}

// bigPrec is the binary precision that carries the context's significant
// digits, with some guard bits.
func bigPrec(nc *number.Context) uint {
	if nc.Kind == number.Float {
		return 64
	}
	return uint(float64(nc.Precision())*math.Log2(10)) + 16
}

func toBig(x number.Value, prec uint, arg int) (*big.Float, error) {
	r := new(big.Float).SetPrec(prec)
	switch {
	case x.IsNaN():
		return nil, &DomainError{X: x, Arg: arg}
	case x.IsInf():
		return r.SetInf(x.Sign() < 0), nil
	case x.Kind() == number.Float:
		return r.SetFloat64(x.Float64()), nil
	}
	if _, ok := r.SetString(x.String()); !ok {
		return nil, &DomainError{X: x, Arg: arg}
	}
	return r, nil
}

func fromBig(nc *number.Context, r *big.Float) (number.Value, error) {
	if nc.Kind == number.Float || r.IsInf() {
		f, _ := r.Float64()
		return number.Float64(f), nil
	}
	d, _, err := apd.NewFromString(r.Text('g', int(nc.Precision())))
	if err != nil {
		return number.Value{}, err
	}
	return number.FromDecimal(d), nil
}

// DomainError is an error returned when a function is called on arguments
// outside its domain.
type DomainError struct {
	// X is the out-of-domain argument.
	X number.Value
	// Arg is the 1-based index of the argument.
	Arg int
	// Func is a name identifying the function.
	Func string
}

func (err *DomainError) Error() string {
	r := err.X.String() + " outside domain"
	if err.Func != "" {
		r += " of " + err.Func
	}
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	return r
}
