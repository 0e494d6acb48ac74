package exprtree

import (
	"log/slog"
	"maps"

	"github.com/zephyrtronium/exprtree/number"
)

// Context supplies everything evaluation needs from its surroundings: numeric
// settings, functions, reference values, conversions, and error recovery.
//
// Env is the basic implementation. DetectCycles and EnterScope wrap any
// Context with cycle detection and local bindings, respectively.
type Context interface {
	// Numbers returns the numeric settings of evaluation. The result must be
	// non-nil.
	Numbers() *number.Context
	// Func returns the function with the given name. Unknown names give an
	// *UnknownFunctionError.
	Func(name FuncName) (Func, error)
	// Resolve looks up the value of a reference. If the reference is unknown,
	// known is false. A known reference may have a nil value, meaning it is
	// explicitly empty.
	Resolve(ref Reference) (v any, known bool, err error)
	// IsPure reports whether the named function always returns the same
	// result for the same arguments without side effects. Unknown functions
	// are impure.
	IsPure(name FuncName) bool
	// Convert converts a value to a type or fails.
	Convert(v any, to Type) (any, error)
	// Handle is called with conversion failures. It may recover by returning
	// a replacement value with a nil error.
	Handle(err error) (any, error)
}

// Handler recovers from conversion failures. Returning a nil error means the
// returned value replaces the one that failed to convert.
type Handler func(err error) (any, error)

// Env is a basic evaluation context holding variables and functions. An Env
// may be used by concurrent evaluations as long as it is not modified with
// Set while any evaluation is running.
type Env struct {
	nums  *number.Context
	vars  map[Reference]any
	funcs map[FuncName]Func
	// res is consulted for references not among vars.
	res    Resolver
	conv   Converter
	handle Handler
	log    *slog.Logger
}

// EnvOption is an option used when creating an Env.
type EnvOption interface {
	envOption()
}

type (
	varopt struct {
		name Reference
		val  any
	}
	varsopt    map[string]any
	precopt    uint32
	kindopt    number.Kind
	envfuncopt struct {
		name FuncName
		fn   Func
	}
	envfuncsopt map[FuncName]Func
	nobuiltins  struct{}
	resolveropt struct{ r Resolver }
	convopt     struct{ c Converter }
	handleropt  Handler
	logopt      struct{ l *slog.Logger }
)

func (varopt) envOption()      {}
func (varsopt) envOption()     {}
func (precopt) envOption()     {}
func (kindopt) envOption()     {}
func (envfuncopt) envOption()  {}
func (envfuncsopt) envOption() {}
func (nobuiltins) envOption()  {}
func (resolveropt) envOption() {}
func (convopt) envOption()     {}
func (handleropt) envOption()  {}
func (logopt) envOption()      {}

// SetVar sets the value of a variable in the context. A *Node value is
// evaluated whenever the variable is referenced.
func SetVar(name string, val any) EnvOption {
	return varopt{Reference(name), val}
}

// SetVars sets the values of any number of variables in the context.
func SetVars(vars map[string]any) EnvOption {
	return varsopt(vars)
}

// Prec sets the number of significant digits of decimal arithmetic.
func Prec(digits uint32) EnvOption {
	return precopt(digits)
}

// NumberKind sets the representation of numbers created during evaluation.
// The default is number.Float.
func NumberKind(k number.Kind) EnvOption {
	return kindopt(k)
}

// WithFunc adds a function to the context. A nil fn removes the function.
func WithFunc(name FuncName, fn Func) EnvOption {
	return envfuncopt{name, fn}
}

// WithFuncs adds functions to the context. Nil values remove functions.
func WithFuncs(fns map[FuncName]Func) EnvOption {
	return envfuncsopt(fns)
}

// WithoutBuiltins removes the default function library from the context.
// Functions added by later options are kept.
func WithoutBuiltins() EnvOption {
	return nobuiltins{}
}

// WithResolver sets a resolver consulted for references that are not
// variables of the context.
func WithResolver(r Resolver) EnvOption {
	return resolveropt{r}
}

// WithConverter sets the conversion service. The default is StdConverter.
func WithConverter(c Converter) EnvOption {
	return convopt{c}
}

// WithHandler sets the recovery behavior for conversion failures. The default
// handler returns the failure unchanged.
func WithHandler(h Handler) EnvOption {
	return handleropt(h)
}

// WithLogger sets the logger for diagnostic records. The default is
// slog.Default().
func WithLogger(l *slog.Logger) EnvOption {
	return logopt{l}
}

// NewEnv creates a new evaluation context. If no options say otherwise, the
// context uses float numbers, decimal precision number.DefaultPrecision, and
// the default function library.
func NewEnv(opts ...EnvOption) *Env {
	env := Env{
		nums:  number.NewContext(number.Float, 0),
		funcs: Builtins(),
	}
	return env.Clone(opts...)
}

// Clone creates a copy of a context and applies options to it.
func (env *Env) Clone(opts ...EnvOption) *Env {
	n := Env{
		nums:   env.nums,
		vars:   maps.Clone(env.vars),
		funcs:  maps.Clone(env.funcs),
		res:    env.res,
		conv:   env.conv,
		handle: env.handle,
		log:    env.log,
	}
	if n.vars == nil {
		n.vars = make(map[Reference]any)
	}
	if n.funcs == nil {
		n.funcs = make(map[FuncName]Func)
	}
	// Numeric settings combine, so gather both before building them.
	kind, prec := n.nums.Kind, n.nums.Precision()
	for _, opt := range opts {
		switch opt := opt.(type) {
		case precopt:
			prec = uint32(opt)
		case kindopt:
			kind = number.Kind(opt)
		}
	}
	if kind != n.nums.Kind || prec != n.nums.Precision() {
		n.nums = number.NewContext(kind, prec)
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case varopt:
			n.vars[opt.name] = opt.val
		case varsopt:
			for k, v := range opt {
				n.vars[Reference(k)] = v
			}
		case envfuncopt:
			setfunc(n.funcs, opt.name, opt.fn)
		case envfuncsopt:
			for k, v := range opt {
				setfunc(n.funcs, k, v)
			}
		case nobuiltins:
			for k := range builtins {
				delete(n.funcs, k)
			}
		case resolveropt:
			n.res = opt.r
		case convopt:
			n.conv = opt.c
		case handleropt:
			n.handle = Handler(opt)
		case logopt:
			n.log = opt.l
		case precopt, kindopt:
			// Already done. Do nothing.
		default:
			panic("exprtree: unknown option type")
		}
	}
	return &n
}

func setfunc(m map[FuncName]Func, name FuncName, fn Func) {
	if fn == nil {
		delete(m, name)
		return
	}
	m[name] = fn
}

// Set sets the value of a variable. Returns env for chaining. Set must not be
// called while env is used by an evaluation.
func (env *Env) Set(name string, val any) *Env {
	env.vars[Reference(name)] = val
	return env
}

// Lookup returns the value of a variable and whether it is set. Only the
// variables of env are consulted, not its resolver.
func (env *Env) Lookup(name string) (any, bool) {
	v, ok := env.vars[Reference(name)]
	return v, ok
}

// Numbers returns the numeric settings of env.
func (env *Env) Numbers() *number.Context {
	return env.nums
}

// Func returns the named function. A variable holding a function value, such
// as a lambda, also serves as a function.
func (env *Env) Func(name FuncName) (Func, error) {
	if f := env.funcs[name]; f != nil {
		return f, nil
	}
	if v, ok := env.vars[Reference(name)]; ok {
		if f, ok := v.(Func); ok {
			return f, nil
		}
	}
	env.Logger().Debug("unknown function", slog.String("name", string(name)))
	return nil, &UnknownFunctionError{Name: name}
}

// Resolve returns the value of a variable, or consults env's resolver.
func (env *Env) Resolve(ref Reference) (any, bool, error) {
	if v, ok := env.vars[ref]; ok {
		return v, true, nil
	}
	if env.res != nil {
		return env.res.Resolve(ref)
	}
	return nil, false, nil
}

// IsPure reports whether the named function is known and pure.
func (env *Env) IsPure(name FuncName) bool {
	f, err := env.Func(name)
	return err == nil && f.Pure()
}

// Convert converts v using env's converter. Conversions during evaluation
// call the converter with the evaluating context instead, so that scopes
// are visible to it.
func (env *Env) Convert(v any, to Type) (any, error) {
	return env.Converter().Convert(env, v, to)
}

// Converter returns the conversion service of env.
func (env *Env) Converter() Converter {
	if env.conv == nil {
		return StdConverter{}
	}
	return env.conv
}

// Handle passes a conversion failure to env's handler.
func (env *Env) Handle(err error) (any, error) {
	if env.handle == nil {
		return nil, err
	}
	v, herr := env.handle(err)
	if herr == nil {
		env.Logger().Debug("handler recovered", slog.Any("err", err), slog.Any("value", v))
	}
	return v, herr
}

// Logger returns the logger for diagnostic records.
func (env *Env) Logger() *slog.Logger {
	if env.log == nil {
		return slog.Default()
	}
	return env.log
}

// converterOf returns the conversion service of a context, or nil if it does
// not expose one.
func converterOf(ctx Context) Converter {
	if c, ok := ctx.(interface{ Converter() Converter }); ok {
		return c.Converter()
	}
	return nil
}

// loggerOf returns the logger of a context, if it has one.
func loggerOf(ctx Context) *slog.Logger {
	if l, ok := ctx.(interface{ Logger() *slog.Logger }); ok {
		return l.Logger()
	}
	return slog.Default()
}
