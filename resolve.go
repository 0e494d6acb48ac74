package exprtree

import (
	"log/slog"
	"maps"
	"slices"
)

// Resolver looks up the values of references. See Context.Resolve.
type Resolver interface {
	Resolve(ref Reference) (v any, known bool, err error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(ref Reference) (any, bool, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ref Reference) (any, bool, error) {
	return f(ref)
}

// Bindings is a Resolver over a fixed map. A nil value marks a reference that
// is known but empty.
type Bindings map[Reference]any

// Resolve returns the binding for ref.
func (b Bindings) Resolve(ref Reference) (any, bool, error) {
	v, ok := b[ref]
	return v, ok, nil
}

// CycleDetector is a Context that fails with a *CycleError when resolving a
// reference requires resolving the same reference again. It records the
// references currently being resolved, so a CycleDetector belongs to a
// single evaluation and must not be shared between concurrent ones.
//
// When a reference resolves to another reference, or to an expression, the
// detector follows it before returning, so chains and formulas are checked
// while the original reference is still recorded. Scopes entered above a
// detector record their own reference and expression bindings with it.
type CycleDetector struct {
	Context
	inflight map[Reference]struct{}
	// scoped holds scope bindings being reduced, keyed by the scope that
	// binds them so that shadowing names do not collide.
	scoped map[scopedRef]struct{}
}

type scopedRef struct {
	scope *Scope
	ref   Reference
}

// DetectCycles wraps ctx with cycle detection.
func DetectCycles(ctx Context) *CycleDetector {
	return &CycleDetector{
		Context:  ctx,
		inflight: make(map[Reference]struct{}),
		scoped:   make(map[scopedRef]struct{}),
	}
}

// over returns a detector for ctx which shares the in-flight references of d.
func (d *CycleDetector) over(ctx Context) *CycleDetector {
	return &CycleDetector{Context: ctx, inflight: d.inflight, scoped: d.scoped}
}

// Resolve resolves ref through the wrapped context, reducing reference and
// expression results.
func (d *CycleDetector) Resolve(ref Reference) (any, bool, error) {
	if _, ok := d.inflight[ref]; ok {
		return nil, true, d.cycle(ref)
	}
	d.inflight[ref] = struct{}{}
	defer delete(d.inflight, ref)
	v, known, err := d.Context.Resolve(ref)
	if err != nil || !known {
		return v, known, err
	}
	return d.reduce(d, v)
}

// local reduces v, the binding of ref in s, with the binding recorded as in
// flight. References it leads to are looked up from s.
func (d *CycleDetector) local(s *Scope, ref Reference, v any) (any, bool, error) {
	k := scopedRef{s.origin, ref}
	if _, ok := d.scoped[k]; ok {
		return nil, true, d.cycle(ref)
	}
	d.scoped[k] = struct{}{}
	defer delete(d.scoped, k)
	return d.reduce(s, v)
}

// reduce follows v if it is a reference or evaluates it if it is an
// expression. ctx is the context v was bound in.
func (d *CycleDetector) reduce(ctx Context, v any) (any, bool, error) {
	switch v := v.(type) {
	case Reference:
		return follow(ctx, v)
	case *Node:
		if v.kind == KindRef {
			return follow(ctx, v.val.(Reference))
		}
		r, err := v.eval(ctx)
		if err != nil {
			return nil, true, err
		}
		return r, true, nil
	}
	return v, true, nil
}

func (d *CycleDetector) cycle(ref Reference) error {
	loggerOf(d.Context).Debug("reference cycle", slog.String("ref", string(ref)), slog.Int("depth", len(d.inflight)+len(d.scoped)))
	return &CycleError{Ref: ref}
}

// follow resolves the target of a reference chain. An unknown target is an
// error because the reference that led to it is known.
func follow(ctx Context, ref Reference) (any, bool, error) {
	v, known, err := ctx.Resolve(ref)
	if err == nil && !known {
		err = &ReferenceError{Ref: ref}
	}
	return v, true, err
}

// Pending returns the references currently being resolved, sorted.
func (d *CycleDetector) Pending() []Reference {
	r := slices.Collect(maps.Keys(d.inflight))
	for k := range d.scoped {
		r = append(r, k.ref)
	}
	slices.Sort(r)
	return slices.Compact(r)
}

// Logger returns the logger of the wrapped context.
func (d *CycleDetector) Logger() *slog.Logger {
	return loggerOf(d.Context)
}

// Converter returns the conversion service of the wrapped context.
func (d *CycleDetector) Converter() Converter {
	return converterOf(d.Context)
}

// guard wraps ctx with cycle detection unless it already has it.
func guard(ctx Context) Context {
	if detectorOf(ctx) != nil {
		return ctx
	}
	return DetectCycles(ctx)
}

// detectorOf returns the cycle detector of ctx or of the contexts its scopes
// enclose, or nil if there is none.
func detectorOf(ctx Context) *CycleDetector {
	for {
		switch c := ctx.(type) {
		case *CycleDetector:
			return c
		case *Scope:
			ctx = c.Context
		default:
			return nil
		}
	}
}

// unguard returns ctx with any cycle detectors removed from beneath its
// scopes. The scopes are copied as needed; ctx itself is unchanged.
func unguard(ctx Context) (Context, bool) {
	switch c := ctx.(type) {
	case *CycleDetector:
		r, _ := unguard(c.Context)
		return r, true
	case *Scope:
		p, ok := unguard(c.Context)
		if !ok {
			return c, false
		}
		return c.reparent(p), true
	}
	return ctx, false
}

// rebase rebuilds the scopes of ctx, which must not detect cycles, over a
// detector sharing the in-flight references of d.
func rebase(ctx Context, d *CycleDetector) Context {
	if s, ok := ctx.(*Scope); ok {
		return s.reparent(rebase(s.Context, d))
	}
	return d.over(ctx)
}

// Scope is a Context with local bindings that take precedence over those of
// an enclosing context. Local function values also shadow the enclosing
// context's functions.
type Scope struct {
	Context
	local Resolver
	// origin is the scope this one was copied from, or itself.
	origin *Scope
}

// EnterScope creates a scope within parent.
func EnterScope(parent Context, local Resolver) *Scope {
	s := &Scope{Context: parent, local: local}
	s.origin = s
	return s
}

// Enter creates a scope nested within s.
func (s *Scope) Enter(local Resolver) *Scope {
	return EnterScope(s, local)
}

// reparent copies s with a different enclosing context.
func (s *Scope) reparent(parent Context) *Scope {
	return &Scope{Context: parent, local: s.local, origin: s.origin}
}

// Parent returns the enclosing context of s.
func (s *Scope) Parent() Context {
	return s.Context
}

// Resolve consults the local bindings of s, then the enclosing context. When
// s encloses a cycle detector, local references and expressions are reduced
// under it.
func (s *Scope) Resolve(ref Reference) (any, bool, error) {
	v, known, err := s.local.Resolve(ref)
	if err != nil {
		return v, known, err
	}
	if !known {
		return s.Context.Resolve(ref)
	}
	switch v.(type) {
	case Reference, *Node:
		if d := detectorOf(s.Context); d != nil {
			return d.local(s, ref, v)
		}
	}
	return v, true, nil
}

// Func returns a function bound locally under name, or else the enclosing
// context's function.
func (s *Scope) Func(name FuncName) (Func, error) {
	if f := s.localFunc(name); f != nil {
		return f, nil
	}
	return s.Context.Func(name)
}

// IsPure reports the purity of a local function, or else asks the enclosing
// context.
func (s *Scope) IsPure(name FuncName) bool {
	if f := s.localFunc(name); f != nil {
		return f.Pure()
	}
	return s.Context.IsPure(name)
}

func (s *Scope) localFunc(name FuncName) Func {
	v, known, err := s.local.Resolve(Reference(name))
	if err != nil || !known {
		return nil
	}
	f, _ := v.(Func)
	return f
}

// Logger returns the logger of the enclosing context.
func (s *Scope) Logger() *slog.Logger {
	return loggerOf(s.Context)
}

// Converter returns the conversion service of the enclosing context.
func (s *Scope) Converter() Converter {
	return converterOf(s.Context)
}
