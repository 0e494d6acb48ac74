package exprtree

import (
	"cmp"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/dominikbraun/graph"
)

// Formulas is a set of named expressions which refer to one another. It is a
// Resolver: resolving a name gives its expression, which a cycle-detecting
// context evaluates in place of the reference.
//
// Formulas tracks the references each formula uses in a dependency graph, so
// that it can report evaluation order and cycles without evaluating anything.
// It is safe for concurrent use.
type Formulas struct {
	mu   sync.RWMutex
	defs map[Reference]*Node
	// g has an edge from each formula to each reference it uses. Vertices
	// remain for undefined references that some formula uses.
	g graph.Graph[Reference, Reference]
}

// NewFormulas creates an empty formula set.
func NewFormulas() *Formulas {
	return &Formulas{
		defs: make(map[Reference]*Node),
		g:    graph.New(func(r Reference) Reference { return r }, graph.Directed()),
	}
}

// Set defines or redefines a formula. Defining a formula in terms of itself,
// directly or through others, is not an error here; evaluating it is.
func (f *Formulas) Set(name Reference, n *Node) error {
	if n == nil {
		return &ConstructionError{Kind: KindRef, Msg: "nil formula for " + string(name)}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	old, err := f.unlink(name)
	if err != nil {
		return err
	}
	if err := addVertex(f.g, name); err != nil {
		return err
	}
	for _, dep := range Refs(n) {
		if err := addVertex(f.g, dep); err != nil {
			return err
		}
		if err := f.g.AddEdge(name, dep); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return err
		}
	}
	f.defs[name] = n
	for _, r := range old {
		if err := f.prune(r); err != nil {
			return err
		}
	}
	return nil
}

func addVertex(g graph.Graph[Reference, Reference], r Reference) error {
	if err := g.AddVertex(r); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	return nil
}

// unlink removes the outgoing edges of name and returns the references they
// led to. It must be called with the lock held.
func (f *Formulas) unlink(name Reference) ([]Reference, error) {
	if _, ok := f.defs[name]; !ok {
		return nil, nil
	}
	adj, err := f.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	deps := slices.Collect(maps.Keys(adj[name]))
	for _, dep := range deps {
		if err := f.g.RemoveEdge(name, dep); err != nil {
			return nil, err
		}
	}
	return deps, nil
}

// Delete removes a formula. Other formulas may still refer to the name.
func (f *Formulas) Delete(name Reference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.defs[name]; !ok {
		return nil
	}
	deps, err := f.unlink(name)
	if err != nil {
		return err
	}
	delete(f.defs, name)
	// Drop vertices nothing refers to any more.
	for _, r := range append(deps, name) {
		if err := f.prune(r); err != nil {
			return err
		}
	}
	return nil
}

// prune removes the vertex r if it is undefined and unused. It must be called
// with the lock held.
func (f *Formulas) prune(r Reference) error {
	if _, ok := f.defs[r]; ok {
		return nil
	}
	pred, err := f.g.PredecessorMap()
	if err != nil {
		return err
	}
	if len(pred[r]) != 0 {
		return nil
	}
	if err := f.g.RemoveVertex(r); err != nil && !errors.Is(err, graph.ErrVertexNotFound) {
		return err
	}
	return nil
}

// Resolve returns the expression of a formula.
func (f *Formulas) Resolve(ref Reference) (any, bool, error) {
	n, ok := f.Lookup(ref)
	if !ok {
		return nil, false, nil
	}
	return n, true, nil
}

// Lookup returns the expression of a formula and whether it is defined.
func (f *Formulas) Lookup(name Reference) (*Node, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n, ok := f.defs[name]
	return n, ok
}

// Names returns the names of all formulas, sorted.
func (f *Formulas) Names() []Reference {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Sorted(maps.Keys(f.defs))
}

// Dependencies returns the references that the named formula uses, sorted.
func (f *Formulas) Dependencies(name Reference) ([]Reference, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	adj, err := f.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(adj[name])), nil
}

// Dependents returns the formulas that use name directly, sorted.
func (f *Formulas) Dependents(name Reference) ([]Reference, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pred, err := f.g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(pred[name])), nil
}

// Undefined returns the references that formulas use but that are not
// formulas themselves, sorted. A context must supply them for evaluation.
func (f *Formulas) Undefined() ([]Reference, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	adj, err := f.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	var r []Reference
	for k := range adj {
		if _, ok := f.defs[k]; !ok {
			r = append(r, k)
		}
	}
	slices.Sort(r)
	return r, nil
}

// Order returns the names of all formulas such that each comes after every
// formula it uses. The order is the same for the same formulas. If the
// formulas contain a cycle, the result is a *CycleError naming a reference on
// it.
func (f *Formulas) Order() ([]Reference, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cycles, err := f.cycles()
	if err != nil {
		return nil, err
	}
	if len(cycles) != 0 {
		return nil, &CycleError{Ref: cycles[0][0]}
	}
	order, err := graph.StableTopologicalSort(f.g, func(a, b Reference) bool { return a < b })
	if err != nil {
		return nil, err
	}
	// Edges point from users to the formulas they use.
	slices.Reverse(order)
	r := make([]Reference, 0, len(f.defs))
	for _, k := range order {
		if _, ok := f.defs[k]; ok {
			r = append(r, k)
		}
	}
	return r, nil
}

// Cycles returns each set of formulas that depend on each other, including
// single formulas that use themselves. Each set is sorted, and the sets are
// sorted by their first names.
func (f *Formulas) Cycles() ([][]Reference, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cycles()
}

func (f *Formulas) cycles() ([][]Reference, error) {
	scc, err := graph.StronglyConnectedComponents(f.g)
	if err != nil {
		return nil, err
	}
	adj, err := f.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	var r [][]Reference
	for _, c := range scc {
		if len(c) == 1 {
			if _, self := adj[c[0]][c[0]]; !self {
				continue
			}
		}
		c = slices.Clone(c)
		slices.Sort(c)
		r = append(r, c)
	}
	slices.SortFunc(r, func(a, b []Reference) int { return cmp.Compare(a[0], b[0]) })
	return r, nil
}
