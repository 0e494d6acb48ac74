package exprtree

import (
	"iter"
	"slices"
)

// Nodes returns an iterator over the nodes of the tree n in depth-first
// pre-order.
func Nodes(n *Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for c := range Walk(n) {
			if !yield(c.node) {
				return
			}
		}
	}
}

// Find returns a cursor at the first node of n in pre-order for which pred
// returns true, or nil if there is none.
func Find(n *Node, pred func(*Node) bool) *Cursor {
	for c := range Walk(n) {
		if pred(c.node) {
			return c
		}
	}
	return nil
}

// Refs returns the distinct references that evaluating n may resolve, in
// sorted order. References to lambda parameters inside the lambda body are
// not included.
func Refs(n *Node) []Reference {
	seen := make(map[Reference]bool)
	refs(n, nil, seen)
	r := make([]Reference, 0, len(seen))
	for k := range seen {
		r = append(r, k)
	}
	slices.Sort(r)
	return r
}

func refs(n *Node, bound []string, seen map[Reference]bool) {
	switch n.kind {
	case KindRef:
		ref := n.val.(Reference)
		if !slices.Contains(bound, string(ref)) {
			seen[ref] = true
		}
	case KindLambda:
		bound = append(slices.Clip(bound), n.params...)
	}
	for _, c := range n.kids {
		refs(c, bound, seen)
	}
}

// Calls returns the distinct function names called or handled in n, in
// sorted order.
func Calls(n *Node) []FuncName {
	var r []FuncName
	for m := range Nodes(n) {
		switch m.kind {
		case KindCall, KindHandle, KindFuncName:
			r = append(r, m.val.(FuncName))
		}
	}
	slices.Sort(r)
	return slices.Compact(r)
}
