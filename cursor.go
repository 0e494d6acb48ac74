package exprtree

import (
	"iter"
	"slices"
)

// NoIndex is the index of a root.
const NoIndex = -1

// Cursor is a position in an expression tree: a node together with the chain
// of ancestors through which it was reached. Cursors are values describing a
// path; they never modify the nodes they point to. Mutating methods return a
// cursor at the corresponding position of a new tree that shares every
// subtree off the path to the root with the original.
type Cursor struct {
	node   *Node
	parent *Cursor
	index  int
}

// Root returns a cursor at the root of the tree n.
func Root(n *Node) *Cursor {
	if n == nil {
		panic(&ConstructionError{Kind: KindInvalid, Msg: "nil root"})
	}
	return &Cursor{node: n, index: NoIndex}
}

// Node returns the node at c.
func (c *Cursor) Node() *Node {
	return c.node
}

// Parent returns the cursor at c's parent, or nil if c is a root.
func (c *Cursor) Parent() *Cursor {
	return c.parent
}

// Index returns the index of c's node among its parent's children, or NoIndex
// if c is a root.
func (c *Cursor) Index() int {
	return c.index
}

// IsRoot reports whether c has no parent.
func (c *Cursor) IsRoot() bool {
	return c.parent == nil
}

// Depth returns the number of ancestors of c.
func (c *Cursor) Depth() int {
	d := 0
	for p := c.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Child returns a cursor at the i'th child of c's node. It panics if i is out
// of range.
func (c *Cursor) Child(i int) *Cursor {
	return &Cursor{node: c.node.kids[i], parent: c, index: i}
}

// Top returns the cursor at the root of c's tree.
func (c *Cursor) Top() *Cursor {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// Path returns the child indices leading from the root to c.
func (c *Cursor) Path() []int {
	var p []int
	for ; c.parent != nil; c = c.parent {
		p = append(p, c.index)
	}
	slices.Reverse(p)
	return p
}

// Descend follows child indices from c.
func (c *Cursor) Descend(path ...int) *Cursor {
	for _, i := range path {
		c = c.Child(i)
	}
	return c
}

// ReplaceChildren replaces the children of c's node. If the new children are
// structurally equal to the current ones, the result is c itself. Otherwise
// the new node and each of its ancestors are rebuilt up to a new root.
func (c *Cursor) ReplaceChildren(kids ...*Node) (*Cursor, error) {
	if equalKids(c.node.kids, kids) {
		return c, nil
	}
	m, err := c.node.withKids(slices.Clone(kids))
	if err != nil {
		return nil, err
	}
	return c.rebuild(m), nil
}

// Replace replaces c's node with n. If n is structurally equal to c's node,
// the result is c itself.
func (c *Cursor) Replace(n *Node) (*Cursor, error) {
	if n == nil {
		return nil, &ConstructionError{Kind: c.node.kind, Msg: "nil replacement"}
	}
	if Equal(c.node, n) {
		return c, nil
	}
	return c.rebuild(n), nil
}

// RemoveParent detaches c's node into a tree of its own. If c is already a
// root, the result is c itself.
func (c *Cursor) RemoveParent() *Cursor {
	if c.parent == nil {
		return c
	}
	return &Cursor{node: c.node, index: NoIndex}
}

// AppendChild adds n as the last child of c's node. Only calls, lists, and
// handles accept new children.
func (c *Cursor) AppendChild(n *Node) (*Cursor, error) {
	return c.InsertChild(len(c.node.kids), n)
}

// InsertChild adds n as the i'th child of c's node, shifting later children.
// Only calls, lists, and handles accept new children.
func (c *Cursor) InsertChild(i int, n *Node) (*Cursor, error) {
	if c.node.kind.Shape() != ShapeVariadic {
		return nil, &UnsupportedError{Op: "insert child", Operand: c.node.kind.String() + " node"}
	}
	if n == nil {
		return nil, &ConstructionError{Kind: c.node.kind, Msg: "nil child"}
	}
	if i < 0 || i > len(c.node.kids) {
		return nil, &ConstructionError{Kind: c.node.kind, Msg: "insert index " + itoa(i) + " out of range"}
	}
	m, err := c.node.withKids(slices.Insert(slices.Clone(c.node.kids), i, n))
	if err != nil {
		return nil, err
	}
	return c.rebuild(m), nil
}

// RemoveChildAt removes the i'th child of c's node. Only calls, lists, and
// handles can lose children.
func (c *Cursor) RemoveChildAt(i int) (*Cursor, error) {
	if c.node.kind.Shape() != ShapeVariadic {
		return nil, &UnsupportedError{Op: "remove child", Operand: c.node.kind.String() + " node"}
	}
	if i < 0 || i >= len(c.node.kids) {
		return nil, &ConstructionError{Kind: c.node.kind, Msg: "remove index " + itoa(i) + " out of range"}
	}
	m, err := c.node.withKids(slices.Delete(slices.Clone(c.node.kids), i, i+1))
	if err != nil {
		return nil, err
	}
	return c.rebuild(m), nil
}

// IndexOf finds c's node among its parent's children, preferring the same
// node and falling back to structural equality. A root has index NoIndex.
func (c *Cursor) IndexOf() (int, error) {
	if c.parent == nil {
		return NoIndex, nil
	}
	kids := c.parent.node.kids
	if k := slices.Index(kids, c.node); k >= 0 {
		return k, nil
	}
	for k, s := range kids {
		if Equal(s, c.node) {
			return k, nil
		}
	}
	return NoIndex, &InternalError{Msg: "node " + c.node.String() + " is not a child of " + c.parent.node.String()}
}

// rebuild mounts m at c's position, copying each ancestor.
func (c *Cursor) rebuild(m *Node) *Cursor {
	if c.parent == nil {
		return &Cursor{node: m, index: NoIndex}
	}
	p := c.parent.node
	kids := slices.Clone(p.kids)
	kids[c.index] = m
	// The parent's arity is unchanged, so the rebuild cannot fail.
	np := &Node{kind: p.kind, val: p.val, params: p.params, kids: kids}
	return &Cursor{node: m, parent: c.parent.rebuild(np), index: c.index}
}

// Walk returns an iterator over the cursors of the subtree at c in depth-first
// pre-order.
func (c *Cursor) Walk() iter.Seq[*Cursor] {
	return func(yield func(*Cursor) bool) {
		c.walk(yield)
	}
}

func (c *Cursor) walk(yield func(*Cursor) bool) bool {
	if !yield(c) {
		return false
	}
	for i := range c.node.kids {
		if !c.Child(i).walk(yield) {
			return false
		}
	}
	return true
}

// Walk returns an iterator over the cursors of the tree n in depth-first
// pre-order.
func Walk(n *Node) iter.Seq[*Cursor] {
	return Root(n).Walk()
}
