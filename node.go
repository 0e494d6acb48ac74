package exprtree

import (
	"math"
	"math/big"
	"slices"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/zephyrtronium/exprtree/number"
)

// Reference is an opaque key resolved to a value by an evaluation context.
type Reference string

// FuncName is the name of a function in an evaluation context.
type FuncName string

// Node is a node of an expression tree. Nodes are immutable and may be shared
// between trees and goroutines. A node does not know its parent; use a Cursor
// to traverse and rebuild trees.
type Node struct {
	kind Kind
	// val is the payload of a leaf, or the FuncName of a call or handle.
	val any
	// params holds the parameter names of a lambda.
	params []string
	kids   []*Node
}

// Kind returns the kind of n.
func (n *Node) Kind() Kind {
	return n.kind
}

// Value returns the payload of a leaf node, or nil for other shapes. The
// result must not be modified.
func (n *Node) Value() any {
	if n.kind.Shape() != ShapeLeaf {
		return nil
	}
	return n.val
}

// Name returns the function name of a call or handle node.
func (n *Node) Name() FuncName {
	s, _ := n.val.(FuncName)
	return s
}

// Params returns the parameter names of a lambda node.
func (n *Node) Params() []string {
	return slices.Clone(n.params)
}

// Len returns the number of children of n.
func (n *Node) Len() int {
	return len(n.kids)
}

// Child returns the i'th child of n.
func (n *Node) Child(i int) *Node {
	return n.kids[i]
}

// Children returns a copy of n's children.
func (n *Node) Children() []*Node {
	return slices.Clone(n.kids)
}

func leaf(k Kind, v any) *Node {
	return &Node{kind: k, val: v}
}

// Bool returns a boolean leaf.
func Bool(b bool) *Node { return leaf(KindBool, b) }

// Text returns a text leaf.
func Text(s string) *Node { return leaf(KindText, s) }

// Int returns a 64-bit integer leaf.
func Int(i int64) *Node { return leaf(KindInt, i) }

// Float returns a 64-bit float leaf.
func Float(f float64) *Node { return leaf(KindFloat, f) }

// BigInt returns an arbitrary-precision integer leaf holding a copy of b.
func BigInt(b *big.Int) *Node {
	if b == nil {
		panic(&ConstructionError{Kind: KindBigInt, Msg: "nil integer"})
	}
	return leaf(KindBigInt, new(big.Int).Set(b))
}

// Decimal returns an arbitrary-precision decimal leaf holding a copy of d.
func Decimal(d *apd.Decimal) *Node {
	if d == nil {
		panic(&ConstructionError{Kind: KindDecimal, Msg: "nil decimal"})
	}
	return leaf(KindDecimal, new(apd.Decimal).Set(d))
}

// Number returns a leaf holding a tagged numeric value.
func Number(v number.Value) *Node { return leaf(KindNumber, v) }

// Time returns a date/time leaf.
func Time(t time.Time) *Node { return leaf(KindTime, t) }

// Ref returns a reference leaf.
func Ref(r Reference) *Node { return leaf(KindRef, r) }

// FuncNameOf returns a leaf naming a function.
func FuncNameOf(name FuncName) *Node { return leaf(KindFuncName, name) }

// NewLeaf creates a leaf of kind k. The payload must have the Go type listed
// for k.
func NewLeaf(k Kind, v any) (*Node, error) {
	ok := false
	switch k {
	case KindBool:
		_, ok = v.(bool)
	case KindText:
		_, ok = v.(string)
	case KindInt:
		_, ok = v.(int64)
	case KindFloat:
		_, ok = v.(float64)
	case KindBigInt:
		if b, _ := v.(*big.Int); b != nil {
			return leaf(k, new(big.Int).Set(b)), nil
		}
	case KindDecimal:
		if d, _ := v.(*apd.Decimal); d != nil {
			return leaf(k, new(apd.Decimal).Set(d)), nil
		}
	case KindNumber:
		_, ok = v.(number.Value)
	case KindTime:
		_, ok = v.(time.Time)
	case KindRef:
		_, ok = v.(Reference)
	case KindFuncName:
		_, ok = v.(FuncName)
	default:
		return nil, &ConstructionError{Kind: k, Msg: "not a leaf kind"}
	}
	if !ok {
		return nil, &ConstructionError{Kind: k, Msg: "invalid payload " + describe(v)}
	}
	return leaf(k, v), nil
}

// LeafOf creates a leaf whose kind is chosen by the Go type of v. Integers of
// every width become Int leaves, or BigInt leaves if they do not fit.
func LeafOf(v any) (*Node, error) {
	switch v := v.(type) {
	case bool:
		return Bool(v), nil
	case string:
		return Text(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint:
		return LeafOf(uint64(v))
	case uint64:
		if v <= math.MaxInt64 {
			return Int(int64(v)), nil
		}
		return leaf(KindBigInt, new(big.Int).SetUint64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case *big.Int:
		if v != nil {
			if v.IsInt64() {
				return Int(v.Int64()), nil
			}
			return BigInt(v), nil
		}
	case *apd.Decimal:
		if v != nil {
			return Decimal(v), nil
		}
	case number.Value:
		return Number(v), nil
	case time.Time:
		return Time(v), nil
	case Reference:
		return Ref(v), nil
	case FuncName:
		return FuncNameOf(v), nil
	}
	return nil, &ConstructionError{Kind: KindInvalid, Msg: "no leaf for " + describe(v)}
}

// NewUnary creates a unary node. Lambda nodes are created with NewLambda.
func NewUnary(k Kind, x *Node) (*Node, error) {
	if k.Shape() != ShapeUnary || k == KindLambda {
		return nil, &ConstructionError{Kind: k, Msg: "not a unary operator"}
	}
	if x == nil {
		return nil, &ConstructionError{Kind: k, Msg: "nil operand"}
	}
	return &Node{kind: k, kids: []*Node{x}}, nil
}

// NewBinary creates a binary node.
func NewBinary(k Kind, x, y *Node) (*Node, error) {
	if k.Shape() != ShapeBinary {
		return nil, &ConstructionError{Kind: k, Msg: "not a binary operator"}
	}
	if x == nil || y == nil {
		return nil, &ConstructionError{Kind: k, Msg: "nil operand"}
	}
	return &Node{kind: k, kids: []*Node{x, y}}, nil
}

// NewVariadic creates a call, list, or handle node. name is required for
// calls and handles and must be empty for lists.
func NewVariadic(k Kind, name FuncName, kids ...*Node) (*Node, error) {
	switch k {
	case KindCall, KindHandle:
		if name == "" {
			return nil, &ConstructionError{Kind: k, Msg: "empty function name"}
		}
	case KindList:
		if name != "" {
			return nil, &ConstructionError{Kind: k, Msg: "list with function name " + string(name)}
		}
	default:
		return nil, &ConstructionError{Kind: k, Msg: "not a variable-arity kind"}
	}
	for i, c := range kids {
		if c == nil {
			return nil, &ConstructionError{Kind: k, Msg: "nil child at index " + itoa(i)}
		}
	}
	n := &Node{kind: k, kids: slices.Clone(kids)}
	if name != "" {
		n.val = name
	}
	return n, nil
}

// NewLambda creates a lambda node with the given parameter names and body.
// Parameter names must be distinct and non-empty.
func NewLambda(params []string, body *Node) (*Node, error) {
	if body == nil {
		return nil, &ConstructionError{Kind: KindLambda, Msg: "nil body"}
	}
	for i, p := range params {
		if p == "" {
			return nil, &ConstructionError{Kind: KindLambda, Msg: "empty parameter name"}
		}
		if slices.Contains(params[:i], p) {
			return nil, &ConstructionError{Kind: KindLambda, Msg: "duplicate parameter " + p}
		}
	}
	return &Node{kind: KindLambda, params: slices.Clone(params), kids: []*Node{body}}, nil
}

func must(n *Node, err error) *Node {
	if err != nil {
		panic(err)
	}
	return n
}

// Neg returns -x.
func Neg(x *Node) *Node { return must(NewUnary(KindNeg, x)) }

// Not returns the logical or bitwise negation of x.
func Not(x *Node) *Node { return must(NewUnary(KindNot, x)) }

// Lambda returns an anonymous function of the named parameters.
func Lambda(params []string, body *Node) *Node { return must(NewLambda(params, body)) }

// Add returns x + y. It and the other binary factories panic with a
// *ConstructionError if an operand is nil.
func Add(x, y *Node) *Node { return must(NewBinary(KindAdd, x, y)) }
func Sub(x, y *Node) *Node { return must(NewBinary(KindSub, x, y)) }
func Mul(x, y *Node) *Node { return must(NewBinary(KindMul, x, y)) }
func Div(x, y *Node) *Node { return must(NewBinary(KindDiv, x, y)) }
func Mod(x, y *Node) *Node { return must(NewBinary(KindMod, x, y)) }
func Pow(x, y *Node) *Node { return must(NewBinary(KindPow, x, y)) }
func And(x, y *Node) *Node { return must(NewBinary(KindAnd, x, y)) }
func Or(x, y *Node) *Node  { return must(NewBinary(KindOr, x, y)) }
func Xor(x, y *Node) *Node { return must(NewBinary(KindXor, x, y)) }
func Eq(x, y *Node) *Node  { return must(NewBinary(KindEq, x, y)) }
func Ne(x, y *Node) *Node  { return must(NewBinary(KindNe, x, y)) }
func Lt(x, y *Node) *Node  { return must(NewBinary(KindLt, x, y)) }
func Le(x, y *Node) *Node  { return must(NewBinary(KindLe, x, y)) }
func Gt(x, y *Node) *Node  { return must(NewBinary(KindGt, x, y)) }
func Ge(x, y *Node) *Node  { return must(NewBinary(KindGe, x, y)) }

// Call returns a call of the named function.
func Call(name FuncName, args ...*Node) *Node { return must(NewVariadic(KindCall, name, args...)) }

// List returns a list of elements.
func List(elems ...*Node) *Node { return must(NewVariadic(KindList, "", elems...)) }

// HandleOf returns a handle to the named function with leading arguments
// bound.
func HandleOf(name FuncName, bound ...*Node) *Node {
	return must(NewVariadic(KindHandle, name, bound...))
}

// withKids returns a node like n with different children. It checks the
// children against n's arity.
func (n *Node) withKids(kids []*Node) (*Node, error) {
	if a := n.kind.Arity(); a >= 0 && len(kids) != a {
		return nil, &ConstructionError{Kind: n.kind, Msg: "need " + itoa(a) + " children, have " + itoa(len(kids))}
	}
	for i, c := range kids {
		if c == nil {
			return nil, &ConstructionError{Kind: n.kind, Msg: "nil child at index " + itoa(i)}
		}
	}
	return &Node{kind: n.kind, val: n.val, params: n.params, kids: kids}, nil
}

// WithChildren returns a node like n with different children. If the new
// children are structurally equal to n's, the result is n itself.
func (n *Node) WithChildren(kids ...*Node) (*Node, error) {
	if equalKids(n.kids, kids) {
		return n, nil
	}
	return n.withKids(slices.Clone(kids))
}

// Equal reports whether a and b are structurally equal: the same kinds,
// payloads, names, and children, recursively. Numeric payloads are equal by
// value within a kind, so an Int 1 and a Float 1 are not structurally equal.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	if a.kind.Shape() == ShapeLeaf {
		return equalPayload(a.val, b.val)
	}
	return a.val == b.val && slices.Equal(a.params, b.params) && equalKids(a.kids, b.kids)
}

func equalKids(a, b []*Node) bool {
	return slices.EqualFunc(a, b, Equal)
}

func equalPayload(a, b any) bool {
	switch a := a.(type) {
	case float64:
		b := b.(float64)
		return a == b || math.IsNaN(a) && math.IsNaN(b)
	case *big.Int:
		return a.Cmp(b.(*big.Int)) == 0
	case *apd.Decimal:
		b := b.(*apd.Decimal)
		if a.Form != b.Form || a.Negative != b.Negative {
			return false
		}
		return a.Form != apd.Finite || a.Cmp(b) == 0
	case number.Value:
		b := b.(number.Value)
		return a.Kind() == b.Kind() && (a.Equal(b) || a.IsNaN() && b.IsNaN())
	case time.Time:
		return a.Equal(b.(time.Time))
	default:
		return a == b
	}
}
