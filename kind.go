package exprtree

// Kind identifies the operation or payload of a Node.
type Kind int8

const (
	KindInvalid Kind = iota

	// Leaves.

	KindBool     // bool
	KindText     // string
	KindInt      // int64
	KindFloat    // float64
	KindBigInt   // *big.Int
	KindDecimal  // *apd.Decimal
	KindNumber   // number.Value
	KindTime     // time.Time
	KindRef      // Reference
	KindFuncName // FuncName

	// Unary.

	KindNeg
	KindNot
	KindLambda // one child, the body; parameter names are held by the node

	// Binary.

	KindAdd
	KindSub
	KindMul
	KindDiv
	KindMod
	KindPow
	KindAnd
	KindOr
	KindXor
	KindEq
	KindNe
	KindLt
	KindLe
	KindGt
	KindGe

	// Variable arity.

	KindCall   // call of a named function
	KindList   // ordered elements
	KindHandle // named function with bound leading arguments
)

//go:generate go mod edit -require=golang.org/x/tools@v0.1.0
//go:generate go mod download
//go:generate go run golang.org/x/tools/cmd/stringer -type=Kind -trimprefix=Kind
//go:generate go mod tidy

// Shape is the arity class of a Kind.
type Shape int8

const (
	ShapeInvalid Shape = iota
	ShapeLeaf
	ShapeUnary
	ShapeBinary
	ShapeVariadic
)

// Shape returns the arity class of k.
func (k Kind) Shape() Shape {
	switch {
	case KindBool <= k && k <= KindFuncName:
		return ShapeLeaf
	case KindNeg <= k && k <= KindLambda:
		return ShapeUnary
	case KindAdd <= k && k <= KindGe:
		return ShapeBinary
	case KindCall <= k && k <= KindHandle:
		return ShapeVariadic
	default:
		return ShapeInvalid
	}
}

// Arity returns the number of children a node of kind k has, or -1 if the
// number is variable.
func (k Kind) Arity() int {
	switch k.Shape() {
	case ShapeLeaf:
		return 0
	case ShapeUnary:
		return 1
	case ShapeBinary:
		return 2
	default:
		return -1
	}
}

// IsComparison reports whether k is one of the comparison operators.
func (k Kind) IsComparison() bool {
	return KindEq <= k && k <= KindGe
}

// symbols are the operator spellings used when formatting binary nodes.
var symbols = [KindHandle + 1]string{
	KindNeg: "-",
	KindNot: "not ",
	KindAdd: "+",
	KindSub: "-",
	KindMul: "*",
	KindDiv: "/",
	KindMod: "%",
	KindPow: "^",
	KindAnd: "and",
	KindOr:  "or",
	KindXor: "xor",
	KindEq:  "=",
	KindNe:  "!=",
	KindLt:  "<",
	KindLe:  "<=",
	KindGt:  ">",
	KindGe:  ">=",
}

// Symbol returns the operator spelling of k, or the empty string if k is not
// an operator.
func (k Kind) Symbol() string {
	if k < 0 || int(k) >= len(symbols) {
		return ""
	}
	return symbols[k]
}
