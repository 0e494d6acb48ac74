package exprtree

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/apd/v3"

	"github.com/zephyrtronium/exprtree/number"
)

// String formats n as an expression that parses back to a tree which
// evaluates to the same result. Every operator application is parenthesized.
func (n *Node) String() string {
	var b strings.Builder
	n.fmt(&b)
	return b.String()
}

func (n *Node) fmt(b *strings.Builder) {
	switch n.kind {
	case KindBool:
		b.WriteString(strconv.FormatBool(n.val.(bool)))
	case KindText:
		b.WriteString(strconv.Quote(n.val.(string)))
	case KindInt:
		signed(b, strconv.FormatInt(n.val.(int64), 10))
	case KindFloat:
		fmtFloat(b, n.val.(float64))
	case KindBigInt:
		signed(b, n.val.(*big.Int).String())
	case KindDecimal:
		fmtDecimal(b, n.val.(*apd.Decimal))
	case KindNumber:
		v := n.val.(number.Value)
		if v.Kind() == number.Float {
			fmtFloat(b, v.Float64())
		} else {
			d, _ := v.Decimal()
			fmtDecimal(b, d)
		}
	case KindTime:
		b.WriteString(`time("`)
		b.WriteString(n.val.(time.Time).Format(time.RFC3339Nano))
		b.WriteString(`")`)
	case KindRef:
		fmtName(b, string(n.val.(Reference)))
	case KindFuncName:
		b.WriteByte('@')
		fmtName(b, string(n.val.(FuncName)))
	case KindNeg, KindNot:
		b.WriteByte('(')
		b.WriteString(symbols[n.kind])
		n.kids[0].fmt(b)
		b.WriteByte(')')
	case KindLambda:
		b.WriteString(`(\(`)
		for i, p := range n.params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmtName(b, p)
		}
		b.WriteString(") ")
		n.kids[0].fmt(b)
		b.WriteByte(')')
	case KindCall:
		fmtName(b, string(n.val.(FuncName)))
		fmtArgs(b, n.kids, '(', ')')
	case KindList:
		fmtArgs(b, n.kids, '{', '}')
	case KindHandle:
		b.WriteByte('@')
		fmtName(b, string(n.val.(FuncName)))
		if len(n.kids) != 0 {
			fmtArgs(b, n.kids, '(', ')')
		}
	default:
		if n.kind.Shape() != ShapeBinary {
			panic("exprtree: invalid node kind " + n.kind.String() + " after writing " + b.String())
		}
		b.WriteByte('(')
		n.kids[0].fmt(b)
		b.WriteByte(' ')
		b.WriteString(symbols[n.kind])
		b.WriteByte(' ')
		n.kids[1].fmt(b)
		b.WriteByte(')')
	}
}

func fmtArgs(b *strings.Builder, args []*Node, l, r byte) {
	b.WriteByte(l)
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		a.fmt(b)
	}
	b.WriteByte(r)
}

// signed writes a number, parenthesizing it if it is negative so that it
// does not read as a subtraction.
func signed(b *strings.Builder, s string) {
	if strings.HasPrefix(s, "-") {
		b.WriteByte('(')
		b.WriteString(s)
		b.WriteByte(')')
		return
	}
	b.WriteString(s)
}

func fmtFloat(b *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		b.WriteString("nan")
	case math.IsInf(f, 0):
		// FormatFloat spells infinity Inf, which the lexer also accepts.
		signed(b, strings.TrimPrefix(strconv.FormatFloat(f, 'g', -1, 64), "+"))
	default:
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIn") {
			// Keep the float distinguishable from an integer.
			s += ".0"
		}
		signed(b, s)
	}
}

func fmtDecimal(b *strings.Builder, d *apd.Decimal) {
	switch d.Form {
	case apd.Finite:
		signed(b, d.String())
	case apd.Infinite:
		if d.Negative {
			b.WriteString("(-inf)")
		} else {
			b.WriteString("inf")
		}
	default:
		b.WriteString("nan")
	}
}

// fmtName writes an identifier, quoting it with backticks if it would not
// lex as one.
func fmtName(b *strings.Builder, s string) {
	if isIdent(s) {
		b.WriteString(s)
		return
	}
	b.WriteByte('`')
	b.WriteString(strings.ReplaceAll(s, "`", "``"))
	b.WriteByte('`')
}

func isIdent(s string) bool {
	if s == "" || keywords[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', unicode.IsLetter(r):
		case i > 0 && (r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

// Dump renders the tree n as indented, type-labelled text with one line per
// node and each level of children indented two spaces further.
func Dump(n *Node) string {
	var b strings.Builder
	for c := range Walk(n) {
		b.WriteString(strings.Repeat("  ", c.Depth()))
		b.WriteString(label(c.node))
		b.WriteByte('\n')
	}
	return b.String()
}

// label describes a single node.
func label(n *Node) string {
	switch n.kind.Shape() {
	case ShapeLeaf:
		switch v := n.val.(type) {
		case string:
			return n.kind.String() + " " + strconv.Quote(v)
		case time.Time:
			return n.kind.String() + " " + v.Format(time.RFC3339Nano)
		case number.Value:
			return n.kind.String() + " " + v.Kind().String() + " " + v.String()
		default:
			return n.kind.String() + " " + fmt.Sprint(v)
		}
	case ShapeVariadic:
		if n.kind == KindList {
			return n.kind.String()
		}
		return n.kind.String() + " " + string(n.val.(FuncName))
	}
	if n.kind == KindLambda {
		return n.kind.String() + " (" + strings.Join(n.params, ", ") + ")"
	}
	return n.kind.String()
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

// describe names the dynamic type of a value for error messages.
func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
