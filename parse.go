package exprtree

import (
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
)

// Expr = num | text | bool | name | Call | Handle | Lambda | List | Unary | Binary | '(' Expr ')' | '[' Expr ']'
// Call = name ArgList | funcname | funcname Expr
// ArgList = '(' [ Expr { (',' | ';') Expr } ] ')'
// Handle = '@' name [ ArgList ]
// Lambda = '\' '(' [ name { ',' name } ] ')' Expr
// List = '{' [ Expr { (',' | ';') Expr } ] '}'
// Unary = ('-' | '+' | '!' | 'not') Expr
// Binary = Expr op Expr | Expr Expr

// Parse parses an expression into a tree. The given options are applied in
// order.
func Parse(src io.RuneScanner, opts ...ParseOption) (*Node, error) {
	scan := lex(src)
	var p parsectx
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	if p.funcs == nil {
		p.funcs = builtins
	} else if !p.nodefaults {
		// Only set default functions that aren't already set.
		for k, v := range builtins {
			if _, ok := p.funcs[k]; !ok {
				p.funcs[k] = v
			}
		}
	}
	n, err := parseterm(scan, &p, exprprec)
	if err != nil {
		return nil, err
	}
	switch tok := scan.must(); tok.kind {
	case tokenEOF:
	case tokenSep:
		switch {
		case p.ceof && tok.text == ",":
		case p.seof && tok.text == ";":
		default:
			return nil, itShouldNotHaveEndedThisWay(tok, -1)
		}
		if n == nil {
			return nil, &EmptyExpressionError{Col: tok.pos, End: tok.text}
		}
	default:
		return nil, itShouldNotHaveEndedThisWay(tok, -1)
	}
	return n, nil
}

// ParseString is a shortcut to parse a string expression.
func ParseString(src string, opts ...ParseOption) (*Node, error) {
	return Parse(strings.NewReader(src), opts...)
}

// MustParse parses an expression and panics if it is invalid.
func MustParse(src string, opts ...ParseOption) *Node {
	n, err := ParseString(src, opts...)
	if err != nil {
		panic(err)
	}
	return n
}

// parseterm parses a single term. If there is no error, then parseterm pushes
// the last token it scans, including EOF. If the input is an empty
// subexpression, the result is nil with no error; callers must create an error
// in contexts where empty subexpressions are illegal.
func parseterm(scan *lexer, p *parsectx, until operator) (*Node, error) {
	n, err := parselhs(scan, p, until)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	for {
		if p.resv != nil {
			// A niladic function was followed by a parenthesized term. So,
			// the parsing here is as if we encountered an open bracket, except
			// that the contents are already parsed and valid.
			if !termprec.moreBinding(until) {
				return n, nil
			}
			n = Mul(n, p.resv)
			p.resv = nil
			continue
		}
		tok, err := scan.next(p.wseof)
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenNum, tokenText, tokenBool, tokenIdent, tokenOpen, tokenHandle, tokenLambda:
			// (parsed) x -> (parsed) * (x)
			// (parsed) x^(expr) -> (parsed) * (x^(expr))
			// a^(parsed) x -> (a^(parsed)) * (x)
			scan.push(tok)
			prec := termprec
			if !prec.moreBinding(until) {
				return n, nil
			}
			if p.explicit {
				scan.must()
				return nil, &TokenError{Col: tok.pos, Token: tok.text, After: n.kind}
			}
			rhs, err := parseterm(scan, p, prec)
			if err != nil {
				return nil, err
			}
			n = Mul(n, rhs)
		case tokenOp:
			// Binary operator.
			prec := binop(tok.text)
			if prec.op == KindInvalid {
				return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: false}
			}
			if !prec.moreBinding(until) {
				scan.push(tok)
				return n, nil
			}
			rhs, err := parseterm(scan, p, prec)
			if err != nil {
				return nil, err
			}
			if rhs == nil {
				return nil, emptyAt(scan)
			}
			n = must(NewBinary(prec.op, n, rhs))
		case tokenClose, tokenSep, tokenEOF:
			// End of expression.
			scan.push(tok)
			return n, nil
		default:
			panic("exprtree: unknown token: " + tok.String())
		}
	}
}

// emptyAt creates an error for an empty operand ending at the pushed token.
func emptyAt(scan *lexer) error {
	end := scan.must()
	scan.push(end)
	return &EmptyExpressionError{Col: end.pos, End: end.text}
}

// parselhs parses the first component of a term. I.e., operators are unary,
// any encountered token must be valid as the start of a subexpression, and
// whitespace normally lexed as EOF is ignored.
func parselhs(scan *lexer, p *parsectx, until operator) (*Node, error) {
	// Don't use EOF whitespace for LHS.
	tok, err := scan.next("")
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokenNum:
		return numLeaf(tok)
	case tokenText:
		return Text(tok.text), nil
	case tokenBool:
		return Bool(tok.text == "true"), nil
	case tokenIdent:
		return parseident(scan, p, until, tok)
	case tokenHandle:
		return parsehandle(scan, p, tok)
	case tokenLambda:
		return parselambda(scan, p, tok)
	case tokenOp:
		// unary operator
		prec := unop(tok.text)
		if prec.op == KindInvalid {
			return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: true}
		}
		if !prec.moreBinding(until) {
			// x^-y -> x^(-y)
			// Just use the new operator's precedence to simplify.
			prec.prec, prec.right = until.prec, until.right
		}
		rhs, err := parseterm(scan, p, prec)
		if err != nil {
			return nil, err
		}
		if rhs == nil {
			return nil, emptyAt(scan)
		}
		switch {
		case tok.text == "+":
			return rhs, nil
		case prec.op == KindNeg:
			if n := negLiteral(rhs); n != nil {
				return n, nil
			}
		}
		return must(NewUnary(prec.op, rhs)), nil
	case tokenOpen:
		match := rightbracket(tok.text)
		if tok.text == "{" {
			args, err := parsearglist(scan, p, KindList, tok.text)
			if err != nil {
				return nil, err
			}
			if end := scan.must(); end.text != "}" {
				return nil, &BracketError{Col: end.pos, Left: tok.text, Right: end.text, In: KindList}
			}
			return List(args...), nil
		}
		rhs, err := parseterm(scan, p, exprprec)
		if err != nil {
			return nil, err
		}
		end := scan.must()
		if end.kind != tokenClose || end.text != closebrackets[match] {
			return nil, itShouldNotHaveEndedThisWay(end, match)
		}
		if rhs == nil {
			return nil, &EmptyExpressionError{Col: end.pos, End: end.text}
		}
		return rhs, nil
	case tokenClose:
		// This might be part of an empty argument list, so just let the caller
		// decide what to do.
		scan.push(tok)
		return nil, nil
	case tokenSep:
		switch tok.text {
		case ",":
			if p.ceof {
				scan.push(tok)
				return nil, nil
			}
		case ";":
			if p.seof {
				scan.push(tok)
				return nil, nil
			}
		default:
			panic("exprtree: invalid separator " + strconv.Quote(tok.text))
		}
		return nil, &SeparatorError{Col: tok.pos, Sep: tok.text}
	case tokenEOF:
		return nil, &EmptyExpressionError{Col: tok.pos, End: ""}
	default:
		panic("exprtree: unknown token: " + tok.String())
	}
}

// numLeaf creates the leaf for a number token. Integers are Int leaves, or
// BigInt if they overflow. Numbers with a fraction or exponent are Decimal
// leaves, so that they keep every digit written.
func numLeaf(tok lexToken) (*Node, error) {
	switch tok.text {
	case "inf", "Inf", "∞":
		return Float(math.Inf(1)), nil
	case "nan", "NaN":
		return Float(math.NaN()), nil
	}
	if strings.ContainsAny(tok.text, ".eE") {
		d, _, err := apd.NewFromString(tok.text)
		if err != nil {
			return nil, &LexError{Text: tok.text, Kind: "number", Col: tok.pos}
		}
		return Decimal(d), nil
	}
	if i, err := strconv.ParseInt(tok.text, 10, 64); err == nil {
		return Int(i), nil
	}
	b, ok := new(big.Int).SetString(tok.text, 10)
	if !ok {
		return nil, &LexError{Text: tok.text, Kind: "number", Col: tok.pos}
	}
	return BigInt(b), nil
}

// negLiteral returns the negation of a number literal as a literal, or nil if
// n is not a number literal.
func negLiteral(n *Node) *Node {
	switch n.kind {
	case KindInt:
		i := n.val.(int64)
		if i == math.MinInt64 {
			return BigInt(new(big.Int).Neg(big.NewInt(i)))
		}
		return Int(-i)
	case KindBigInt:
		// -9223372036854775808 lexes as a BigInt but fits in an Int.
		r, _ := LeafOf(new(big.Int).Neg(n.val.(*big.Int)))
		return r
	case KindFloat:
		return Float(-n.val.(float64))
	case KindDecimal:
		return Decimal(new(apd.Decimal).Neg(n.val.(*apd.Decimal)))
	}
	return nil
}

// parseident parses a name. The name is a call if an argument list follows it
// or if it is a known function; otherwise it is a reference.
func parseident(scan *lexer, p *parsectx, until operator, tok lexToken) (*Node, error) {
	name := FuncName(tok.text)
	fn := p.funcs[name]
	// We respect whitespace here so that pi\nx doesn't string together
	// expressions.
	next, err := scan.next(p.wseof)
	if err != nil {
		return nil, err
	}
	if next.kind == tokenOpen && next.text == "(" {
		args, err := parsearglist(scan, p, KindCall, next.text)
		if err != nil {
			return nil, err
		}
		end := scan.must()
		if end.text != ")" {
			return nil, &BracketError{Col: end.pos, Left: next.text, Right: end.text, In: KindCall}
		}
		if fn != nil && !canCall(fn, len(args)) {
			if len(args) == 1 && canCall(fn, 0) {
				// If fn is niladic, convert from fn(a) to fn()*a.
				p.resv = args[0]
				return Call(name), nil
			}
			return nil, callError(end.pos, name, fn, len(args))
		}
		return Call(name, args...), nil
	}
	if fn == nil {
		scan.push(next)
		return Ref(Reference(name)), nil
	}
	switch next.kind {
	case tokenNum, tokenText, tokenBool, tokenIdent, tokenOpen, tokenHandle, tokenLambda, tokenOp:
		switch {
		case next.kind == tokenOp && binop(next.text).op != KindInvalid && unop(next.text).op == KindInvalid:
			// A binary-only operator applies to the call, as in pi*2.
			if !canCall(fn, 0) {
				return nil, callError(next.pos, name, fn, 0)
			}
			scan.push(next)
		case canCall(fn, 1):
			// Single argument. exp x -> exp(x)
			scan.push(next)
			if termprec.moreBinding(until) {
				until = termprec
			}
			rhs, err := parseterm(scan, p, until)
			if err != nil {
				return nil, err
			}
			if rhs == nil {
				return nil, emptyAt(scan)
			}
			return Call(name, rhs), nil
		case canCall(fn, 0):
			// No argument. pi x -> (pi) * (x)
			scan.push(next)
		default:
			// Any other number of arguments requires brackets.
			return nil, callError(next.pos, name, fn, 1)
		}
	case tokenClose, tokenSep, tokenEOF:
		if !canCall(fn, 0) {
			return nil, callError(next.pos, name, fn, 0)
		}
		scan.push(next)
	default:
		panic("exprtree: unknown token: " + next.String())
	}
	return Call(name), nil
}

// canCall reports whether fn accepts n arguments.
func canCall(fn Func, n int) bool {
	min, max := arity(fn.Params())
	return n >= min && (max < 0 || n <= max)
}

// parsehandle parses a function handle after its @.
func parsehandle(scan *lexer, p *parsectx, at lexToken) (*Node, error) {
	tok, err := scan.next("")
	if err != nil {
		return nil, err
	}
	if tok.kind != tokenIdent {
		return nil, &HandleError{Col: tok.pos, Token: tok.text}
	}
	next, err := scan.next(p.wseof)
	if err != nil {
		return nil, err
	}
	if next.kind != tokenOpen || next.text != "(" {
		scan.push(next)
		return HandleOf(FuncName(tok.text)), nil
	}
	args, err := parsearglist(scan, p, KindHandle, next.text)
	if err != nil {
		return nil, err
	}
	if end := scan.must(); end.text != ")" {
		return nil, &BracketError{Col: end.pos, Left: next.text, Right: end.text, In: KindHandle}
	}
	return HandleOf(FuncName(tok.text), args...), nil
}

// parselambda parses a lambda after its backslash. The body extends as far as
// possible.
func parselambda(scan *lexer, p *parsectx, bs lexToken) (*Node, error) {
	open, err := scan.next("")
	if err != nil {
		return nil, err
	}
	if open.kind != tokenOpen || open.text != "(" {
		return nil, &LambdaError{Col: open.pos, Token: open.text, Problem: NoParams}
	}
	var params []string
	for {
		tok, err := scan.next("")
		if err != nil {
			return nil, err
		}
		if tok.kind == tokenClose && tok.text == ")" && len(params) == 0 {
			break
		}
		if tok.kind != tokenIdent {
			return nil, &LambdaError{Col: tok.pos, Token: tok.text, Problem: BadParam, Params: params}
		}
		for _, q := range params {
			if q == tok.text {
				return nil, &LambdaError{Col: tok.pos, Token: tok.text, Problem: DuplicateParam, Params: params}
			}
		}
		params = append(params, tok.text)
		sep, err := scan.next("")
		if err != nil {
			return nil, err
		}
		if sep.kind == tokenClose && sep.text == ")" {
			break
		}
		if sep.kind != tokenSep || sep.text != "," {
			return nil, &LambdaError{Col: sep.pos, Token: sep.text, Problem: BadParamSep, Params: params}
		}
	}
	body, err := parseterm(scan, p, exprprec)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, emptyAt(scan)
	}
	return Lambda(params, body), nil
}

// parsearglist parses a bracketed list of zero or more args of a node of kind
// in. The closing bracket is pushed; callers check that it matches.
func parsearglist(scan *lexer, p *parsectx, in Kind, open string) ([]*Node, error) {
	var args []*Node
	for {
		rhs, err := parseterm(scan, p, exprprec)
		if err != nil {
			// As a special case, reporting mismatched brackets is more helpful
			// than empty expression, if that's what we'd do here.
			if ee, _ := err.(*EmptyExpressionError); ee != nil && ee.End == "" {
				err = &BracketError{Col: ee.Col, Left: open, In: in}
			}
			return nil, err
		}
		end := scan.must()
		switch end.kind {
		case tokenClose:
			scan.push(end)
			if rhs == nil {
				// No expression parsed.
				// f() is allowed, but f(a,) isn't.
				if len(args) != 0 {
					return nil, &EmptyExpressionError{Col: end.pos, End: end.text}
				}
				return nil, nil
			}
			return append(args, rhs), nil
		case tokenSep:
			if rhs == nil {
				return nil, &SeparatorError{Col: end.pos, Sep: end.text}
			}
			args = append(args, rhs)
		case tokenEOF:
			return nil, &BracketError{Col: end.pos, Left: open, In: in}
		default:
			panic("exprtree: parsearglist ended on non-end token " + end.String())
		}
	}
}

// rightbracket gets the closing bracket index for an opening bracket.
func rightbracket(left string) int {
	r, sz := utf8.DecodeRuneInString(left)
	k := strings.IndexRune(OpenBrackets, r)
	if k < 0 || sz != len(left) {
		panic("exprtree: invalid bracket " + strconv.Quote(left))
	}
	return k
}

// leftbracket gets the opening bracket matching right. If right is no bracket,
// then the result is the empty string.
func leftbracket(right int) string {
	if right == -1 {
		return ""
	}
	return openbrackets[right]
}

// itShouldNotHaveEndedThisWay returns an error appropriate for an unexpected
// token at the end of a subexpression. match is the bracket rune index that
// the expression should have matched, or -1 if none.
func itShouldNotHaveEndedThisWay(tok lexToken, match int) error {
	switch tok.kind {
	case tokenEOF:
		// Unexpected EOF implies an open bracket that was not closed.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: ""}
	case tokenClose:
		// A bracket could be the wrong bracket for the opening brace or any
		// bracket at the end of an input.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: tok.text}
	case tokenSep:
		// Separator outside an argument list.
		return &SeparatorError{Col: tok.pos, Sep: tok.text}
	default:
		panic("exprtree: it really should not have ended this way: " + tok.String())
	}
}

type operator struct {
	// prec is the precedence value. Lower is more binding.
	prec int8
	// right indicates right-associativity.
	right bool
	// op is the node kind to use when this operator is selected.
	op Kind
}

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

// binop gets a binary operator for a token string. If there is no such binary
// operator, then the result has an op of KindInvalid.
func binop(text string) operator {
	switch text {
	case "or":
		return operator{-30, false, KindOr}
	case "xor":
		return operator{-25, false, KindXor}
	case "and":
		return operator{-20, false, KindAnd}
	case "=", "==":
		return operator{-10, false, KindEq}
	case "!=", "≠":
		return operator{-10, false, KindNe}
	case "<":
		return operator{-10, false, KindLt}
	case "<=", "≤":
		return operator{-10, false, KindLe}
	case ">":
		return operator{-10, false, KindGt}
	case ">=", "≥":
		return operator{-10, false, KindGe}
	case "+":
		return operator{1, false, KindAdd}
	case "-":
		return operator{1, false, KindSub}
	case "*", "×":
		return operator{5, false, KindMul}
	case "/", "÷":
		return operator{5, false, KindDiv}
	case "%":
		return operator{5, false, KindMod}
	case "^":
		return operator{15, true, KindPow}
	default:
		return operator{}
	}
}

// unop gets a unary operator for a token string. If there is no such unary
// operator, then the result has an op of KindInvalid.
func unop(text string) operator {
	switch text {
	case "+":
		// Unary plus produces no node; the kind only marks it as valid.
		return operator{10, true, KindAdd}
	case "-":
		return operator{10, true, KindNeg}
	case "!":
		return operator{10, true, KindNot}
	case "not":
		return operator{-15, true, KindNot}
	default:
		return operator{}
	}
}

var (
	// termprec is the default precedence for parsing terms. Its prec
	// should match that of multiplication.
	termprec = operator{5, true, KindMul}
	// exprprec is the precedence required to parse an entire subexpression.
	exprprec = operator{-128, true, KindInvalid}
)
