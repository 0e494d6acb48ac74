package exprtree

import "strconv"

// InputError is an error caused by invalid input to the parser. Pos gives the
// number of runes up to and including the start of the offending token.
type InputError interface {
	error
	Pos() int
}

var (
	_ InputError = (*OperatorError)(nil)
	_ InputError = (*BracketError)(nil)
	_ InputError = (*SeparatorError)(nil)
	_ InputError = (*CallError)(nil)
	_ InputError = (*TokenError)(nil)
	_ InputError = (*HandleError)(nil)
	_ InputError = (*LambdaError)(nil)
	_ InputError = (*EmptyExpressionError)(nil)
	_ InputError = (*LexError)(nil)
)

// errpos prefixes msg with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// construct names the node kind being parsed for error messages.
func construct(k Kind) string {
	switch k {
	case KindCall:
		return "call"
	case KindHandle:
		return "function handle"
	case KindList:
		return "list"
	case KindLambda:
		return "lambda"
	case KindInvalid:
		return "group"
	}
	return k.String()
}

// OperatorError is an operator token with no meaning in its position.
type OperatorError struct {
	Col      int
	Operator string
	// Unary is true when the operator began a term, so it needed to be a
	// prefix operator.
	Unary bool
}

func (err *OperatorError) Error() string {
	if err.Unary {
		return errpos(err.Col, strconv.Quote(err.Operator)+" is not a prefix operator")
	}
	return errpos(err.Col, strconv.Quote(err.Operator)+" is not a binary operator")
}

func (err *OperatorError) Pos() int { return err.Col }

// BracketError is an unbalanced or mismatched bracket.
type BracketError struct {
	Col int
	// Left and Right are the brackets. Left is empty for a close bracket
	// with nothing open, and Right is empty when the input ended first.
	Left, Right string
	// In is the kind of node the brackets delimit: KindCall, KindHandle,
	// KindList, or KindInvalid for grouping.
	In Kind
}

func (err *BracketError) Error() string {
	switch {
	case err.Left == "":
		return errpos(err.Col, "unopened "+strconv.Quote(err.Right))
	case err.Right == "":
		return errpos(err.Col, "unclosed "+strconv.Quote(err.Left)+" of "+construct(err.In))
	}
	return errpos(err.Col, construct(err.In)+" opened with "+strconv.Quote(err.Left)+" closed with "+strconv.Quote(err.Right))
}

func (err *BracketError) Pos() int { return err.Col }

// SeparatorError is a comma or semicolon outside of an argument list, or an
// argument list entry with nothing before its separator.
type SeparatorError struct {
	Col int
	Sep string
}

func (err *SeparatorError) Error() string {
	return errpos(err.Col, "misplaced separator "+strconv.Quote(err.Sep))
}

func (err *SeparatorError) Pos() int { return err.Col }

// CallError is a call to a function known to the parser with a number of
// arguments the function does not accept.
type CallError struct {
	// Col is the position where the argument count was decided.
	Col  int
	Func FuncName
	// Len is the number of arguments given or implied.
	Len int
	// Min and Max are the accepted counts. Max is -1 for variadic functions.
	Min, Max int
}

func callError(col int, name FuncName, fn Func, n int) *CallError {
	min, max := arity(fn.Params())
	return &CallError{Col: col, Func: name, Len: n, Min: min, Max: max}
}

func (err *CallError) Error() string {
	var want string
	switch {
	case err.Max < 0:
		want = "at least " + strconv.Itoa(err.Min)
	case err.Min == err.Max:
		want = strconv.Itoa(err.Min)
	default:
		want = strconv.Itoa(err.Min) + " to " + strconv.Itoa(err.Max)
	}
	return errpos(err.Col, string(err.Func)+" takes "+want+" arguments, not "+strconv.Itoa(err.Len))
}

func (err *CallError) Pos() int { return err.Col }

// TokenError is a term juxtaposed with the one before it while implicit
// multiplication is off.
type TokenError struct {
	Col   int
	Token string
	// After is the kind of the term the token follows.
	After Kind
}

func (err *TokenError) Error() string {
	return errpos(err.Col, strconv.Quote(err.Token)+" follows "+err.After.String()+" with no operator")
}

func (err *TokenError) Pos() int { return err.Col }

// HandleError is an @ not followed by a function name.
type HandleError struct {
	Col int
	// Token is what followed the @, or empty at the end of input.
	Token string
}

func (err *HandleError) Error() string {
	if err.Token == "" {
		return errpos(err.Col, "function handle with no name")
	}
	return errpos(err.Col, "function handle names "+strconv.Quote(err.Token)+", not a function")
}

func (err *HandleError) Pos() int { return err.Col }

// LambdaProblem describes what is wrong with a lambda parameter list.
type LambdaProblem int8

const (
	// NoParams is a lambda without a parenthesized parameter list.
	NoParams LambdaProblem = iota + 1
	// BadParam is a parameter that is not an identifier.
	BadParam
	// DuplicateParam is a parameter name given twice.
	DuplicateParam
	// BadParamSep is a parameter followed by neither "," nor ")".
	BadParamSep
)

// LambdaError is a malformed lambda parameter list.
type LambdaError struct {
	Col     int
	Token   string
	Problem LambdaProblem
	// Params are the parameters read before the error.
	Params []string
}

func (err *LambdaError) Error() string {
	q := strconv.Quote(err.Token)
	switch err.Problem {
	case NoParams:
		return errpos(err.Col, "lambda needs a parameter list, not "+q)
	case BadParam:
		return errpos(err.Col, "lambda parameter "+q+" is not a name")
	case DuplicateParam:
		return errpos(err.Col, "lambda parameter "+q+" repeated")
	case BadParamSep:
		return errpos(err.Col, "lambda parameters separated by "+q)
	}
	return errpos(err.Col, "bad lambda at "+q)
}

func (err *LambdaError) Pos() int { return err.Col }

// EmptyExpressionError is a place where an expression is required but none
// was given.
type EmptyExpressionError struct {
	Col int
	// End is the token that ended the empty expression, or empty at the end
	// of input.
	End string
}

func (err *EmptyExpressionError) Error() string {
	switch {
	case err.End != "":
		return errpos(err.Col, "missing expression before "+strconv.Quote(err.End))
	case err.Col <= 1:
		return errpos(err.Col, "no expression")
	}
	return errpos(err.Col, "missing expression at end of input")
}

func (err *EmptyExpressionError) Pos() int { return err.Col }
