package number

import "fmt"

// ArithmeticError is an error from an operation whose result cannot be
// represented: division by zero, non-finite results, or precision lost while
// narrowing to an integer.
type ArithmeticError struct {
	// Op identifies the operation, e.g. "/" or "int64".
	Op string
	// Msg describes the failure.
	Msg string
	// Err is the underlying decimal condition, if any.
	Err error
}

func (err *ArithmeticError) Error() string {
	if err.Msg == "" && err.Err != nil {
		return "arithmetic error in " + err.Op + ": " + err.Err.Error()
	}
	return "arithmetic error in " + err.Op + ": " + err.Msg
}

func (err *ArithmeticError) Unwrap() error {
	return err.Err
}

// SyntaxError is an error parsing the text of a number.
type SyntaxError struct {
	Text string
	Err  error
}

func (err *SyntaxError) Error() string {
	return fmt.Sprintf("invalid number %q: %v", err.Text, err.Err)
}

func (err *SyntaxError) Unwrap() error {
	return err.Err
}

// TypeError is an error for a raw operand that is not a number.
type TypeError struct {
	Value any
}

func (err *TypeError) Error() string {
	return fmt.Sprintf("%T is not a number", err.Value)
}
