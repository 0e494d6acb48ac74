package exprtree

import (
	"fmt"
	"strconv"
)

// ConstructionError is an error building a node: a nil child, a payload of
// the wrong type, or the wrong number of children for the node's kind.
// Factories that cannot return errors panic with a *ConstructionError.
type ConstructionError struct {
	// Kind is the kind of the node being built.
	Kind Kind
	// Msg describes the problem.
	Msg string
}

func (err *ConstructionError) Error() string {
	return "exprtree: cannot construct " + err.Kind.String() + ": " + err.Msg
}

// UnsupportedError is an error for an operation that is not defined for its
// operands or node shape, e.g. subtracting text or appending a child to a
// binary node.
type UnsupportedError struct {
	// Op names the operation.
	Op string
	// Operand describes the operand the operation is not defined for.
	Operand string
}

func (err *UnsupportedError) Error() string {
	return "unsupported operation " + strconv.Quote(err.Op) + " on " + err.Operand
}

// EvalError is an arithmetic failure annotated with the text of the
// sub-expression that caused it.
type EvalError struct {
	// Expr is the textual form of the failing sub-expression.
	Expr string
	// Err is the underlying error, usually a *number.ArithmeticError.
	Err error
}

func (err *EvalError) Error() string {
	return "evaluating " + err.Expr + ": " + err.Err.Error()
}

func (err *EvalError) Unwrap() error {
	return err.Err
}

// ReferenceError is an error from a lookup for a reference that is unknown to
// the evaluation context.
type ReferenceError struct {
	// Ref is the reference that was missing.
	Ref Reference
}

func (err *ReferenceError) Error() string {
	return "undefined reference: " + strconv.Quote(string(err.Ref))
}

// CycleError is an error from resolving a reference whose definition depends
// on itself.
type CycleError struct {
	// Ref is the reference that closed the cycle.
	Ref Reference
}

func (err *CycleError) Error() string {
	return "reference cycle through " + strconv.Quote(string(err.Ref))
}

// ConversionError is an error converting a value to a type.
type ConversionError struct {
	Value any
	To    Type
	// Err is the underlying error, if any.
	Err error
}

func (err *ConversionError) Error() string {
	s := fmt.Sprintf("cannot convert %v (%T) to %v", err.Value, err.Value, err.To)
	if err.Err != nil {
		s += ": " + err.Err.Error()
	}
	return s
}

func (err *ConversionError) Unwrap() error {
	return err.Err
}

// UnknownFunctionError is an error from a lookup for a function that the
// evaluation context does not define.
type UnknownFunctionError struct {
	Name FuncName
}

func (err *UnknownFunctionError) Error() string {
	return "unknown function: " + strconv.Quote(string(err.Name))
}

// ParamIndexError is an error accessing a prepared argument at an index that
// has no argument or no declared parameter.
type ParamIndexError struct {
	// Index is the index that was accessed.
	Index int
	// Len is the number of arguments, or of declared parameters when Params
	// is set.
	Len int
	// Params indicates that the index is beyond the declared parameters.
	Params bool
}

func (err *ParamIndexError) Error() string {
	if err.Params {
		return "argument " + strconv.Itoa(err.Index) + " has no parameter among " + strconv.Itoa(err.Len)
	}
	return "argument index " + strconv.Itoa(err.Index) + " out of range with " + strconv.Itoa(err.Len) + " arguments"
}

// ArityError is an error calling a function with the wrong number of
// arguments.
type ArityError struct {
	// Func names the function, if known.
	Func string
	// Min and Max are the accepted numbers of arguments. Max is -1 if the
	// function is variadic.
	Min, Max int
	// Got is the number of arguments supplied.
	Got int
}

func (err *ArityError) Error() string {
	want := strconv.Itoa(err.Min)
	switch {
	case err.Max < 0:
		want = "at least " + want
	case err.Max != err.Min:
		want += " to " + strconv.Itoa(err.Max)
	}
	name := err.Func
	if name == "" {
		name = "function"
	}
	return "cannot call " + name + " with " + strconv.Itoa(err.Got) + " arguments (want " + want + ")"
}

// InternalError indicates a broken invariant of the expression tree.
type InternalError struct {
	Msg string
}

func (err *InternalError) Error() string {
	return "exprtree: internal error: " + err.Msg
}
