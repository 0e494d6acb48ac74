// Package exprtree implements expression trees that are parsed once and
// evaluated many times against pluggable contexts.
//
// A tree is made of immutable *Node values. Mutation goes through a Cursor,
// which rebuilds only the path from the changed node to the root and shares
// everything else with the original tree. Leaves hold booleans, text, numbers
// of several representations, times, references, and function names.
//
// Evaluation takes a Context, which supplies the values of references, the
// functions that calls invoke, the numeric representation for arithmetic, and
// conversions between types. Env is the basic Context. Contexts compose:
// DetectCycles fails evaluations whose references depend on themselves, and
// EnterScope adds local bindings. Functions declare how each argument is
// prepared, and arguments are prepared lazily and at most once per call.
//
// Numbers are float64 or arbitrary-precision decimal according to the
// context; see package number.
//
// The syntax of expressions parsed by Parse is intended to be similar to math
// you'd write in your notes. "2 x y" is a multiplication of three terms. So is
// "(2)[x](y)" (although not "2 xy"). "-2^2^n" is the same as "-(2^(2^n))",
// where "a^b" is exponentiation. Beyond arithmetic, expressions have text in
// double quotes, comparisons, the logical operators and, or, xor, and not,
// lists in braces, function handles like @sum(1), and lambdas like \(x) x^2.
package exprtree
