// Package expr implements the query expression language: tokenized test
// strings are parsed into a boolean AST, bound against the attribute
// registry into compiled tests, and evaluated per entry with cost-based
// reordering and short-circuiting.
package expr

import (
	"fmt"

	"github.com/lexandro/ff/types"
)

// Node is an element of the unbound expression tree.
type Node interface {
	node()
}

// Test is a single unbound comparison.
type Test struct {
	// Attr is the attribute name as written, possibly unqualified.
	Attr string
	Op   types.Operator
	// Ref is the attribute name of a file reference, empty for the
	// test's own attribute. HasRef marks a {..}path value.
	Ref    string
	HasRef bool
	// Value is the raw right-hand side.
	Value string
	// Raw is the original token, for error messages.
	Raw string
}

// And is an n-ary conjunction.
type And struct{ Children []Node }

// Or is an n-ary disjunction.
type Or struct{ Children []Node }

// Not inverts its child.
type Not struct{ Child Node }

func (*Test) node() {}
func (*And) node()  {}
func (*Or) node()   {}
func (*Not) node()  {}

// SyntaxError reports a malformed expression, e.g. unbalanced brackets.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string {
	return "expression syntax: " + e.Msg
}

// TestError reports an invalid test definition: an operator the attribute
// type does not support, or a value that does not parse as the type.
type TestError struct {
	Test string
	Msg  string
}

func (e *TestError) Error() string {
	return fmt.Sprintf("test %q: %s", e.Test, e.Msg)
}

// ReferenceError reports a file reference whose path cannot be used.
type ReferenceError struct {
	Path string
	Err  error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference file %q: %v", e.Path, e.Err)
}

func (e *ReferenceError) Unwrap() error { return e.Err }
