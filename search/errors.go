// Package search wires the registry, cache, expression and walker together
// and maps every failure mode onto the stable exit codes of the CLI.
package search

import (
	"errors"
	"fmt"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/expr"
)

// Exit codes of the ff command.
const (
	ExitOK         = 0
	ExitNoMatches  = 1
	ExitUsage      = 2
	ExitSubprocess = 3
	ExitWalk       = 4
	ExitPlugin     = 10
	ExitAttribute  = 11
	ExitExpression = 12
)

// UsageError reports invalid command line arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to the exit code of its failure class.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var provider *attr.ProviderError
	if errors.As(err, &provider) {
		return ExitPlugin
	}
	var attribute *attr.AttributeError
	if errors.As(err, &attribute) {
		return ExitAttribute
	}
	var syntax *expr.SyntaxError
	var test *expr.TestError
	var reference *expr.ReferenceError
	if errors.As(err, &syntax) || errors.As(err, &test) || errors.As(err, &reference) {
		return ExitExpression
	}
	return ExitUsage
}
