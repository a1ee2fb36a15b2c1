package spp

import (
	"fmt"

	"github.com/juju/errors"
)

// MacroNotFoundError records a reference to an undefined macro. It is always
// recorded as a diagnostic. An undefined name met inside a macro's
// expansion in active code also aborts the enclosing Preprocess call; an
// undefined bare identifier in active code aborts it only when
// Options.ContinueOnUndefinedMacro is false (it is true by default).
type MacroNotFoundError struct {
	MacroName string
	Range     Range
}

func (e *MacroNotFoundError) Error() string {
	return fmt.Sprintf("macro %q not found at %s", e.MacroName, e.Range)
}

// EvaluationError records a malformed #if/#elseif expression. Like
// MacroNotFoundError, it is recorded and preprocessing continues with the
// expression defaulting to false.
type EvaluationError struct {
	Text  string
	Range Range
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("invalid preprocessor condition %q at %s", e.Text, e.Range)
}

// ParseIntError records a malformed %N argument index, either in a macro
// body during substitution or in a #define parameter list. Unlike the two
// errors above, it always aborts the enclosing Preprocess call.
type ParseIntError struct {
	Text  string
	Range Range
}

func (e *ParseIntError) Error() string {
	return fmt.Sprintf("could not parse %q as an argument index at %s", e.Text, e.Range)
}

// StructuralError records an unbalanced #else/#elseif/#endif — one with no
// matching #if on the condition stack — or an unexpected symbol in a
// #define parameter list. It aborts the enclosing Preprocess call.
type StructuralError struct {
	Message string
	Range   Range
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s at %s", e.Message, e.Range)
}

// wrapParseInt and wrapStructural annotate an abort-class sentinel with
// juju/errors: the immediate caller gets a readable chain ("parsing #define
// argument index: ...") while errors.Cause still recovers the original
// sentinel for callers that want to branch on error kind. Only the #define
// parser and the condition stack use them; errors from macro expansion are
// returned unwrapped.
func wrapParseInt(cause *ParseIntError, context string) error {
	return errors.Annotate(cause, context)
}

func wrapStructural(cause *StructuralError, context string) error {
	return errors.Annotate(cause, context)
}

// IsMacroNotFoundError reports whether err is, or wraps, a
// *MacroNotFoundError.
func IsMacroNotFoundError(err error) bool {
	_, ok := errors.Cause(err).(*MacroNotFoundError)
	return ok
}

// IsParseIntError reports whether err is, or wraps, a *ParseIntError.
func IsParseIntError(err error) bool {
	_, ok := errors.Cause(err).(*ParseIntError)
	return ok
}

// IsStructuralError reports whether err is, or wraps, a *StructuralError.
func IsStructuralError(err error) bool {
	_, ok := errors.Cause(err).(*StructuralError)
	return ok
}
