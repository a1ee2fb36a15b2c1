package spp

import (
	"testing"

	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.

func TestIssues(t *testing.T) { TestingT(t) }

type IssueTestSuite struct{}

var _ = Suite(&IssueTestSuite{})

// A #if condition must not pull its own terminating newline into the
// collected condition tokens, or the
// expression parser sees a trailing Newline Symbol and misreports a
// perfectly well-formed condition as malformed.
func (s *IssueTestSuite) TestIfConditionStopsBeforeTerminatingNewline(c *C) {
	p := NewPreprocessor("t.sp", "#define A 1\n#if A == 1\nyes\n#endif\n", nil)
	res, err := p.Process()
	c.Assert(err, IsNil)
	c.Check(containsLine(res.Text, "yes"), Equals, true)
	c.Check(countDiagnostics(res.Diagnostics, DiagEvaluation), Equals, 0)
}

// A bare identifier in a condition that resolves to a macro whose body is
// more than one token must still be read in left-to-right order, not the
// expander's internal reversed build order.
func (s *IssueTestSuite) TestConditionIdentifierReadsFirstTokenInOrder(c *C) {
	macros := NewMacroTable()
	macros["VAL"] = Macro{Body: []Symbol{intLit("3"), op("+"), intLit("4")}}
	res := evaluateCondition(condTokens("VAL"), macros)
	// VAL's body is "3 + 4", an expression the evaluator never parses as
	// such when referenced bare: it is macro-expanded and only the first
	// resulting token is read as the condition's value, so VAL is truthy
	// (3) here, not a parse of the whole expansion.
	c.Assert(res.Malformed, Equals, false)
	c.Check(res.Value, Equals, true)
}

// An undefined identifier in a condition is a distinct diagnostic
// (MacroNotFound) from a structurally malformed expression and must not
// also flip the whole condition to Malformed.
func (s *IssueTestSuite) TestUndefinedConditionIdentifierIsNotMalformed(c *C) {
	res := evaluateCondition(condTokens("NOPE && 1"), NewMacroTable())
	c.Assert(res.Malformed, Equals, false)
	c.Check(res.Value, Equals, false)
	c.Check(len(res.NotFound), Equals, 1)
}

// #define's own directive line is mirrored into the output exactly once;
// a prior version double-flushed it by calling pushCurrentLine both
// explicitly at the end of processDefineDirective and again when the
// terminating newline flowed back through the main loop's ordinary
// Newline case.
func (s *IssueTestSuite) TestDefineLineIsNotDoubleFlushed(c *C) {
	p := NewPreprocessor("t.sp", "#define ONE 1\n", nil)
	res, err := p.Process()
	c.Assert(err, IsNil)
	c.Check(res.Text, Equals, "#define ONE 1\n")
}

// An #if/#elseif/#else/#endif chain nested inside an already-suppressed
// region must keep the condition stack balanced: the nested #if still
// pushes its own entry so the matching #endif pops the right one, rather
// than prematurely reactivating the outer region.
func (s *IssueTestSuite) TestNestedIfInsideSuppressedRegionStaysBalanced(c *C) {
	src := "#define OUTER 0\n" +
		"#if OUTER\n" +
		"#if 1\n" +
		"inner\n" +
		"#endif\n" +
		"after\n" +
		"#endif\n" +
		"tail\n"
	p := NewPreprocessor("t.sp", src, nil)
	res, err := p.Process()
	c.Assert(err, IsNil)
	c.Check(containsLine(res.Text, "inner"), Equals, false)
	c.Check(containsLine(res.Text, "after"), Equals, false)
	c.Check(containsLine(res.Text, "tail"), Equals, true)
}
