package spp

import "testing"

func condTokens(input string) []Symbol {
	ts := Lex("t.sp", input)
	var out []Symbol
	for {
		s := ts.Next()
		if s.IsEOF() {
			return out
		}
		out = append(out, s)
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	cases := map[string]bool{
		"1 + 2 == 3":  true,
		"1 + 2 == 4":  false,
		"2 * 3 > 5":   true,
		"10 / 2 == 5": true,
		"10 % 3 == 1": true,
		"(1 + 2) * 3 == 9": true,
	}
	for expr, want := range cases {
		res := evaluateCondition(condTokens(expr), NewMacroTable())
		if res.Malformed {
			t.Errorf("%q: unexpectedly malformed", expr)
			continue
		}
		if res.Value != want {
			t.Errorf("%q: Value = %v, want %v", expr, res.Value, want)
		}
	}
}

func TestEvaluateLogicalAndBitwise(t *testing.T) {
	cases := map[string]bool{
		"1 && 1":       true,
		"1 && 0":       false,
		"0 || 1":       true,
		"1 & 1":        true,
		"2 & 1":        false,
		"5 ^ 5 == 0":   true,
		"1 << 3 == 8":  true,
		"8 >> 2 == 2":  true,
		"!0":           true,
		"!1":           false,
		"~0 == -1":     true,
	}
	for expr, want := range cases {
		res := evaluateCondition(condTokens(expr), NewMacroTable())
		if res.Malformed {
			t.Errorf("%q: unexpectedly malformed", expr)
			continue
		}
		if res.Value != want {
			t.Errorf("%q: Value = %v, want %v", expr, res.Value, want)
		}
	}
}

func TestEvaluateDefined(t *testing.T) {
	macros := NewMacroTable()
	macros["FOO"] = Macro{Body: []Symbol{{Kind: IntegerLiteral, Text: "1"}}}

	res := evaluateCondition(condTokens("defined(FOO)"), macros)
	if res.Malformed || !res.Value {
		t.Errorf("defined(FOO) = %v (malformed=%v), want true", res.Value, res.Malformed)
	}

	res = evaluateCondition(condTokens("defined(BAR)"), macros)
	if res.Malformed || res.Value {
		t.Errorf("defined(BAR) = %v (malformed=%v), want false", res.Value, res.Malformed)
	}
}

func TestEvaluateDefinedDoesNotExpand(t *testing.T) {
	// defined() must check macro-table membership directly, not expand NAME
	// first: a macro whose body is itself malformed as an expression must
	// not make defined(NAME) fail just because NAME would fail to evaluate.
	macros := NewMacroTable()
	macros["WEIRD"] = Macro{Body: []Symbol{{Kind: Operator, Text: "+"}, {Kind: Operator, Text: "+"}}}

	res := evaluateCondition(condTokens("defined(WEIRD)"), macros)
	if res.Malformed || !res.Value {
		t.Errorf("defined(WEIRD) = %v (malformed=%v), want true, not malformed", res.Value, res.Malformed)
	}
}

func TestEvaluateBareIdentifierMacro(t *testing.T) {
	macros := NewMacroTable()
	macros["VERSION"] = Macro{Body: []Symbol{{Kind: IntegerLiteral, Text: "5"}}}

	res := evaluateCondition(condTokens("VERSION >= 5"), macros)
	if res.Malformed || !res.Value {
		t.Errorf("VERSION >= 5 = %v (malformed=%v), want true", res.Value, res.Malformed)
	}
}

func TestEvaluateUndefinedIdentifierRecordsNotFound(t *testing.T) {
	res := evaluateCondition(condTokens("UNDEFINED_THING"), NewMacroTable())
	if len(res.NotFound) != 1 {
		t.Fatalf("expected exactly one MacroNotFoundError, got %d", len(res.NotFound))
	}
	if res.NotFound[0].MacroName != "UNDEFINED_THING" {
		t.Errorf("MacroName = %q, want %q", res.NotFound[0].MacroName, "UNDEFINED_THING")
	}
	if res.Value {
		t.Errorf("an undefined identifier should evaluate falsy, got true")
	}
}

func TestEvaluateUndefinedIdentifierIsNotMalformed(t *testing.T) {
	// An undefined identifier in a condition is a MacroNotFoundError, a
	// distinct diagnostic from a structurally malformed expression; it must
	// not also flag the whole condition Malformed.
	res := evaluateCondition(condTokens("UNDEFINED_THING"), NewMacroTable())
	if res.Malformed {
		t.Errorf("an undefined identifier should not be reported malformed")
	}
}

func TestEvaluateDivisionByZeroIsMalformed(t *testing.T) {
	res := evaluateCondition(condTokens("1 / 0"), NewMacroTable())
	if !res.Malformed {
		t.Errorf("expected division by zero to be reported malformed")
	}
}

func TestEvaluateUnbalancedParenIsMalformed(t *testing.T) {
	res := evaluateCondition(condTokens("(1 + 2"), NewMacroTable())
	if !res.Malformed {
		t.Errorf("expected an unbalanced parenthesis to be reported malformed")
	}
}

func TestEvaluateCharLiteral(t *testing.T) {
	res := evaluateCondition(condTokens("'A' == 65"), NewMacroTable())
	if res.Malformed || !res.Value {
		t.Errorf("'A' == 65 = %v (malformed=%v), want true", res.Value, res.Malformed)
	}
}
