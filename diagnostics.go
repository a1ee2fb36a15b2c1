package spp

// DiagnosticKind classifies a Diagnostic, mirroring the error taxonomy in
// error.go but flattened into the shape an LSP diagnostic channel expects.
type DiagnosticKind int

const (
	DiagMacroNotFound DiagnosticKind = iota
	DiagEvaluation
	DiagDisabledRegion
)

// Severity mirrors lsp_types' DiagnosticSeverity, restricted to the two
// levels this preprocessor ever assigns.
type Severity int

const (
	SeverityError Severity = iota
	SeverityHint
)

// Diagnostic is a {range, kind, message} triple suitable for direct
// forwarding to an LSP diagnostic channel.
type Diagnostic struct {
	Kind     DiagnosticKind
	Range    Range
	Message  string
	Severity Severity
	// Unnecessary tags a DisabledRegion diagnostic the way
	// lsp_types::DiagnosticTag::UNNECESSARY does, so a client can render it
	// as faded-out code instead of a squiggle.
	Unnecessary bool
}

func macroNotFoundDiagnostic(e *MacroNotFoundError) Diagnostic {
	return Diagnostic{
		Kind:     DiagMacroNotFound,
		Range:    e.Range,
		Message:  "macro " + e.MacroName + " not found",
		Severity: SeverityError,
	}
}

func evaluationDiagnostic(e *EvaluationError) Diagnostic {
	return Diagnostic{
		Kind:     DiagEvaluation,
		Range:    e.Range,
		Message:  "preprocessor condition is invalid: " + e.Text,
		Severity: SeverityError,
	}
}

// coalesceDisabledRanges merges adjacent skipped-line ranges into a single
// DisabledRegion diagnostic per contiguous run, so that e.g. a ten-line
// #if 0 block produces one diagnostic instead of ten.
func coalesceDisabledRanges(ranges []Range) []Diagnostic {
	var merged []Range
	for _, r := range ranges {
		if n := len(merged); n > 0 && merged[n-1].End.Line == r.Start.Line-1 {
			merged[n-1].End = r.End
			continue
		}
		merged = append(merged, r)
	}
	diags := make([]Diagnostic, 0, len(merged))
	for _, r := range merged {
		diags = append(diags, Diagnostic{
			Kind:        DiagDisabledRegion,
			Range:       r,
			Message:     "code disabled by the preprocessor",
			Severity:    SeverityHint,
			Unnecessary: true,
		})
	}
	return diags
}
