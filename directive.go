package spp

import "strings"

// ConditionState is one entry in the condition stack: the mode a nested
// #if/#elseif/#else chain is currently in.
type ConditionState int

const (
	// CondActive: currently emitting tokens.
	CondActive ConditionState = iota
	// CondNotActivated: no branch of the current chain has been taken yet;
	// tokens are suppressed but a later #elseif/#else may still activate.
	CondNotActivated
	// CondActivated: a branch of the current chain has already been taken;
	// every remaining arm is permanently suppressed.
	CondActivated
)

// Result is what a completed Preprocess call produces: the expanded text,
// the macro table (suitable for merging into an including document), and
// the accumulated diagnostics.
type Result struct {
	Text             string
	Macros           MacroTable
	Diagnostics      []Diagnostic
	EvaluatedDefines []Symbol
}

// Preprocessor drives one preprocessing pass over a single document. It is
// not reusable across documents and not safe for concurrent use — a fresh
// Preprocessor is constructed per document, the same way the original
// source's SourcepawnPreprocessor is constructed per translation unit.
type Preprocessor struct {
	uri      string
	ts       *TokenStream
	resolver IncludeResolver

	opts Options

	macros         MacroTable
	expansionStack []Symbol
	conditions     []ConditionState

	curLine strings.Builder
	lines   []string
	prevEnd int

	skipLineStartCol int
	skippedRanges    []Range

	macroNotFound    []*MacroNotFoundError
	evalErrors       []*EvaluationError
	evaluatedDefines []Symbol
}

// NewPreprocessor constructs a preprocessor over input, identified by uri
// (used to resolve relative #include targets and as the key an
// IncludeResolver memoizes by). resolver may be nil if the document is
// known not to use #include/#tryinclude; any use of either directive then
// fails to resolve silently, per the include-handling contract. Uses
// DefaultOptions(); call NewPreprocessorWithOptions to override them.
func NewPreprocessor(uri, input string, resolver IncludeResolver) *Preprocessor {
	return NewPreprocessorWithOptions(uri, input, resolver, DefaultOptions())
}

// NewPreprocessorWithOptions is NewPreprocessor with explicit Options, e.g.
// to set ContinueOnUndefinedMacro to false so an unresolved identifier in
// active code aborts the run instead of being recorded and re-emitted.
func NewPreprocessorWithOptions(uri, input string, resolver IncludeResolver, opts Options) *Preprocessor {
	p := &Preprocessor{
		uri:      uri,
		ts:       Lex(uri, input),
		resolver: resolver,
		macros:   NewMacroTable(),
		opts:     opts,
	}
	registerBuiltinMacros(p.macros, uri)
	return p
}

// Process runs the main loop to completion, returning the expanded text,
// macro table, and diagnostics, or an error if a ParseInt or Structural
// error aborted the run, or a MacroNotFound error did (an undefined name
// met while expanding a macro always aborts; an undefined identifier in
// active code aborts only when Options.ContinueOnUndefinedMacro is false).
// On an error the caller gets no output text but does get the diagnostics
// accumulated up to the failure.
func (p *Preprocessor) Process() (Result, error) {
mainLoop:
	for {
		var sym Symbol
		if n := len(p.expansionStack); n > 0 {
			sym = p.expansionStack[n-1]
			p.expansionStack = p.expansionStack[:n-1]
		} else {
			sym = p.ts.Next()
		}

		top := CondActive
		if n := len(p.conditions); n > 0 {
			top = p.conditions[n-1]
		}
		if top == CondActivated || top == CondNotActivated {
			done, err := p.processNegativeCondition(sym)
			if err != nil {
				return p.partialResult(), err
			}
			if done {
				break mainLoop
			}
			continue mainLoop
		}

		switch sym.Kind {
		case PreprocDir:
			if err := p.processDirective(sym); err != nil {
				return p.partialResult(), err
			}
		case Newline:
			p.pushWS(sym)
			p.pushCurrentLine()
			p.prevEnd = 0
		case Identifier:
			if _, ok := p.macros[sym.Text]; ok {
				if err := expandSymbol(p.ts, p.macros, sym, &p.expansionStack, &p.macroNotFound, false); err != nil {
					return p.partialResult(), err
				}
			} else {
				notFound := &MacroNotFoundError{MacroName: sym.Text, Range: sym.Range}
				p.macroNotFound = append(p.macroNotFound, notFound)
				if !p.opts.ContinueOnUndefinedMacro {
					return p.partialResult(), notFound
				}
				// "Continue" resolution for an undefined identifier in
				// active code: record the diagnostic and re-emit the
				// identifier verbatim rather than aborting the whole
				// Process call. Pushed directly (not through the expansion
				// stack) so it isn't mistaken for a fresh macro reference
				// on its next pass through this same case.
				p.pushSymbol(sym)
			}
		case EOF:
			p.pushWS(sym)
			p.pushCurrentLine()
			break mainLoop
		default:
			p.pushSymbol(sym)
		}
	}

	return p.result(), nil
}

func (p *Preprocessor) result() Result {
	var diags []Diagnostic
	diags = append(diags, coalesceDisabledRanges(p.skippedRanges)...)
	for _, e := range p.macroNotFound {
		diags = append(diags, macroNotFoundDiagnostic(e))
	}
	for _, e := range p.evalErrors {
		diags = append(diags, evaluationDiagnostic(e))
	}
	return Result{
		Text:             strings.Join(p.lines, "\n"),
		Macros:           p.macros,
		Diagnostics:      diags,
		EvaluatedDefines: p.evaluatedDefines,
	}
}

// partialResult is returned alongside an abort-class error: no usable
// output text, but whatever diagnostics had already accumulated.
func (p *Preprocessor) partialResult() Result {
	r := p.result()
	r.Text = ""
	return r
}

func (p *Preprocessor) pushWS(sym Symbol) {
	n := sym.Delta.Col
	if n < 0 {
		n = -n
	}
	p.curLine.WriteString(strings.Repeat(" ", n))
}

func (p *Preprocessor) pushCurrentLine() {
	p.lines = append(p.lines, p.curLine.String())
	p.curLine.Reset()
}

func (p *Preprocessor) pushSymbol(sym Symbol) {
	if sym.Kind == EOF {
		p.pushCurrentLine()
		return
	}
	p.pushWS(sym)
	p.prevEnd = sym.Range.End.Col
	p.curLine.WriteString(sym.Text)
}

func (p *Preprocessor) pushBlankLines(n int) {
	for i := 0; i < n; i++ {
		p.lines = append(p.lines, "")
	}
}

func renderSymbols(syms []Symbol) string {
	var b strings.Builder
	for _, s := range syms {
		b.WriteString(s.Text)
	}
	return b.String()
}

// processDirective dispatches a PreprocDir Symbol by its Directive
// classification.
func (p *Preprocessor) processDirective(sym Symbol) error {
	switch sym.Directive {
	case DirIf:
		p.processIfDirective(sym)
		return nil
	case DirElseif:
		return p.processElseifDirective(sym)
	case DirElse:
		return p.processElseDirective(sym)
	case DirEndif:
		return p.processEndifDirective(sym)
	case DirDefine:
		return p.processDefineDirective(sym)
	case DirInclude, DirTryInclude:
		p.processIncludeDirective(sym)
		return nil
	default:
		// #pragma, #error, #warning, #assert and anything unrecognized:
		// the directive tag itself is mirrored into the output verbatim;
		// whatever follows it on the line flows through the main loop as
		// ordinary tokens.
		p.pushSymbol(sym)
		return nil
	}
}

// processIfDirective implements both #if and the "first activation" half
// of #elseif: collect every Symbol up to the end of the directive line,
// evaluate it as a condition, and push the resulting state.
func (p *Preprocessor) processIfDirective(sym Symbol) {
	lineNb := sym.Range.Start.Line

	var condSyms []Symbol
	for p.ts.InPreprocessor() {
		s := p.ts.Next()
		// A line-continuation backslash or a comment carries no meaning to
		// the expression parser; collecting it into condSyms would make a
		// perfectly well-formed multi-line condition look malformed.
		if s.Kind == LineContinuation || s.Kind == LineComment || s.Kind == BlockComment {
			continue
		}
		if s.Kind == Identifier {
			p.evaluatedDefines = append(p.evaluatedDefines, s)
		}
		condSyms = append(condSyms, s)
	}

	res := evaluateCondition(condSyms, p.macros)
	logger.Tracef("line %d: %q evaluates to %v", lineNb, renderSymbols(condSyms), res.Value)
	p.macroNotFound = append(p.macroNotFound, res.NotFound...)
	if res.Malformed {
		p.evalErrors = append(p.evalErrors, &EvaluationError{Text: renderSymbols(condSyms), Range: sym.Range})
	}

	if res.Value {
		p.conditions = append(p.conditions, CondActive)
	} else {
		p.skipLineStartCol = sym.Range.End.Col
		p.conditions = append(p.conditions, CondNotActivated)
	}

	if len(condSyms) > 0 {
		last := condSyms[len(condSyms)-1]
		p.pushBlankLines(last.Range.End.Line - lineNb)
	}
	p.prevEnd = 0
}

func (p *Preprocessor) popCondition(sym Symbol, context string) (ConditionState, error) {
	n := len(p.conditions)
	if n == 0 {
		return 0, wrapStructural(&StructuralError{Message: context, Range: sym.Range}, "condition stack")
	}
	last := p.conditions[n-1]
	p.conditions = p.conditions[:n-1]
	return last, nil
}

func (p *Preprocessor) processElseifDirective(sym Symbol) error {
	last, err := p.popCondition(sym, "expected #if before #elseif")
	if err != nil {
		return err
	}
	switch last {
	case CondNotActivated:
		p.processIfDirective(sym)
	case CondActive, CondActivated:
		p.conditions = append(p.conditions, CondActivated)
	}
	return nil
}

func (p *Preprocessor) processElseDirective(sym Symbol) error {
	last, err := p.popCondition(sym, "expected #if before #else")
	if err != nil {
		return err
	}
	switch last {
	case CondNotActivated:
		p.conditions = append(p.conditions, CondActive)
	default:
		p.skipLineStartCol = sym.Range.End.Col
		p.conditions = append(p.conditions, CondActivated)
	}
	return nil
}

func (p *Preprocessor) processEndifDirective(sym Symbol) error {
	_, err := p.popCondition(sym, "expected #if before #endif")
	if err != nil {
		return err
	}
	if n := len(p.conditions); n > 0 && p.conditions[n-1] != CondActive {
		p.skippedRanges = append(p.skippedRanges, Range{
			Start: Position{Line: sym.Range.Start.Line, Col: p.skipLineStartCol},
			End:   Position{Line: sym.Range.Start.Line, Col: sym.Range.End.Col},
		})
	}
	return nil
}

// processNegativeCondition handles a Symbol while the condition stack's
// top is NotActivated or Activated: almost everything is dropped, except
// the directives that keep the stack itself balanced and the newlines
// that keep line numbering in sync.
func (p *Preprocessor) processNegativeCondition(sym Symbol) (done bool, err error) {
	switch sym.Kind {
	case PreprocDir:
		switch sym.Directive {
		case DirIf:
			// A nested #if inside a suppressed region still needs its own
			// stack entry, so the matching #endif balances correctly.
			p.conditions = append(p.conditions, CondActivated)
		case DirEndif:
			err = p.processEndifDirective(sym)
		case DirElse:
			err = p.processElseDirective(sym)
		case DirElseif:
			last, e := p.popCondition(sym, "expected #if before #elseif")
			if e != nil {
				return false, e
			}
			switch last {
			case CondNotActivated:
				p.processIfDirective(sym)
			case CondActive, CondActivated:
				p.conditions = append(p.conditions, CondActivated)
			}
		}
	case Newline:
		p.pushCurrentLine()
		p.skippedRanges = append(p.skippedRanges, Range{
			Start: Position{Line: sym.Range.Start.Line, Col: p.skipLineStartCol},
			End:   Position{Line: sym.Range.Start.Line, Col: sym.Range.Start.Col},
		})
		p.prevEnd = 0
	case Identifier:
		p.evaluatedDefines = append(p.evaluatedDefines, sym)
	case EOF:
		p.pushWS(sym)
		p.pushCurrentLine()
		return true, nil
	}
	return false, nil
}

// defineState is the three-state sub-automaton the #define parser walks
// over the directive's Symbols.
type defineState int

const (
	defineStart defineState = iota
	defineArgs
	defineBody
)

// processDefineDirective implements the #define parser: Start identifies
// the macro name, an optional immediately-adjacent "(" transitions to
// Args to capture the %0.. formal parameter list, and everything else is
// the macro Body. The directive's own tokens are mirrored into the output
// buffer as they're consumed, so line numbering and raw text survive.
func (p *Preprocessor) processDefineDirective(sym Symbol) error {
	p.pushSymbol(sym)

	var macroName string
	m := Macro{}
	args := newArgsArray()
	foundArgs := false
	state := defineStart
	argIdx := 0

	for p.ts.InPreprocessor() {
		s := p.ts.Next()
		p.pushWS(s)
		p.prevEnd = s.Range.End.Col
		if s.Kind != Newline && s.Kind != EOF {
			p.curLine.WriteString(s.Text)
		}

		switch state {
		case defineStart:
			switch {
			case macroName == "" && s.Kind == Identifier:
				macroName = s.Text
			case s.Delta.Col == 0 && s.Kind == LParen:
				state = defineArgs
			default:
				m.Body = append(m.Body, s)
				state = defineBody
			}

		case defineArgs:
			if s.Delta.Col > 0 {
				m.Body = append(m.Body, s)
				state = defineBody
				continue
			}
			switch s.Kind {
			case RParen:
				state = defineBody
			case IntegerLiteral:
				foundArgs = true
				n, ok := parseIntLiteral(s.Text)
				if !ok || n < 0 || n >= maxMacroArgs {
					return wrapParseInt(&ParseIntError{Text: s.Text, Range: s.Range}, "parsing #define argument index")
				}
				args[n] = argIdx
			case Comma:
				argIdx++
			case Operator:
				if s.Text != "%" {
					return wrapStructural(&StructuralError{Message: "unexpected symbol " + s.Text + " in macro args", Range: s.Range}, "parsing #define argument list")
				}
			default:
				return wrapStructural(&StructuralError{Message: "unexpected symbol " + s.Text + " in macro args", Range: s.Range}, "parsing #define argument list")
			}

		case defineBody:
			m.Body = append(m.Body, s)
		}
	}

	if foundArgs {
		m.Args = &args
	}
	// The terminating newline was deliberately left unconsumed by the loop
	// above (see TokenStream.InPreprocessor) and flows back through the
	// main loop's ordinary Newline handling, which flushes curLine for us.
	p.macros[macroName] = m
	return nil
}

// processIncludeDirective implements #include/#tryinclude: the single
// Symbol following the directive tag carries the include target, either
// "<...>" (system include) or "\"...\"" (user include). Resolution
// failure is silent — unresolved includes are the host's concern, not
// this preprocessor's.
func (p *Preprocessor) processIncludeDirective(sym Symbol) {
	p.pushSymbol(sym)

	target := p.ts.Next()

	text := []rune(target.Text)
	end := Position{Line: target.Range.Start.Line, Col: target.Range.Start.Col + len(text)}
	rewritten := Symbol{
		Kind:  target.Kind,
		Text:  target.Text,
		Range: Range{Start: target.Range.Start, End: end},
		Delta: target.Delta,
	}
	p.pushSymbol(rewritten)

	lineSpan := rewritten.Range.End.Line - sym.Range.Start.Line
	if lineSpan > 0 {
		p.pushCurrentLine()
		p.prevEnd = 0
		p.pushBlankLines(lineSpan - 1)
	}

	if p.resolver == nil {
		return
	}
	path, ok := parseIncludeTarget(target.Text)
	if !ok {
		return
	}
	uri, ok := p.resolver.Resolve(path, p.uri)
	if !ok {
		return
	}
	included, ok := p.resolver.Preprocess(uri)
	if !ok {
		return
	}
	p.macros.Merge(included)
}
