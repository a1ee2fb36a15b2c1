package spp

import (
	"strings"
	"unicode/utf8"
)

const eof rune = -1

// directiveNames maps a directive keyword (without the leading '#') to its
// Directive classification.
var directiveNames = map[string]Directive{
	"if":         DirIf,
	"elseif":     DirElseif,
	"else":       DirElse,
	"endif":      DirEndif,
	"define":     DirDefine,
	"undef":      DirUndef,
	"include":    DirInclude,
	"tryinclude": DirTryInclude,
	"pragma":     DirPragma,
	"error":      DirError,
	"warning":    DirWarning,
	"assert":     DirAssert,
}

// operatorSymbols lists recognized operator/punctuation runs, longest first
// so that e.g. "<<=" is matched before "<<" and "<<" before "<". This
// mirrors the ordering discipline of longest-match operator tables generally.
var operatorSymbols = []string{
	// 3-char
	"<<=", ">>=", "...",
	// 2-char
	"==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"<<", ">>", "::", "..",
	// 1-char
	"+", "-", "*", "/", "%", "=", "<", ">", "!", "~",
	"&", "|", "^", "?", ":", ";", ".", "{", "}", "[", "]",
}

const identStartChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_"
const identChars = identStartChars + "0123456789"
const digitChars = "0123456789"
const hexChars = digitChars + "abcdefABCDEF"

// lexerStateFn is one state in the scanner's state machine, following the
// same style as a classic Pike-lexer: each state processes some input and
// returns the next state, or nil once the whole input has been scanned.
type lexerStateFn func(l *lexer) lexerStateFn

// lexer scans SourcePawn source text into a flat slice of Symbols, the way
// a template engine eagerly tokenizes a whole document into []*Token before
// the parser ever runs. Preprocessing a SourcePawn document is a
// synchronous, single-pass operation, so there is no benefit
// to a lazily-pulled token stream here.
type lexer struct {
	name  string
	input string

	pos   int // byte offset of the scan cursor
	start int // byte offset where the current token began
	width int // width in bytes of the last rune returned by next()

	line, col           int // current scan position (0-based)
	startLine, startCol int // position where the current token began

	// lineCol0 is the running "previous end column" used to compute
	// Delta.Col, reset to 0 at the start of every physical line — this is
	// what makes whitespace reconstruction in the directive processor
	// correct without it having to know anything about the lexer's internal
	// bookkeeping.
	lineCol0 int

	atLineStart    bool // true until a non-space rune is seen on this line
	inDirective    bool // true while still scanning the current directive's line
	pendingInclude bool // true immediately after an #include/#tryinclude tag

	symbols   []Symbol
	inPreproc []bool // parallel to symbols: was this symbol part of an unterminated directive line
}

// Lex tokenizes a complete SourcePawn source string and returns the
// resulting Symbol stream. It never fails: malformed input (an unterminated
// string, say) degrades to a best-effort token rather than aborting, since
// downstream diagnostics — not lexical errors — are this preprocessor's
// error-reporting surface (the preprocessor only ever raises MacroNotFound,
// ParseInt, Evaluation and Structural errors, none of which are lexical).
func Lex(name, input string) *TokenStream {
	l := &lexer{
		name:        name,
		input:       input,
		line:        0,
		col:         0,
		atLineStart: true,
		symbols:     make([]Symbol, 0, len(input)/4+16),
	}
	l.run()
	return &TokenStream{symbols: l.symbols, inPreproc: l.inPreproc}
}

func (l *lexer) value() string { return l.input[l.start:l.pos] }

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	l.col++
	return r
}

func (l *lexer) backup() {
	l.pos -= l.width
	l.col--
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:])
	return r
}

func (l *lexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}

func (l *lexer) markStart() {
	l.start = l.pos
	l.startLine = l.line
	l.startCol = l.col
}

// emit appends a Symbol of the given kind for the text scanned since
// markStart, computing its Delta against lineCol0 and advancing lineCol0 to
// the symbol's end column (except across a line break, which resets it).
func (l *lexer) emit(kind TokenKind) {
	l.emitDirective(kind, NotADirective)
}

func (l *lexer) emitDirective(kind TokenKind, dir Directive) {
	dcol := l.startCol - l.lineCol0
	sym := Symbol{
		Kind:      kind,
		Directive: dir,
		Text:      l.value(),
		Range: Range{
			Start: Position{Line: l.startLine, Col: l.startCol},
			End:   Position{Line: l.line, Col: l.col},
		},
		Delta: Delta{Line: l.startLine - l.line, Col: dcol},
	}
	l.symbols = append(l.symbols, sym)
	l.inPreproc = append(l.inPreproc, l.inDirective)
	if kind != Newline {
		l.lineCol0 = l.col
	}
}

func (l *lexer) emitNewline() {
	l.emitDirective(Newline, NotADirective)
	l.line++
	l.col = 0
	l.lineCol0 = 0
	l.atLineStart = true
	l.inDirective = false
}

// run scans the entire input, appending Symbols (ending with exactly one
// EOF Symbol) to l.symbols.
func (l *lexer) run() {
	for state := lexStart; state != nil; {
		state = state(l)
	}
}

func lexStart(l *lexer) lexerStateFn {
	for {
		l.markStart()
		r := l.peek()

		switch {
		case r == eof:
			l.emit(EOF)
			return nil
		case r == '\n':
			l.next()
			l.emitNewline()
			continue
		case r == '\\' && l.peekAt(1) == '\n':
			l.next()
			l.next()
			l.emit(LineContinuation)
			l.line++
			l.col = 0
			l.lineCol0 = 0
			continue
		case r == ' ' || r == '\t' || r == '\r':
			l.next()
			for strings.ContainsRune(" \t\r", l.peek()) {
				l.next()
			}
			continue
		case r == '#' && l.atLineStart && !l.inDirective:
			return lexDirective
		case l.pendingInclude:
			return lexIncludeTarget
		case strings.HasPrefix(l.input[l.pos:], "//"):
			return lexLineComment
		case strings.HasPrefix(l.input[l.pos:], "/*"):
			return lexBlockComment
		case strings.ContainsRune(identStartChars, r):
			return lexIdentifier
		case strings.ContainsRune(digitChars, r):
			return lexNumber
		case r == '"':
			return lexString
		case r == '\'':
			return lexChar
		case r == '(':
			l.next()
			l.emit(LParen)
			l.atLineStart = false
			continue
		case r == ')':
			l.next()
			l.emit(RParen)
			l.atLineStart = false
			continue
		case r == ',':
			l.next()
			l.emit(Comma)
			l.atLineStart = false
			continue
		}

		if sym, ok := matchOperator(l); ok {
			l.pos += len(sym)
			l.col += len([]rune(sym))
			l.emit(Operator)
			l.atLineStart = false
			continue
		}

		// Unrecognized byte: consume it as a one-rune operator so the
		// scanner always makes progress; downstream components that don't
		// recognize it simply pass it through verbatim.
		l.next()
		l.emit(Operator)
		l.atLineStart = false
	}
}

func matchOperator(l *lexer) (string, bool) {
	rest := l.input[l.pos:]
	for _, sym := range operatorSymbols {
		if strings.HasPrefix(rest, sym) {
			return sym, true
		}
	}
	return "", false
}

func lexDirective(l *lexer) lexerStateFn {
	l.next() // consume '#'
	for strings.ContainsRune(" \t", l.peek()) {
		l.next()
	}
	nameStart := l.pos
	for strings.ContainsRune(identStartChars+"0123456789", l.peek()) {
		l.next()
	}
	name := l.input[nameStart:l.pos]
	dir, known := directiveNames[name]
	if !known {
		dir = DirOther
	}
	l.inDirective = true
	l.atLineStart = false
	l.emitDirective(PreprocDir, dir)
	l.pendingInclude = dir == DirInclude || dir == DirTryInclude
	return lexStart
}

// lexIncludeTarget scans the single symbol following an #include or
// #tryinclude directive tag ("the single symbol that follows
// the directive"). A "<...>" system-include target is captured whole,
// including the angle brackets; a quoted user-include target is lexed as an
// ordinary string literal so its escaping rules stay consistent with every
// other string in the language.
func lexIncludeTarget(l *lexer) lexerStateFn {
	l.pendingInclude = false
	for strings.ContainsRune(" \t", l.peek()) {
		l.next()
	}
	l.markStart()
	if l.peek() == '<' {
		for {
			r := l.next()
			if r == eof || r == '\n' {
				l.backup()
				break
			}
			if r == '>' {
				break
			}
		}
		l.emit(StringLiteral)
		return lexStart
	}
	return lexStart
}

func lexLineComment(l *lexer) lexerStateFn {
	l.pos += 2
	l.col += 2
	for {
		r := l.peek()
		if r == eof || r == '\n' {
			break
		}
		l.next()
	}
	l.emit(LineComment)
	l.atLineStart = false
	return lexStart
}

func lexBlockComment(l *lexer) lexerStateFn {
	l.pos += 2
	l.col += 2
	for {
		if strings.HasPrefix(l.input[l.pos:], "*/") {
			l.pos += 2
			l.col += 2
			break
		}
		r := l.next()
		if r == eof {
			break
		}
		if r == '\n' {
			l.line++
			l.col = 0
		}
	}
	l.emit(BlockComment)
	l.atLineStart = false
	return lexStart
}

func lexIdentifier(l *lexer) lexerStateFn {
	l.acceptRun(identChars)
	l.emit(Identifier)
	l.atLineStart = false
	return lexStart
}

func lexNumber(l *lexer) lexerStateFn {
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.next()
		l.next()
		l.acceptRun(hexChars)
	} else {
		l.acceptRun(digitChars)
	}
	l.emit(IntegerLiteral)
	l.atLineStart = false
	return lexStart
}

func lexString(l *lexer) lexerStateFn {
	l.next() // opening quote
	for {
		r := l.next()
		if r == eof || r == '\n' {
			l.backup()
			break
		}
		if r == '\\' {
			if l.peek() != eof {
				l.next()
			}
			continue
		}
		if r == '"' {
			break
		}
	}
	l.emit(StringLiteral)
	l.atLineStart = false
	return lexStart
}

func lexChar(l *lexer) lexerStateFn {
	l.next() // opening quote
	for {
		r := l.next()
		if r == eof || r == '\n' {
			l.backup()
			break
		}
		if r == '\\' {
			if l.peek() != eof {
				l.next()
			}
			continue
		}
		if r == '\'' {
			break
		}
	}
	l.emit(CharLiteral)
	l.atLineStart = false
	return lexStart
}

// TokenStream is a forward-only cursor over a Lex result, used by the
// directive processor and macro expander exactly as a token-cursor Parser
// indexes through a []*Token (parser.go), except here consumption is
// strictly sequential: nothing in this package ever needs to backtrack a
// Symbol once consumed.
type TokenStream struct {
	symbols   []Symbol
	inPreproc []bool
	idx       int
}

// Next returns the next Symbol and advances the cursor. Once the stream is
// exhausted (the lexer's own EOF Symbol included) it keeps returning a
// zero-range EOF Symbol.
func (ts *TokenStream) Next() Symbol {
	if ts.idx >= len(ts.symbols) {
		return Symbol{Kind: EOF}
	}
	sym := ts.symbols[ts.idx]
	ts.idx++
	return sym
}

// InPreprocessor reports whether the symbol about to be returned by Next is
// still part of the current, unterminated preprocessor directive line —
// true for every symbol from the directive tag up to (but never including)
// the newline that ends it, so a caller collecting a directive's own
// symbols in a "for ts.InPreprocessor() { ts.Next() }" loop stops one
// symbol short of that newline and leaves it for the ordinary Newline
// handling in the main loop.
func (ts *TokenStream) InPreprocessor() bool {
	if ts.idx >= len(ts.symbols) {
		return false
	}
	next := ts.symbols[ts.idx]
	return ts.inPreproc[ts.idx] && next.Kind != Newline && next.Kind != EOF
}
