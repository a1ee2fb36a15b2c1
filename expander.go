package spp

// workItem is one pending Symbol on the expander's internal work stack: the
// symbol to process, the whitespace delta it should carry if it ends up
// re-emitted verbatim, and how many macro-expansion levels deep it is.
type workItem struct {
	sym   Symbol
	delta Delta
	depth int
}

// maxExpansionDepth caps recursive/self-referential macro expansion. A
// macro whose body (transitively) references itself would otherwise expand
// forever; at this depth the work item is simply dropped rather than
// expanded further.
const maxExpansionDepth = 5

// expandSymbol expands head (already known to be a macro reference) and
// every macro reference nested inside its expansion, appending the fully
// expanded token sequence to out in reverse order, so that popping out from
// its end (as the main driver loop does with its expansion stack) yields
// the tokens left to right. argsStack is a
// LIFO replay buffer shared across every argument-collection call made
// during this single expandSymbol invocation: collecting a function-like
// macro's arguments can over-consume tokens belonging to a macro call
// nested inside one of those arguments, and argsStack is how those
// over-consumed tokens get replayed instead of lost when that nested call
// is later encountered on the work stack.
//
// A reference to an unknown macro is always appended to notFound (when
// notFound is non-nil) so the caller can turn it into a diagnostic. When
// allowUndefinedMacros is false that also aborts expansion immediately
// with the same *MacroNotFoundError; when true (the condition evaluator's
// case), the identifier is instead re-emitted verbatim and expansion
// continues — an unresolved name there is simply "not defined", not a
// reason to give up on the rest of the expression.
func expandSymbol(ts *TokenStream, macros MacroTable, head Symbol, out *[]Symbol, notFound *[]*MacroNotFoundError, allowUndefinedMacros bool) error {
	stack := []workItem{{sym: head, delta: head.Delta, depth: 0}}
	var argsStack []Symbol

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sym, delta, depth := item.sym, item.delta, item.depth

		if depth >= maxExpansionDepth {
			continue
		}

		switch sym.Kind {
		case Identifier:
			m, ok := macros[sym.Text]
			if !ok {
				e := &MacroNotFoundError{MacroName: sym.Text, Range: sym.Range}
				if notFound != nil {
					*notFound = append(*notFound, e)
				}
				if allowUndefinedMacros {
					sym.Delta = delta
					*out = append(*out, sym)
					continue
				}
				return e
			}
			logger.Tracef("expanding %s at depth %d", sym.Text, depth)
			if !m.IsFunctionLike() {
				pushObjectBody(&stack, m, sym, depth)
				continue
			}
			args := collectArguments(ts, &argsStack)
			if err := pushFunctionBody(&stack, args, m, sym, depth); err != nil {
				return err
			}

		case StringLiteral, CharLiteral:
			text := sym.Text
			end := Position{Line: sym.Range.Start.Line, Col: sym.Range.Start.Col + len([]rune(text))}
			*out = append(*out, Symbol{
				Kind:  sym.Kind,
				Text:  text,
				Range: Range{Start: sym.Range.Start, End: end},
				Delta: sym.Delta,
			})

		case Newline, LineContinuation, LineComment, BlockComment:
			// Discarded: macro bodies never carry the directive-line
			// scaffolding that produced them into the expansion.

		default:
			sym.Delta = delta
			*out = append(*out, sym)
		}
	}
	return nil
}

// pushObjectBody pushes an object-like macro's body onto stack in the
// forward order its symbols appear; because stack is popped LIFO, the body
// is processed last symbol first, so out receives it in reverse order and
// popping out from its end gives back the body's left-to-right order.
func pushObjectBody(stack *[]workItem, m Macro, head Symbol, depth int) {
	for i, child := range m.Body {
		d := child.Delta
		if i == 0 {
			d = head.Delta
		}
		*stack = append(*stack, workItem{sym: child, delta: d, depth: depth + 1})
	}
}

// pushFunctionBody substitutes %0..%9 argument references in a
// function-like macro's body against the arguments collected for this call,
// then pushes the resulting sequence the same way pushObjectBody does.
func pushFunctionBody(stack *[]workItem, args [maxMacroArgs][]Symbol, m Macro, head Symbol, depth int) error {
	consecutivePercent := 0
	for i, child := range m.Body {
		isPercent := child.Kind == Operator && child.Text == "%"
		if isPercent {
			consecutivePercent++
			if consecutivePercent%2 == 1 {
				// Tentatively push the '%' itself; if the following token
				// turns out to be an argument index, it gets popped back
				// off below. Keeping only odd-numbered '%' runs is what
				// makes "%%" (an escaped, literal percent) collapse to a
				// single emitted '%' instead of a substitution point.
				d := child.Delta
				if i == 0 {
					d = head.Delta
				}
				*stack = append(*stack, workItem{sym: child, delta: d, depth: depth + 1})
			}
			continue
		}

		if child.Kind == IntegerLiteral && consecutivePercent%2 == 1 {
			*stack = (*stack)[:len(*stack)-1] // drop the tentative '%'
			consecutivePercent = 0

			literal, ok := parseIntLiteral(child.Text)
			if !ok || literal < 0 || literal >= maxMacroArgs {
				return &ParseIntError{Text: child.Text, Range: child.Range}
			}
			formalIdx := m.Args[literal]
			if formalIdx < 0 || formalIdx >= maxMacroArgs {
				return &ParseIntError{Text: child.Text, Range: child.Range}
			}
			for j, argSym := range args[formalIdx] {
				d := argSym.Delta
				if j == 0 {
					d = head.Delta
				}
				*stack = append(*stack, workItem{sym: argSym, delta: d, depth: depth + 1})
			}
			continue
		}

		consecutivePercent = 0
		d := child.Delta
		if i == 0 {
			d = head.Delta
		}
		*stack = append(*stack, workItem{sym: child, delta: d, depth: depth + 1})
	}
	return nil
}

// collectArguments reads one parenthesized, comma-separated argument list
// from ts (or, preferentially, from argsStack if a prior call within the
// same expandSymbol invocation left tokens there to replay) and buckets it
// into up to ten argument slots by position. The opening '(' must already
// have been the very next token; collectArguments consumes through the
// matching closing ')'.
//
// Tokens belonging to a nested parenthesized expression (paren depth > 1)
// are bucketed into the enclosing argument *and* queued onto argsStack, so
// that if that nested text turns out to itself be a function-like macro
// call, its own collectArguments call replays those tokens instead of
// re-reading (and mis-splitting) them from ts.
func collectArguments(ts *TokenStream, argsStack *[]Symbol) [maxMacroArgs][]Symbol {
	var args [maxMacroArgs][]Symbol
	parenDepth := 0
	argIdx := 0
	var newArgsStack []Symbol

collectLoop:
	for {
		var sub Symbol
		if len(*argsStack) > 0 {
			sub = (*argsStack)[len(*argsStack)-1]
			*argsStack = (*argsStack)[:len(*argsStack)-1]
		} else {
			sub = ts.Next()
			if sub.Kind == EOF {
				break collectLoop
			}
		}

		switch sub.Kind {
		case LParen:
			parenDepth++
		case RParen:
			if parenDepth > 1 {
				newArgsStack = append(newArgsStack, sub)
			}
			parenDepth--
			if parenDepth == 0 {
				break collectLoop
			}
		case Comma:
			if parenDepth == 1 {
				argIdx++
			}
		default:
			if parenDepth == 1 && argIdx < maxMacroArgs {
				args[argIdx] = append(args[argIdx], sub)
			}
		}

		if parenDepth > 1 {
			newArgsStack = append(newArgsStack, sub)
		}
	}

	for i, j := 0, len(newArgsStack)-1; i < j; i, j = i+1, j-1 {
		newArgsStack[i], newArgsStack[j] = newArgsStack[j], newArgsStack[i]
	}
	*argsStack = append(*argsStack, newArgsStack...)
	return args
}
