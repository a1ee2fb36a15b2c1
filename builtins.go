package spp

// registerBuiltinMacros seeds a fresh macro table with the predefined
// object-like macros every translation unit gets for free, the way
// globals.go seeds a fresh rendering Context with RegisterGlobal entries
// before a template ever runs. __LINE__ isn't included here: its value
// depends on where it's referenced, which this flat pre-seeding can't
// express, so a reference to it is left to fall through as an ordinary
// undefined identifier (recorded as a MacroNotFound diagnostic) — callers
// that need it should special-case it in their own identifier lookup.
func registerBuiltinMacros(macros MacroTable, uri string) {
	macros["__FILE__"] = Macro{
		Body: []Symbol{{Kind: StringLiteral, Text: quoteString(uri)}},
	}
}

func quoteString(s string) string {
	return "\"" + s + "\""
}
