package spp

// Version string
const Version = "v1"

// Must is a helper for call sites that treat a Process failure as a
// programmer error rather than something to recover from, the same spirit
// as pongo2's own Must(FromFile(...)) shortcut:
//
//	result := spp.Must(spp.NewPreprocessor(uri, src, resolver).Process())
func Must(result Result, err error) Result {
	if err != nil {
		panic(err)
	}
	return result
}

// Preprocess is a convenience entry point for the common case: no include
// resolver, no options beyond the defaults.
func Preprocess(uri, input string) (Result, error) {
	return NewPreprocessor(uri, input, nil).Process()
}
