package spp

import (
	"io"

	"github.com/juju/errors"
	"gopkg.in/yaml.v2"
)

// Options configures how a Preprocessor resolves includes and reports
// diagnostics for a batch of documents. It's the YAML-loadable analogue of
// the construction options a template set takes, generalized from a
// single baseDir into the small set of knobs this preprocessor actually
// needs.
type Options struct {
	// BaseIncludeDir is the root a FilesystemIncludeResolver resolves
	// relative #include targets against.
	BaseIncludeDir string `yaml:"base_include_dir"`

	// IncludeExtensions overrides the default {".inc", ".sp"} search
	// order for extension-less include targets.
	IncludeExtensions []string `yaml:"include_extensions"`

	// ContinueOnUndefinedMacro mirrors this implementation's resolution of
	// the "undefined identifiers in active code" open question: when true
	// (the default), an unresolved identifier is re-emitted verbatim and
	// recorded as a MacroNotFound diagnostic rather than aborting the run.
	ContinueOnUndefinedMacro bool `yaml:"continue_on_undefined_macro"`
}

// DefaultOptions returns the options this package uses when none are
// supplied explicitly.
func DefaultOptions() Options {
	return Options{
		ContinueOnUndefinedMacro: true,
	}
}

// LoadOptions reads and parses a YAML options document from r.
func LoadOptions(r io.Reader) (Options, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Options{}, errors.Annotate(err, "reading options")
	}
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, errors.Annotate(err, "parsing options")
	}
	return opts, nil
}

// NewIncludeResolver builds the default filesystem-backed IncludeResolver
// these Options describe.
func (o Options) NewIncludeResolver() *FilesystemIncludeResolver {
	r := NewFilesystemIncludeResolver(o.BaseIncludeDir)
	r.SourceExtensions = o.IncludeExtensions
	return r
}
