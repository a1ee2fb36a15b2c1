package spp

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/juju/errors"
)

// IncludeResolver is the collaborator that turns an #include/#tryinclude
// target into a resolved document and, recursively, that document's macro
// table. The directive processor never touches a filesystem or a document
// store directly — it only ever goes through this interface, the same way
// a tag handler only ever goes through a TemplateLoader.
type IncludeResolver interface {
	// Resolve turns a textual include target (the path between <...> or
	// "...") plus the including document's own URI into a canonical URI.
	// It returns ok=false when the target can't be located; that failure is
	// silent at the preprocessor layer, and surfaced (if at all) by whatever
	// host reports unresolved includes.
	Resolve(target string, fromURI string) (uri string, ok bool)

	// Preprocess recursively preprocesses the document at uri and returns
	// its resulting macro table. Implementations must memoize by uri so
	// that an include cycle terminates instead of recursing forever.
	Preprocess(uri string) (MacroTable, bool)
}

// FilesystemIncludeResolver is a default IncludeResolver backed by a
// directory on disk, adapted from a local filesystem template loader:
// relative targets resolve against BaseDir, absolute targets pass through
// unchanged. It also memoizes completed preprocess results with the same
// mutex+map pattern a template set uses for its own document cache, which
// is what breaks include cycles.
type FilesystemIncludeResolver struct {
	BaseDir string

	// SourceExtensions is tried in order when a target is given without an
	// extension (SourcePawn's own convention of #include <foo> meaning
	// foo.inc). Defaults to {".inc", ".sp"} when nil.
	SourceExtensions []string

	mu    sync.Mutex
	cache map[string]MacroTable
}

// NewFilesystemIncludeResolver returns a resolver rooted at baseDir.
func NewFilesystemIncludeResolver(baseDir string) *FilesystemIncludeResolver {
	return &FilesystemIncludeResolver{
		BaseDir: baseDir,
		cache:   make(map[string]MacroTable),
	}
}

func (r *FilesystemIncludeResolver) extensions() []string {
	if len(r.SourceExtensions) > 0 {
		return r.SourceExtensions
	}
	return []string{".inc", ".sp"}
}

// Resolve mirrors LocalFilesystemLoader.Abs: an absolute target is used
// as-is, a relative one is joined against BaseDir (falling back to the
// including document's own directory when BaseDir is empty).
func (r *FilesystemIncludeResolver) Resolve(target string, fromURI string) (string, bool) {
	candidate := target
	if !filepath.IsAbs(candidate) {
		base := r.BaseDir
		if base == "" {
			base = filepath.Dir(fromURI)
		}
		candidate = filepath.Join(base, target)
	}

	if hasSourcepawnExt(candidate) {
		if fileExists(candidate) {
			return candidate, true
		}
		return "", false
	}

	for _, ext := range r.extensions() {
		if withExt := candidate + ext; fileExists(withExt) {
			return withExt, true
		}
	}
	return "", false
}

// Preprocess reads uri, runs a fresh Preprocessor over it with this same
// resolver wired in (so transitive includes resolve the same way), and
// caches the resulting macro table keyed by uri so a diamond or cyclic
// include graph only pays the cost once and never recurses forever.
func (r *FilesystemIncludeResolver) Preprocess(uri string) (MacroTable, bool) {
	r.mu.Lock()
	if cached, ok := r.cache[uri]; ok {
		r.mu.Unlock()
		logger.Tracef("include cache hit for %s", uri)
		return cached.Clone(), true
	}
	// Mark in-progress before releasing the lock and doing file IO, so a
	// cycle (a includes b includes a) sees an empty table on the second
	// visit instead of recursing.
	r.cache[uri] = NewMacroTable()
	r.mu.Unlock()

	data, err := os.ReadFile(uri)
	if err != nil {
		logger.Errorf("%v", wrapInclude(err, "reading include "+uri))
		return nil, false
	}

	p := NewPreprocessor(uri, string(data), r)
	result, err := p.Process()
	if err != nil {
		logger.Errorf("%v", wrapInclude(err, "preprocessing include "+uri))
		return nil, false
	}

	r.mu.Lock()
	r.cache[uri] = result.Macros
	r.mu.Unlock()
	return result.Macros.Clone(), true
}

func hasSourcepawnExt(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".inc" || ext == ".sp"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// parseIncludeTarget splits the raw text of the symbol following #include/
// #tryinclude into its target path. ok is false when the text is neither
// angle-bracketed (a system include) nor quoted (a user include).
func parseIncludeTarget(text string) (target string, ok bool) {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && text[0] == '<' && text[len(text)-1] == '>' {
		return text[1 : len(text)-1], true
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return text[1 : len(text)-1], true
	}
	return "", false
}

// wrapInclude annotates a lower-level IO or preprocessing error with the
// include it occurred in, using the same juju/errors Annotate idiom as the
// rest of this package, before logging it. Preprocess's own return contract
// to the directive processor stays silent-on-failure (bool, not error) —
// this is only for whatever visibility logger provides.
func wrapInclude(err error, context string) error {
	return errors.Annotate(err, context)
}
