package spp

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseIncludeTargetAngleAndQuoted(t *testing.T) {
	cases := map[string]string{
		"<foo.inc>":  "foo.inc",
		"\"foo.inc\"": "foo.inc",
	}
	for text, want := range cases {
		got, ok := parseIncludeTarget(text)
		if !ok || got != want {
			t.Errorf("parseIncludeTarget(%q) = %q, %v; want %q, true", text, got, ok, want)
		}
	}
	if _, ok := parseIncludeTarget("nonsense"); ok {
		t.Errorf("expected parseIncludeTarget to reject an unbracketed, unquoted target")
	}
}

func TestFilesystemIncludeResolverResolveExtensionFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "foo.inc"), []byte("#define X 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r := NewFilesystemIncludeResolver(dir)
	uri, ok := r.Resolve("foo", "unused.sp")
	if !ok {
		t.Fatalf("expected Resolve to find foo.inc via extension fallback")
	}
	if want := filepath.Join(dir, "foo.inc"); uri != want {
		t.Errorf("Resolve uri = %q, want %q", uri, want)
	}
}

func TestFilesystemIncludeResolverResolveMissingTarget(t *testing.T) {
	dir := t.TempDir()
	r := NewFilesystemIncludeResolver(dir)
	if _, ok := r.Resolve("missing", "unused.sp"); ok {
		t.Errorf("expected Resolve to fail for a target with no matching file")
	}
}

func TestFilesystemIncludeResolverPreprocessMergesMacros(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.inc"), []byte("#define M 7\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r := NewFilesystemIncludeResolver(dir)
	mainURI := filepath.Join(dir, "main.sp")
	p := NewPreprocessor(mainURI, "#include <a.inc>\nM\n", r)
	res, err := p.Process()
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if res.Macros["M"].Body[0].Text != "7" {
		t.Fatalf("expected the merged macro table to contain M -> 7, got %+v", res.Macros["M"])
	}
	if !containsLine(res.Text, "7") {
		t.Errorf("Text = %q, expected M's expansion on its own line", res.Text)
	}
}

func TestFilesystemIncludeResolverPreprocessBreaksCycle(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.inc"), []byte("#include <b.inc>\n#define A 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile a.inc: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.inc"), []byte("#include <a.inc>\n#define B 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile b.inc: %v", err)
	}
	r := NewFilesystemIncludeResolver(dir)

	done := make(chan MacroTable, 1)
	go func() {
		macros, ok := r.Preprocess(filepath.Join(dir, "a.inc"))
		if !ok {
			done <- nil
			return
		}
		done <- macros
	}()

	select {
	case macros := <-done:
		if macros == nil {
			t.Fatalf("expected Preprocess to succeed despite the include cycle")
		}
		if macros["A"].Body[0].Text != "1" {
			t.Errorf("expected A -> 1 in the merged table, got %+v", macros["A"])
		}
		if macros["B"].Body[0].Text != "2" {
			t.Errorf("expected B -> 2 in the merged table, got %+v", macros["B"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Preprocess did not return; the include cycle was not broken")
	}
}
