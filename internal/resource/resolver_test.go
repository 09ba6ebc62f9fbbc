package resource

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func writeAsset(t *testing.T, root, app, kind, locale, name string, data []byte) string {
	t.Helper()
	dir := filepath.Join(root, app, kind)
	if locale != "" {
		dir = filepath.Join(dir, locale)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveLocaleFirstThenAppScoped(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "clock", "audio", "fr", "tick.wav", []byte("fr-tick"))
	writeAsset(t, root, "clock", "audio", "", "tick.wav", []byte("default-tick"))

	r := NewFSResolver([]string{root}, 1)

	assets, err := r.Resolve("clock/tick.wav", "audio", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(assets[0].Data()) != "fr-tick" {
		t.Errorf("expected locale-scoped asset to win, got %q", assets[0].Data())
	}

	assets, err = r.Resolve("clock/tick.wav", "audio", "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(assets[0].Data()) != "default-tick" {
		t.Errorf("expected fallback to app-scoped default, got %q", assets[0].Data())
	}
}

func TestResolveSemicolonFallbackTakesFirstMatch(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "clock", "audio", "", "b.wav", []byte("b"))

	r := NewFSResolver([]string{root}, 1)
	assets, err := r.Resolve("clock/missing.wav;clock/b.wav", "audio", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assets) != 1 || string(assets[0].Data()) != "b" {
		t.Fatalf("expected single asset from second fallback, got %v", assets)
	}
}

func TestResolveRejectsAbsolutePath(t *testing.T) {
	r := NewFSResolver([]string{t.TempDir()}, 1)
	if _, err := r.Resolve("/etc/passwd", "audio", ""); err == nil {
		t.Fatalf("expected absolute path to be rejected")
	}
}

func TestResolveWildcardPicksAmongMatches(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "clock", "audio", "", "one.wav", []byte("1"))
	writeAsset(t, root, "clock", "audio", "", "two.wav", []byte("2"))

	r := NewFSResolver([]string{root}, 1)
	r.Rand = rand.New(rand.NewSource(42))

	assets, err := r.Resolve("*clock/*.wav", "audio", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("expected exactly one asset chosen from the wildcard match set")
	}
}

func TestResolveNoMatchReturnsInvalidResource(t *testing.T) {
	r := NewFSResolver([]string{t.TempDir()}, 1)
	if _, err := r.Resolve("clock/nope.wav", "audio", ""); err == nil {
		t.Fatalf("expected an error for an unmatched reference")
	}
}
