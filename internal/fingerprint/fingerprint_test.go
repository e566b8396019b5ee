package fingerprint

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestOf_StableAcrossNames(t *testing.T) {
	dir := t.TempDir()
	data := []byte("%PDF-1.4 delivery note #42")

	a := filepath.Join(dir, "note.pdf")
	b := filepath.Join(dir, "copy of note (1).pdf")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fa, err := OfFile(a)
	if err != nil {
		t.Fatalf("OfFile(a): %v", err)
	}
	fb, err := OfFile(b)
	if err != nil {
		t.Fatalf("OfFile(b): %v", err)
	}
	if fa != fb {
		t.Fatalf("same bytes, different fingerprints: %s vs %s", fa, fb)
	}
	if fa != Of(data) {
		t.Fatalf("OfFile and Of disagree: %s vs %s", fa, Of(data))
	}
}

func TestOf_DiffersOnContent(t *testing.T) {
	if Of([]byte("a")) == Of([]byte("b")) {
		t.Fatal("different content produced the same fingerprint")
	}
}

func TestOf_KnownVector(t *testing.T) {
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Of(nil); got != want {
		t.Fatalf("Of(nil) = %s, want %s", got, want)
	}
	got, err := OfReader(bytes.NewReader(nil))
	if err != nil || got != want {
		t.Fatalf("OfReader(empty) = %s, %v", got, err)
	}
}
