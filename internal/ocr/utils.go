package ocr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// spill writes data to a temp file keeping the extension of name, so
// extension-driven tools pick the right decoder. Call cleanup when done.
func spill(name string, data []byte) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "dn-doc-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || strings.TrimSpace(base) == "" {
		base = "document"
	}
	out := filepath.Join(tmpDir, base)
	if err := os.WriteFile(out, data, 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("spill document: %w", err)
	}
	return out, cleanup, nil
}
