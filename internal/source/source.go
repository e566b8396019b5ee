// Package source discovers delivery-note documents.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/fingerprint"
)

// Source yields documents in a stable order. A returned error means the source
// as a whole is unavailable; unreadable single documents are logged and skipped.
type Source interface {
	Name() string
	List(ctx context.Context) ([]entity.SourceDocument, error)
}

// LoadFile reads one file into a SourceDocument.
func LoadFile(path string) (entity.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.SourceDocument{}, fmt.Errorf("read %s: %w", path, err)
	}
	return entity.SourceDocument{
		Name:        filepath.Base(path),
		Path:        path,
		Data:        data,
		MIMEType:    constants.MIMEForName(path),
		Fingerprint: fingerprint.Of(data),
	}, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
