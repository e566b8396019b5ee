package source

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// LocalDir walks a directory for delivery notes.
type LocalDir struct {
	root       string
	skipHidden bool
	logger     *slog.Logger
}

func NewLocalDir(root string, logger *slog.Logger) *LocalDir {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalDir{root: root, skipHidden: true, logger: logger}
}

func (l *LocalDir) Name() string { return "local:" + l.root }

// List walks root, filters by allowed extensions, skips hidden entries, and
// returns documents sorted by path.
func (l *LocalDir) List(ctx context.Context) ([]entity.SourceDocument, error) {
	if strings.TrimSpace(l.root) == "" {
		return nil, common.SourceUnavailable("local directory is required", nil)
	}
	st, err := os.Stat(l.root)
	if err != nil {
		return nil, common.SourceUnavailable("stat local directory", err)
	}
	if !st.IsDir() {
		return nil, common.SourceUnavailable(l.root+" is not a directory", nil)
	}

	var paths []string
	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			l.logger.Warn("source.local.walk_error", "path", path, "error", walkErr)
			return nil // continue walking
		}
		if l.skipHidden && path != l.root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !constants.AllowedExt(filepath.Ext(path)) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, common.SourceUnavailable("walk local directory", err)
	}
	sort.Strings(paths)

	docs := make([]entity.SourceDocument, 0, len(paths))
	for _, p := range paths {
		doc, err := LoadFile(p)
		if err != nil {
			l.logger.Warn("source.local.read_failed", "path", p, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	l.logger.Info("source.local.listed", "root", l.root, "documents", len(docs))
	return docs, nil
}
