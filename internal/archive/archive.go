// Package archive decides what happens to a document's bytes after processing.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// ObjectStore writes an object only if it does not exist yet.
type ObjectStore interface {
	PutIfAbsent(ctx context.Context, name, contentType string, data []byte) (created bool, err error)
}

type Config struct {
	KeepAttachments bool   // keep downloaded mail attachments on disk
	Prefix          string // object name prefix in the bucket
}

// Archiver uploads processed documents to a bucket (when configured) and
// removes downloaded attachments unless they are to be kept. Local input
// files are never removed.
type Archiver struct {
	store  ObjectStore
	cfg    Config
	logger *slog.Logger
}

// NewArchiver accepts a nil store, in which case nothing is uploaded.
func NewArchiver(store ObjectStore, cfg Config, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{store: store, cfg: cfg, logger: logger}
}

// ObjectName is <prefix><fingerprint>.<ext>, so identical bytes map to one object.
func (a *Archiver) ObjectName(doc entity.SourceDocument) string {
	ext := constants.ExtForMIME(doc.MIMEType)
	if ext == "" {
		ext = constants.NormalizeExt(path.Ext(doc.Name))
	}
	name := a.cfg.Prefix + doc.Fingerprint
	if ext != "" {
		name += "." + ext
	}
	return name
}

// Archive is best effort: failures are returned for logging but never undo processing.
func (a *Archiver) Archive(ctx context.Context, doc entity.SourceDocument) error {
	var errs []error
	if a.store != nil {
		name := a.ObjectName(doc)
		created, err := a.store.PutIfAbsent(ctx, name, doc.MIMEType, doc.Data)
		switch {
		case err != nil:
			a.logger.Warn("archive.upload_failed", "object", name, "error", err)
			errs = append(errs, fmt.Errorf("upload %s: %w", name, err))
		case !created:
			a.logger.Debug("archive.upload_skipped", "object", name, "reason", "exists")
		default:
			a.logger.Info("archive.uploaded", "object", name, "bytes", len(doc.Data))
		}
	}

	if !a.cfg.KeepAttachments && doc.Meta.MessageID != "" && doc.Path != "" {
		if err := os.Remove(doc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.logger.Warn("archive.remove_failed", "path", doc.Path, "error", err)
			errs = append(errs, fmt.Errorf("remove %s: %w", doc.Path, err))
		} else {
			a.logger.Debug("archive.removed", "path", doc.Path)
		}
	}
	return errors.Join(errs...)
}

// GCSStore writes objects to a Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
}

func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{bucket: client.Bucket(bucket)}
}

// PutIfAbsent uses a DoesNotExist precondition; a 412 means the object is already there.
func (s *GCSStore) PutIfAbsent(ctx context.Context, name, contentType string, data []byte) (bool, error) {
	w := s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		if preconditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		if preconditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("finalize gcs object: %w", err)
	}
	return true, nil
}

func preconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
