package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fingerprintDoc struct {
	Fingerprint string    `firestore:"fingerprint"`
	SourceName  string    `firestore:"sourceName,omitempty"`
	Strategy    string    `firestore:"strategy,omitempty"`
	ProcessedAt time.Time `firestore:"processedAt"`
}

type firestoreIndex struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewFirestoreIndex returns an index shared across machines, keyed by fingerprint
// as the document ID so Create is an atomic claim.
func NewFirestoreIndex(ctx context.Context, projectID, collection string, logger *slog.Logger) (FingerprintIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore index")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	logger.Info("firestore fingerprint index ready", "project", projectID, "collection", collection)
	return &firestoreIndex{client: client, collection: collection, logger: logger}, nil
}

func (f *firestoreIndex) Has(ctx context.Context, fingerprint string) (bool, error) {
	_, err := f.client.Collection(f.collection).Doc(fingerprint).Get(ctx)
	if err == nil {
		return true, nil
	}
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	f.logger.Error("failed to read fingerprint", "fingerprint", fingerprint, "error", err)
	return false, fmt.Errorf("firestore get: %w", err)
}

func (f *firestoreIndex) Record(ctx context.Context, e IndexEntry) (bool, error) {
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}
	_, err := f.client.Collection(f.collection).Doc(e.Fingerprint).Create(ctx, fingerprintDoc{
		Fingerprint: e.Fingerprint,
		SourceName:  e.SourceName,
		Strategy:    e.Strategy,
		ProcessedAt: e.ProcessedAt,
	})
	if err == nil {
		return true, nil
	}
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	f.logger.Error("failed to record fingerprint", "fingerprint", e.Fingerprint, "error", err)
	return false, fmt.Errorf("firestore create: %w", err)
}

func (f *firestoreIndex) Close() error {
	return f.client.Close()
}
