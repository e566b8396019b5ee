package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID       contextKey = "run_id"
	ContextKeyFingerprint contextKey = "fingerprint"
)

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithFingerprint tags the context with the document currently in flight.
func WithFingerprint(ctx context.Context, fp string) context.Context {
	return context.WithValue(ctx, ContextKeyFingerprint, fp)
}

// FingerprintFromContext returns the in-flight document fingerprint, if any.
func FingerprintFromContext(ctx context.Context) string {
	if fp, ok := ctx.Value(ContextKeyFingerprint).(string); ok {
		return fp
	}
	return ""
}
