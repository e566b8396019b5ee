package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/deliverynotes/internal/common"
)

// ErrorKind classifies provider failures. Every kind counts as a vision failure; the kind
// only changes what we log.
type ErrorKind string

const (
	KindQuota     ErrorKind = "quota"
	KindAuth      ErrorKind = "auth"
	KindModel     ErrorKind = "model_not_found"
	KindTimeout   ErrorKind = "timeout"
	KindTransport ErrorKind = "transport"
	KindMalformed ErrorKind = "malformed"
	KindEmpty     ErrorKind = "empty"
)

// ProviderError is returned by every VisionExtractor.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int // HTTP status when known
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// KindOf reports the kind of a provider failure, or "" for other errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return ""
}

// ClassifyHTTP maps an HTTP failure to a kind. OpenAI reports quota and missing
// models in the error body as well as the status.
func ClassifyHTTP(status int, body []byte) ErrorKind {
	b := strings.ToLower(string(body))
	switch {
	case strings.Contains(b, "insufficient_quota"), status == http.StatusTooManyRequests:
		return KindQuota
	case strings.Contains(b, "model_not_found"), status == http.StatusNotFound:
		return KindModel
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	default:
		return KindTransport
	}
}

// ClassifyGRPC maps Google Cloud client errors to a kind.
func ClassifyGRPC(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	switch common.GRPCCode(err) {
	case codes.ResourceExhausted:
		return KindQuota
	case codes.Unauthenticated, codes.PermissionDenied:
		return KindAuth
	case codes.NotFound:
		return KindModel
	case codes.DeadlineExceeded:
		return KindTimeout
	default:
		return KindTransport
	}
}
