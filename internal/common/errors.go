package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Run-level and per-document error taxonomy.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSourceUnavailable = errors.New("document source unavailable")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrSinkUnavailable   = errors.New("output sink unavailable")
	ErrSinkWriteFailed   = errors.New("output sink write failed")
	ErrIndexUnavailable  = errors.New("fingerprint index unavailable")
)

// Error codes carried on AppError.
const (
	CodeConfig            = "CONFIG_ERROR"
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeSinkUnavailable   = "SINK_UNAVAILABLE"
	CodeSinkWriteFailed   = "SINK_WRITE_FAILED"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// SourceUnavailable wraps err so errors.Is(err, ErrSourceUnavailable) holds.
func SourceUnavailable(message string, err error) error {
	return NewAppError(CodeSourceUnavailable, message, errors.Join(ErrSourceUnavailable, err))
}

// SinkUnavailable wraps err so errors.Is(err, ErrSinkUnavailable) holds.
func SinkUnavailable(message string, err error) error {
	return NewAppError(CodeSinkUnavailable, message, errors.Join(ErrSinkUnavailable, err))
}

// SinkWriteFailed wraps err so errors.Is(err, ErrSinkWriteFailed) holds.
func SinkWriteFailed(message string, err error) error {
	return NewAppError(CodeSinkWriteFailed, message, errors.Join(ErrSinkWriteFailed, err))
}

// GRPCCode extracts the gRPC status code from errors returned by Google Cloud clients.
// Non-status errors report codes.Unknown.
func GRPCCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Unknown
}
