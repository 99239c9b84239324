package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a failure in the transcript ingestion pipeline.
type ErrorCode string

const (
	// ErrProvider covers transcript fetch/list failures: non-2xx HTTP
	// status or a GraphQL-level error payload from the provider.
	ErrProvider ErrorCode = "provider_error"

	// ErrSignature covers webhook signature verification failures.
	// These are rejected at the boundary and never reach the orchestrator.
	ErrSignature ErrorCode = "signature_error"

	// ErrChunkPersist covers embedding or chunk-write failures for a
	// single chunk. Sibling chunks and the parent item are retained.
	ErrChunkPersist ErrorCode = "chunk_persist_error"

	// ErrLedgerConflict covers duplicate-id ledger inserts. Treated as a
	// benign race, never surfaced as a failure.
	ErrLedgerConflict ErrorCode = "ledger_conflict"

	// ErrCredential covers the total failure of one credential (e.g., a
	// revoked token). Isolated to that credential's scheduler iteration.
	ErrCredential ErrorCode = "credential_error"

	// ErrEmbedding covers embedding service call failures.
	ErrEmbedding ErrorCode = "embedding_error"

	// ErrContextCancelled covers user or system cancellation.
	ErrContextCancelled ErrorCode = "context_cancelled"

	// ErrTimeout covers operations exceeding their deadline.
	ErrTimeout ErrorCode = "timeout"

	// ErrProcessing covers unclassified processing failures.
	ErrProcessing ErrorCode = "processing_error"
)

// PipelineError is a structured error for ingestion pipeline failures.
type PipelineError struct {
	Code    ErrorCode
	Stage   string
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError builds a PipelineError with an explicit code.
func NewPipelineError(code ErrorCode, stage, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Stage: stage, Message: message, Cause: cause}
}

// ClassifyError inspects an error and returns a *PipelineError with the
// appropriate code. Errors that match no known pattern are classified as
// ErrProcessing.
func ClassifyError(err error, stage string) *PipelineError {
	if err == nil {
		return nil
	}

	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	out := &PipelineError{Stage: stage, Cause: err, Message: err.Error()}

	if errors.Is(err, context.DeadlineExceeded) {
		out.Code = ErrTimeout
		return out
	}
	if errors.Is(err, context.Canceled) {
		out.Code = ErrContextCancelled
		return out
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists) {
		out.Code = ErrLedgerConflict
		return out
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "graphql") || strings.Contains(lower, "provider"):
		out.Code = ErrProvider
	case strings.Contains(lower, "embed"):
		out.Code = ErrEmbedding
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid token"):
		out.Code = ErrCredential
	default:
		out.Code = ErrProcessing
	}
	return out
}

// IsRetryable reports whether the given code represents a transient failure
// that a later sync run is expected to recover from.
func IsRetryable(code ErrorCode) bool {
	switch code {
	case ErrProvider, ErrEmbedding, ErrTimeout:
		return true
	default:
		return false
	}
}
