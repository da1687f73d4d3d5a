package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	ErrUnavailable  = errors.New("ai provider unavailable")
)

// Kind classifies failures of the ingestion and retrieval pipeline.
type Kind int

const (
	KindUnknown Kind = iota
	KindExtraction
	KindEmbedding
	KindVectorStore
	KindTimeout
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindExtraction:
		return "extraction"
	case KindEmbedding:
		return "embedding"
	case KindVectorStore:
		return "vector_store"
	case KindTimeout:
		return "timeout"
	case KindConsistency:
		return "consistency"
	default:
		return "unknown"
	}
}

// Error is a tagged pipeline failure. Retryable marks transient provider or
// network conditions that a caller may choose to retry.
type Error struct {
	Kind      Kind
	Op        string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Extraction(op string, err error) error {
	return &Error{Kind: KindExtraction, Op: op, Err: err}
}

func Embedding(op string, retryable bool, err error) error {
	return &Error{Kind: KindEmbedding, Op: op, Retryable: retryable, Err: err}
}

func VectorStore(op string, retryable bool, err error) error {
	return &Error{Kind: KindVectorStore, Op: op, Retryable: retryable, Err: err}
}

func Timeout(op string, err error) error {
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

func Consistency(op string, err error) error {
	return &Error{Kind: KindConsistency, Op: op, Err: err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
