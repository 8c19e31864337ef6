package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks fatal misconfiguration (bad chunk parameters,
	// embedding dimension mismatch). Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrStorageUnavailable marks an unreachable vector index or database.
	// Distinct from an empty-but-successful query.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
