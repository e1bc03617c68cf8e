package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the node is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidKind means the operation is not valid for the node's kind.
	ErrInvalidKind = errors.New("invalid kind")

	// ErrInvalidName means a node name is empty or contains a separator.
	ErrInvalidName = errors.New("invalid name")

	// ErrConflict means a sibling with the same name already exists.
	ErrConflict = errors.New("name already taken")

	// ErrStorageFailure wraps I/O errors from either store.
	ErrStorageFailure = errors.New("storage failure")
)

// Failure wraps err so that it matches ErrStorageFailure.
func Failure(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// ContentError reports that the metadata write of an operation committed
// but the following content-store write failed. The two stores are out of
// sync until the caller rolls back or a reconcile sweep repairs the entry.
type ContentError struct {
	Op     string
	Path   string
	NodeID string
	Err    error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("%s %s: content store: %v", e.Op, e.Path, e.Err)
}

func (e *ContentError) Unwrap() error { return e.Err }

// Is makes a ContentError match ErrStorageFailure.
func (e *ContentError) Is(target error) bool {
	return target == ErrStorageFailure
}
