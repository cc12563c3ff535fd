// internal/errors/errors.go
package errors

import "fmt"

// ErrInvalidRepositoryID is returned when a repository ID in the config is not a positive integer.
type ErrInvalidRepositoryID struct {
	Value string
}

func (e *ErrInvalidRepositoryID) Error() string {
	return fmt.Sprintf("invalid repository id: %q, expected a positive integer", e.Value)
}

// NotFoundError is returned when a repository, commit or branch does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ValidationError is returned when client input is rejected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Message)
}

// UpstreamError wraps a failed or timed out call to the source-control provider.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed database read or write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
