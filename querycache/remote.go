package querycache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Resource describes one collection read or write against the remote store.
// Filters are equality matches; the zero value of every field means "not
// constrained".
type Resource struct {
	Collection string
	ID         string
	Filters    map[string]string
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
	// Single marks a query expected to yield exactly one row; adapters
	// unwrap the row so cached values are objects, not one-element arrays.
	Single bool
}

// Action is the kind of remote write.
type Action int

const (
	ActionInsert Action = iota
	ActionUpdate
	ActionUpsert
	ActionDelete
)

// WriteOp is a state-changing operation against the remote store. OnConflict
// names the unique columns an upsert resolves against; empty means the
// primary key.
type WriteOp struct {
	Resource   Resource
	Action     Action
	Payload    any
	OnConflict string
}

// RemoteStore is the request/response contract with the hosted data store.
// Read returns the serialized result rows plus the total row count for the
// unpaginated result set; Write returns the serialized representation of the
// affected rows.
type RemoteStore interface {
	Read(ctx context.Context, res Resource) (data []byte, total int64, err error)
	Write(ctx context.Context, op WriteOp) ([]byte, error)
}

// RequestError classifies a remote failure. Client errors (4xx) are the
// caller's mistake and retrying them cannot succeed; everything else is
// treated as transient.
type RequestError struct {
	Status  int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("remote request failed (status %d): %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("remote request failed (status %d): %s", e.Status, e.Message)
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error { return e.Cause }

// Retryable reports whether retrying the request could succeed.
func (e *RequestError) Retryable() bool {
	return e.Status < http.StatusBadRequest || e.Status > 499
}

// IsRetryable classifies an arbitrary error for the retry policy. Errors
// that are not RequestErrors (timeouts, connection resets) are assumed
// transient.
func IsRetryable(err error) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return err != nil
}

// NotFound builds the not-found request error for single-row reads that
// matched nothing.
func NotFound(message string) *RequestError {
	return &RequestError{Status: http.StatusNotFound, Message: message}
}

// IsNotFound reports whether err is a not-found request error.
func IsNotFound(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Status == http.StatusNotFound
}
