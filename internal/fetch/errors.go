// Package fetch executes fetch requests against the external point-cloud
// pipeline, retrying transient failures and running batches concurrently.
package fetch

import (
	"errors"
	"fmt"

	"github.com/banshee-data/elevation.report/internal/request"
)

// Kind separates failures worth retrying from those that are not.
type Kind int

const (
	Permanent Kind = iota
	Transient
)

func (k Kind) String() string {
	if k == Transient {
		return "transient"
	}
	return "permanent"
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient tags err as retryable. A nil err stays nil.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err, or anything it wraps, was marked with
// MarkTransient.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// FetchError is the final failure of one request.
type FetchError struct {
	Request  *request.FetchRequest
	Kind     Kind
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): %v", e.Request, e.Kind, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// asFetchError returns err as a *FetchError, wrapping it when it is not one.
func asFetchError(req *request.FetchRequest, err error, attempts int) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	kind := Permanent
	if IsTransient(err) {
		kind = Transient
	}
	return &FetchError{Request: req, Kind: kind, Attempts: attempts, Err: err}
}
