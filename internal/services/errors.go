package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream tags failures of the remote places search.
	ErrUpstream = errors.New("upstream search failed")
	// ErrPersistence tags failures reading or writing the search store.
	ErrPersistence = errors.New("search store failure")
	// ErrNotFound is returned when the requested search query does not exist.
	ErrNotFound = errors.New("query not found")
)

func tag(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Cause returns the error a sentinel was attached to, or err itself when it
// carries no tag.
func Cause(err error) error {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := multi.Unwrap(); len(errs) == 2 {
			return errs[1]
		}
	}
	return err
}
