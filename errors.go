package lexis

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

var (
	// ErrInvalidArgument is returned for invalid queries, options or
	// arguments such as a non-positive hit count.
	ErrInvalidArgument = errors.New("lexis: invalid argument")

	// ErrUnsupported is returned when the index cannot serve an operation,
	// for example positional queries over a field indexed without positions.
	ErrUnsupported = errors.New("lexis: unsupported")

	// ErrTerminated is returned when a search stopped early: its collector
	// asked to stop, its time budget ran out or its context was cancelled.
	ErrTerminated = errors.New("lexis: search terminated")

	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("lexis: searcher closed")
)

// ErrDocOutOfRange indicates a document id outside [0, MaxDoc).
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrDocOutOfRange struct {
	Doc    int
	MaxDoc int
	cause  error
}

func (e *ErrDocOutOfRange) Error() string {
	return fmt.Sprintf("lexis: document %d out of range [0, %d)", e.Doc, e.MaxDoc)
}

func (e *ErrDocOutOfRange) Unwrap() error { return e.cause }

func (s *Searcher) translateError(err error) error {
	return translateError(err, s.MaxDoc())
}

func translateError(err error, maxDoc int) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, index.ErrDocOutOfRange) {
		return &ErrDocOutOfRange{Doc: docOf(err), MaxDoc: maxDoc, cause: err}
	}

	var te *search.TimeExceededError
	if errors.As(err, &te) {
		return fmt.Errorf("%w: %w", ErrTerminated, err)
	}
	if errors.Is(err, search.ErrCollectionTerminated) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTerminated, err)
	}

	if errors.Is(err, search.ErrInvalidArgument) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if errors.Is(err, search.ErrUnsupported) {
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}

	return err
}

// docError carries the offending doc id from the facade's own range checks.
type docError struct {
	doc int
	err error
}

func (e *docError) Error() string { return fmt.Sprintf("doc %d: %v", e.doc, e.err) }
func (e *docError) Unwrap() error { return e.err }

func docOf(err error) int {
	var de *docError
	if errors.As(err, &de) {
		return de.doc
	}
	return -1
}
