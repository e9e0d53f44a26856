package search

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lexis/index"
)

var (
	// ErrInvalidArgument is returned when a query, collector or searcher is
	// constructed with an invalid configuration.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupported is returned when an operation is not supported, for
	// example reading payloads from spans that carry none.
	ErrUnsupported = index.ErrUnsupported

	// ErrIteratorMisuse is the panic value (wrapped) raised when an iterator
	// is moved backwards or scored before it is positioned.
	ErrIteratorMisuse = errors.New("iterator misuse")

	// ErrCollectionTerminated is returned by a Collector to stop a search.
	// Searchers propagate it unchanged.
	ErrCollectionTerminated = errors.New("collection terminated")

	// ErrTimeExceeded is returned by a TimeLimitingCollector.
	ErrTimeExceeded = errors.New("search time limit exceeded")
)

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidArgument.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArg(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func misuse(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrIteratorMisuse, fmt.Sprintf(format, args...)))
}
