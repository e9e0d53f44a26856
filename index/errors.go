package index

import "errors"

// ErrUnsupported is returned when a reader or iterator cannot perform an operation.
var ErrUnsupported = errors.New("unsupported operation")

// ErrDocOutOfRange is returned when a document id is outside [0, MaxDoc).
var ErrDocOutOfRange = errors.New("document id out of range")
