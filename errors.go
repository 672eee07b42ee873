package floyaml

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when a path segment names a key that is
	// absent from the mapping it is resolved against.
	ErrKeyNotFound = errors.New("floyaml: key not found")

	// ErrIndexOutOfRange is returned when an indexed segment points past
	// the end of the sequence at its key.
	ErrIndexOutOfRange = errors.New("floyaml: index out of range")

	// ErrUnsupportedSegment is returned when a path segment does not parse
	// as a plain or indexed key. It indicates a caller bug, not a document
	// problem.
	ErrUnsupportedSegment = errors.New("floyaml: unsupported path segment")
)

// ParseError reports that the rewritten intermediate text was rejected by
// the YAML decoder. No partial document is returned alongside it.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("floyaml: invalid document: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
