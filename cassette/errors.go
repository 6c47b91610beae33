package cassette

import "fmt"

// SerializationError is returned when a persisted cassette is malformed or an
// interaction cannot be encoded.
type SerializationError struct {
	Path string
	// Index of the offending interaction, or -1 if the error is not tied to
	// a single one.
	Index int
	Err   error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("cassette %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("cassette %s: interaction %d: %v", e.Path, e.Index, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// PersistenceError is returned when a cassette cannot be read from or written
// to disk. A failed write leaves the previous file untouched.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s cassette %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
