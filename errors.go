package vcr

import (
	"errors"
	"fmt"

	"github.com/akupila/vcr/cassette"
)

var (
	// ErrSessionClosed is returned when a session is used after End.
	ErrSessionClosed = errors.New("vcr: session is not active")

	// ErrUnexpectedRecord is returned by RecordResult when no request was
	// cleared for recording by Intercept.
	ErrUnexpectedRecord = errors.New("vcr: result recorded without a record decision")
)

// ConfigurationError is returned by Begin when a session cannot be set up as
// configured.
type ConfigurationError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("vcr: invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CannotOverwriteExistingCassetteError is returned when a request has no
// recorded match and the record mode does not allow recording it.
//
// When returned through the Recorder transport, the error is wrapped in a
// *url.Error by http.Client.
type CannotOverwriteExistingCassetteError struct {
	Path    string
	Mode    RecordMode
	Request *cassette.Request
}

// Error implements the error interface.
func (e *CannotOverwriteExistingCassetteError) Error() string {
	return fmt.Sprintf("vcr: cassette %s (record mode %s) has no match for %s %s",
		e.Path, e.Mode, e.Request.Method, e.Request.URL)
}
