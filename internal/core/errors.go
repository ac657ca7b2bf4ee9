package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoFileSelected is recorded when submit runs with no file chosen.
	// No request is sent.
	ErrNoFileSelected = errors.New("no file selected")

	// ErrUnknownMode is returned when a mode name is neither invoices nor stock.
	ErrUnknownMode = errors.New("unknown mode")

	// ErrSubmitInFlight is returned when submit is called while a previous
	// submission is still outstanding. The call has no effect.
	ErrSubmitInFlight = errors.New("submission already in flight")

	// ErrMisconfigured means the cleaning service location is not configured.
	// It is a deployment problem that no user action can fix.
	ErrMisconfigured = errors.New("cleaning service location is not configured")

	// ErrTooManySubmissions is returned by the submit limiter when no slot
	// frees up in time.
	ErrTooManySubmissions = errors.New("too many submissions in progress, please try again later")
)

// genericTransportMessage is shown when the service gave no body text.
const genericTransportMessage = "cleaning service unreachable"

// TransportError is a network failure or a non-success HTTP status.
// Message is the service's response text when it sent one.
type TransportError struct {
	Status  int    // HTTP status, 0 when no response arrived
	Message string // What the user sees
	Err     error  // Underlying cause, if any
}

// NewStatusError builds a TransportError from a non-success response.
func NewStatusError(status int, body string) *TransportError {
	msg := body
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = fmt.Sprintf("unexpected status %d", status)
	}
	return &TransportError{Status: status, Message: msg}
}

// NewNetworkError builds a TransportError for a request that never
// produced a response.
func NewNetworkError(err error) *TransportError {
	return &TransportError{Message: genericTransportMessage, Err: err}
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is a success status whose body is not a Result.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return "malformed response from cleaning service"
	}
	return "malformed response from cleaning service: " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies errors for presentation.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindNoFileSelected    ErrorKind = "no_file_selected"
	KindInvalidFile       ErrorKind = "invalid_file"
	KindTransport         ErrorKind = "transport"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindMisconfigured     ErrorKind = "misconfigured"
	KindUnknown           ErrorKind = "unknown"
)

// Kind returns the taxonomy bucket of err.
func Kind(err error) ErrorKind {
	var (
		te *TransportError
		me *MalformedResponseError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNoFileSelected):
		return KindNoFileSelected
	case errors.Is(err, ErrMisconfigured):
		return KindMisconfigured
	case errors.As(err, &me):
		return KindMalformedResponse
	case errors.As(err, &te), errors.Is(err, ErrTooManySubmissions):
		return KindTransport
	case isFileError(err):
		return KindInvalidFile
	default:
		return KindUnknown
	}
}

func isFileError(err error) bool {
	for _, target := range fileErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
