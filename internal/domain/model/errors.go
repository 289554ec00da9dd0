package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a retrieval failed. Values double as metric labels.
type ErrorKind string

const (
	InvalidURL          ErrorKind = "invalid_url"
	UnsupportedProtocol ErrorKind = "unsupported_protocol"
	HTTPStatusError     ErrorKind = "http_status_error"
	ConnectionError     ErrorKind = "connection_error"
	TimeoutError        ErrorKind = "timeout_error"
	WriteError          ErrorKind = "write_error"
	TooManyRedirects    ErrorKind = "too_many_redirects"
	Cancelled           ErrorKind = "cancelled"
	UnknownError        ErrorKind = "unknown"
)

// IsPermanent reports whether repeating the same request cannot change the
// result.
func (k ErrorKind) IsPermanent() bool {
	switch k {
	case InvalidURL, UnsupportedProtocol, TooManyRedirects, Cancelled:
		return true
	default:
		return false
	}
}

// FetchError is the error returned by every failed fetch attempt.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int // HTTPStatusError only
	Message    string
	Err        error
}

// Sentinels for errors.Is; matching compares Kind only.
var (
	ErrInvalidURL          = &FetchError{Kind: InvalidURL}
	ErrUnsupportedProtocol = &FetchError{Kind: UnsupportedProtocol}
	ErrHTTPStatus          = &FetchError{Kind: HTTPStatusError}
	ErrConnection          = &FetchError{Kind: ConnectionError}
	ErrTimeout             = &FetchError{Kind: TimeoutError}
	ErrWrite               = &FetchError{Kind: WriteError}
	ErrTooManyRedirects    = &FetchError{Kind: TooManyRedirects}
	ErrCancelled           = &FetchError{Kind: Cancelled}
)

// NewFetchError creates a FetchError.
func NewFetchError(kind ErrorKind, url, message string, err error) *FetchError {
	return &FetchError{
		Kind:    kind,
		URL:     url,
		Message: message,
		Err:     err,
	}
}

// NewHTTPStatusError creates a FetchError for a non-200, non-redirect response.
func NewHTTPStatusError(url string, code int, status string) *FetchError {
	return &FetchError{
		Kind:       HTTPStatusError,
		URL:        url,
		StatusCode: code,
		Message:    fmt.Sprintf("HTTP %d: %s", code, status),
	}
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches any *FetchError of the same Kind.
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	return ok && t.Kind == e.Kind
}

// IsPermanent reports whether retrying cannot help.
func (e *FetchError) IsPermanent() bool {
	return e.Kind.IsPermanent()
}

// KindOf extracts the ErrorKind of err. Context errors that escaped without a
// FetchError wrapper map to Cancelled or TimeoutError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return Cancelled
	case errors.Is(err, context.DeadlineExceeded):
		return TimeoutError
	default:
		return UnknownError
	}
}
