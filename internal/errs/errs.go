// Package errs defines the error taxonomy shared by the extraction and
// transform stages.
//
// Network and authentication failures are never retried here; they propagate
// to the caller. XMLParseError is the only kind recovered internally, and only
// at file granularity.
package errs

import (
	"errors"
	"fmt"
)

// ErrLinkNotFound is matched by every *LinkNotFoundError via errors.Is.
var ErrLinkNotFound = errors.New("download link not found")

// AuthenticationError reports a login that did not return the success status.
type AuthenticationError struct {
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication unsuccessful: status code %d returned", e.StatusCode)
}

// LinkNotFoundError reports a dump page without a matching download anchor.
type LinkNotFoundError struct {
	Page string
}

func (e *LinkNotFoundError) Error() string {
	if e.Page == "" {
		return ErrLinkNotFound.Error()
	}
	return fmt.Sprintf("%s on %s", ErrLinkNotFound, e.Page)
}

// Is makes errors.Is(err, ErrLinkNotFound) hold.
func (e *LinkNotFoundError) Is(target error) bool { return target == ErrLinkNotFound }

// RemoteError reports a non-success response from the remote catalog API.
type RemoteError struct {
	StatusCode int
	URL        string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote returned status code %d for %s", e.StatusCode, e.URL)
}

// XMLParseError reports a payload file that is not well-formed XML.
type XMLParseError struct {
	Path string
	Err  error
}

func (e *XMLParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse xml: %v", e.Err)
	}
	return fmt.Sprintf("parse xml %s: %v", e.Path, e.Err)
}

func (e *XMLParseError) Unwrap() error { return e.Err }

// ConfigurationError reports an invalid call-time argument. It is raised
// immediately and never coerced into a valid value.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
