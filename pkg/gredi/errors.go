package gredi

import (
	"errors"
	"fmt"
)

// ErrEmptyContent is returned when the remote responds with a zero-byte body
// for a file download. Callers treat it as a soft failure and fall back to a
// previously materialized copy when one exists.
var ErrEmptyContent = errors.New("empty file content")

// InvalidCredentialsError is returned when the login endpoint rejects the
// configured credentials (HTTP 400 or 403). It carries the remote-provided
// error code and description so the host UI can show them distinctly from
// transient failures.
type InvalidCredentialsError struct {
	Code        string
	Description string
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("%s (%s).", e.Description, e.Code)
}

// RemoteError is any non-2xx response or transport failure that is not a
// credential problem. The offending URL is kept for logging context.
type RemoteError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote call to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("remote call to %s failed with status %d: %s", e.URL, e.StatusCode, e.Message)
}
