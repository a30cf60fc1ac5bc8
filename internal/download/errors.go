package download

import (
	"errors"
	"fmt"
)

// Download errors. Every failed attempt wraps exactly one of these.
var (
	// ErrTransport is returned when the request could not be completed:
	// DNS, connection, TLS, timeout or a broken body stream.
	ErrTransport = errors.New("download transport failure")

	// ErrHTTPStatus is returned when the server answered with a non-2xx status.
	ErrHTTPStatus = errors.New("download returned non-success status")

	// ErrMalformedURL is returned when a file URL cannot be requested.
	ErrMalformedURL = errors.New("malformed file URL")

	// ErrStorage is returned when the file or its metadata could not be saved.
	ErrStorage = errors.New("failed to store download")

	// ErrNoStore is returned when a Downloader is built without a Store.
	ErrNoStore = errors.New("no metadata store configured")
)

// HTTPStatusError carries the status code of a rejected download.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d", ErrHTTPStatus, e.URL, e.StatusCode)
}

// Unwrap makes errors.Is(err, ErrHTTPStatus) true.
func (e *HTTPStatusError) Unwrap() error {
	return ErrHTTPStatus
}
