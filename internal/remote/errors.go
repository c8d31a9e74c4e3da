package remote

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrMetadataDisabled = errors.New("metadata api key not configured")
)

// HTTPError is a non-2xx answer from a remote API.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// retryable reports whether a read should be attempted again. Client errors
// are final.
func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= 500 || httpErr.Status == 429
	}
	return !errors.Is(err, ErrNotAuthenticated) && !errors.Is(err, ErrMetadataDisabled)
}
