package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned for 401 and 403 answers. The session is cleared before it
// is returned.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx answer other than 401/403.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
