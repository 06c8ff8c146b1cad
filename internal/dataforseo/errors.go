package dataforseo

import (
	"errors"
	"fmt"
)

// ErrorStatusThreshold is the lowest embedded status code signalling an API error.
const ErrorStatusThreshold = 40000

// APIError is returned for HTTP failures and for embedded error status codes.
type APIError struct {
	Endpoint   string
	HTTPStatus int
	StatusCode int // embedded provider status_code, 0 if unknown
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dataforseo %s: %s (status %d)", e.Endpoint, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("dataforseo %s: HTTP %d %s", e.Endpoint, e.HTTPStatus, e.Message)
}

// IsAPIError reports whether err is or wraps an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
