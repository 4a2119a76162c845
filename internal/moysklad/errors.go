package moysklad

import (
	"errors"
	"fmt"
)

// Common МойСклад API errors
var (
	// ErrMissingToken is returned when the client is constructed without an
	// access token.
	ErrMissingToken = errors.New("missing МойСклад API token")

	// ErrUnauthorized is returned when the API rejects the token or the
	// token lacks the necessary permissions.
	ErrUnauthorized = errors.New("unauthorized МойСклад API request")

	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("МойСклад entity not found")

	// ErrRateLimited is returned when the API request quota is exceeded.
	ErrRateLimited = errors.New("МойСклад API rate limit exceeded")

	// ErrAttributeNotFound is returned when the tenant has no paymentin
	// attribute with the configured name.
	ErrAttributeNotFound = errors.New("attachment attribute not found in tenant metadata")

	// ErrEmptyBatch is returned when SendEntity is called with no records.
	ErrEmptyBatch = errors.New("refusing to send an empty record set")

	// ErrUnknownEntityType is returned when SendEntity is called with an
	// entity type other than paymentin or invoiceout.
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// APIError wraps a non-success API response with request context.
type APIError struct {
	// Op is the operation that failed (e.g., "FetchPayments", "SendEntity").
	Op string

	// StatusCode is the HTTP status returned by the API.
	StatusCode int

	// Err is the classified sentinel error, when the status maps to one.
	Err error

	// Body is a truncated copy of the response body for diagnostics.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("moysklad: %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("moysklad: %s failed with status %d", e.Op, e.StatusCode)
}

// Unwrap returns the classified sentinel error for error matching.
func (e *APIError) Unwrap() error {
	return e.Err
}

// newAPIError classifies an API response status into an APIError.
func newAPIError(op string, statusCode int, body string) *APIError {
	var sentinel error
	switch statusCode {
	case 401, 403:
		sentinel = ErrUnauthorized
	case 404:
		sentinel = ErrNotFound
	case 429:
		sentinel = ErrRateLimited
	}

	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}

	return &APIError{
		Op:         op,
		StatusCode: statusCode,
		Err:        sentinel,
		Body:       body,
	}
}
