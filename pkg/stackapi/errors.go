package stackapi

import (
	"errors"
	"fmt"
)

// APIError is an error envelope returned by the API.
type APIError struct {
	ID      int    `json:"error_id"      yaml:"error_id"`
	Name    string `json:"error_name"    yaml:"error_name"`
	Message string `json:"error_message" yaml:"error_message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.ID, e.Name, e.Message)
	}

	return fmt.Sprintf("API error %d: %s", e.ID, e.Message)
}

// Error ids documented by the API.
const (
	ErrorIDBadParameter           = 400
	ErrorIDAccessTokenRequired    = 401
	ErrorIDInvalidAccessToken     = 402
	ErrorIDAccessDenied           = 403
	ErrorIDNoMethod               = 404
	ErrorIDKeyRequired            = 405
	ErrorIDAccessTokenCompromised = 406
	ErrorIDWriteFailed            = 407
	ErrorIDDuplicateRequest       = 409
	ErrorIDInternalError          = 500
	ErrorIDThrottleViolation      = 502
	ErrorIDTemporarilyUnavailable = 503
)

// Static errors for err113 compliance.
var (
	ErrUnknownMethod        = errors.New("method does not exist")
	ErrMissingValue         = errors.New("parameter requires at least one value")
	ErrMalformedResponse    = errors.New("malformed response from API server")
	ErrEmptyResult          = errors.New("\"items\" is empty but at least one item was expected")
	ErrFieldNotFound        = errors.New("field not found")
	ErrNoLabel              = errors.New("unable to construct a string representation of the item")
	ErrUnexpectedFieldType  = errors.New("unexpected field type")
	ErrIndexOutOfRange      = errors.New("item index out of range")
	ErrClientIDRequired     = errors.New("client ID is required")
	ErrClientSecretRequired = errors.New("client secret is required")
	ErrTransportRequired    = errors.New("transport is required")
	ErrCircuitBreakerOpen   = errors.New("circuit breaker is open")
)

// IsAPIError reports whether err carries an API error envelope.
func IsAPIError(err error) bool {
	apiErr := &APIError{}

	return errors.As(err, &apiErr)
}

// IsThrottled checks if the API rejected the request for exceeding the rate limit.
func IsThrottled(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.ID == ErrorIDThrottleViolation
	}

	return false
}

// IsEmptyResult checks if a request that required items got none.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}

// IsMalformedResponse checks if the server reply could not be understood.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsFieldNotFound checks if an item field lookup failed.
func IsFieldNotFound(err error) bool {
	return errors.Is(err, ErrFieldNotFound)
}

// IsUnknownMethod checks if a method token was rejected.
func IsUnknownMethod(err error) bool {
	return errors.Is(err, ErrUnknownMethod)
}
