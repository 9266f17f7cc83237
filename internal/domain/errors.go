package domain

import (
	"errors"
	"fmt"
	"strings"
)

// maxErrorBody caps how much of an exchange response is carried in an error.
const maxErrorBody = 500

// ConfigError reports missing or malformed credentials, or an unsupported
// exchange/market combination. It is fatal and raised at construction time.
type ConfigError struct {
	// Exchange is the exchange identifier, empty when the error is not
	// tied to a specific exchange.
	Exchange string
	// Reason describes what is wrong with the configuration.
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Exchange == "" {
		return fmt.Sprintf("config error: %s", e.Reason)
	}
	return fmt.Sprintf("%s config error: %s", e.Exchange, e.Reason)
}

// NewConfigError creates a ConfigError for the given exchange.
func NewConfigError(exchange, format string, args ...any) *ConfigError {
	return &ConfigError{Exchange: exchange, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports an invalid order parameter (side, size, price,
// signal). It is raised before any network access.
type ValidationError struct {
	// Exchange is the exchange identifier.
	Exchange string
	// Reason describes the rejected parameter.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Exchange == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("%s validation error: %s", e.Exchange, e.Reason)
}

// NewValidationError creates a ValidationError for the given exchange.
func NewValidationError(exchange, format string, args ...any) *ValidationError {
	return &ValidationError{Exchange: exchange, Reason: fmt.Sprintf(format, args...)}
}

// RemoteError reports an exchange-side failure: an HTTP status >= 400 or an
// error embedded in an otherwise successful response body. Write operations
// never retry on a RemoteError.
type RemoteError struct {
	// Exchange is the exchange identifier.
	Exchange string
	// Status is the HTTP status code, zero when the error was embedded in a
	// 200 response.
	Status int
	// Body is the response body, truncated for readability.
	Body string
}

func (e *RemoteError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s HTTP %d: %s", e.Exchange, e.Status, e.Body)
	}
	return fmt.Sprintf("%s error: %s", e.Exchange, e.Body)
}

// NewRemoteError creates a RemoteError, truncating the body.
func NewRemoteError(exchange string, status int, body []byte) *RemoteError {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return &RemoteError{Exchange: exchange, Status: status, Body: s}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRemoteError reports whether err is (or wraps) a RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
