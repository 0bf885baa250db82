package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned before any network call when connection
// settings are incomplete.
var ErrNotConfigured = errors.New("ledger connection is not configured")

type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: missing %s", ErrNotConfigured, strings.Join(e.Missing, ", "))
}

func (e *ConfigError) Unwrap() error { return ErrNotConfigured }

// ValidationError rejects a request before it is forwarded.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// UpstreamError means the gateway answered but reported failure. Status is
// the HTTP status of the answer, Code the code from its body.
type UpstreamError struct {
	Status  int
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger gateway error (code %d)", e.Code)
	}
	return fmt.Sprintf("ledger gateway error (code %d): %s", e.Code, e.Message)
}

// HTTPStatus picks the status a proxy should answer with.
func (e *UpstreamError) HTTPStatus() int {
	if e.Status >= 400 && e.Status <= 599 {
		return e.Status
	}
	if e.Code >= 400 && e.Code <= 599 {
		return e.Code
	}
	return 500
}

// TransportError covers network failures and unreadable answers.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "failed to connect to the ledger gateway"
}

func (e *TransportError) Unwrap() error { return e.Err }

// Detail includes the underlying cause, for logs.
func (e *TransportError) Detail() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}
