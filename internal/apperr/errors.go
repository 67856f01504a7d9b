package apperr

import (
	"errors"
	"fmt"
)

// NetworkMessage is shown for every transport failure.
const NetworkMessage = "Network error. Please check your connection."

var ErrInFlight = errors.New("request already in progress")

type Code string

const (
	CodeRequired         Code = "required"
	CodeInvalidFormat    Code = "invalid_format"
	CodePasswordTooShort Code = "password_too_short"
	CodePasswordMismatch Code = "password_mismatch"
	CodeNotAuthenticated Code = "not_authenticated"
	CodeFileTooLarge     Code = "file_too_large"
	CodeUnsupportedType  Code = "unsupported_type"
	CodeMissingReference Code = "missing_reference"
)

// ValidationError is detected before any request is sent.
type ValidationError struct {
	Code    Code
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Invalid(code Code, message string) error {
	return &ValidationError{Code: code, Message: message}
}

// AuthError is a login rejection carrying the backend's reason.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "authentication failed"
	}
	return e.Reason
}

// DomainError is any other structured backend rejection.
type DomainError struct {
	Op      string
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// TransportError covers network and decoding failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage returns the text to surface for err. Backend messages are used
// verbatim; fallback is used when the backend gave none.
func UserMessage(err error, fallback string) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		if authErr.Reason != "" {
			return authErr.Reason
		}
		return fallback
	}
	var domain *DomainError
	if errors.As(err, &domain) {
		if domain.Message != "" {
			return domain.Message
		}
		return fallback
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return NetworkMessage
	}
	if errors.Is(err, ErrInFlight) {
		return "Please wait for the current request to finish"
	}
	return fallback
}

func IsTransport(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport)
}
