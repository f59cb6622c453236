package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the token lifecycle core. The boundary collapses every
// authorization-class failure into a single undifferentiated 401 body so a
// caller cannot tell which check rejected it; internally the distinction is
// kept for logging.
var (
	// ErrMalformedCredential: signature or structure invalid.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrExpiredCredential: the credential's expiry has passed.
	ErrExpiredCredential = errors.New("expired credential")
	// ErrWrongKind: caller expected ACCESS but got REFRESH, or vice versa.
	ErrWrongKind = errors.New("wrong credential kind")
	// ErrUnauthorized covers mismatch, revoked and unknown credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound: identity lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrSigningKey: signing key misconfiguration. Fatal, never retried.
	ErrSigningKey = errors.New("signing key misconfigured")
	// ErrDuplicateToken: token value uniqueness violated. Fatal integrity
	// condition, not a recoverable path.
	ErrDuplicateToken = errors.New("duplicate token value")
)

// IsAuthFailure reports whether err belongs to the authorization class that
// the HTTP boundary reports as a bare 401.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrMalformedCredential) ||
		errors.Is(err, ErrExpiredCredential) ||
		errors.Is(err, ErrWrongKind) ||
		errors.Is(err, ErrNotFound)
}

// AuthError is the JSON error shape returned by the HTTP boundary.
type AuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Boundary error codes.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeServerError    = "server_error"
)

func NewInvalidRequest(description string) *AuthError {
	return &AuthError{Code: CodeInvalidRequest, Description: description}
}

// NewUnauthorized returns the single opaque body used for every
// authorization-class failure.
func NewUnauthorized() *AuthError {
	return &AuthError{Code: CodeUnauthorized, Description: "invalid or expired credentials"}
}

func NewForbidden(description string) *AuthError {
	return &AuthError{Code: CodeForbidden, Description: description}
}

func NewServerError(description string) *AuthError {
	return &AuthError{Code: CodeServerError, Description: description}
}
