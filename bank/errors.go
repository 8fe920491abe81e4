package bank

import (
	"errors"
	"fmt"
)

var (
	// ErrVerifierMismatch is returned when the PKCE code verifier offered for
	// an exchange does not hash to the challenge of its authorization request.
	ErrVerifierMismatch = errors.New("code verifier does not match code challenge")

	// ErrAuthorizationDenied is returned when the bank's redirect carries an
	// error parameter instead of an authorization code.
	ErrAuthorizationDenied = errors.New("authorization denied by bank")
)

// TransportError indicates the token endpoint could not be reached: TLS
// handshake failure, connection refused, or request timeout.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("token endpoint transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates the token endpoint answered outside 200-299.
// The status and raw body are retained for diagnostics.
type ProtocolError struct {
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.StatusCode, e.Body)
}

// ResponseShapeError indicates a 2xx response whose body is malformed or is
// missing a required field.
type ResponseShapeError struct {
	Missing string
	Body    string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("token response missing %s: %s", e.Missing, e.Body)
}
