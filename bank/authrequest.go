// Package bank implements the client side of the Open Banking authorization
// flow: PKCE authorization requests, the mutual-TLS authorization-code
// exchange, and the account data fetch used for credit assessment.
package bank

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
)

const verifierLength = 32 // bytes of entropy, base64url encoded

// AuthorizationRequest captures one authorization attempt. The code verifier
// is retained only in server-side session state and is consumed exactly once
// by the exchange; the challenge is what the bank sees.
type AuthorizationRequest struct {
	State           string    `json:"state"`
	CodeVerifier    string    `json:"code_verifier"`
	CodeChallenge   string    `json:"code_challenge"`
	RedirectURI     string    `json:"redirect_uri"`
	Scope           string    `json:"scope"`
	ClientAssertion string    `json:"client_assertion_jwt"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewAuthorizationRequest generates a fresh PKCE verifier/challenge pair and
// state value for one trip to the bank's authorization endpoint.
func NewAuthorizationRequest(redirectURI, scope, clientAssertion string) (*AuthorizationRequest, error) {
	if redirectURI == "" {
		return nil, errors.New("[NewAuthorizationRequest] redirectURI is required")
	}

	verifier, err := generateRandomString(verifierLength)
	if err != nil {
		return nil, errors.Wrap(err, "[NewAuthorizationRequest] failed to generate code verifier")
	}
	state, err := generateRandomString(verifierLength)
	if err != nil {
		return nil, errors.Wrap(err, "[NewAuthorizationRequest] failed to generate state")
	}

	return &AuthorizationRequest{
		State:           state,
		CodeVerifier:    verifier,
		CodeChallenge:   CodeChallengeS256(verifier),
		RedirectURI:     redirectURI,
		Scope:           scope,
		ClientAssertion: clientAssertion,
		CreatedAt:       time.Now(),
	}, nil
}

// CodeChallengeS256 derives the S256 PKCE challenge for a verifier.
func CodeChallengeS256(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// VerifierMatches reports whether the stored verifier still hashes to the
// challenge the bank was given. A mismatch means the request was tampered
// with and the exchange must not proceed.
func (r *AuthorizationRequest) VerifierMatches() bool {
	return CodeChallengeS256(r.CodeVerifier) == r.CodeChallenge
}

// Expired reports whether the pending request has outlived its exchange
// window (the user abandoned the redirect, or came back too late).
func (r *AuthorizationRequest) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(r.CreatedAt) > timeout
}

func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
