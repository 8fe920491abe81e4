package credentials

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AssertionType is the client_assertion_type value for private_key_jwt
// client authentication (RFC 7523).
const AssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

const assertionLifetime = 5 * time.Minute

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// BuildClientAssertion creates the short-lived signed JWT that proves the
// client's identity to the token endpoint. Generated once per authorization
// attempt and consumed by a single exchange.
func BuildClientAssertion(signer Signer, clientID, tokenEndpoint string) (string, error) {
	if clientID == "" {
		return "", errors.New("[BuildClientAssertion] clientID is required")
	}
	if tokenEndpoint == "" {
		return "", errors.New("[BuildClientAssertion] tokenEndpoint is required")
	}

	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"iss": clientID,
		"sub": clientID,
		"aud": tokenEndpoint,
		"iat": now.Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
		"jti": uuid.New().String(),
	}

	assertion, err := signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[BuildClientAssertion] signer.Sign")
	}
	return assertion, nil
}
