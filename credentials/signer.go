package credentials

import (
	"crypto/rsa"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer signs JWT claims on behalf of the client.
type Signer interface {
	Sign(claims jwtlib.MapClaims) (string, error)
	KeyID() string
}

type rsaSigner struct {
	key   *rsa.PrivateKey
	keyID string
}

var _ Signer = (*rsaSigner)(nil)

func (s *rsaSigner) Sign(claims jwtlib.MapClaims) (string, error) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = s.keyID
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", errors.Wrap(err, "[rsaSigner.Sign] failed to sign claims")
	}
	return signed, nil
}

func (s *rsaSigner) KeyID() string {
	return s.keyID
}
