package bank

import (
	"context"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
)

// IDTokenVerifier verifies id_tokens from the exchange against the bank's
// published JWKS. Construction is lazy: the discovery document is fetched on
// first use and cached for the life of the process.
type IDTokenVerifier struct {
	issuerURL string
	clientID  string

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// NewIDTokenVerifier creates a verifier for the given issuer. The issuer
// must serve an OIDC discovery document.
func NewIDTokenVerifier(issuerURL, clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{
		issuerURL: issuerURL,
		clientID:  clientID,
	}
}

// Verify checks the id_token's signature and standard claims. A failure here
// is treated as an exchange failure by the caller.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawIDToken string) error {
	verifier, err := v.getVerifier(ctx)
	if err != nil {
		return errors.Wrap(err, "[IDTokenVerifier.Verify] provider discovery")
	}
	if _, err := verifier.Verify(ctx, rawIDToken); err != nil {
		return errors.Wrap(err, "[IDTokenVerifier.Verify] id_token verification failed")
	}
	return nil
}

func (v *IDTokenVerifier) getVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.verifier != nil {
		return v.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, v.issuerURL)
	if err != nil {
		return nil, err
	}
	v.verifier = provider.Verifier(&oidc.Config{ClientID: v.clientID})
	return v.verifier, nil
}
