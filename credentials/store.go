// Package credentials holds the client-side secrets used to authenticate
// against the bank's token endpoint: the mutual-TLS certificate/key pair and
// the RSA key that signs client-assertion JWTs.
package credentials

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Store is a stateless holder for the process's client credentials.
type Store struct {
	clientCert tls.Certificate
	signingKey *rsa.PrivateKey
	keyID      string
}

// Load reads the mutual-TLS certificate/key pair and the assertion signing
// key from PEM files.
func Load(certFile, keyFile, signingKeyFile string) (*Store, error) {
	if _, err := os.Stat(certFile); os.IsNotExist(err) {
		return nil, errors.Errorf("[credentials.Load] certificate file not found at %s", certFile)
	}
	if _, err := os.Stat(keyFile); os.IsNotExist(err) {
		return nil, errors.Errorf("[credentials.Load] key file not found at %s", keyFile)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "[credentials.Load] failed to load client certificate")
	}

	keyPEM, err := os.ReadFile(signingKeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "[credentials.Load] failed to read signing key")
	}
	signingKey, err := parseRSAPrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "[credentials.Load] failed to parse signing key")
	}

	return &Store{
		clientCert: cert,
		signingKey: signingKey,
		keyID:      "default",
	}, nil
}

// NewEphemeral generates a throwaway RSA key and self-signed certificate.
// Used in development so the service starts without provisioned credentials;
// a real authorization server will reject the certificate.
func NewEphemeral() (*Store, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.Wrap(err, "[credentials.NewEphemeral] failed to generate RSA key")
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "openbank-credit-dev"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(err, "[credentials.NewEphemeral] failed to self-sign certificate")
	}

	return &Store{
		clientCert: tls.Certificate{
			Certificate: [][]byte{der},
			PrivateKey:  key,
		},
		signingKey: key,
		keyID:      "ephemeral",
	}, nil
}

// TLSConfig returns a TLS configuration that presents the client certificate
// during the handshake (mutual TLS).
func (s *Store) TLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{s.clientCert},
		MinVersion:   tls.VersionTLS12,
	}
}

// Signer returns the RS256 signer backed by the store's signing key.
func (s *Store) Signer() Signer {
	return &rsaSigner{key: s.signingKey, keyID: s.keyID}
}

func parseRSAPrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("signing key is not RSA")
	}
	return key, nil
}
