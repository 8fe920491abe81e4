package config

import (
	"strconv"
	"time"
)

// BankConfig describes the Open Banking authorization server this service
// connects to, plus the client credentials used to authenticate against it.
type BankConfig interface {
	GetBankClientID() string
	GetAuthorizeEndpoint() string
	GetTokenEndpoint() string
	GetAccountDataBaseURL() string
	GetBankIssuerURL() string
	GetBankScope() string
	GetClientCertFile() string
	GetClientKeyFile() string
	GetSigningKeyFile() string
	GetTokenRequestTimeout() time.Duration
	GetTokenExpiryBuffer() time.Duration
	GetDataFetchRateLimit() int
}

type Bank struct{}

var _ BankConfig = Bank{}

func (Bank) GetBankClientID() string {
	return GetEnv("BANK_CLIENT_ID", "openbank-credit-dev")
}

func (Bank) GetAuthorizeEndpoint() string {
	return GetEnv("BANK_AUTHORIZE_ENDPOINT", "https://auth.bank.example/authorize")
}

func (Bank) GetTokenEndpoint() string {
	return GetEnv("BANK_TOKEN_ENDPOINT", "https://auth.bank.example/token")
}

func (Bank) GetAccountDataBaseURL() string {
	return GetEnv("BANK_DATA_BASE_URL", "https://api.bank.example/open-banking/v3.1")
}

// GetBankIssuerURL returns the bank's OIDC issuer, or "" when the bank does
// not publish a discovery document. When set, id_tokens from the exchange
// are verified against the issuer's JWKS.
func (Bank) GetBankIssuerURL() string {
	return GetEnv("BANK_ISSUER_URL", "")
}

func (Bank) GetBankScope() string {
	return GetEnv("BANK_SCOPE", "accounts")
}

func (Bank) GetClientCertFile() string {
	return GetEnv("BANK_CLIENT_CERT_FILE", "")
}

func (Bank) GetClientKeyFile() string {
	return GetEnv("BANK_CLIENT_KEY_FILE", "")
}

func (Bank) GetSigningKeyFile() string {
	return GetEnv("BANK_SIGNING_KEY_FILE", "")
}

func (Bank) GetTokenRequestTimeout() time.Duration {
	return 15 * time.Second
}

// GetTokenExpiryBuffer is subtracted from the server-reported expiry so a
// token is treated as expired slightly before the bank invalidates it.
func (Bank) GetTokenExpiryBuffer() time.Duration {
	if v, err := strconv.Atoi(GetEnv("BANK_TOKEN_EXPIRY_BUFFER_SECONDS", "60")); err == nil && v >= 0 {
		return time.Duration(v) * time.Second
	}
	return 60 * time.Second
}

func (Bank) GetDataFetchRateLimit() int {
	return 5 // requests per second against the account data API
}
