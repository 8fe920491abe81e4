package config

import "time"

type SecurityConfig interface {
	GetMaxSessionAge() time.Duration
	GetAuthRequestTimeout() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetMaxSessionAge is the absolute session TTL, independent of token expiry.
func (Security) GetMaxSessionAge() time.Duration {
	return 8 * time.Hour
}

// GetAuthRequestTimeout bounds how long a pending authorization request
// (the redirect to the bank) stays exchangeable.
func (Security) GetAuthRequestTimeout() time.Duration {
	return 15 * time.Minute
}
