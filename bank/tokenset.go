package bank

import "time"

// TokenSet is the product of a successful authorization-code exchange.
// A session owns at most one; it is overwritten wholesale on every
// successful exchange and never logged in plaintext.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	IDToken      string    `json:"id_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IssuedAt     time.Time `json:"token_received_at"`
	ExpiresAt    time.Time `json:"access_token_expiry"`
}

// NewTokenSet applies the safety buffer to the server-reported lifetime:
// ExpiresAt = IssuedAt + expiresIn - buffer, so the token is treated as
// expired slightly before the authorization server invalidates it.
func NewTokenSet(accessToken, idToken, refreshToken string, issuedAt time.Time, expiresIn int, buffer time.Duration) TokenSet {
	if buffer < 0 {
		buffer = 0
	}
	return TokenSet{
		AccessToken:  accessToken,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(time.Duration(expiresIn) * time.Second).Add(-buffer),
	}
}

// Expired reports whether the token set should no longer be used at the
// given instant. The boundary now == ExpiresAt counts as expired.
func (t *TokenSet) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
