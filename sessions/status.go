package sessions

import (
	"time"

	"github.com/credlink/openbank-credit/internal/utils"
)

// ConnectionState is the bank-connection lifecycle state.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "DISCONNECTED"
	StateConnected    ConnectionState = "CONNECTED"
	StateExpired      ConnectionState = "EXPIRED"
	StateError        ConnectionState = "ERROR"
)

// ConnectionStatus is the derived connection state plus its supporting
// detail. ERROR carries the last exchange failure reason.
type ConnectionStatus struct {
	State     ConnectionState `json:"state"`
	Reason    string          `json:"reason,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// DeriveStatus is the single connection-state derivation: a pure function of
// the stored session and wall-clock time, holding no state of its own.
// CONNECTED iff a token set is present and now is before its expiry;
// EXPIRED when the token set has aged out (the boundary instant counts as
// expired); ERROR when the last exchange failed and no token survives;
// DISCONNECTED otherwise, including for absent sessions.
func DeriveStatus(session *Session, now time.Time) ConnectionStatus {
	if session == nil {
		return ConnectionStatus{State: StateDisconnected}
	}
	if session.Token != nil {
		expiresAt := utils.Ptr(session.Token.ExpiresAt)
		if session.Token.Expired(now) {
			return ConnectionStatus{State: StateExpired, ExpiresAt: expiresAt}
		}
		return ConnectionStatus{State: StateConnected, ExpiresAt: expiresAt}
	}
	if session.LastAuthError != "" {
		return ConnectionStatus{State: StateError, Reason: session.LastAuthError}
	}
	return ConnectionStatus{State: StateDisconnected}
}
