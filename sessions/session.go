// Package sessions holds the per-user server-side state for the bank
// connection flow: the pending authorization request, the token set, the
// application profile, the cached account snapshot, and the last assessment.
package sessions

import (
	"time"

	"github.com/credlink/openbank-credit/assessment"
	"github.com/credlink/openbank-credit/bank"
	"github.com/google/uuid"
)

// Session is exclusively owned by one user. Every core operation receives it
// by handle through the Repo; nothing is kept in ambient globals. A session
// owns at most one TokenSet, one Profile, and one Result.
type Session struct {
	ID            string                     `json:"id"`
	CreatedAt     time.Time                  `json:"created_at"`
	PendingAuth   *bank.AuthorizationRequest `json:"pending_auth,omitempty"`
	Token         *bank.TokenSet             `json:"token,omitempty"`
	Profile       *assessment.Profile        `json:"application_data,omitempty"`
	Snapshot      *bank.AccountSnapshot      `json:"account_snapshot,omitempty"`
	Assessment    *assessment.Result         `json:"credit_assessment,omitempty"`
	LastAuthError string                     `json:"last_auth_error,omitempty"`
}

// New creates an empty session with a fresh identifier.
func New(now time.Time) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
	}
}

// Clone returns a deep copy, so repository callers can never mutate stored
// state without an explicit Upsert.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.PendingAuth != nil {
		pa := *s.PendingAuth
		out.PendingAuth = &pa
	}
	if s.Token != nil {
		t := *s.Token
		out.Token = &t
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	if s.Snapshot != nil {
		snap := *s.Snapshot
		snap.Accounts = append([]bank.Account(nil), s.Snapshot.Accounts...)
		snap.Balances = append([]bank.Balance(nil), s.Snapshot.Balances...)
		snap.Transactions = append([]bank.Transaction(nil), s.Snapshot.Transactions...)
		snap.Beneficiaries = append([]bank.Beneficiary(nil), s.Snapshot.Beneficiaries...)
		out.Snapshot = &snap
	}
	if s.Assessment != nil {
		a := *s.Assessment
		out.Assessment = &a
	}
	return &out
}
