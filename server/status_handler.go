package server

import (
	"encoding/json"
	"net/http"

	"github.com/credlink/openbank-credit/sessions"
)

// BankStatusHandler reports the derived connection status. Every consumer
// that gates behavior on "connected" reads this single derivation instead of
// re-deriving from raw token fields.
func (s *Server) BankStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.loadSession(r)
		if err != nil {
			session = nil // absent or expired session derives to DISCONNECTED
		}

		status := sessions.DeriveStatus(session, s.nowTime())

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(status)
	}
}
