package server

import (
	"net/http"

	"github.com/credlink/openbank-credit/bank"
	"github.com/credlink/openbank-credit/credentials"
	"github.com/rs/zerolog/log"
)

// BankConnectHandler begins a bank authorization attempt: it generates the
// PKCE pair and client assertion, persists them as the session's pending
// request, and redirects the user to the bank's authorization endpoint.
// Starting a new attempt clears any previous exchange error, so the
// connection state returns to DISCONNECTED until the exchange completes.
func (s *Server) BankConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.loadOrCreateSession(w, r)
		if err != nil {
			http.Error(w, "Failed to establish session", http.StatusInternalServerError)
			return
		}

		assertion, err := credentials.BuildClientAssertion(
			s.creds.Signer(),
			s.config.GetBankClientID(),
			s.config.GetTokenEndpoint(),
		)
		if err != nil {
			log.Error().Err(err).Msg("client assertion build failed")
			http.Error(w, "Failed to prepare authorization request", http.StatusInternalServerError)
			return
		}

		authReq, err := bank.NewAuthorizationRequest(
			s.config.GetBaseURL()+RouteBankCallback,
			s.config.GetBankScope(),
			assertion,
		)
		if err != nil {
			log.Error().Err(err).Msg("authorization request build failed")
			http.Error(w, "Failed to prepare authorization request", http.StatusInternalServerError)
			return
		}

		session.PendingAuth = authReq
		session.LastAuthError = ""
		if err := s.sessions.Upsert(session); err != nil {
			http.Error(w, "Failed to persist session", http.StatusInternalServerError)
			return
		}

		redirectURL := bank.AuthorizeURL(s.config.GetAuthorizeEndpoint(), s.config.GetBankClientID(), authReq)
		http.Redirect(w, r, redirectURL, http.StatusSeeOther)
	}
}
