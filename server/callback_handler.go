package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/credlink/openbank-credit/sessions"
	"github.com/rs/zerolog/log"
)

// BankCallbackHandler receives the bank's authorization redirect and, on
// success, exchanges the code for tokens. It always answers with a redirect
// back to the application page: success and failure are both communicated
// via query parameters, never a rendered body or a raw error.
func (s *Server) BankCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")
		state := r.FormValue("state")

		session, err := s.loadSession(r)
		if err != nil {
			s.redirectError(w, r, nil, "session_expired", "Your session has expired. Please try again.")
			return
		}

		if errorParam != "" {
			if errorDesc == "" {
				errorDesc = "The bank declined the authorization request."
			}
			s.redirectError(w, r, session, errorParam, errorDesc)
			return
		}

		pending := session.PendingAuth
		if pending == nil {
			s.redirectError(w, r, session, "no_pending_authorization", "No authorization attempt is in progress.")
			return
		}
		if state == "" || state != pending.State {
			s.redirectError(w, r, session, "state_mismatch", "The authorization response did not match the original request.")
			return
		}
		if pending.Expired(s.nowTime(), s.config.GetAuthRequestTimeout()) {
			s.redirectError(w, r, session, "authorization_timeout", "The authorization attempt took too long. Please try again.")
			return
		}
		if code == "" {
			s.redirectError(w, r, session, "missing_code", "The bank's response carried no authorization code.")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.config.GetTokenRequestTimeout())
		defer cancel()

		tokenSet, err := s.exchange.Exchange(ctx, code, pending)
		if err != nil {
			log.Warn().Err(err).Msg("token exchange failed")
			s.redirectError(w, r, session, "token_exchange_failed", err.Error())
			return
		}

		if s.verifier != nil && tokenSet.IDToken != "" {
			if err := s.verifier.Verify(ctx, tokenSet.IDToken); err != nil {
				log.Warn().Err(err).Msg("id_token verification failed")
				s.redirectError(w, r, session, "token_exchange_failed", "ID token verification failed.")
				return
			}
		}

		// The token write is persisted before the redirect: no status read
		// can observe CONNECTED before the exchange has fully completed.
		session.Token = tokenSet
		session.PendingAuth = nil
		session.LastAuthError = ""
		if err := s.sessions.Upsert(session); err != nil {
			s.redirectError(w, r, session, "session_save_failed", "Could not persist the bank connection.")
			return
		}

		now := s.nowTime()
		params := url.Values{}
		params.Set("oauth_success", "true")
		params.Set("access_token", tokenSet.AccessToken)
		params.Set("expires_in", fmt.Sprintf("%d", int(tokenSet.ExpiresAt.Sub(now).Seconds())))
		params.Set("timestamp", fmt.Sprintf("%d", now.Unix()))
		http.Redirect(w, r, RouteAppPage+"?"+params.Encode(), http.StatusSeeOther)
	}
}

// redirectError records the failure on the session (when one exists) and
// redirects back to the application page with oauth_error parameters. Token
// fields are never written on this path.
func (s *Server) redirectError(w http.ResponseWriter, r *http.Request, session *sessions.Session, errorCode, description string) {
	if session != nil {
		session.PendingAuth = nil
		session.LastAuthError = description
		if err := s.sessions.Upsert(session); err != nil {
			log.Error().Err(err).Msg("failed to record auth error on session")
		}
	}

	params := url.Values{}
	params.Set("oauth_error", errorCode)
	params.Set("error_description", description)
	http.Redirect(w, r, RouteAppPage+"?"+params.Encode(), http.StatusSeeOther)
}
