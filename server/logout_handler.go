package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// LogoutHandler deletes the session, which clears the token set and forces
// the connection state back to DISCONNECTED.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err == nil {
			if err := s.sessions.Delete(cookie.Value); err != nil {
				log.Error().Err(err).Msg("failed to delete session")
			}
		}
		s.clearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}
