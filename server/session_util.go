package server

import (
	"net/http"

	"github.com/credlink/openbank-credit/sessions"
	"github.com/pkg/errors"
)

// sessionCookieName is the cookie carrying the opaque session identifier.
const sessionCookieName = "ob_session_id"

// loadSession resolves the request's session, or fails when there is none
// (missing cookie, unknown ID, or expired by the absolute session TTL).
func (s *Server) loadSession(r *http.Request) (*sessions.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, sessions.ErrSessionNotFound
	}
	return s.sessions.Get(cookie.Value)
}

// loadOrCreateSession resolves the request's session, creating and
// persisting a fresh one when necessary.
func (s *Server) loadOrCreateSession(w http.ResponseWriter, r *http.Request) (*sessions.Session, error) {
	session, err := s.loadSession(r)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, sessions.ErrSessionNotFound) && !errors.Is(err, sessions.ErrSessionExpired) {
		return nil, err
	}

	session = sessions.New(s.nowTime())
	if err := s.sessions.Upsert(session); err != nil {
		return nil, errors.Wrap(err, "[Server.loadOrCreateSession] failed to create session")
	}
	s.setSessionCookie(w, r, session.ID)
	return session, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetMaxSessionAge().Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
