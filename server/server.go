// Package server exposes the HTTP surface of the bank connection and credit
// assessment flow: the authorization redirect, the OAuth callback, the
// connection status, the application form, and the assessment endpoint.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/credlink/openbank-credit/assessment"
	"github.com/credlink/openbank-credit/assessment/cache"
	"github.com/credlink/openbank-credit/bank"
	"github.com/credlink/openbank-credit/credentials"
	"github.com/credlink/openbank-credit/internal/config"
	"github.com/credlink/openbank-credit/sessions"
	"github.com/pkg/errors"
)

// Exchanger performs the authorization-code exchange.
type Exchanger interface {
	Exchange(ctx context.Context, code string, req *bank.AuthorizationRequest) (*bank.TokenSet, error)
}

// SnapshotFetcher fetches account data with an access token.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, accessToken string) (*bank.AccountSnapshot, error)
}

// IDVerifier verifies id_tokens from the exchange. May be nil when the bank
// publishes no discovery document.
type IDVerifier interface {
	Verify(ctx context.Context, rawIDToken string) error
}

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	creds    *credentials.Store
	exchange Exchanger
	fetcher  SnapshotFetcher
	verifier IDVerifier
	sessions sessions.Repo
	cache    *cache.Cache
	nowTime  func() time.Time
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithIDVerifier installs an id_token verifier on the callback path.
func WithIDVerifier(verifier IDVerifier) ServerOption {
	return func(s *Server) {
		s.verifier = verifier
	}
}

// New wires the core together: the session repository, the exchange client,
// the assessment engine, and its cache.
func New(cfg config.Config, creds *credentials.Store, exchanger Exchanger, fetcher SnapshotFetcher, sessionRepo sessions.Repo, options ...ServerOption) (*Server, error) {
	if creds == nil {
		return nil, errors.New("[server.New] credential store is required")
	}
	if exchanger == nil {
		return nil, errors.New("[server.New] exchanger is required")
	}
	if sessionRepo == nil {
		return nil, errors.New("[server.New] session repo is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		creds:    creds,
		exchange: exchanger,
		fetcher:  fetcher,
		sessions: sessionRepo,
		nowTime:  time.Now,
	}
	s.env = cfg.GetEnv()

	for _, opt := range options {
		opt(s)
	}

	engine := assessment.NewEngine(cfg, assessment.WithNowTime(s.nowTime))
	s.cache = cache.New(engine, sessionRepo, s.snapshotSource,
		cache.WithStaleness(cfg.GetAssessmentStaleness()),
		cache.WithNowTime(s.nowTime),
	)

	s.initRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// snapshotSource supplies account data for assessment recomputes: the cached
// snapshot while it is fresh, otherwise a fetch with the session's access
// token. Without a usable token the stale snapshot is better than nothing.
func (s *Server) snapshotSource(ctx context.Context, session *sessions.Session) (*bank.AccountSnapshot, error) {
	now := s.nowTime()
	if session.Snapshot != nil && now.Sub(session.Snapshot.FetchedAt) <= s.config.GetAssessmentStaleness() {
		return session.Snapshot, nil
	}

	status := sessions.DeriveStatus(session, now)
	if status.State != sessions.StateConnected {
		if session.Snapshot != nil {
			return session.Snapshot, nil
		}
		return nil, errors.Errorf("[Server.snapshotSource] bank connection is %s and no snapshot is cached", status.State)
	}
	if s.fetcher == nil {
		return nil, errors.New("[Server.snapshotSource] no snapshot fetcher configured")
	}
	return s.fetcher.FetchSnapshot(ctx, session.Token.AccessToken)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
