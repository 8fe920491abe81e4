package sessions

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo
// interface. Sessions past the absolute TTL are evicted on read.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	nowTime  func() time.Time
}

// InMemoryRepoOption configures the repository.
type InMemoryRepoOption func(*InMemoryRepo)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) InMemoryRepoOption {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

// NewInMemoryRepo creates a new in-memory session repository. A ttl of zero
// disables session expiry.
func NewInMemoryRepo(ttl time.Duration, options ...InMemoryRepoOption) *InMemoryRepo {
	r := &InMemoryRepo{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

var _ Repo = (*InMemoryRepo)(nil)

// Upsert stores or replaces a session. The stored value is a copy, so the
// caller's pointer cannot mutate repository state afterwards.
func (r *InMemoryRepo) Upsert(session *Session) error {
	if session == nil {
		return errors.New("[InMemoryRepo.Upsert] session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("[InMemoryRepo.Upsert] session ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session.Clone()
	return nil
}

// Get retrieves a session copy by ID. Sessions past the absolute TTL are
// deleted and reported as expired.
func (r *InMemoryRepo) Get(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, errors.New("[InMemoryRepo.Get] session ID cannot be empty")
	}

	r.mu.RLock()
	session, exists := r.sessions[sessionID]
	r.mu.RUnlock()
	if !exists {
		return nil, ErrSessionNotFound
	}

	if r.ttl > 0 && r.nowTime().Sub(session.CreatedAt) > r.ttl {
		r.mu.Lock()
		delete(r.sessions, sessionID)
		r.mu.Unlock()
		return nil, ErrSessionExpired
	}

	return session.Clone(), nil
}

// Delete removes a session.
func (r *InMemoryRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return errors.New("[InMemoryRepo.Delete] session ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}
