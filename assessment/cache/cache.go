// Package cache wraps the assessment engine with a staleness policy, a
// per-session single-flight guard, and fallback to the last good result.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/credlink/openbank-credit/assessment"
	"github.com/credlink/openbank-credit/bank"
	"github.com/credlink/openbank-credit/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrNotYetAvailable signals that no assessment exists for the session and
// the recompute attempt failed. Callers render a pending state, not an
// error page.
var ErrNotYetAvailable = errors.New("assessment not yet available")

// DefaultStaleness is the recompute threshold for cached results.
const DefaultStaleness = 5 * time.Minute

// SnapshotSource supplies the account snapshot for a recompute. The server
// wires this to the bank data client, reusing the session's cached snapshot
// when it is still usable.
type SnapshotSource func(ctx context.Context, session *sessions.Session) (*bank.AccountSnapshot, error)

// Cache coordinates recomputes per session. At most one recompute per
// session is in flight at a time; concurrent requests observe either the
// in-flight result once it lands or the stale cached value.
type Cache struct {
	engine    *assessment.Engine
	repo      sessions.Repo
	source    SnapshotSource
	staleness time.Duration
	nowTime   func() time.Time
	logger    zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is refcounted so the entry can be pruned once the last
// waiter releases it; otherwise the map would grow with every session
// ever assessed.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures the cache.
type Option func(*Cache)

// WithStaleness sets the recompute threshold.
func WithStaleness(staleness time.Duration) Option {
	return func(c *Cache) {
		c.staleness = staleness
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates an assessment cache.
func New(engine *assessment.Engine, repo sessions.Repo, source SnapshotSource, options ...Option) *Cache {
	c := &Cache{
		engine:    engine,
		repo:      repo,
		source:    source,
		staleness: DefaultStaleness,
		nowTime:   time.Now,
		logger:    zerolog.Nop(),
		locks:     make(map[string]*sessionLock),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// GetOrRecompute returns the session's assessment, recomputing when the
// cached result is missing or older than the staleness threshold. On
// recompute failure the previous result is returned unchanged; staleness is
// preferred over unavailability. The result replacement is atomic: readers
// never observe a half-written assessment.
func (c *Cache) GetOrRecompute(ctx context.Context, sessionID string) (*assessment.Result, error) {
	session, err := c.repo.Get(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "[Cache.GetOrRecompute] session load")
	}
	if c.fresh(session.Assessment) {
		return session.Assessment, nil
	}

	lock := c.acquireSessionLock(sessionID)
	defer c.releaseSessionLock(sessionID, lock)

	// Reload under the lock: a concurrent recompute may have landed while
	// this request waited.
	session, err = c.repo.Get(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "[Cache.GetOrRecompute] session reload")
	}
	if c.fresh(session.Assessment) {
		return session.Assessment, nil
	}

	result, err := c.recompute(ctx, session)
	if err != nil {
		c.logger.Warn().Err(err).Msg("assessment recompute failed")
		if session.Assessment != nil {
			return session.Assessment, nil
		}
		return nil, ErrNotYetAvailable
	}
	return result, nil
}

func (c *Cache) recompute(ctx context.Context, session *sessions.Session) (*assessment.Result, error) {
	snapshot, err := c.source(ctx, session)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot source")
	}

	result, err := c.engine.Compute(session.Profile, snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "engine compute")
	}

	session.Snapshot = snapshot
	session.Assessment = result
	if err := c.repo.Upsert(session); err != nil {
		return nil, errors.Wrap(err, "session save")
	}
	return result, nil
}

func (c *Cache) fresh(result *assessment.Result) bool {
	return result != nil && c.nowTime().Sub(result.ComputedAt) <= c.staleness
}

func (c *Cache) acquireSessionLock(sessionID string) *sessionLock {
	c.mu.Lock()
	lock, ok := c.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		c.locks[sessionID] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (c *Cache) releaseSessionLock(sessionID string, lock *sessionLock) {
	lock.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(c.locks, sessionID)
	}
}
