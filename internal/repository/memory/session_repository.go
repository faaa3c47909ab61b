package memory

import (
	"time"

	"vlm-search-agent/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	return NewSessionRepositoryWithTTL(1*time.Hour, 10*time.Minute)
}

func NewSessionRepositoryWithTTL(ttl, cleanup time.Duration) *SessionRepository {
	return &SessionRepository{
		cache: cache.New(ttl, cleanup),
	}
}

// OnEvicted runs fn with the session id whenever a session expires or is
// deleted.
func (r *SessionRepository) OnEvicted(fn func(sessionID string)) {
	r.cache.OnEvicted(func(key string, _ interface{}) {
		fn(key)
	})
}

// Save stores the session and restarts its expiry.
func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

// Add stores the session only if the id is free.
func (r *SessionRepository) Add(session *store.Session) bool {
	return r.cache.Add(session.ID, session, cache.DefaultExpiration) == nil
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
