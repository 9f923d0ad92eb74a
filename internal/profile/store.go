package profile

import (
	"context"
	"sync"
	"time"

	"instauto_backend/internal/session"
	"instauto_backend/internal/shared"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// CachedStore serves profile lookups for identity resolution from an
// in-memory cache in front of the repository. Misses are never cached since
// a profile may appear shortly after sign-up.
//
// Every invalidation bumps a version; a lookup that raced with one is
// returned to its caller but not cached.
type CachedStore struct {
	repo   Repository
	cache  *cache.Cache
	logger *zap.Logger

	mu       sync.Mutex
	epoch    uint64
	versions map[string]uint64
}

// NewCachedStore creates the store and subscribes it to auth events. The
// returned func unsubscribes it.
func NewCachedStore(repo Repository, ttl time.Duration, events session.Events, logger *zap.Logger) (*CachedStore, func()) {
	s := &CachedStore{
		repo:   repo,
		cache:    cache.New(ttl, 2*ttl),
		logger:   logger.Named("ProfileStore"),
		versions: make(map[string]uint64),
	}
	unsubscribe := func() {}
	if events != nil {
		unsubscribe = events.Subscribe(s.onEvent)
	}
	return s, unsubscribe
}

// GetProfile returns a copy of the cached profile or loads it.
func (s *CachedStore) GetProfile(ctx context.Context, id string) (*shared.Profile, error) {
	if v, found := s.cache.Get(id); found {
		p := v.(shared.Profile)
		return &p, nil
	}

	epoch, version := s.version(id)
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sp := ToShared(p)

	s.mu.Lock()
	if s.epoch == epoch && s.versions[id] == version {
		s.cache.SetDefault(id, *sp)
	} else {
		s.logger.Debug("Profile invalidated during lookup, not caching", zap.String("uid", id))
	}
	s.mu.Unlock()
	return sp, nil
}

func (s *CachedStore) version(id string) (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch, s.versions[id]
}

// Invalidate drops the cached profile of id.
func (s *CachedStore) Invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[id]++
	s.cache.Delete(id)
}

// InvalidateAll drops every cached profile.
func (s *CachedStore) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	clear(s.versions)
	s.cache.Flush()
}

func (s *CachedStore) onEvent(e session.Event) {
	switch e.Type {
	case session.SignedOut, session.ProfileUpdated:
		if e.UID == "" {
			s.InvalidateAll()
			return
		}
		s.logger.Debug("Invalidating cached profile", zap.String("uid", e.UID), zap.String("event", string(e.Type)))
		s.Invalidate(e.UID)
	}
}
