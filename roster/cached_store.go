package roster

import (
	"context"

	"github.com/hashicorp/golang-lru"
	"go.gradalloc.dev/core/metrics"
)

// CachedStore wraps a Store with a read-through LRU cache of Preferences.
// Writes are passed through and update the cache. A CachedStore should be
// scoped to a single transaction of its wrapped Store: it has no visibility
// into a rollback, after which its cached Preferences may be stale.
type CachedStore struct {
	Store
	cache *lru.Cache
}

type preferenceKey struct {
	graduateID, teamID string
}

// NewCachedStore returns a CachedStore of the given size (which must be > 0).
func NewCachedStore(store Store, size int) *CachedStore {
	var cache, err = lru.New(size)
	if err != nil {
		panic(err.Error()) // Only errors on size <= 0.
	}
	return &CachedStore{Store: store, cache: cache}
}

// GetPreference returns a cached Preference, or reads through to the Store.
func (s *CachedStore) GetPreference(ctx context.Context, graduateID, teamID string) (Preference, error) {
	var key = preferenceKey{graduateID: graduateID, teamID: teamID}

	if v, ok := s.cache.Get(key); ok {
		metrics.RosterPreferenceCacheHitsTotal.Inc()
		return v.(Preference), nil
	}
	metrics.RosterPreferenceCacheMissesTotal.Inc()

	var pref, err = s.Store.GetPreference(ctx, graduateID, teamID)
	if err == nil {
		s.cache.Add(key, pref)
	}
	return pref, err
}

// GetOrCreatePreference returns a cached Preference, or reads through to the
// Store (which may create it).
func (s *CachedStore) GetOrCreatePreference(ctx context.Context, graduateID, teamID string) (Preference, error) {
	var key = preferenceKey{graduateID: graduateID, teamID: teamID}

	if v, ok := s.cache.Get(key); ok {
		metrics.RosterPreferenceCacheHitsTotal.Inc()
		return v.(Preference), nil
	}
	metrics.RosterPreferenceCacheMissesTotal.Inc()

	var pref, err = s.Store.GetOrCreatePreference(ctx, graduateID, teamID)
	if err == nil {
		s.cache.Add(key, pref)
	}
	return pref, err
}

// SavePreference writes through to the Store, and caches the Preference
// if the write succeeds.
func (s *CachedStore) SavePreference(ctx context.Context, pref Preference) error {
	var key = preferenceKey{graduateID: pref.GraduateID, teamID: pref.TeamID}

	if err := s.Store.SavePreference(ctx, pref); err != nil {
		s.cache.Remove(key)
		return err
	}
	s.cache.Add(key, pref)
	return nil
}

// RecordRound passes through to the wrapped Store, if it's a RoundRecorder.
func (s *CachedStore) RecordRound(ctx context.Context, round Round) error {
	if rr, ok := s.Store.(RoundRecorder); ok {
		return rr.RecordRound(ctx, round)
	}
	return nil
}

var _ RoundRecorder = (*CachedStore)(nil)
