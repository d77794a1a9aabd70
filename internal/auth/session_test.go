package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyiq/agency-service/internal/domain"
)

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.StaffSession
	seq      int
	getCalls int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*domain.StaffSession)}
}

func (s *memSessionStore) Create(_ context.Context, session *domain.StaffSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	session.ID = fmt.Sprintf("session-%d", s.seq)
	session.CreatedAt = time.Now()
	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

func (s *memSessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*domain.StaffSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	for _, session := range s.sessions {
		if session.TokenHash == tokenHash {
			clone := *session
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memSessionStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok && session.RevokedAt == nil {
		now := time.Now()
		session.RevokedAt = &now
	}
	return nil
}

func (s *memSessionStore) RevokeAllForStaff(_ context.Context, staffID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, session := range s.sessions {
		if session.StaffID == staffID && session.RevokedAt == nil {
			session.RevokedAt = &now
		}
	}
	return nil
}

type fakeSessionCache struct {
	values map[string]string
	sets   map[string]map[string]struct{}
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{values: make(map[string]string), sets: make(map[string]map[string]struct{})}
}

func (f *fakeSessionCache) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := f.values[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeSessionCache) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeSessionCache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
		if _, ok := f.sets[key]; ok {
			delete(f.sets, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func (f *fakeSessionCache) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	set, ok := f.sets[key]
	if !ok {
		set = make(map[string]struct{})
		f.sets[key] = set
	}
	for _, m := range members {
		set[fmt.Sprint(m)] = struct{}{}
	}
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *fakeSessionCache) SMembers(ctx context.Context, key string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	members := make([]string, 0, len(f.sets[key]))
	for m := range f.sets[key] {
		members = append(members, m)
	}
	cmd.SetVal(members)
	return cmd
}

func (f *fakeSessionCache) Expire(ctx context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func testStaff() *domain.StaffUser {
	return &domain.StaffUser{ID: "staff-1", AgencyID: "agency-1"}
}

func TestResolveCacheHitSkipsStore(t *testing.T) {
	store := newMemSessionStore()
	cache := newFakeSessionCache()
	manager := NewSessionManager(store, cache, 1)

	token, _, err := manager.Issue(context.Background(), testStaff())
	require.NoError(t, err)

	session, err := manager.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", session.StaffID)
	assert.Equal(t, "agency-1", session.AgencyID)
	assert.Equal(t, 0, store.getCalls, "a cached session must resolve without a store lookup")
}

func TestResolveCacheMissFallsBackAndWarms(t *testing.T) {
	store := newMemSessionStore()
	cache := newFakeSessionCache()
	manager := NewSessionManager(store, cache, 1)

	token, _, err := manager.Issue(context.Background(), testStaff())
	require.NoError(t, err)
	cache.values = make(map[string]string)

	_, err = manager.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 1, store.getCalls)

	_, err = manager.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 1, store.getCalls, "the miss must warm the cache for the next resolve")
}

func TestResolveExpiredCachedSessionRejected(t *testing.T) {
	store := newMemSessionStore()
	cache := newFakeSessionCache()
	manager := NewSessionManager(store, cache, 1)

	token, _, err := manager.Issue(context.Background(), testStaff())
	require.NoError(t, err)

	hash := HashSessionToken(token)
	stale, err := json.Marshal(&domain.StaffSession{
		ID:        "session-1",
		StaffID:   "staff-1",
		AgencyID:  "agency-1",
		TokenHash: hash,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	cache.values[sessionCachePrefix+hash] = string(stale)

	_, err = manager.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.NotContains(t, cache.values, sessionCachePrefix+hash)
}

func TestRevokeInvalidatesCache(t *testing.T) {
	store := newMemSessionStore()
	cache := newFakeSessionCache()
	manager := NewSessionManager(store, cache, 1)

	token, _, err := manager.Issue(context.Background(), testStaff())
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(context.Background(), token))

	assert.NotContains(t, cache.values, sessionCachePrefix+HashSessionToken(token))
	_, err = manager.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestRevokeAllForStaffClearsCachedSessions(t *testing.T) {
	store := newMemSessionStore()
	cache := newFakeSessionCache()
	manager := NewSessionManager(store, cache, 1)

	tokenA, _, err := manager.Issue(context.Background(), testStaff())
	require.NoError(t, err)
	tokenB, _, err := manager.Issue(context.Background(), testStaff())
	require.NoError(t, err)

	require.NoError(t, manager.RevokeAllForStaff(context.Background(), "staff-1"))

	assert.NotContains(t, cache.values, sessionCachePrefix+HashSessionToken(tokenA))
	assert.NotContains(t, cache.values, sessionCachePrefix+HashSessionToken(tokenB))
	assert.NotContains(t, cache.sets, sessionIndexPrefix+"staff-1")

	_, err = manager.Resolve(context.Background(), tokenA)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = manager.Resolve(context.Background(), tokenB)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}
