package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/repository"
)

// ErrSessionInvalid is returned for unknown, expired, or revoked sessions.
var ErrSessionInvalid = errors.New("staff session invalid")

const (
	sessionCachePrefix = "staff_session:"
	sessionIndexPrefix = "staff_sessions:"
)

// SessionCache is the slice of Redis the manager needs. Session records are
// cached under their token hash; a per-staff set indexes the hashes so bulk
// revocation can clear them.
type SessionCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
}

// SessionManager issues and resolves opaque staff session tokens. The raw
// token never touches storage: Postgres holds its SHA-256, Redis caches the
// full session record keyed by the same hash so cache hits skip the DB.
type SessionManager struct {
	sessions repository.StaffSessionRepository
	cache    SessionCache
	ttl      time.Duration
}

// NewSessionManager builds a manager.
func NewSessionManager(sessions repository.StaffSessionRepository, cache SessionCache, ttlHours int) *SessionManager {
	if ttlHours <= 0 {
		ttlHours = 72
	}
	return &SessionManager{
		sessions: sessions,
		cache:    cache,
		ttl:      time.Duration(ttlHours) * time.Hour,
	}
}

// Issue creates a session for the staff user and returns the raw bearer token.
func (m *SessionManager) Issue(ctx context.Context, staff *domain.StaffUser) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	session := &domain.StaffSession{
		StaffID:   staff.ID,
		AgencyID:  staff.AgencyID,
		TokenHash: HashSessionToken(token),
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return "", time.Time{}, err
	}

	m.cacheSession(ctx, session)
	return token, session.ExpiresAt, nil
}

// Resolve maps a raw bearer token to its session, consulting the cache first.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*domain.StaffSession, error) {
	hash := HashSessionToken(token)

	if m.cache != nil {
		if payload, err := m.cache.Get(ctx, sessionCachePrefix+hash).Result(); err == nil && payload != "" {
			var session domain.StaffSession
			if json.Unmarshal([]byte(payload), &session) == nil {
				if sessionUsable(&session) {
					return &session, nil
				}
				_ = m.cache.Del(ctx, sessionCachePrefix+hash).Err()
				return nil, ErrSessionInvalid
			}
			// Unreadable entry: drop it and fall back to the DB.
			_ = m.cache.Del(ctx, sessionCachePrefix+hash).Err()
		}
	}

	session, err := m.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if !sessionUsable(session) {
		return nil, ErrSessionInvalid
	}

	m.cacheSession(ctx, session)
	return session, nil
}

// Revoke invalidates a session given its raw token.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	hash := HashSessionToken(token)
	session, err := m.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		return ErrSessionInvalid
	}
	if err := m.sessions.Revoke(ctx, session.ID); err != nil {
		return err
	}
	if m.cache != nil {
		_ = m.cache.Del(ctx, sessionCachePrefix+hash).Err()
	}
	return nil
}

// RevokeAllForStaff invalidates every session of one staff user.
func (m *SessionManager) RevokeAllForStaff(ctx context.Context, staffID string) error {
	if err := m.sessions.RevokeAllForStaff(ctx, staffID); err != nil {
		return err
	}
	if m.cache != nil {
		indexKey := sessionIndexPrefix + staffID
		if hashes, err := m.cache.SMembers(ctx, indexKey).Result(); err == nil {
			keys := make([]string, 0, len(hashes)+1)
			for _, h := range hashes {
				keys = append(keys, sessionCachePrefix+h)
			}
			keys = append(keys, indexKey)
			_ = m.cache.Del(ctx, keys...).Err()
		}
	}
	return nil
}

func (m *SessionManager) cacheSession(ctx context.Context, session *domain.StaffSession) {
	if m.cache == nil {
		return
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := m.cache.Set(ctx, sessionCachePrefix+session.TokenHash, payload, ttl).Err(); err != nil {
		return
	}
	indexKey := sessionIndexPrefix + session.StaffID
	_ = m.cache.SAdd(ctx, indexKey, session.TokenHash).Err()
	_ = m.cache.Expire(ctx, indexKey, m.ttl).Err()
}

func sessionUsable(session *domain.StaffSession) bool {
	if session == nil || session.RevokedAt != nil {
		return false
	}
	return time.Now().Before(session.ExpiresAt)
}

// HashSessionToken returns the hex SHA-256 of a raw session token.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
