package store

import (
	"context"
	"errors"
	"time"

	"sme-onboarding/internal/common/database"
	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/models"
)

const sessionKey = "onboarding:session"

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// SessionStore caches the signed-in identity between CLI invocations.
type SessionStore struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewSessionStore(redis *database.RedisClient, ttl time.Duration) *SessionStore {
	return &SessionStore{redis: redis, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, sess *models.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if s.ttl > 0 && sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = sess.CreatedAt.Add(s.ttl)
	}
	if err := s.redis.SetJSON(ctx, sessionKey, sess, s.ttl); err != nil {
		return stderrors.NewQueryExecutionFailedError("save_session", err)
	}
	return nil
}

// Load returns ErrNoSession when the key is missing or the session has expired.
func (s *SessionStore) Load(ctx context.Context) (*models.Session, error) {
	var sess models.Session
	err := s.redis.GetJSON(ctx, sessionKey, &sess)
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("load_session", err)
	}
	if sess.IsExpired() {
		_ = s.Clear(ctx)
		return nil, ErrNoSession
	}
	return &sess, nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.redis.Del(ctx, sessionKey)
}
