// Package auth owns terminal sessions: issuing, validating and revoking
// tokens, and checking staff credentials at login.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"posterminal/models"
	"posterminal/store"
	"posterminal/utils"
)

type sessionTable struct {
	Sessions []models.Session `bson:"sessions"`
}

func (t *sessionTable) find(token string) int {
	for i := range t.Sessions {
		if t.Sessions[i].Token == token {
			return i
		}
	}
	return -1
}

func (t *sessionTable) remove(i int) {
	t.Sessions = append(t.Sessions[:i], t.Sessions[i+1:]...)
}

// SessionStore maps tokens to identities with a fixed TTL. It is created once
// at startup and shared by every handler.
type SessionStore struct {
	sessions *store.Collection[sessionTable]
	signer   *utils.TokenSigner
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

type SessionOption func(*SessionStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

func WithLogger(log zerolog.Logger) SessionOption {
	return func(s *SessionStore) { s.log = log }
}

func NewSessionStore(backend store.Store, signer *utils.TokenSigner, ttl time.Duration, opts ...SessionOption) (*SessionStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: session ttl must be positive", models.ErrInvalidArgument)
	}
	s := &SessionStore{
		sessions: store.NewCollection[sessionTable](backend, store.Sessions),
		signer:   signer,
		ttl:      ttl,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SessionStore) TTL() time.Duration { return s.ttl }

func (s *SessionStore) Issue(ctx context.Context, identity string) (models.Session, error) {
	if identity == "" {
		return models.Session{}, fmt.Errorf("%w: identity is required", models.ErrInvalidArgument)
	}
	now := s.now()
	session := models.Session{
		Identity:  identity,
		IssuedAt:  now.UTC(),
		ExpiresAt: now.Add(s.ttl).UTC(),
	}
	token, err := s.signer.GenerateToken(identity, session.IssuedAt, session.ExpiresAt)
	if err != nil {
		return models.Session{}, fmt.Errorf("generate session token: %w", err)
	}
	session.Token = token

	err = s.sessions.Mutate(ctx, func(t *sessionTable) error {
		t.Sessions = append(t.Sessions, session)
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}
	s.log.Info().Str("user", identity).Time("expires_at", session.ExpiresAt).Msg("session issued")
	return session, nil
}

// Revoke removes the session. Unknown tokens are ignored.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Mutate(ctx, func(t *sessionTable) error {
		if i := t.find(token); i >= 0 {
			s.log.Info().Str("user", t.Sessions[i].Identity).Msg("session revoked")
			t.remove(i)
		}
		return nil
	})
}

// Validate returns the identity behind token, or models.ErrUnauthenticated.
// An expired session is evicted as a side effect.
func (s *SessionStore) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: no session token", models.ErrUnauthenticated)
	}
	if _, err := s.signer.ValidateToken(token); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}

	s.sessions.Lock()
	defer s.sessions.Unlock()

	t, err := s.sessions.Load(ctx)
	if err != nil {
		return "", err
	}
	i := t.find(token)
	if i < 0 {
		return "", fmt.Errorf("%w: unknown session", models.ErrUnauthenticated)
	}
	if session := t.Sessions[i]; session.Expired(s.now()) {
		t.remove(i)
		if err := s.sessions.Save(ctx, t); err != nil {
			return "", err
		}
		s.log.Debug().Str("user", session.Identity).Msg("expired session evicted")
		return "", fmt.Errorf("%w: session expired", models.ErrUnauthenticated)
	}
	return t.Sessions[i].Identity, nil
}

// Sweep evicts every expired session and reports how many were removed.
func (s *SessionStore) Sweep(ctx context.Context) (int, error) {
	var removed int
	err := s.sessions.Mutate(ctx, func(t *sessionTable) error {
		now := s.now()
		kept := t.Sessions[:0]
		for _, session := range t.Sessions {
			if session.Expired(now) {
				removed++
				continue
			}
			kept = append(kept, session)
		}
		t.Sessions = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
