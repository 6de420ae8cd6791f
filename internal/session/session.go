// Package session remembers which wedding code the client last opened.
//
// A session only tracks local freshness. It says nothing about whether the
// wedding still exists on the server; callers clear it when opening or
// bootstrapping the code fails with not found.
package session

import (
	"fmt"
	"time"
)

const (
	// Key is the blob the session is stored under.
	Key = "wedding_code"
	// DefaultTTL is how long a saved code is remembered locally.
	DefaultTTL = 5 * 24 * time.Hour
)

// Blobs is the durable storage the session lives in.
type Blobs interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
	Remove(key string) error
}

type Session struct {
	Code     string    `json:"code"`
	SavedAt  time.Time `json:"savedAt"`
	ExpireAt time.Time `json:"expireAt"`
}

type Store struct {
	blobs Blobs
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(blobs Blobs, opts ...Option) *Store {
	s := &Store{blobs: blobs, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save records code as the active session, replacing any previous one.
// The code is stored as given; normalize it first.
func (s *Store) Save(code string) (Session, error) {
	now := s.now().UTC()
	sess := Session{Code: code, SavedAt: now, ExpireAt: now.Add(s.ttl)}
	if err := s.blobs.Set(Key, sess); err != nil {
		return Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

// Load returns the active session, or nil when there is none. An expired
// session is removed on the way.
func (s *Store) Load() (*Session, error) {
	var sess Session
	ok, err := s.blobs.Get(Key, &sess)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !ok || sess.Code == "" {
		return nil, nil
	}
	if s.now().After(sess.ExpireAt) {
		if err := s.Clear(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &sess, nil
}

// Clear removes the session unconditionally.
func (s *Store) Clear() error {
	if err := s.blobs.Remove(Key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
