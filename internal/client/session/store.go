// Package session holds the process-wide authentication state: the current
// access and refresh tokens and the observable "is authenticated" flag.
//
// The Store does no network I/O. It is written by the auth service after a
// successful exchange and cleared on logout or when a request is rejected
// with an expired or revoked token.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned by Principal when no access token is stored.
var ErrNoSession = errors.New("no active session")

// Tokens is the pair issued after a successful authorization.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tokens Tokens
	subs   map[int]chan bool
	nextID int
}

func NewStore() *Store {
	return &Store{subs: make(map[int]chan bool)}
}

// Save replaces both tokens at once.
func (s *Store) Save(access, refresh string) {
	s.set(Tokens{AccessToken: access, RefreshToken: refresh})
}

// Current returns a snapshot of the stored tokens.
func (s *Store) Current() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// IsAuthenticated reports whether an access token is stored.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken != ""
}

// Clear drops the session on logout.
func (s *Store) Clear() {
	s.set(Tokens{})
}

// Invalidate drops the session after the server rejected the access token.
func (s *Store) Invalidate() {
	s.set(Tokens{})
}

// Subscribe returns a channel that receives the current authentication flag
// immediately and again after every change. A slow reader only ever sees the
// latest value. cancel closes the channel.
func (s *Store) Subscribe() (<-chan bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan bool, 1)
	ch <- s.tokens.AccessToken != ""
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) set(t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = t
	authed := t.AccessToken != ""
	for _, ch := range s.subs {
		publish(ch, authed)
	}
}

func publish(ch chan bool, v bool) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}

// Claims are the access token claims the client reads.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Principal describes the logged-in user as stated by the access token.
type Principal struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Principal decodes the stored access token without verifying its signature.
// The server remains the only authority on token validity.
func (s *Store) Principal() (Principal, error) {
	access := s.Current().AccessToken
	if access == "" {
		return Principal{}, ErrNoSession
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return Principal{}, err
	}

	p := Principal{Subject: claims.Subject, Role: claims.Role}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}
