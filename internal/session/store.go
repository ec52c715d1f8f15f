package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// TokenStore persists the auth token somewhere that survives reloads.
type TokenStore interface {
	PersistToken(ctx context.Context, token string) error
	PersistedToken(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}

// UserLoader resolves the user behind a persisted token. It returns
// ErrUnauthenticated when the token is no longer valid.
type UserLoader interface {
	Me(ctx context.Context, token string) (User, error)
}

// ExpiryFunc extracts the expiry instant of a token. ok is false for tokens
// that carry no expiry.
type ExpiryFunc func(token string) (expiresAt time.Time, ok bool)

// Option configures a Store.
type Option func(*Store)

// WithExpiry makes the store log out automatically when the token expires.
func WithExpiry(fn ExpiryFunc) Option {
	return func(s *Store) { s.expiry = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger attaches a logger used for background logouts.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store holds the current session State. Readers always observe a complete
// snapshot; SetCredentials and Logout are the only mutations. It is safe
// for concurrent use.
type Store struct {
	state  atomic.Pointer[State]
	tokens TokenStore
	expiry ExpiryFunc
	now    func() time.Time
	logger *slog.Logger

	mu sync.Mutex
	// generation counts state swaps; Restore drops its result when a
	// swap happened while the loader was running.
	generation uint64
	subs       map[int]chan State
	nextSub  int
	timer    *time.Timer
	lastSeen atomic.Int64
}

// NewStore builds an anonymous Store persisting tokens in tokens. A nil
// TokenStore keeps the token in memory only.
func NewStore(tokens TokenStore, opts ...Option) *Store {
	s := &Store{tokens: tokens, now: time.Now, subs: make(map[int]chan State)}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(&State{})
	s.touch()
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.touch()
	return *s.state.Load()
}

// Status returns the current state machine position.
func (s *Store) Status() Status {
	return s.State().Status()
}

// SetCredentials replaces the whole session with user and token and
// persists the token.
func (s *Store) SetCredentials(ctx context.Context, user User, token string) error {
	return s.apply(ctx, user, token, true, nil)
}

// Logout clears the session and removes the persisted token. The in-memory
// state is cleared even when removing the persisted token fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutLocked(ctx)
}

// Restore reconstructs the session from the persisted token. A token the
// backend rejects clears the session; other loader errors leave the
// current state untouched. A SetCredentials or Logout that completes while
// the loader runs wins over the restored state.
func (s *Store) Restore(ctx context.Context, loader UserLoader) error {
	if s.tokens == nil {
		return nil
	}
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	token, err := s.tokens.PersistedToken(ctx)
	if err != nil {
		return fmt.Errorf("session: read token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		if s.State().Authenticated() {
			return s.logoutSince(ctx, gen)
		}
		return nil
	}
	user, err := loader.Me(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return s.logoutSince(ctx, gen)
		}
		return fmt.Errorf("session: load user: %w", err)
	}
	err = s.apply(ctx, user, token, false, &gen)
	if errors.Is(err, ErrTokenExpired) || errors.Is(err, errSuperseded) {
		return nil
	}
	return err
}

// errSuperseded reports that the state changed after Restore started.
var errSuperseded = errors.New("session: state changed during restore")

func (s *Store) logoutSince(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil
	}
	return s.logoutLocked(ctx)
}

// Subscribe returns a channel receiving every new snapshot. The channel
// holds only the latest unread snapshot. Call cancel to unsubscribe.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 1)
	s.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// apply swaps in a new State. A non-nil since makes the swap conditional
// on no other swap having happened since that generation.
func (s *Store) apply(ctx context.Context, user User, token string, persist bool, since *uint64) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	var expiresAt time.Time
	expired := false
	if s.expiry != nil {
		if exp, ok := s.expiry(token); ok {
			expired = !exp.After(s.now())
			expiresAt = exp
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if since != nil && *since != s.generation {
		return errSuperseded
	}
	if expired {
		_ = s.logoutLocked(ctx)
		return ErrTokenExpired
	}
	next := newState(user, token, expiresAt)
	if persist && s.tokens != nil {
		if err := s.tokens.PersistToken(ctx, token); err != nil {
			return fmt.Errorf("session: persist token: %w", err)
		}
	}
	s.generation++
	s.state.Store(next)
	s.scheduleExpiryLocked(next)
	s.notifyLocked(*next)
	s.touch()
	return nil
}

func (s *Store) logoutLocked(ctx context.Context) error {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.state.Store(&State{})
	s.notifyLocked(State{})
	s.touch()
	if s.tokens == nil {
		return nil
	}
	if err := s.tokens.ClearToken(ctx); err != nil {
		return fmt.Errorf("session: clear token: %w", err)
	}
	return nil
}

func (s *Store) scheduleExpiryLocked(st *State) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if st.ExpiresAt.IsZero() {
		return
	}
	token := st.Token
	s.timer = time.AfterFunc(st.ExpiresAt.Sub(s.now()), func() {
		s.expire(token)
	})
}

func (s *Store) expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Load().Token != token {
		return
	}
	if err := s.logoutLocked(context.Background()); err != nil && s.logger != nil {
		s.logger.Warn("session expiry logout", slog.Any("error", err))
	}
	if s.logger != nil {
		s.logger.Info("session expired")
	}
}

func (s *Store) notifyLocked(st State) {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (s *Store) touch() {
	s.lastSeen.Store(s.now().UnixNano())
}

func (s *Store) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}
