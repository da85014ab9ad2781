package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"librarycatalog/pkg/domain"
	"librarycatalog/pkg/store"
	"librarycatalog/services/client/internal/apiclient"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

// Authenticator is the subset of the API the session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, in apiclient.RegisterRequest) (string, error)
}

// Listener is called after every change of the session slot. ok is false
// when the session was cleared.
type Listener = func(s domain.Session, ok bool)

// Store owns the authenticated session: the in-memory slot and its persisted
// copy. Token and user are always written and cleared together.
type Store struct {
	kv     store.KV
	api    Authenticator
	logger *slog.Logger
	now    func() time.Time

	restoreOnce sync.Once
	restoreErr  error

	mu        sync.RWMutex
	current   *domain.Session
	lastErr   string
	busy      int
	listeners map[int]Listener
	nextID    int
}

// NewStore builds a session store over kv. Call Restore once before use.
func NewStore(kv store.KV, api Authenticator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:        kv,
		api:       api,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// Restore loads the persisted session without calling the network. It runs
// once per Store; later calls return the first outcome. A half-written pair,
// an unreadable user record, a value sealed with another key or an expired
// JWT counts as no session and the leftovers are cleared.
func (s *Store) Restore(ctx context.Context) error {
	s.restoreOnce.Do(func() {
		s.restoreErr = s.restore(ctx)
	})
	return s.restoreErr
}

func (s *Store) restore(ctx context.Context) error {
	unsealed := true
	token, hasToken, err := s.kv.Get(ctx, tokenKey)
	if errors.Is(err, store.ErrUnsealed) {
		unsealed, err = false, nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	rawUser, hasUser, err := s.kv.Get(ctx, userKey)
	if errors.Is(err, store.ErrUnsealed) {
		unsealed, err = false, nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if unsealed && !hasToken && !hasUser {
		return nil
	}
	reason := ""
	var user domain.User
	switch {
	case !unsealed:
		reason = "sealed value unreadable"
	case !hasToken || strings.TrimSpace(token) == "":
		reason = "token missing"
	case !hasUser:
		reason = "user missing"
	case json.Unmarshal([]byte(rawUser), &user) != nil:
		reason = "user record unreadable"
	case tokenExpired(token, s.now()):
		reason = "token expired"
	}
	if reason != "" {
		s.logger.Warn("discarding persisted session", "reason", reason)
		if err := s.kv.DeletePair(ctx, tokenKey, userKey); err != nil {
			s.logger.Warn("clear persisted session failed", "err", err)
		}
		return nil
	}
	s.swap(&domain.Session{Token: token, User: user}, "")
	s.logger.Debug("session restored", "email", user.Email)
	return nil
}

// Login authenticates and, on success, persists then installs the session.
// On failure the previous session is left as it was and LastError holds the
// user-facing message.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.begin()
	defer s.end()

	if err := ValidateLogin(email, password); err != nil {
		s.setError(err.Error())
		return err
	}
	email = strings.TrimSpace(email)
	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		return s.fail(msgLoginFailed, err)
	}
	next := &domain.Session{Token: token, User: domain.User{Email: email}}
	if err := s.persist(ctx, next); err != nil {
		s.logger.Error("persist session failed", "err", err)
		return s.fail(msgPersistFailed, err)
	}
	s.swap(next, "")
	s.logger.Info("logged in", "email", email)
	return nil
}

// Register creates an account and then logs in once with the same
// credentials; registration alone yields no token.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	s.begin()
	defer s.end()

	if err := validateSignup(email, password); err != nil {
		s.setError(err.Error())
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultUsername
	}
	email = strings.TrimSpace(email)
	if _, err := s.api.Register(ctx, apiclient.RegisterRequest{Username: username, Email: email, Password: password}); err != nil {
		return s.fail(msgRegistrationFailed, err)
	}
	s.logger.Info("registered", "email", email)
	return s.Login(ctx, email, password)
}

// Logout clears the persisted pair and the in-memory slot. It does not fail;
// storage errors are logged.
func (s *Store) Logout(ctx context.Context) {
	if err := s.kv.DeletePair(ctx, tokenKey, userKey); err != nil {
		s.logger.Warn("clear persisted session failed", "err", err)
	}
	s.swap(nil, "")
	s.logger.Info("logged out")
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Current returns a copy of the session.
func (s *Store) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}

// LastError is the message of the most recent failed login or registration.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Busy reports whether a login or registration is in flight.
func (s *Store) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy > 0
}

// Subscribe registers fn for session changes and returns its cancel func.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) persist(ctx context.Context, sess *domain.Session) error {
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.kv.SetPair(ctx, tokenKey, sess.Token, userKey, string(rawUser))
}

// swap replaces the slot and notifies listeners outside the lock.
func (s *Store) swap(next *domain.Session, lastErr string) {
	s.mu.Lock()
	s.current = next
	s.lastErr = lastErr
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	snapshot, ok := domain.Session{}, next != nil
	if ok {
		snapshot = *next
	}
	for _, fn := range listeners {
		fn(snapshot, ok)
	}
}

func (s *Store) fail(fallback string, err error) error {
	msg := apiclient.ServerMessage(err)
	if msg == "" {
		msg = fallback
	}
	s.setError(msg)
	s.logger.Warn("authentication failed", "message", msg, "err", err)
	return &Error{Message: msg, Err: err}
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

func (s *Store) begin() {
	s.mu.Lock()
	s.busy++
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.busy--
	s.mu.Unlock()
}

// IsValidation reports whether err was caught before any request.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
