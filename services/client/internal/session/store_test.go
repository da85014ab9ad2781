package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"librarycatalog/pkg/domain"
	"librarycatalog/pkg/store"
	"librarycatalog/services/client/internal/apiclient"
)

type fakeAuth struct {
	mu            sync.Mutex
	loginCalls    []string
	registerCalls []apiclient.RegisterRequest
	token         string
	loginErr      error
	registerErr   error
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls = append(f.loginCalls, email+"/"+password)
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.token, nil
}

func (f *fakeAuth) Register(_ context.Context, in apiclient.RegisterRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls = append(f.registerCalls, in)
	if f.registerErr != nil {
		return "", f.registerErr
	}
	return "u1", nil
}

type failingKV struct {
	store.KV
}

func (failingKV) SetPair(context.Context, string, string, string, string) error {
	return errors.New("disk full")
}

func (failingKV) DeletePair(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestLoginInstallsSessionWithInputEmail(t *testing.T) {
	kv := store.NewMemoryStore()
	auth := &fakeAuth{token: "T"}
	s := NewStore(kv, auth, nil)

	if err := s.Login(context.Background(), "a@b.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	sess, ok := s.Current()
	if !ok {
		t.Fatalf("expected session after login")
	}
	if sess.Token != "T" || sess.User.Email != "a@b.com" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if s.Token() != "T" {
		t.Fatalf("token = %q", s.Token())
	}
	if token, ok, _ := kv.Get(context.Background(), "token"); !ok || token != "T" {
		t.Fatalf("token not persisted: %q %v", token, ok)
	}
	if s.Busy() {
		t.Fatalf("store should not be busy after login returns")
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	kv, err := store.NewFileStore(dir, "default")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	first := NewStore(kv, &fakeAuth{token: "T"}, nil)
	if err := first.Login(context.Background(), "a@b.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	reopened, err := store.NewFileStore(dir, "default")
	if err != nil {
		t.Fatalf("reopen file store: %v", err)
	}
	auth := &fakeAuth{}
	second := NewStore(reopened, auth, nil)
	if err := second.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	sess, ok := second.Current()
	if !ok || sess.Token != "T" || sess.User.Email != "a@b.com" {
		t.Fatalf("unexpected restored session %+v ok=%v", sess, ok)
	}
	if len(auth.loginCalls) != 0 {
		t.Fatalf("restore must not call the network")
	}
}

func TestRegisterChainsIntoExactlyOneLogin(t *testing.T) {
	auth := &fakeAuth{token: "T"}
	s := NewStore(store.NewMemoryStore(), auth, nil)

	if err := s.Register(context.Background(), "", "a@b.com", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(auth.registerCalls) != 1 || auth.registerCalls[0].Username != "user" {
		t.Fatalf("unexpected register calls %+v", auth.registerCalls)
	}
	if len(auth.loginCalls) != 1 || auth.loginCalls[0] != "a@b.com/secret1" {
		t.Fatalf("expected one login with the same credentials, got %v", auth.loginCalls)
	}
	if s.Token() != "T" {
		t.Fatalf("expected session after register")
	}
}

func TestRegisterFailureSkipsLogin(t *testing.T) {
	auth := &fakeAuth{token: "T", registerErr: &apiclient.APIError{Status: 409, Message: "email already used"}}
	s := NewStore(store.NewMemoryStore(), auth, nil)

	err := s.Register(context.Background(), "ana", "a@b.com", "secret1")
	if err == nil || err.Error() != "email already used" {
		t.Fatalf("expected server message, got %v", err)
	}
	if len(auth.loginCalls) != 0 {
		t.Fatalf("login must not run after failed registration")
	}
	if s.LastError() != "email already used" {
		t.Fatalf("last error = %q", s.LastError())
	}
}

func TestRegisterFailureWithoutMessageUsesGeneric(t *testing.T) {
	auth := &fakeAuth{registerErr: &apiclient.TransportError{Op: "POST /auth/register", Err: errors.New("refused")}}
	s := NewStore(store.NewMemoryStore(), auth, nil)
	_ = s.Register(context.Background(), "ana", "a@b.com", "secret1")
	if s.LastError() != "registration failed" {
		t.Fatalf("last error = %q", s.LastError())
	}
}

func TestLoginFailureKeepsPriorSession(t *testing.T) {
	auth := &fakeAuth{token: "T"}
	s := NewStore(store.NewMemoryStore(), auth, nil)
	if err := s.Login(context.Background(), "a@b.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	auth.loginErr = &apiclient.APIError{Status: 401}
	err := s.Login(context.Background(), "c@d.com", "secret2")
	var sessErr *Error
	if !errors.As(err, &sessErr) || sessErr.Message != "login failed" {
		t.Fatalf("expected generic login failure, got %v", err)
	}
	if sess, _ := s.Current(); sess.Token != "T" || sess.User.Email != "a@b.com" {
		t.Fatalf("prior session must be untouched, got %+v", sess)
	}
}

func TestLoginValidationNeverCallsNetwork(t *testing.T) {
	auth := &fakeAuth{token: "T"}
	s := NewStore(store.NewMemoryStore(), auth, nil)

	for _, tc := range []struct{ email, password string }{
		{"", "secret1"},
		{"a@b.com", ""},
		{"not-an-email", "secret1"},
		{"a@b", "secret1"},
	} {
		if err := s.Login(context.Background(), tc.email, tc.password); !IsValidation(err) {
			t.Fatalf("login(%q,%q) expected validation error, got %v", tc.email, tc.password, err)
		}
	}
	if err := s.Register(context.Background(), "ana", "a@b.com", "12345"); !IsValidation(err) {
		t.Fatalf("short password should fail validation, got %v", err)
	}
	if len(auth.loginCalls)+len(auth.registerCalls) != 0 {
		t.Fatalf("validation errors must not reach the network")
	}
}

func TestValidateRegistration(t *testing.T) {
	if err := ValidateRegistration("a@b.com", "secret1", "secret2"); err == nil || err.Error() != "passwords do not match" {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if err := ValidateRegistration("a@b.com", "secret1", "secret1"); err != nil {
		t.Fatalf("valid registration: %v", err)
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	kv := store.NewMemoryStore()
	s := NewStore(kv, &fakeAuth{token: "T"}, nil)
	if err := s.Login(context.Background(), "a@b.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	s.Logout(context.Background())
	if _, ok := s.Current(); ok || s.Token() != "" {
		t.Fatalf("expected no session after logout")
	}
	if kv.Len() != 0 {
		t.Fatalf("expected persisted pair cleared, %d entries left", kv.Len())
	}

	broken := NewStore(failingKV{KV: store.NewMemoryStore()}, &fakeAuth{}, nil)
	broken.Logout(context.Background())
	if broken.Token() != "" {
		t.Fatalf("logout must clear memory even when storage fails")
	}
}

func TestLoginPersistFailureLeavesSessionUnset(t *testing.T) {
	s := NewStore(failingKV{KV: store.NewMemoryStore()}, &fakeAuth{token: "T"}, nil)
	if err := s.Login(context.Background(), "a@b.com", "secret1"); err == nil {
		t.Fatalf("expected persist error")
	}
	if s.Token() != "" {
		t.Fatalf("session must not be installed when it could not be saved")
	}
}

func TestRestoreDiscardsHalfPair(t *testing.T) {
	kv := store.NewMemoryStore()
	if err := kv.SetPair(context.Background(), "token", "T", "other", "x"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := NewStore(kv, &fakeAuth{}, nil)
	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if s.Token() != "" {
		t.Fatalf("half pair must not restore a session")
	}
	if _, ok, _ := kv.Get(context.Background(), "token"); ok {
		t.Fatalf("half pair should be cleared")
	}
}

func TestRestoreDiscardsUnreadableUser(t *testing.T) {
	kv := store.NewMemoryStore()
	_ = kv.SetPair(context.Background(), "token", "T", "user", "{broken")
	s := NewStore(kv, &fakeAuth{}, nil)
	_ = s.Restore(context.Background())
	if s.Token() != "" {
		t.Fatalf("unreadable user must not restore a session")
	}
}

func TestRestoreClearsValuesSealedWithAnotherKey(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryStore()
	_ = inner.SetPair(ctx, "token", "T", "user", `{"email":"a@b.com"}`)

	key := make([]byte, 32)
	sealed, err := store.NewSealedStore(inner, key)
	if err != nil {
		t.Fatalf("new sealed store: %v", err)
	}
	s := NewStore(sealed, &fakeAuth{}, nil)
	if err := s.Restore(ctx); err != nil {
		t.Fatalf("restore should treat unsealable values as no session: %v", err)
	}
	if s.Token() != "" {
		t.Fatalf("plaintext values must not restore under a sealing key")
	}
	if inner.Len() != 0 {
		t.Fatalf("unsealable pair should be cleared, %d entries left", inner.Len())
	}

	again := NewStore(sealed, &fakeAuth{}, nil)
	if err := again.Restore(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
}

func TestRestoreDiscardsExpiredJWT(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	kv := store.NewMemoryStore()
	_ = kv.SetPair(context.Background(), "token", expired, "user", `{"id":"","email":"a@b.com"}`)
	s := NewStore(kv, &fakeAuth{}, nil)
	_ = s.Restore(context.Background())
	if s.Token() != "" {
		t.Fatalf("expired token must not restore a session")
	}

	valid, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	kv2 := store.NewMemoryStore()
	_ = kv2.SetPair(context.Background(), "token", valid, "user", `{"id":"","email":"a@b.com"}`)
	s2 := NewStore(kv2, &fakeAuth{}, nil)
	_ = s2.Restore(context.Background())
	if s2.Token() != valid {
		t.Fatalf("unexpired token should restore")
	}
}

func TestRestoreRunsOnce(t *testing.T) {
	kv := store.NewMemoryStore()
	s := NewStore(kv, &fakeAuth{}, nil)
	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	_ = kv.SetPair(context.Background(), "token", "T", "user", `{"email":"a@b.com"}`)
	_ = s.Restore(context.Background())
	if s.Token() != "" {
		t.Fatalf("second restore must be a no-op")
	}
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	s := NewStore(store.NewMemoryStore(), &fakeAuth{token: "T"}, nil)
	var events []bool
	cancel := s.Subscribe(func(_ domain.Session, ok bool) {
		events = append(events, ok)
	})
	_ = s.Login(context.Background(), "a@b.com", "secret1")
	s.Logout(context.Background())
	cancel()
	_ = s.Login(context.Background(), "a@b.com", "secret1")

	if len(events) != 2 || !events[0] || events[1] {
		t.Fatalf("unexpected events %v", events)
	}
}
