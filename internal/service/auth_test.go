package service

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgcrypto "github.com/whereabouts-app/whereabouts/internal/crypto"
	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/limiter"
	"github.com/whereabouts-app/whereabouts/internal/model"
	"github.com/whereabouts-app/whereabouts/internal/repository"
	"github.com/whereabouts-app/whereabouts/internal/session"
	"github.com/gofrs/uuid/v5"
)

type fakeUsers struct {
	byEmail map[string]*model.User

	createErr error
	getErr    error

	setKeyErr   error
	setKeyCalls int
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.User{}
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byEmail[u.Email] = &cpy
	return nil
}
func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}
func (f *fakeUsers) SetPublicKey(_ context.Context, id uuid.UUID, publicKey []byte) error {
	f.setKeyCalls++
	if f.setKeyErr != nil {
		return f.setKeyErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			u.PublicKey = append([]byte(nil), publicKey...)
			return nil
		}
	}
	return errs.ErrNotFound
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakeRevoker struct {
	revoked map[string]time.Duration
	err     error
}

var _ session.Revoker = (*fakeRevoker)(nil)

func (r *fakeRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if r.err != nil {
		return r.err
	}
	if r.revoked == nil {
		r.revoked = map[string]time.Duration{}
	}
	r.revoked[jti] = ttl
	return nil
}
func (r *fakeRevoker) Revoked(_ context.Context, jti string) (bool, error) {
	_, ok := r.revoked[jti]
	return ok, nil
}

func newTestPubKey() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i + 1)
	}
	return k
}

func TestAuth_Register_Basics(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byEmail: map[string]*model.User{}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{}, &fakeRevoker{})

	if _, err := s.Register(context.Background(), "", "", "", nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on empty email/password, got %v", err)
	}
	if _, err := s.Register(context.Background(), "not-an-email", "n", "pwd", nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on malformed email, got %v", err)
	}
	if _, err := s.Register(context.Background(), "a@b.cc", "n", "pwd", []byte{1, 2, 3}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on short public key, got %v", err)
	}

	id, err := s.Register(context.Background(), "Alice@Example.COM ", "Alice", "pwd", newTestPubKey())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id == "" {
		t.Fatalf("empty user id")
	}
	if _, ok := users.byEmail["alice@example.com"]; !ok {
		t.Fatalf("email not normalized: %v", users.byEmail)
	}

	if _, err := s.Register(context.Background(), "alice@example.com", "Alice", "pwd2", nil); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate email, got %v", err)
	}

	users.createErr = errors.New("boom")
	if _, err := s.Register(context.Background(), "bob@example.com", "Bob", "pwd", nil); err == nil {
		t.Fatalf("want propagated repo error")
	}
}

func TestAuth_LoginWithIP_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()

	saltAuth, _ := pkgcrypto.RandBytes(16)
	pw := []byte("correct")
	u := &model.User{
		ID:        uuid.Must(uuid.NewV4()),
		Email:     "alice@example.com",
		Name:      "Alice",
		SaltAuth:  saltAuth,
		PwdHash:   pkgcrypto.HashPassword(pw, saltAuth),
		PublicKey: newTestPubKey(),
	}

	users := &fakeUsers{byEmail: map[string]*model.User{"alice@example.com": u}}
	lim := &fakeLimiter{allowOK: true}
	s := NewAuthService(users, []byte("secret"), 2*time.Minute, lim, &fakeRevoker{})

	lim.allowErr = errors.New("lim-err")
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "correct", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "correct", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	users.getErr = errs.ErrNotFound
	if _, _, err := s.LoginWithIP(context.Background(), "nope@example.com", "x", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on missing user, got %v", err)
	}
	users.getErr = nil

	lim.failBlocked = true
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "wrong", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}

	lim.failBlocked = false
	if _, _, err := s.LoginWithIP(context.Background(), "alice@example.com", "wrong", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on wrong password, got %v", err)
	}

	tok, gotUser, err := s.LoginWithIP(context.Background(), "Alice@Example.com", "correct", "127.0.0.1:123")
	if err != nil {
		t.Fatalf("LoginWithIP success: %v", err)
	}
	if tok.AccessToken == "" || tok.ExpiresAt.Before(time.Now()) {
		t.Fatalf("bad token: %+v", tok)
	}
	if gotUser.ID != u.ID || len(gotUser.PublicKey) == 0 {
		t.Fatalf("bad user returned: %+v", gotUser)
	}
	if lim.successCalls == 0 {
		t.Fatalf("expected Success() to be called")
	}
}

func TestAuth_Logout_RevokesRemainingLifetime(t *testing.T) {
	t.Parallel()

	rev := &fakeRevoker{}
	s := NewAuthService(&fakeUsers{}, []byte("k"), time.Minute, &fakeLimiter{}, rev)

	if err := s.Logout(context.Background(), "", time.Now().Add(time.Minute)); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on empty jti, got %v", err)
	}

	// expired tokens need no revocation entry
	if err := s.Logout(context.Background(), "jti-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("logout expired: %v", err)
	}
	if len(rev.revoked) != 0 {
		t.Fatalf("expired token must not be stored: %v", rev.revoked)
	}

	if err := s.Logout(context.Background(), "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("logout: %v", err)
	}
	ttl, ok := rev.revoked["jti-1"]
	if !ok || ttl <= 0 {
		t.Fatalf("jti not revoked with positive ttl: %v", rev.revoked)
	}

	rev.err = errors.New("redis down")
	if err := s.Logout(context.Background(), "jti-2", time.Now().Add(time.Hour)); err == nil {
		t.Fatalf("want propagated revoker error")
	}
}

func TestAuth_Lookup_NormalizesEmail(t *testing.T) {
	t.Parallel()

	u := &model.User{ID: uuid.Must(uuid.NewV4()), Email: "carol@example.com", Name: "Carol", PublicKey: newTestPubKey()}
	users := &fakeUsers{byEmail: map[string]*model.User{"carol@example.com": u}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{}, &fakeRevoker{})

	if _, err := s.Lookup(context.Background(), "  "); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on blank email, got %v", err)
	}

	got, err := s.Lookup(context.Background(), " Carol@EXAMPLE.com ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("wrong user: %+v", got)
	}

	if _, err := s.Lookup(context.Background(), "missing@example.com"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAuth_SetPublicKey(t *testing.T) {
	t.Parallel()

	uid := uuid.Must(uuid.NewV4())
	users := &fakeUsers{byEmail: map[string]*model.User{
		"u@example.com": {ID: uid, Email: "u@example.com"},
	}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{}, &fakeRevoker{})

	if err := s.SetPublicKey(context.Background(), uuid.Nil, newTestPubKey()); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error (nil userID), got %v", err)
	}
	if err := s.SetPublicKey(context.Background(), uid, []byte{1}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error (short key), got %v", err)
	}
	if users.setKeyCalls != 0 {
		t.Fatalf("repo must not be called on validation failure")
	}

	if err := s.SetPublicKey(context.Background(), uid, newTestPubKey()); err != nil {
		t.Fatalf("SetPublicKey: %v", err)
	}
	if len(users.byEmail["u@example.com"].PublicKey) != 32 {
		t.Fatalf("key not stored")
	}

	// rotation overwrites
	rotated := newTestPubKey()
	rotated[0] = 0xFF
	if err := s.SetPublicKey(context.Background(), uid, rotated); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if users.byEmail["u@example.com"].PublicKey[0] != 0xFF {
		t.Fatalf("rotation did not overwrite")
	}
}
