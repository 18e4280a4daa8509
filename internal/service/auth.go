// Package service contains application services behind the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/whereabouts-app/whereabouts/internal/crypto"
	"github.com/whereabouts-app/whereabouts/internal/crypto/keys"
	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/limiter"
	"github.com/whereabouts-app/whereabouts/internal/model"
	"github.com/whereabouts-app/whereabouts/internal/repository"
	"github.com/whereabouts-app/whereabouts/internal/session"
)

// AuthService defines account and session operations.
type AuthService interface {
	// Register creates a new account with secure password hashing.
	Register(ctx context.Context, email, name, password string, publicKey []byte) (userID string, err error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, email, password, ip string) (tokens model.Tokens, user model.User, err error)
	// Logout blocks the token id until its natural expiry.
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	// Lookup returns the account holding the given email.
	Lookup(ctx context.Context, email string) (*model.User, error)
	// SetPublicKey registers or rotates the user's share-encryption key.
	SetPublicKey(ctx context.Context, userID uuid.UUID, publicKey []byte) error
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	revoker   session.Revoker
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, revoker session.Revoker) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, revoker: revoker}
}

// NormalizeEmail lowercases and trims an address so lookups and limiter keys agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user record with a per-user auth salt.
func (s *AuthServiceImpl) Register(ctx context.Context, email, name, password string, publicKey []byte) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("bad email: %w", errs.ErrValidation)
	}
	if password == "" {
		return "", fmt.Errorf("empty password: %w", errs.ErrValidation)
	}
	if len(publicKey) != 0 && len(publicKey) != keys.KeySize {
		return "", fmt.Errorf("public key must be %d bytes: %w", keys.KeySize, errs.ErrValidation)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	saltAuth, err := pkgcrypto.NewSalt()
	if err != nil {
		return "", err
	}
	pwdHash := pkgcrypto.HashPassword([]byte(password), saltAuth)

	u := &model.User{
		ID:        uid,
		Email:     email,
		Name:      strings.TrimSpace(name),
		PwdHash:   pwdHash,
		SaltAuth:  saltAuth,
		PublicKey: publicKey,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	return uid.String(), nil
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	email = NormalizeEmail(email)
	ipHash := limiter.HashIP(ip)

	// Check if requests are currently allowed for this (email, ip).
	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		// Record failure; if threshold reached, return rate-limited.
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// account existence is never revealed on failure
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, email, ipHash)

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

// issueAccessToken creates a signed HS256 JWT with a unique id for revocation.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	jti, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        jti.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// Logout puts the token id on the revocation list for its remaining lifetime.
func (s *AuthServiceImpl) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return fmt.Errorf("empty token id: %w", errs.ErrValidation)
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// already expired, nothing left to revoke
		return nil
	}
	return s.revoker.Revoke(ctx, jti, ttl)
}

// Lookup finds an account by email for contact discovery.
func (s *AuthServiceImpl) Lookup(ctx context.Context, email string) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("empty email: %w", errs.ErrValidation)
	}
	return s.users.GetByEmail(ctx, email)
}

// SetPublicKey overwrites the registered key (rotation allowed).
func (s *AuthServiceImpl) SetPublicKey(ctx context.Context, userID uuid.UUID, publicKey []byte) error {
	if userID == uuid.Nil {
		return fmt.Errorf("empty userID: %w", errs.ErrValidation)
	}
	if len(publicKey) != keys.KeySize {
		return fmt.Errorf("public key must be %d bytes: %w", keys.KeySize, errs.ErrValidation)
	}
	return s.users.SetPublicKey(ctx, userID, publicKey)
}
