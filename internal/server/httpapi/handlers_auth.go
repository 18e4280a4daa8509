package httpapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
)

type registerRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	PublicKey []byte `json:"publicKey,omitempty"`
}

type registerResponse struct {
	UserID string `json:"userId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userProfile is the public part of an account, safe to show to contacts.
type userProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	PublicKey []byte `json:"publicKey,omitempty"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      userProfile `json:"user"`
}

type setPublicKeyRequest struct {
	PublicKey []byte `json:"publicKey"`
}

func toProfile(u model.User) userProfile {
	return userProfile{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		PublicKey: u.PublicKey,
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleRegister creates a new account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	userID, err := s.auth.Register(r.Context(), req.Email, req.Name, req.Password, req.PublicKey)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{UserID: userID})
}

// handleLogin authenticates and returns a token plus the account profile.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	tok, u, err := s.auth.LoginWithIP(r.Context(), req.Email, req.Password, remoteIP(r))
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) || errors.Is(err, errs.ErrRateLimited) {
			s.mets.IncrementLoginFailures()
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     tok.AccessToken,
		ExpiresAt: tok.ExpiresAt,
		User:      toProfile(u),
	})
}

// handleLogout revokes the presented token for its remaining lifetime.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromCtx(r.Context())
	if !ok {
		s.writeError(w, fmt.Errorf("no session: %w", errs.ErrUnauthorized))
		return
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := s.auth.Logout(r.Context(), claims.ID, exp); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLookup finds an account by exact email for contact discovery.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Lookup(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(*u))
}

// handleSetPublicKey registers or rotates the caller's share-encryption key.
func (s *Server) handleSetPublicKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req setPublicKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.auth.SetPublicKey(r.Context(), userID, req.PublicKey); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
