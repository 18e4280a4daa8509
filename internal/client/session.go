package client

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Session is the authenticated state carried between commands. It is created
// from a login, persisted by the caller, and discarded on logout; nothing in
// this package keeps ambient global state.
type Session struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewSession builds a Session from a login result.
func NewSession(res LoginResult) Session {
	return Session{
		UserID:    res.User.ID,
		Email:     res.User.Email,
		Name:      res.User.Name,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}
}

// Valid reports whether the session still has a usable token.
func (s Session) Valid() bool {
	return s.Token != "" && time.Now().Before(s.ExpiresAt)
}
