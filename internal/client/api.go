package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
)

// Profile is the public part of an account.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	PublicKey []byte    `json:"publicKey,omitempty"`
}

// LoginResult carries the issued token and the account profile.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

// PendingRequest is one side of a contact request listing.
type PendingRequest struct {
	ID        uuid.UUID `json:"id"`
	PeerID    uuid.UUID `json:"peerId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Contact is an established connection with the precision the caller grants.
type Contact struct {
	PeerID    uuid.UUID `json:"peerId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	PublicKey []byte    `json:"publicKey,omitempty"`
	Precision string    `json:"precision"`
	CreatedAt time.Time `json:"createdAt"`
}

// Share is one recipient's sealed envelope within a publish batch.
type Share struct {
	To      uuid.UUID       `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

// InboxShare is the latest sealed envelope from one sender.
type InboxShare struct {
	From      uuid.UUID       `json:"from"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Blob is one versioned document slot.
type Blob struct {
	Payload   []byte    `json:"payload"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Device is a registered client installation.
type Device struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Register creates an account and returns the new user id.
func (c *Client) Register(ctx context.Context, email, name, password string, publicKey []byte) (string, error) {
	in := map[string]any{"email": email, "name": name, "password": password}
	if len(publicKey) > 0 {
		in["publicKey"] = publicKey
	}
	var out struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	in := map[string]string{"email": email, "password": password}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return LoginResult{}, err
	}
	c.token = out.Token
	return out, nil
}

// Logout revokes the current token server-side and drops it locally.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Lookup finds an account by exact email.
func (c *Client) Lookup(ctx context.Context, email string) (Profile, error) {
	var out Profile
	err := c.do(ctx, http.MethodGet, "/api/users/lookup?email="+url.QueryEscape(email), nil, &out)
	return out, err
}

// SetPublicKey registers or rotates the share-encryption key.
func (c *Client) SetPublicKey(ctx context.Context, publicKey []byte) error {
	in := map[string]any{"publicKey": publicKey}
	return c.do(ctx, http.MethodPut, "/api/users/public-key", in, nil)
}

// RequestContact sends a contact request and returns its id.
func (c *Client) RequestContact(ctx context.Context, recipientID uuid.UUID) (uuid.UUID, error) {
	in := map[string]string{"recipientId": recipientID.String()}
	var out struct {
		ID uuid.UUID `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/contacts/requests", in, &out); err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

// IncomingRequests lists pending requests addressed to the caller.
func (c *Client) IncomingRequests(ctx context.Context) ([]PendingRequest, error) {
	var out []PendingRequest
	err := c.do(ctx, http.MethodGet, "/api/contacts/requests?direction=incoming", nil, &out)
	return out, err
}

// OutgoingRequests lists pending requests the caller has sent.
func (c *Client) OutgoingRequests(ctx context.Context) ([]PendingRequest, error) {
	var out []PendingRequest
	err := c.do(ctx, http.MethodGet, "/api/contacts/requests?direction=outgoing", nil, &out)
	return out, err
}

// AcceptRequest connects the pair; recipient only.
func (c *Client) AcceptRequest(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/contacts/requests/"+id.String()+"/accept", nil, nil)
}

// DeclineRequest drops a request addressed to the caller.
func (c *Client) DeclineRequest(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/contacts/requests/"+id.String()+"/decline", nil, nil)
}

// CancelRequest withdraws a request the caller sent.
func (c *Client) CancelRequest(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/contacts/requests/"+id.String()+"/cancel", nil, nil)
}

// Contacts lists established connections.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	err := c.do(ctx, http.MethodGet, "/api/contacts", nil, &out)
	return out, err
}

// RemoveContact disconnects both directions.
func (c *Client) RemoveContact(ctx context.Context, peerID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/contacts/"+peerID.String(), nil, nil)
}

// SetPrecision updates the caller's granted level for one peer.
func (c *Client) SetPrecision(ctx context.Context, peerID uuid.UUID, level string) error {
	in := map[string]string{"level": level}
	return c.do(ctx, http.MethodPut, "/api/contacts/"+peerID.String()+"/precision", in, nil)
}

// UploadShares stores one sealed envelope per recipient and returns how many
// were accepted.
func (c *Client) UploadShares(ctx context.Context, shares []Share) (int, error) {
	in := map[string]any{"shares": shares}
	var out struct {
		Stored int `json:"stored"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/locations", in, &out); err != nil {
		return 0, err
	}
	return out.Stored, nil
}

// Inbox returns the latest envelope from every sender sharing with the caller.
func (c *Client) Inbox(ctx context.Context) ([]InboxShare, error) {
	var out []InboxShare
	err := c.do(ctx, http.MethodGet, "/api/locations", nil, &out)
	return out, err
}

// UserData returns the encrypted settings document.
func (c *Client) UserData(ctx context.Context) (Blob, error) {
	return c.getBlob(ctx, "/api/userdata")
}

// PutUserData writes the settings document iff expectedVer is still current.
func (c *Client) PutUserData(ctx context.Context, payload []byte, expectedVer int64) (int64, error) {
	return c.putBlob(ctx, "/api/userdata", payload, expectedVer)
}

// IdentityBackup returns the PIN-encrypted identity backup.
func (c *Client) IdentityBackup(ctx context.Context) (Blob, error) {
	return c.getBlob(ctx, "/api/identity-backup")
}

// PutIdentityBackup writes the identity backup iff expectedVer is still current.
func (c *Client) PutIdentityBackup(ctx context.Context, payload []byte, expectedVer int64) (int64, error) {
	return c.putBlob(ctx, "/api/identity-backup", payload, expectedVer)
}

func (c *Client) getBlob(ctx context.Context, path string) (Blob, error) {
	var out Blob
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) putBlob(ctx context.Context, path string, payload []byte, expectedVer int64) (int64, error) {
	in := map[string]any{"payload": payload, "expectedVersion": expectedVer}
	var out struct {
		Version int64 `json:"version"`
	}
	if err := c.do(ctx, http.MethodPut, path, in, &out); err != nil {
		// a 409 on a blob slot always means a concurrent writer won
		if errors.Is(err, errs.ErrConflict) {
			return 0, fmt.Errorf("document changed on the server: %w", errs.ErrVersionConflict)
		}
		return 0, err
	}
	return out.Version, nil
}

// RegisterDevice records this installation.
func (c *Client) RegisterDevice(ctx context.Context, name, platform string) (Device, error) {
	in := map[string]string{"name": name, "platform": platform}
	var out Device
	err := c.do(ctx, http.MethodPost, "/api/devices", in, &out)
	return out, err
}

// Devices lists registered installations.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var out []Device
	err := c.do(ctx, http.MethodGet, "/api/devices", nil, &out)
	return out, err
}

// RevokeDevice removes a device registration.
func (c *Client) RevokeDevice(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/devices/"+id.String(), nil, nil)
}
