package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/client"
	"github.com/whereabouts-app/whereabouts/internal/crypto/keys"
	"github.com/whereabouts-app/whereabouts/internal/crypto/payload"
	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

// Fetcher is the slice of the API client the reader needs.
type Fetcher interface {
	Contacts(ctx context.Context) ([]client.Contact, error)
	Inbox(ctx context.Context) ([]client.InboxShare, error)
}

// ContactView is one decrypted share joined with the sender's profile.
type ContactView struct {
	PeerID    uuid.UUID
	Email     string
	Name      string
	View      visibility.View
	UpdatedAt time.Time
}

// FailedShare records an envelope that could not be opened.
type FailedShare struct {
	From uuid.UUID
	Err  error
}

// ReadResult carries everything one inbox fetch produced. A share that fails
// to open lands in Failed without blocking the rest.
type ReadResult struct {
	Views  []ContactView
	Failed []FailedShare
}

// Reader fetches and opens the latest share from every contact.
type Reader struct {
	api      Fetcher
	identity *keys.Identity
}

// NewReader constructs a Reader for the given identity.
func NewReader(api Fetcher, identity *keys.Identity) *Reader {
	return &Reader{api: api, identity: identity}
}

// Read fetches the inbox and opens each envelope with the sender's public
// key. Tampered or undecryptable envelopes are reported and skipped.
func (r *Reader) Read(ctx context.Context) (ReadResult, error) {
	contacts, err := r.api.Contacts(ctx)
	if err != nil {
		return ReadResult{}, err
	}
	byID := make(map[uuid.UUID]client.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.PeerID] = c
	}

	inbox, err := r.api.Inbox(ctx)
	if err != nil {
		return ReadResult{}, err
	}

	var res ReadResult
	for _, sh := range inbox {
		c, ok := byID[sh.From]
		if !ok {
			res.Failed = append(res.Failed, FailedShare{From: sh.From, Err: fmt.Errorf("sender is not a contact")})
			continue
		}
		senderPub, err := keys.KeyFromBytes(c.PublicKey)
		if err != nil {
			res.Failed = append(res.Failed, FailedShare{From: sh.From, Err: fmt.Errorf("sender has no usable key: %w", err)})
			continue
		}
		env, err := payload.Decode(sh.Payload)
		if err != nil {
			res.Failed = append(res.Failed, FailedShare{From: sh.From, Err: err})
			continue
		}
		var view visibility.View
		if err := payload.Open(env, senderPub, &r.identity.PrivateKey, &view); err != nil {
			res.Failed = append(res.Failed, FailedShare{From: sh.From, Err: err})
			continue
		}
		res.Views = append(res.Views, ContactView{
			PeerID:    c.PeerID,
			Email:     c.Email,
			Name:      c.Name,
			View:      view,
			UpdatedAt: sh.UpdatedAt,
		})
	}
	return res, nil
}
