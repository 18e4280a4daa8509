// Package publish implements the client-side fan-out of location shares:
// composing one filtered view per contact, sealing it to that contact's key,
// and uploading the batch. The reverse path opens received envelopes. All
// filtering happens here, before anything leaves the device.
package publish

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/sync/errgroup"

	"github.com/whereabouts-app/whereabouts/internal/client"
	"github.com/whereabouts-app/whereabouts/internal/crypto/keys"
	"github.com/whereabouts-app/whereabouts/internal/crypto/payload"
	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

const (
	uploadChunk       = 200
	uploadConcurrency = 4
)

// Uploader is the slice of the API client the publisher needs.
type Uploader interface {
	Contacts(ctx context.Context) ([]client.Contact, error)
	UploadShares(ctx context.Context, shares []client.Share) (int, error)
}

// Sample is one position fix with everything needed to disclose it: raw
// geocoder fields and the device's named locations. Coordinates stay local.
type Sample struct {
	Position  visibility.Point
	Raw       map[string]string
	Locations []visibility.NamedLocation
	At        time.Time
}

// Report summarizes one publish run.
type Report struct {
	Recipients   int
	Stored       int
	SkippedNoKey []uuid.UUID
}

// Publisher seals one view per contact and uploads the batch.
type Publisher struct {
	api      Uploader
	identity *keys.Identity
}

// NewPublisher constructs a Publisher for the given identity.
func NewPublisher(api Uploader, identity *keys.Identity) *Publisher {
	return &Publisher{api: api, identity: identity}
}

// Publish composes, seals and uploads one share per contact. Contacts without
// a registered key are skipped and reported; they cannot receive ciphertext.
// Each recipient's view is fixed here: the hierarchy filtered to the level
// granted to them, plus the matched label when their id qualifies.
func (p *Publisher) Publish(ctx context.Context, sample Sample) (Report, error) {
	contacts, err := p.api.Contacts(ctx)
	if err != nil {
		return Report{}, err
	}
	if len(contacts) == 0 {
		return Report{}, nil
	}

	h := visibility.BuildHierarchy(sample.Raw)
	at := sample.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var match *visibility.NamedLocation
	if m, ok := visibility.BestMatch(sample.Position, sample.Locations); ok {
		match = &m
	}

	var report Report
	shares := make([]client.Share, 0, len(contacts))
	for _, c := range contacts {
		report.Recipients++
		pub, err := keys.KeyFromBytes(c.PublicKey)
		if err != nil {
			report.SkippedNoKey = append(report.SkippedNoKey, c.PeerID)
			continue
		}
		granted := visibility.LevelOrCoarsest(c.Precision)
		view := visibility.Compose(h, granted, match, c.PeerID, at)
		env, err := payload.Seal(view, pub, &p.identity.PrivateKey)
		if err != nil {
			return report, err
		}
		raw, err := env.Encode()
		if err != nil {
			return report, err
		}
		shares = append(shares, client.Share{To: c.PeerID, Payload: raw})
	}

	report.Stored, err = p.uploadAll(ctx, shares)
	return report, err
}

// uploadAll splits the batch into chunks with a few uploads in flight.
func (p *Publisher) uploadAll(ctx context.Context, shares []client.Share) (int, error) {
	if len(shares) == 0 {
		return 0, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	var stored atomic.Int64
	for start := 0; start < len(shares); start += uploadChunk {
		chunk := shares[start:min(start+uploadChunk, len(shares))]
		g.Go(func() error {
			n, err := p.api.UploadShares(ctx, chunk)
			if err != nil {
				return err
			}
			stored.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(stored.Load()), err
	}
	return int(stored.Load()), nil
}
