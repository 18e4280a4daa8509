package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/client"
	"github.com/whereabouts-app/whereabouts/internal/crypto/keys"
	"github.com/whereabouts-app/whereabouts/internal/crypto/payload"
	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

type fakeAPI struct {
	mu          sync.Mutex
	contacts    []client.Contact
	inbox       []client.InboxShare
	uploaded    []client.Share
	uploadCalls int
	err         error
}

var _ Uploader = (*fakeAPI)(nil)
var _ Fetcher = (*fakeAPI)(nil)

func (f *fakeAPI) Contacts(ctx context.Context) ([]client.Contact, error) {
	return f.contacts, f.err
}

func (f *fakeAPI) UploadShares(ctx context.Context, shares []client.Share) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.uploadCalls++
	f.uploaded = append(f.uploaded, shares...)
	return len(shares), nil
}

func (f *fakeAPI) Inbox(ctx context.Context) ([]client.InboxShare, error) {
	return f.inbox, f.err
}

func (f *fakeAPI) shareFor(t *testing.T, to uuid.UUID) client.Share {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sh := range f.uploaded {
		if sh.To == to {
			return sh
		}
	}
	t.Fatalf("no uploaded share for %v", to)
	return client.Share{}
}

func mustIdentity(t *testing.T) *keys.Identity {
	t.Helper()
	id, err := keys.Generate()
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	return id
}

func oslo() (visibility.Point, map[string]string) {
	pos := visibility.Point{Latitude: 59.9139, Longitude: 10.7522}
	raw := map[string]string{
		"country":      "Norway",
		"state":        "Oslo",
		"city":         "Oslo",
		"suburb":       "Sentrum",
		"road":         "Karl Johans gate",
		"house_number": "1",
	}
	return pos, raw
}

// One publisher, two contacts on opposite corners of the two axes: the
// coarsest geographic grant with the label disclosed, and the finest grant
// with the label withheld.
func TestPublishAndRead_TwoAxisDisclosure(t *testing.T) {
	t.Parallel()

	owner := mustIdentity(t)
	bID, cID := mustIdentity(t), mustIdentity(t)
	ownerUser := uuid.Must(uuid.NewV4())
	bUser := uuid.Must(uuid.NewV4())
	cUser := uuid.Must(uuid.NewV4())

	pos, raw := oslo()
	home := visibility.NamedLocation{
		ID:           uuid.Must(uuid.NewV4()),
		Label:        "Home",
		Latitude:     pos.Latitude,
		Longitude:    pos.Longitude,
		RadiusMeters: 100,
		Visibility: visibility.LabelVisibility{
			Mode:       visibility.ModeSelected,
			ContactIDs: []uuid.UUID{bUser},
		},
	}

	api := &fakeAPI{contacts: []client.Contact{
		{PeerID: bUser, Email: "b@b.cc", PublicKey: bID.PublicKey[:], Precision: "planet"},
		{PeerID: cUser, Email: "c@c.cc", PublicKey: cID.PublicKey[:], Precision: "address"},
	}}

	at := time.Now().UTC().Truncate(time.Second)
	report, err := NewPublisher(api, owner).Publish(context.Background(), Sample{
		Position:  pos,
		Raw:       raw,
		Locations: []visibility.NamedLocation{home},
		At:        at,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if report.Recipients != 2 || report.Stored != 2 || len(report.SkippedNoKey) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	ownerContact := client.Contact{PeerID: ownerUser, Email: "a@a.cc", Name: "A", PublicKey: owner.PublicKey[:]}

	// B: coarsest grant, but selected for the label
	bAPI := &fakeAPI{
		contacts: []client.Contact{ownerContact},
		inbox:    []client.InboxShare{{From: ownerUser, Payload: api.shareFor(t, bUser).Payload, UpdatedAt: at}},
	}
	bRes, err := NewReader(bAPI, bID).Read(context.Background())
	if err != nil {
		t.Fatalf("read as B: %v", err)
	}
	if len(bRes.Views) != 1 || len(bRes.Failed) != 0 {
		t.Fatalf("B expected 1 view, got %+v", bRes)
	}
	bView := bRes.Views[0].View
	if bView.PlaceLabel != "Home" {
		t.Fatalf("B should see the label, got %q", bView.PlaceLabel)
	}
	if len(bView.Place) != 1 || bView.Place["planet"] != visibility.PlanetFallback {
		t.Fatalf("B should see only the planet, got %v", bView.Place)
	}
	if !bView.At.Equal(at) {
		t.Fatalf("timestamp changed in transit: %v != %v", bView.At, at)
	}

	// C: finest grant, label withheld
	cAPI := &fakeAPI{
		contacts: []client.Contact{ownerContact},
		inbox:    []client.InboxShare{{From: ownerUser, Payload: api.shareFor(t, cUser).Payload, UpdatedAt: at}},
	}
	cRes, err := NewReader(cAPI, cID).Read(context.Background())
	if err != nil {
		t.Fatalf("read as C: %v", err)
	}
	if len(cRes.Views) != 1 {
		t.Fatalf("C expected 1 view, got %+v", cRes)
	}
	cView := cRes.Views[0].View
	if cView.PlaceLabel != "" {
		t.Fatalf("label leaked to an unselected contact: %q", cView.PlaceLabel)
	}
	for lvl, want := range map[string]string{
		"country": "Norway",
		"city":    "Oslo",
		"street":  "Karl Johans gate",
		"address": "1",
	} {
		if cView.Place[lvl] != want {
			t.Fatalf("C missing %s: got %v", lvl, cView.Place)
		}
	}

	// B's ciphertext must not open with C's key
	env, err := payload.Decode(api.shareFor(t, bUser).Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var stolen visibility.View
	if err := payload.Open(env, keysPtr(owner.PublicKey), keysPtr(cID.PrivateKey), &stolen); !errors.Is(err, errs.ErrCrypto) {
		t.Fatalf("expected crypto error opening another recipient's envelope, got %v", err)
	}
}

func keysPtr(k [keys.KeySize]byte) *[keys.KeySize]byte { return &k }

func TestPublish_SkipsContactsWithoutKeys(t *testing.T) {
	t.Parallel()

	owner := mustIdentity(t)
	peer := mustIdentity(t)
	keyless := uuid.Must(uuid.NewV4())
	keyed := uuid.Must(uuid.NewV4())

	api := &fakeAPI{contacts: []client.Contact{
		{PeerID: keyless, Precision: "city"},
		{PeerID: keyed, PublicKey: peer.PublicKey[:], Precision: "city"},
	}}

	pos, raw := oslo()
	report, err := NewPublisher(api, owner).Publish(context.Background(), Sample{Position: pos, Raw: raw})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if report.Recipients != 2 || report.Stored != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.SkippedNoKey) != 1 || report.SkippedNoKey[0] != keyless {
		t.Fatalf("expected %v skipped, got %v", keyless, report.SkippedNoKey)
	}
}

func TestPublish_UnknownPrecisionFailsClosed(t *testing.T) {
	t.Parallel()

	owner := mustIdentity(t)
	peer := mustIdentity(t)
	peerUser := uuid.Must(uuid.NewV4())
	api := &fakeAPI{contacts: []client.Contact{
		{PeerID: peerUser, PublicKey: peer.PublicKey[:], Precision: "galaxy"},
	}}

	pos, raw := oslo()
	if _, err := NewPublisher(api, owner).Publish(context.Background(), Sample{Position: pos, Raw: raw}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	env, err := payload.Decode(api.shareFor(t, peerUser).Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var view visibility.View
	if err := payload.Open(env, keysPtr(owner.PublicKey), keysPtr(peer.PrivateKey), &view); err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(view.Place) != 1 || view.Place["planet"] == "" {
		t.Fatalf("junk precision must degrade to the coarsest view, got %v", view.Place)
	}
}

func TestPublish_ChunksLargeBatches(t *testing.T) {
	t.Parallel()

	owner := mustIdentity(t)
	peer := mustIdentity(t)
	contacts := make([]client.Contact, 0, 450)
	for i := 0; i < 450; i++ {
		contacts = append(contacts, client.Contact{
			PeerID:    uuid.Must(uuid.NewV4()),
			PublicKey: peer.PublicKey[:],
			Precision: "city",
		})
	}
	api := &fakeAPI{contacts: contacts}

	pos, raw := oslo()
	report, err := NewPublisher(api, owner).Publish(context.Background(), Sample{Position: pos, Raw: raw})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if report.Stored != 450 {
		t.Fatalf("expected 450 stored, got %d", report.Stored)
	}
	if api.uploadCalls != 3 {
		t.Fatalf("expected 3 chunked uploads, got %d", api.uploadCalls)
	}
}

func TestRead_TamperedEnvelopeIsReportedAndSkipped(t *testing.T) {
	t.Parallel()

	owner := mustIdentity(t)
	reader := mustIdentity(t)
	ownerUser := uuid.Must(uuid.NewV4())
	readerUser := uuid.Must(uuid.NewV4())

	api := &fakeAPI{contacts: []client.Contact{
		{PeerID: readerUser, PublicKey: reader.PublicKey[:], Precision: "city"},
	}}
	pos, raw := oslo()
	if _, err := NewPublisher(api, owner).Publish(context.Background(), Sample{Position: pos, Raw: raw}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	good := api.shareFor(t, readerUser).Payload

	// flip one ciphertext byte, keeping the envelope well-formed
	var env payload.Envelope
	if err := json.Unmarshal(good, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	ct, err := base64.StdEncoding.DecodeString(env.C)
	if err != nil {
		t.Fatalf("decode ciphertext: %v", err)
	}
	ct[0] ^= 0xFF
	env.C = base64.StdEncoding.EncodeToString(ct)
	bad, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	otherUser := uuid.Must(uuid.NewV4())
	rAPI := &fakeAPI{
		contacts: []client.Contact{
			{PeerID: ownerUser, Email: "a@a.cc", PublicKey: owner.PublicKey[:]},
		},
		inbox: []client.InboxShare{
			{From: ownerUser, Payload: bad},
			{From: ownerUser, Payload: good},
			{From: otherUser, Payload: good}, // not a contact anymore
		},
	}
	res, err := NewReader(rAPI, reader).Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(res.Views) != 1 {
		t.Fatalf("expected the intact envelope to survive, got %+v", res)
	}
	if len(res.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %+v", res.Failed)
	}
	if !errors.Is(res.Failed[0].Err, errs.ErrCrypto) {
		t.Fatalf("tampering should surface as a crypto error, got %v", res.Failed[0].Err)
	}
}
