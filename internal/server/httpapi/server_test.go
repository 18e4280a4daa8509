package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
	"github.com/whereabouts-app/whereabouts/internal/service"
	"github.com/whereabouts-app/whereabouts/internal/session"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// --- fakes ---

type fakeAuthSvc struct {
	registerID  string
	loginTokens model.Tokens
	loginUser   model.User
	lookupUser  *model.User
	err         error

	gotLogoutJTI string
	gotLogoutExp time.Time
	gotKey       []byte
}

var _ service.AuthService = (*fakeAuthSvc)(nil)

func (f *fakeAuthSvc) Register(ctx context.Context, email, name, password string, publicKey []byte) (string, error) {
	return f.registerID, f.err
}

func (f *fakeAuthSvc) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	if f.err != nil {
		return model.Tokens{}, model.User{}, f.err
	}
	return f.loginTokens, f.loginUser, nil
}

func (f *fakeAuthSvc) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	f.gotLogoutJTI = jti
	f.gotLogoutExp = expiresAt
	return f.err
}

func (f *fakeAuthSvc) Lookup(ctx context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lookupUser, nil
}

func (f *fakeAuthSvc) SetPublicKey(ctx context.Context, userID uuid.UUID, publicKey []byte) error {
	f.gotKey = publicKey
	return f.err
}

type fakeContactSvc struct {
	requestID uuid.UUID
	incoming  []model.RequestView
	outgoing  []model.RequestView
	contacts  []model.ContactView
	err       error

	gotResolve string
	gotActing  uuid.UUID
	gotPeer    uuid.UUID
	gotLevel   string
}

var _ service.ContactService = (*fakeContactSvc)(nil)

func (f *fakeContactSvc) Request(ctx context.Context, requesterID, recipientID uuid.UUID) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.gotPeer = recipientID
	return f.requestID, nil
}

func (f *fakeContactSvc) Incoming(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error) {
	return f.incoming, f.err
}

func (f *fakeContactSvc) Outgoing(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error) {
	return f.outgoing, f.err
}

func (f *fakeContactSvc) Accept(ctx context.Context, requestID, actingUser uuid.UUID) error {
	f.gotResolve = "accept:" + requestID.String()
	f.gotActing = actingUser
	return f.err
}

func (f *fakeContactSvc) Decline(ctx context.Context, requestID, actingUser uuid.UUID) error {
	f.gotResolve = "decline:" + requestID.String()
	f.gotActing = actingUser
	return f.err
}

func (f *fakeContactSvc) Cancel(ctx context.Context, requestID, actingUser uuid.UUID) error {
	f.gotResolve = "cancel:" + requestID.String()
	f.gotActing = actingUser
	return f.err
}

func (f *fakeContactSvc) List(ctx context.Context, ownerID uuid.UUID) ([]model.ContactView, error) {
	return f.contacts, f.err
}

func (f *fakeContactSvc) SetPrecision(ctx context.Context, ownerID, peerID uuid.UUID, level string) error {
	f.gotPeer = peerID
	f.gotLevel = level
	return f.err
}

func (f *fakeContactSvc) Remove(ctx context.Context, ownerID, peerID uuid.UUID) error {
	f.gotPeer = peerID
	return f.err
}

type fakeShareSvc struct {
	stored  int
	inbox   []model.EncryptedShare
	err     error
	gotFrom uuid.UUID
	gotUps  []model.ShareUpload
}

var _ service.ShareService = (*fakeShareSvc)(nil)

func (f *fakeShareSvc) Upload(ctx context.Context, fromID uuid.UUID, shares []model.ShareUpload) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.gotFrom = fromID
	f.gotUps = shares
	return f.stored, nil
}

func (f *fakeShareSvc) Inbox(ctx context.Context, userID uuid.UUID) ([]model.EncryptedShare, error) {
	return f.inbox, f.err
}

type fakeBlobSvc struct {
	blob   *model.VersionedBlob
	newVer int64
	getErr error
	setErr error

	gotKind    model.BlobKind
	gotPayload []byte
	gotVer     int64
}

var _ service.BlobService = (*fakeBlobSvc)(nil)

func (f *fakeBlobSvc) Get(ctx context.Context, userID uuid.UUID, kind model.BlobKind) (*model.VersionedBlob, error) {
	f.gotKind = kind
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.blob, nil
}

func (f *fakeBlobSvc) Set(ctx context.Context, userID uuid.UUID, kind model.BlobKind, payload []byte, expectedVer int64) (int64, error) {
	f.gotKind = kind
	f.gotPayload = payload
	f.gotVer = expectedVer
	if f.setErr != nil {
		return 0, f.setErr
	}
	return f.newVer, nil
}

type fakeDeviceSvc struct {
	device  *model.Device
	devices []model.Device
	err     error

	gotRevoke uuid.UUID
	gotTouch  uuid.UUID
}

var _ service.DeviceService = (*fakeDeviceSvc)(nil)

func (f *fakeDeviceSvc) Register(ctx context.Context, userID uuid.UUID, name, platform string) (*model.Device, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.device, nil
}

func (f *fakeDeviceSvc) List(ctx context.Context, userID uuid.UUID) ([]model.Device, error) {
	return f.devices, f.err
}

func (f *fakeDeviceSvc) Revoke(ctx context.Context, userID, deviceID uuid.UUID) error {
	f.gotRevoke = deviceID
	return f.err
}

func (f *fakeDeviceSvc) Touch(ctx context.Context, userID, deviceID uuid.UUID) error {
	f.gotTouch = deviceID
	return nil
}

type failingPinger struct{ err error }

func (p failingPinger) Ping(ctx context.Context) error { return p.err }

// --- helpers ---

func testServer(cfg Config) *Server {
	if cfg.SignKey == nil {
		cfg.SignKey = testKey
	}
	if cfg.Revoker == nil {
		cfg.Revoker = session.NewMemory()
	}
	return New(cfg)
}

func signToken(t *testing.T, key []byte, sub uuid.UUID, jti string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub.String(),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("uuid: %v", err)
	}
	return id
}

// --- tests ---

func TestRegister_StatusMapping(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthSvc{registerID: "u-1"}
	srv := testServer(Config{Auth: auth})
	h := srv.Router()

	rec := doRequest(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@b.cc", "password": "pw",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp registerResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserID != "u-1" {
		t.Fatalf("expected userId u-1, got %q", resp.UserID)
	}

	auth.err = errs.ErrValidation
	rec = doRequest(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on validation, got %d", rec.Code)
	}

	auth.err = errs.ErrAlreadyExists
	rec = doRequest(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@b.cc", "password": "pw"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", rec.Code)
	}
}

func TestLogin_SuccessAndFailure(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	auth := &fakeAuthSvc{
		loginTokens: model.Tokens{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)},
		loginUser:   model.User{ID: userID, Email: "a@b.cc", Name: "A", PublicKey: bytes.Repeat([]byte{7}, 32)},
	}
	srv := testServer(Config{Auth: auth})
	h := srv.Router()

	rec := doRequest(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.cc", "password": "pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "tok" {
		t.Fatalf("expected token tok, got %q", resp.Token)
	}
	if resp.User.ID != userID.String() || resp.User.Email != "a@b.cc" {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
	if len(resp.User.PublicKey) != 32 {
		t.Fatalf("public key did not survive the round trip: %d bytes", len(resp.User.PublicKey))
	}

	auth.err = errs.ErrUnauthorized
	rec = doRequest(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.cc", "password": "no"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	auth.err = errs.ErrRateLimited
	rec = doRequest(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.cc", "password": "no"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRequireAuth_TokenChecks(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	revoker := session.NewMemory()
	srv := testServer(Config{Contacts: &fakeContactSvc{}, Devices: &fakeDeviceSvc{}, Revoker: revoker})
	h := srv.Router()

	good := signToken(t, testKey, userID, "jti-1", time.Now().Add(time.Hour))
	wrongKey := signToken(t, []byte("ffffffffffffffffffffffffffffffff"), userID, "jti-2", time.Now().Add(time.Hour))
	expired := signToken(t, testKey, userID, "jti-3", time.Now().Add(-time.Hour))
	revoked := signToken(t, testKey, userID, "jti-4", time.Now().Add(time.Hour))
	if err := revoker.Revoke(context.Background(), "jti-4", time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong key", wrongKey, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"revoked", revoked, http.StatusUnauthorized},
		{"valid", good, http.StatusOK},
	}
	for _, tc := range cases {
		rec := doRequest(t, h, http.MethodGet, "/api/contacts", tc.token, nil)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestLogout_PassesTokenIDAndExpiry(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	auth := &fakeAuthSvc{}
	srv := testServer(Config{Auth: auth, Devices: &fakeDeviceSvc{}})
	h := srv.Router()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signToken(t, testKey, userID, "jti-out", exp)
	rec := doRequest(t, h, http.MethodPost, "/api/auth/logout", tok, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if auth.gotLogoutJTI != "jti-out" {
		t.Fatalf("expected jti-out, got %q", auth.gotLogoutJTI)
	}
	if !auth.gotLogoutExp.Equal(exp) {
		t.Fatalf("expected expiry %v, got %v", exp, auth.gotLogoutExp)
	}
}

func TestRequestList_DirectionParam(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	peer := mustUUID(t)
	contacts := &fakeContactSvc{
		incoming: []model.RequestView{{ID: mustUUID(t), PeerID: peer, Email: "in@b.cc"}},
		outgoing: []model.RequestView{{ID: mustUUID(t), PeerID: peer, Email: "out@b.cc"}},
	}
	srv := testServer(Config{Contacts: contacts, Devices: &fakeDeviceSvc{}})
	h := srv.Router()
	tok := signToken(t, testKey, userID, "jti", time.Now().Add(time.Hour))

	var items []requestItem
	rec := doRequest(t, h, http.MethodGet, "/api/contacts/requests", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("default direction: expected 200, got %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].Email != "in@b.cc" {
		t.Fatalf("default should list incoming, got %+v", items)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/contacts/requests?direction=outgoing", tok, nil)
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].Email != "out@b.cc" {
		t.Fatalf("outgoing listing wrong, got %+v", items)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/contacts/requests?direction=sideways", tok, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown direction: expected 400, got %d", rec.Code)
	}
}

func TestRequestResolve_RoutesAndIDParsing(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	requestID := mustUUID(t)
	contacts := &fakeContactSvc{}
	srv := testServer(Config{Contacts: contacts, Devices: &fakeDeviceSvc{}})
	h := srv.Router()
	tok := signToken(t, testKey, userID, "jti", time.Now().Add(time.Hour))

	rec := doRequest(t, h, http.MethodPost, "/api/contacts/requests/not-a-uuid/accept", tok, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, "/api/contacts/requests/"+requestID.String()+"/accept", tok, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("accept: expected 204, got %d", rec.Code)
	}
	if contacts.gotResolve != "accept:"+requestID.String() {
		t.Fatalf("service saw %q", contacts.gotResolve)
	}
	if contacts.gotActing != userID {
		t.Fatalf("acting user mismatch")
	}

	rec = doRequest(t, h, http.MethodPost, "/api/contacts/requests/"+requestID.String()+"/decline", tok, nil)
	if rec.Code != http.StatusNoContent || contacts.gotResolve != "decline:"+requestID.String() {
		t.Fatalf("decline not routed, code %d resolve %q", rec.Code, contacts.gotResolve)
	}

	contacts.err = errs.ErrForbidden
	rec = doRequest(t, h, http.MethodPost, "/api/contacts/requests/"+requestID.String()+"/cancel", tok, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forbidden resolve: expected 403, got %d", rec.Code)
	}
}

func TestSetPrecision_ForwardsLevel(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	peerID := mustUUID(t)
	contacts := &fakeContactSvc{}
	srv := testServer(Config{Contacts: contacts, Devices: &fakeDeviceSvc{}})
	h := srv.Router()
	tok := signToken(t, testKey, userID, "jti", time.Now().Add(time.Hour))

	rec := doRequest(t, h, http.MethodPut, "/api/contacts/"+peerID.String()+"/precision", tok, map[string]string{"level": "city"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if contacts.gotPeer != peerID || contacts.gotLevel != "city" {
		t.Fatalf("service saw peer %v level %q", contacts.gotPeer, contacts.gotLevel)
	}
}

func TestShareUploadAndInbox_PayloadPassthrough(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	to := mustUUID(t)
	envelope := json.RawMessage(`{"v":1,"n":"bm9uY2U","c":"Y2lwaGVy"}`)
	shares := &fakeShareSvc{
		stored: 1,
		inbox: []model.EncryptedShare{
			{FromID: to, ToID: userID, Payload: envelope, UpdatedAt: time.Now()},
		},
	}
	srv := testServer(Config{Shares: shares, Devices: &fakeDeviceSvc{}})
	h := srv.Router()
	tok := signToken(t, testKey, userID, "jti", time.Now().Add(time.Hour))

	rec := doRequest(t, h, http.MethodPut, "/api/locations", tok, shareUploadRequest{
		Shares: []shareEnvelope{{To: to, Payload: envelope}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var up shareUploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&up); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if up.Stored != 1 {
		t.Fatalf("expected stored 1, got %d", up.Stored)
	}
	if shares.gotFrom != userID || len(shares.gotUps) != 1 {
		t.Fatalf("service saw from %v, %d uploads", shares.gotFrom, len(shares.gotUps))
	}
	if !bytes.Equal(shares.gotUps[0].Payload, envelope) {
		t.Fatalf("ciphertext altered in transit")
	}

	rec = doRequest(t, h, http.MethodGet, "/api/locations", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("inbox: expected 200, got %d", rec.Code)
	}
	var items []inboxItem
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].From != to {
		t.Fatalf("unexpected inbox: %+v", items)
	}
	if !bytes.Equal(items[0].Payload, envelope) {
		t.Fatalf("ciphertext altered on the way down")
	}
}

func TestBlobRoutes_KindsAndConflict(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	blobs := &fakeBlobSvc{newVer: 3}
	srv := testServer(Config{Blobs: blobs, Devices: &fakeDeviceSvc{}})
	h := srv.Router()
	tok := signToken(t, testKey, userID, "jti", time.Now().Add(time.Hour))

	blobs.getErr = errs.ErrNotFound
	rec := doRequest(t, h, http.MethodGet, "/api/userdata", tok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty slot: expected 404, got %d", rec.Code)
	}
	if blobs.gotKind != model.BlobUserData {
		t.Fatalf("expected user_data kind, got %q", blobs.gotKind)
	}

	rec = doRequest(t, h, http.MethodPut, "/api/identity-backup", tok, blobSetRequest{
		Payload: []byte("ciphertext"), ExpectedVersion: 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if blobs.gotKind != model.BlobIdentityBackup {
		t.Fatalf("expected identity_backup kind, got %q", blobs.gotKind)
	}
	if blobs.gotVer != 2 || !bytes.Equal(blobs.gotPayload, []byte("ciphertext")) {
		t.Fatalf("service saw ver %d payload %q", blobs.gotVer, blobs.gotPayload)
	}
	var set blobSetResponse
	if err := json.NewDecoder(rec.Body).Decode(&set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if set.Version != 3 {
		t.Fatalf("expected new version 3, got %d", set.Version)
	}

	blobs.setErr = errs.ErrVersionConflict
	rec = doRequest(t, h, http.MethodPut, "/api/userdata", tok, blobSetRequest{
		Payload: []byte("x"), ExpectedVersion: 1,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale version: expected 409, got %d", rec.Code)
	}

	blobs.getErr = nil
	blobs.blob = &model.VersionedBlob{Payload: []byte("doc"), Ver: 5, UpdatedAt: time.Now()}
	rec = doRequest(t, h, http.MethodGet, "/api/userdata", tok, nil)
	var got blobResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != 5 || !bytes.Equal(got.Payload, []byte("doc")) {
		t.Fatalf("unexpected blob response: %+v", got)
	}
}

func TestDeviceRoutes(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	devID := mustUUID(t)
	devices := &fakeDeviceSvc{
		device:  &model.Device{ID: devID, UserID: userID, Name: "Pixel 8", Platform: "android"},
		devices: []model.Device{{ID: devID, Name: "Pixel 8"}},
	}
	srv := testServer(Config{Devices: devices})
	h := srv.Router()
	tok := signToken(t, testKey, userID, "jti", time.Now().Add(time.Hour))

	rec := doRequest(t, h, http.MethodPost, "/api/devices", tok, deviceRegisterRequest{Name: "Pixel 8", Platform: "android"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}
	var d deviceItem
	if err := json.NewDecoder(rec.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.ID != devID.String() || d.Name != "Pixel 8" {
		t.Fatalf("unexpected device: %+v", d)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/devices", tok, nil)
	var ds []deviceItem
	if err := json.NewDecoder(rec.Body).Decode(&ds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ds) != 1 {
		t.Fatalf("expected 1 device, got %d", len(ds))
	}

	rec = doRequest(t, h, http.MethodDelete, "/api/devices/"+devID.String(), tok, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke: expected 204, got %d", rec.Code)
	}
	if devices.gotRevoke != devID {
		t.Fatalf("service saw revoke of %v", devices.gotRevoke)
	}

	devices.err = errs.ErrNotFound
	rec = doRequest(t, h, http.MethodDelete, "/api/devices/"+mustUUID(t).String(), tok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign device: expected 404, got %d", rec.Code)
	}
}

func TestTouchDevice_HeaderBumpsLastSeen(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	devID := mustUUID(t)
	devices := &fakeDeviceSvc{}
	srv := testServer(Config{Contacts: &fakeContactSvc{}, Devices: devices})
	h := srv.Router()
	tok := signToken(t, testKey, userID, "jti", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("X-Device-Id", devID.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if devices.gotTouch != devID {
		t.Fatalf("expected touch of %v, got %v", devID, devices.gotTouch)
	}

	// malformed header is ignored, not an error
	req = httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("X-Device-Id", "nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite bad header, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := testServer(Config{})
	rec := doRequest(t, srv.Router(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("no db configured: expected 200, got %d", rec.Code)
	}

	srv = testServer(Config{DB: failingPinger{err: errors.New("down")}})
	rec = doRequest(t, srv.Router(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing db: expected 503, got %d", rec.Code)
	}
}

func TestInternalErrorBodyIsOpaque(t *testing.T) {
	t.Parallel()

	userID := mustUUID(t)
	contacts := &fakeContactSvc{err: errors.New("pq: relation blew up at 10.0.0.3")}
	srv := testServer(Config{Contacts: contacts, Devices: &fakeDeviceSvc{}})
	h := srv.Router()
	tok := signToken(t, testKey, userID, "jti", time.Now().Add(time.Hour))

	rec := doRequest(t, h, http.MethodGet, "/api/contacts", tok, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp errResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "internal" {
		t.Fatalf("internal details leaked: %q", resp.Error)
	}
}
