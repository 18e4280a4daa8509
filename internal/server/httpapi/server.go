// Package httpapi exposes the Whereabouts HTTP API.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/whereabouts-app/whereabouts/internal/metrics"
	"github.com/whereabouts-app/whereabouts/internal/model"
	"github.com/whereabouts-app/whereabouts/internal/service"
	"github.com/whereabouts-app/whereabouts/internal/session"
)

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config collects the server's dependencies.
type Config struct {
	Log      *zap.Logger
	Auth     service.AuthService
	Contacts service.ContactService
	Shares   service.ShareService
	Blobs    service.BlobService
	Devices  service.DeviceService
	SignKey  []byte
	Revoker  session.Revoker
	Metrics  *metrics.Metrics
	DB       Pinger
}

// Server wires services into HTTP handlers.
type Server struct {
	log      *zap.Logger
	auth     service.AuthService
	contacts service.ContactService
	shares   service.ShareService
	blobs    service.BlobService
	devices  service.DeviceService
	signKey  []byte
	revoker  session.Revoker
	mets     *metrics.Metrics
	db       Pinger
}

// New constructs a Server with injected services.
func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:      log,
		auth:     cfg.Auth,
		contacts: cfg.Contacts,
		shares:   cfg.Shares,
		blobs:    cfg.Blobs,
		devices:  cfg.Devices,
		signKey:  cfg.SignKey,
		revoker:  cfg.Revoker,
		mets:     cfg.Metrics,
		db:       cfg.DB,
	}
}

// Router builds the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))
	r.Use(Observe(s.mets))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.touchDevice)

			r.Post("/auth/logout", s.handleLogout)

			r.Get("/users/lookup", s.handleLookup)
			r.Put("/users/public-key", s.handleSetPublicKey)

			r.Post("/contacts/requests", s.handleRequestCreate)
			r.Get("/contacts/requests", s.handleRequestList)
			r.Post("/contacts/requests/{id}/accept", s.handleRequestAccept)
			r.Post("/contacts/requests/{id}/decline", s.handleRequestDecline)
			r.Post("/contacts/requests/{id}/cancel", s.handleRequestCancel)

			r.Get("/contacts", s.handleContactList)
			r.Delete("/contacts/{peerID}", s.handleContactRemove)
			r.Put("/contacts/{peerID}/precision", s.handleSetPrecision)

			r.Put("/locations", s.handleShareUpload)
			r.Get("/locations", s.handleInbox)

			r.Get("/userdata", s.handleBlobGet(model.BlobUserData))
			r.Put("/userdata", s.handleBlobSet(model.BlobUserData))
			r.Get("/identity-backup", s.handleBlobGet(model.BlobIdentityBackup))
			r.Put("/identity-backup", s.handleBlobSet(model.BlobIdentityBackup))

			r.Get("/devices", s.handleDeviceList)
			r.Post("/devices", s.handleDeviceRegister)
			r.Delete("/devices/{id}", s.handleDeviceRevoke)
		})
	})

	return r
}

// handleHealth reports readiness; storage failures yield 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
