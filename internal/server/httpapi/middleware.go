package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/metrics"
)

// Logging logs request metadata after completion. Payloads are never logged.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("dur", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}

// Recover converts panics into opaque 500 responses.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Observe records request counts and latency per route pattern.
func Observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(r.Method, route, strconv.Itoa(ww.Status()), time.Since(start))
		})
	}
}

// requireAuth extracts the bearer token, verifies HS256 signature and expiry,
// rejects revoked token ids and stores the user id and claims in context.
// A 401 from here is the client's signal to drop local session state.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			s.writeError(w, fmt.Errorf("no bearer token: %w", errs.ErrUnauthorized))
			return
		}
		claims, err := s.parseToken(raw)
		if err != nil {
			s.writeError(w, fmt.Errorf("invalid token: %w", errs.ErrUnauthorized))
			return
		}
		revoked, err := s.revoker.Revoked(r.Context(), claims.ID)
		if err != nil {
			s.writeError(w, fmt.Errorf("revocation check: %w", err))
			return
		}
		if revoked {
			s.writeError(w, fmt.Errorf("token revoked: %w", errs.ErrUnauthorized))
			return
		}
		userID, err := uuid.FromString(claims.Subject)
		if err != nil {
			s.writeError(w, fmt.Errorf("bad subject: %w", errs.ErrUnauthorized))
			return
		}

		ctx := WithUserID(r.Context(), userID)
		ctx = withClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// touchDevice bumps last_seen for the device named in X-Device-Id, best-effort.
// Runs after requireAuth so the lookup is user-scoped.
func (s *Server) touchDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get("X-Device-Id"); raw != "" {
			if deviceID, err := uuid.FromString(raw); err == nil {
				if userID, ok := UserIDFromCtx(r.Context()); ok {
					_ = s.devices.Touch(r.Context(), userID, deviceID)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// parseToken verifies an HS256 token and validates its time claims with leeway.
func (s *Server) parseToken(raw string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return nil, errors.New("token expired or not valid yet")
	}
	return &claims, nil
}

func bearerToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}
