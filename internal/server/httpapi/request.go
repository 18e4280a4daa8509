package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
)

// maxBodyBytes bounds request bodies; the largest legitimate payload is a
// full publish batch, well under this.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("bad json: %w", errs.ErrValidation)
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad %s: %w", name, errs.ErrValidation)
	}
	return id, nil
}

// currentUser returns the authenticated user id, writing a 401 when absent.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := UserIDFromCtx(r.Context())
	if !ok {
		s.writeError(w, fmt.Errorf("no session: %w", errs.ErrUnauthorized))
	}
	return id, ok
}
