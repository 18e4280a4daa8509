package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
)

type blobResponse struct {
	Payload   []byte    `json:"payload"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type blobSetRequest struct {
	Payload         []byte `json:"payload"`
	ExpectedVersion int64  `json:"expectedVersion"`
}

type blobSetResponse struct {
	Version int64 `json:"version"`
}

// handleBlobGet serves the current document for one blob slot; 404 when the
// slot has never been written.
func (s *Server) handleBlobGet(kind model.BlobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.currentUser(w, r)
		if !ok {
			return
		}
		b, err := s.blobs.Get(r.Context(), userID, kind)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, blobResponse{
			Payload:   b.Payload,
			Version:   b.Ver,
			UpdatedAt: b.UpdatedAt,
		})
	}
}

// handleBlobSet applies a compare-and-set write to one blob slot.
// expectedVersion 0 creates; a stale version yields 409 with storage
// unchanged, and the client must re-read and merge.
func (s *Server) handleBlobSet(kind model.BlobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.currentUser(w, r)
		if !ok {
			return
		}
		var req blobSetRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		ver, err := s.blobs.Set(r.Context(), userID, kind, req.Payload, req.ExpectedVersion)
		if err != nil {
			if errors.Is(err, errs.ErrVersionConflict) {
				s.mets.IncrementBlobConflicts()
			}
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, blobSetResponse{Version: ver})
	}
}
