package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/model"
)

// shareEnvelope carries one recipient's ciphertext. The payload is a sealed
// envelope the server stores verbatim and never inspects.
type shareEnvelope struct {
	To      uuid.UUID       `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type shareUploadRequest struct {
	Shares []shareEnvelope `json:"shares"`
}

type shareUploadResponse struct {
	Stored int `json:"stored"`
}

type inboxItem struct {
	From      uuid.UUID       `json:"from"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// handleShareUpload stores one ciphertext per recipient, replacing previous
// ones. Recipients disconnected mid-flight are skipped, not errors.
func (s *Server) handleShareUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req shareUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	uploads := make([]model.ShareUpload, 0, len(req.Shares))
	for _, sh := range req.Shares {
		uploads = append(uploads, model.ShareUpload{ToID: sh.To, Payload: sh.Payload})
	}
	stored, err := s.shares.Upload(r.Context(), userID, uploads)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mets.AddSharesStored(stored)
	writeJSON(w, http.StatusOK, shareUploadResponse{Stored: stored})
}

// handleInbox returns the latest ciphertext from every sender sharing with
// the caller.
func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	shares, err := s.shares.Inbox(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := make([]inboxItem, 0, len(shares))
	for _, sh := range shares {
		items = append(items, inboxItem{
			From:      sh.FromID,
			Payload:   sh.Payload,
			UpdatedAt: sh.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
