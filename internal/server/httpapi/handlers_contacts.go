package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
)

type requestCreateRequest struct {
	RecipientID uuid.UUID `json:"recipientId"`
}

type requestCreateResponse struct {
	ID string `json:"id"`
}

type requestItem struct {
	ID        string    `json:"id"`
	PeerID    string    `json:"peerId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type contactItem struct {
	PeerID    string    `json:"peerId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	PublicKey []byte    `json:"publicKey,omitempty"`
	Precision string    `json:"precision"`
	CreatedAt time.Time `json:"createdAt"`
}

type setPrecisionRequest struct {
	Level string `json:"level"`
}

// handleRequestCreate sends a contact request to another account.
func (s *Server) handleRequestCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req requestCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	id, err := s.contacts.Request(r.Context(), userID, req.RecipientID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestCreateResponse{ID: id.String()})
}

// handleRequestList returns pending requests for one direction.
// direction=incoming is the default; direction=outgoing lists sent requests.
func (s *Server) handleRequestList(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var views []model.RequestView
	var err error
	switch dir := r.URL.Query().Get("direction"); dir {
	case "", "incoming":
		views, err = s.contacts.Incoming(r.Context(), userID)
	case "outgoing":
		views, err = s.contacts.Outgoing(r.Context(), userID)
	default:
		err = fmt.Errorf("unknown direction %q: %w", dir, errs.ErrValidation)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]requestItem, 0, len(views))
	for _, v := range views {
		items = append(items, requestItem{
			ID:        v.ID.String(),
			PeerID:    v.PeerID.String(),
			Email:     v.Email,
			Name:      v.Name,
			CreatedAt: v.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) resolveRequest(w http.ResponseWriter, r *http.Request, resolve func(ctx context.Context, requestID, actingUser uuid.UUID) error) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	requestID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := resolve(r.Context(), requestID, userID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRequestAccept connects the pair; recipient only.
func (s *Server) handleRequestAccept(w http.ResponseWriter, r *http.Request) {
	s.resolveRequest(w, r, s.contacts.Accept)
}

// handleRequestDecline drops the request; recipient only.
func (s *Server) handleRequestDecline(w http.ResponseWriter, r *http.Request) {
	s.resolveRequest(w, r, s.contacts.Decline)
}

// handleRequestCancel withdraws the request; requester only.
func (s *Server) handleRequestCancel(w http.ResponseWriter, r *http.Request) {
	s.resolveRequest(w, r, s.contacts.Cancel)
}

// handleContactList returns the caller's contacts with granted precision.
func (s *Server) handleContactList(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	views, err := s.contacts.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := make([]contactItem, 0, len(views))
	for _, v := range views {
		items = append(items, contactItem{
			PeerID:    v.PeerID.String(),
			Email:     v.Email,
			Name:      v.Name,
			PublicKey: v.PublicKey,
			Precision: v.Precision,
			CreatedAt: v.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// handleContactRemove disconnects both directions and purges stored shares.
func (s *Server) handleContactRemove(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	peerID, err := pathUUID(r, "peerID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.contacts.Remove(r.Context(), userID, peerID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetPrecision updates the caller's granted level for one peer.
func (s *Server) handleSetPrecision(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	peerID, err := pathUUID(r, "peerID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req setPrecisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.contacts.SetPrecision(r.Context(), userID, peerID, req.Level); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
