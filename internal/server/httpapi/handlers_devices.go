package httpapi

import (
	"net/http"
	"time"

	"github.com/whereabouts-app/whereabouts/internal/model"
)

type deviceRegisterRequest struct {
	Name     string `json:"name"`
	Platform string `json:"platform,omitempty"`
}

type deviceItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

func toDeviceItem(d model.Device) deviceItem {
	return deviceItem{
		ID:        d.ID.String(),
		Name:      d.Name,
		Platform:  d.Platform,
		CreatedAt: d.CreatedAt,
		LastSeen:  d.LastSeen,
	}
}

// handleDeviceRegister records a new client installation.
func (s *Server) handleDeviceRegister(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req deviceRegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.devices.Register(r.Context(), userID, req.Name, req.Platform)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeviceItem(*d))
}

// handleDeviceList returns the caller's registered devices.
func (s *Server) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	ds, err := s.devices.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := make([]deviceItem, 0, len(ds))
	for _, d := range ds {
		items = append(items, toDeviceItem(d))
	}
	writeJSON(w, http.StatusOK, items)
}

// handleDeviceRevoke removes a device registration.
func (s *Server) handleDeviceRevoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	deviceID, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.devices.Revoke(r.Context(), userID, deviceID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
