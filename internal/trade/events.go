package trade

import (
	"net/http"
	"time"

	"github.com/gravitas/share-engine/internal/model"
)

// CreateEventRequest is the JSON body for event creation. Date is RFC 3339.
type CreateEventRequest struct {
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	RequiredShares uint64    `json:"required_shares"`
}

// CreateEvent handles POST /api/v1/creators/{address}/events
// Only the creator's owner may call it.
func (s *Service) CreateEvent(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	var req CreateEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	ev, err := s.gate.CreateEvent(ctx, callerFrom(ctx), addr, req.Title, req.Date, req.RequiredShares)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(eventMessage(ev))
	}
	writeJSON(w, http.StatusCreated, ev)
}

// ListEvents handles GET /api/v1/creators/{address}/events
func (s *Service) ListEvents(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	events, err := s.gate.ListEvents(r.Context(), addr)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/v1/events/{address}
func (s *Service) GetEvent(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	ev, err := s.gate.GetEvent(r.Context(), addr)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
