package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
)

// GroupResponse is the body of a successful group creation.
type GroupResponse struct {
	GroupID string `json:"group_id"`
}

// CreateGroup handles POST /trips/{id}/group. It creates the remote expense
// group from the trip's currently interested members; only the trip's creator
// may call it, and only once per trip.
func (s *Server) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
		return
	}

	groupID, err := s.groups.CreateForTrip(r.Context(), userID, tripID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
		case errors.Is(err, domain.ErrGroupExists):
			s.respond(w, http.StatusConflict, conflictBody(err))
		case errors.Is(err, domain.ErrNotAuthorized):
			s.respond(w, http.StatusForbidden, forbiddenBody(err))
		default:
			s.respondProviderOr500(w, r, err)
		}
		return
	}

	s.respond(w, http.StatusOK, GroupResponse{GroupID: groupID})
}
