package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
)

// InterestRequest is the body of POST/PUT /trips/interest/{tripID}.
type InterestRequest struct {
	Interested bool `json:"interested"`
}

// InterestResponse reports the committed membership row, whether this request
// created it, and the fate of the best-effort remote sync.
type InterestResponse struct {
	Membership domain.TripMembership `json:"membership"`
	Created    bool                  `json:"created"`
	Sync       string                `json:"sync"`
	Message    string                `json:"message"`
}

// SetInterest handles POST and PUT /trips/interest/{tripID}. The first signal
// answers 201, every later one 200; both bodies name the remote sync outcome.
func (s *Server) SetInterest(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	tripID, err := uuid.Parse(chi.URLParam(r, "tripID"))
	if err != nil {
		s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
		return
	}
	var req InterestRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	outcome, err := s.memberships.SetInterest(r.Context(), userID, tripID, req.Interested)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
		case errors.Is(err, domain.ErrTripStarted):
			s.respond(w, http.StatusBadRequest, conflictBody(err))
		case errors.Is(err, domain.ErrWrongDepartment):
			s.respond(w, http.StatusBadRequest, forbiddenBody(err))
		case errors.Is(err, domain.ErrDuplicateMembership):
			s.respond(w, http.StatusConflict, conflictBody(err))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	status := http.StatusOK
	if outcome.Created {
		status = http.StatusCreated
	}
	s.respond(w, status, interestResponse(outcome))
}

// interestResponse renders a membership outcome, folding the sync result into
// the human-readable message.
func interestResponse(outcome domain.MembershipOutcome) InterestResponse {
	message := "interest updated"
	if outcome.Created {
		message = "interest recorded"
	}
	if outcome.Sync != domain.RemoteSyncNone {
		message += "; remote sync " + outcome.Sync.String()
	}
	return InterestResponse{
		Membership: outcome.Membership,
		Created:    outcome.Created,
		Sync:       outcome.Sync.String(),
		Message:    message,
	}
}
