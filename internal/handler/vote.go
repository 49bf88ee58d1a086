package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
)

// VoteResponse reports what a cast did and the affected tallies.
type VoteResponse struct {
	Result string     `json:"result"`
	Choice VoteChoice `json:"choice"`
	// Previous is present only when the ballot moved between choices.
	Previous *VoteChoice `json:"previous,omitempty"`
	Message  string      `json:"message"`
}

// VoteChoice is a choice with its post-commit tally.
type VoteChoice struct {
	ID    uuid.UUID `json:"id"`
	Text  string    `json:"text"`
	Votes int       `json:"votes"`
}

// CastVote handles POST /polls/vote/{choiceID}. A first cast answers 201; a
// withdrawal or reassignment answers 200.
func (s *Server) CastVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	choiceID, err := uuid.Parse(chi.URLParam(r, "choiceID"))
	if err != nil {
		s.respond(w, http.StatusNotFound, notFoundBody("choice not found"))
		return
	}

	outcome, err := s.votes.Cast(r.Context(), userID, choiceID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respond(w, http.StatusNotFound, notFoundBody("choice not found"))
		case errors.Is(err, domain.ErrPollExpired):
			s.respond(w, http.StatusBadRequest, conflictBody(err))
		case errors.Is(err, domain.ErrWrongDepartment):
			s.respond(w, http.StatusBadRequest, forbiddenBody(err))
		case errors.Is(err, domain.ErrConflict):
			s.respond(w, http.StatusConflict, conflictBody(err))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	status := http.StatusOK
	if outcome.Result == domain.VoteAdded {
		status = http.StatusCreated
	}
	s.respond(w, status, voteToResponse(outcome))
}

// voteToResponse renders a vote outcome with post-commit tallies.
func voteToResponse(o domain.VoteOutcome) VoteResponse {
	resp := VoteResponse{
		Result: o.Result.String(),
		Choice: VoteChoice{
			ID:    o.Choice.ID,
			Text:  o.Choice.Text,
			Votes: o.Choice.Votes,
		},
		Message: o.Result.String(),
	}
	if o.Previous != nil {
		resp.Previous = &VoteChoice{
			ID:    o.Previous.ID,
			Text:  o.Previous.Text,
			Votes: o.Previous.Votes,
		}
	}
	return resp
}
