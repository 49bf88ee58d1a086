package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
)

// PollRequest is the body of POST /polls and PUT /polls/{id}. On create the
// choice ids are ignored; on update a choice with an id replaces that choice's
// text (resetting its tally) and a choice without one is appended.
type PollRequest struct {
	Title       string              `json:"title"`
	Expiry      time.Time           `json:"expiry"`
	Departments []uuid.UUID         `json:"departments"`
	Choices     []PollChoiceRequest `json:"choices"`
}

// PollChoiceRequest is one choice entry in a poll payload.
type PollChoiceRequest struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Text string     `json:"text"`
}

// PollResponse is a poll with read-time percentages on every choice.
type PollResponse struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Expiry      time.Time        `json:"expiry"`
	Departments []uuid.UUID      `json:"departments"`
	Choices     []ChoiceResponse `json:"choices"`
	TotalVotes  int              `json:"total_votes"`
	CreatedBy   uuid.UUID        `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ChoiceResponse is one choice with its tally and share of the total.
type ChoiceResponse struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	Votes      int       `json:"votes"`
	Percentage float64   `json:"percentage"`
}

// CreatePoll handles POST /polls. The acting user becomes the poll's creator.
func (s *Server) CreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	var req PollRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	poll := domain.Poll{
		Title:       req.Title,
		Expiry:      req.Expiry,
		Departments: req.Departments,
		CreatedBy:   userID,
	}
	for _, c := range req.Choices {
		poll.Choices = append(poll.Choices, domain.Choice{Text: c.Text})
	}

	created, err := s.polls.Create(r.Context(), poll)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.respond(w, http.StatusUnprocessableEntity, validationBody(err))
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.respond(w, http.StatusCreated, pollToResponse(created))
}

// GetPoll handles GET /polls/{id}.
func (s *Server) GetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respond(w, http.StatusNotFound, notFoundBody("poll not found"))
		return
	}

	poll, err := s.polls.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respond(w, http.StatusNotFound, notFoundBody("poll not found"))
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, pollToResponse(poll))
}

// UpdatePoll handles PUT /polls/{id}. Only the creator may update; replacing
// a choice's text resets that choice's tally.
func (s *Server) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respond(w, http.StatusNotFound, notFoundBody("poll not found"))
		return
	}
	var req PollRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	poll := domain.Poll{
		ID:          id,
		Title:       req.Title,
		Expiry:      req.Expiry,
		Departments: req.Departments,
	}
	choices := make([]domain.ChoiceUpdate, len(req.Choices))
	for i, c := range req.Choices {
		choices[i] = domain.ChoiceUpdate{ID: c.ID, Text: c.Text}
	}

	updated, err := s.polls.Update(r.Context(), userID, poll, choices)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respond(w, http.StatusNotFound, notFoundBody("poll not found"))
		case errors.Is(err, domain.ErrValidation):
			s.respond(w, http.StatusUnprocessableEntity, validationBody(err))
		case errors.Is(err, domain.ErrNotAuthorized):
			s.respond(w, http.StatusForbidden, forbiddenBody(err))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	s.respond(w, http.StatusOK, pollToResponse(updated))
}

// DeletePoll handles DELETE /polls/{id}. Only the creator may delete; the row
// is soft-deleted and disappears from all reads.
func (s *Server) DeletePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respond(w, http.StatusNotFound, notFoundBody("poll not found"))
		return
	}

	if err := s.polls.Delete(r.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respond(w, http.StatusNotFound, notFoundBody("poll not found"))
		case errors.Is(err, domain.ErrNotAuthorized):
			s.respond(w, http.StatusForbidden, forbiddenBody(err))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pollToResponse renders a poll with each choice's percentage of the current
// total. Percentages are derived at read time and never stored.
func pollToResponse(p domain.Poll) PollResponse {
	total := p.TotalVotes()
	resp := PollResponse{
		ID:          p.ID,
		Title:       p.Title,
		Expiry:      p.Expiry,
		Departments: p.Departments,
		Choices:     make([]ChoiceResponse, len(p.Choices)),
		TotalVotes:  total,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for i, c := range p.Choices {
		resp.Choices[i] = ChoiceResponse{
			ID:         c.ID,
			Text:       c.Text,
			Votes:      c.Votes,
			Percentage: c.Percentage(total),
		}
	}
	return resp
}
