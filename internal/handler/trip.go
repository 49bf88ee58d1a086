package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
)

// TripRequest is the body of POST /trips and PUT /trips/{id}.
type TripRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	StartDate   time.Time           `json:"start_date"`
	EndDate     time.Time           `json:"end_date"`
	Location    json.RawMessage     `json:"location,omitempty"`
	Departments []uuid.UUID         `json:"departments"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

// AttachmentRequest is one attachment's metadata in a trip payload.
type AttachmentRequest struct {
	FileName   string `json:"file_name"`
	StorageKey string `json:"storage_key"`
}

// CreateTrip handles POST /trips. The acting user becomes the trip's creator.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	var req TripRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	trip := requestToTrip(req)
	trip.CreatedBy = userID
	created, err := s.trips.Create(r.Context(), trip)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.respond(w, http.StatusUnprocessableEntity, validationBody(err))
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.respond(w, http.StatusCreated, created)
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
		return
	}

	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, trip)
}

// UpdateTrip handles PUT /trips/{id}. Only the creator may update.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
		return
	}
	var req TripRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	trip := requestToTrip(req)
	trip.ID = id
	updated, err := s.trips.Update(r.Context(), userID, trip)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
		case errors.Is(err, domain.ErrValidation):
			s.respond(w, http.StatusUnprocessableEntity, validationBody(err))
		case errors.Is(err, domain.ErrNotAuthorized):
			s.respond(w, http.StatusForbidden, forbiddenBody(err))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	s.respond(w, http.StatusOK, updated)
}

// DeleteTrip handles DELETE /trips/{id}. Only the creator may delete; the row
// is soft-deleted and disappears from all reads.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
		return
	}

	if err := s.trips.Delete(r.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respond(w, http.StatusNotFound, notFoundBody("trip not found"))
		case errors.Is(err, domain.ErrNotAuthorized):
			s.respond(w, http.StatusForbidden, forbiddenBody(err))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requestToTrip converts a TripRequest body into a domain.Trip.
func requestToTrip(req TripRequest) domain.Trip {
	trip := domain.Trip{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Location:    req.Location,
		Departments: req.Departments,
	}
	for _, a := range req.Attachments {
		trip.Attachments = append(trip.Attachments, domain.Attachment{
			FileName:   a.FileName,
			StorageKey: a.StorageKey,
		})
	}
	return trip
}
