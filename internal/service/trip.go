// Package service contains the business logic for the Tripdesk API.
// Services validate inputs, enforce business rules, and orchestrate repo and
// provider calls. No SQL and no HTTP encoding live here: services depend on
// repo interfaces and the splitwise client interface, not implementations.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/repo"
)

// TripService implements business logic for Trip operations.
type TripService struct {
	trips repo.TripRepo
}

// NewTripService constructs a TripService backed by the provided TripRepo.
func NewTripService(trips repo.TripRepo) *TripService {
	return &TripService{trips: trips}
}

// Create validates and persists a new trip on behalf of its creator.
// Returns domain.ErrValidation if input violates business rules.
func (s *TripService) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, err
	}
	if !trip.StartDate.After(time.Now()) {
		return domain.Trip{}, fmt.Errorf("%w: start_date must be in the future", domain.ErrValidation)
	}
	result, err := s.trips.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	return result, nil
}

// GetByID returns a single trip with its departments and attachments.
// Returns domain.ErrNotFound if the trip does not exist or was deleted.
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	result, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return result, nil
}

// Update validates and persists changes to an existing trip. Only the trip's
// creator may update it; anyone else gets domain.ErrNotAuthorized.
func (s *TripService) Update(ctx context.Context, actingUser uuid.UUID, trip domain.Trip) (domain.Trip, error) {
	existing, err := s.trips.GetByID(ctx, trip.ID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	if existing.CreatedBy != actingUser {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w: only the creator may update a trip", domain.ErrNotAuthorized)
	}
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, err
	}
	result, err := s.trips.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return result, nil
}

// Delete soft-deletes a trip. Only the trip's creator may delete it.
func (s *TripService) Delete(ctx context.Context, actingUser, id uuid.UUID) error {
	existing, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if existing.CreatedBy != actingUser {
		return fmt.Errorf("service.TripService.Delete: %w: only the creator may delete a trip", domain.ErrNotAuthorized)
	}
	if err := s.trips.MarkDeleted(ctx, id, actingUser); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// validateTrip enforces business rules common to both Create and Update.
//   - Title must be non-empty (whitespace-only titles are rejected).
//   - Both dates are required and start_date must be before end_date.
//   - At least one department must be named.
//   - Location, if set, must be a valid JSON document.
//   - Attachments must carry a file name and a storage key.
func validateTrip(trip domain.Trip) error {
	if strings.TrimSpace(trip.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if trip.StartDate.IsZero() || trip.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", domain.ErrValidation)
	}
	if !trip.StartDate.Before(trip.EndDate) {
		return fmt.Errorf("%w: start_date must be before end_date", domain.ErrValidation)
	}
	if len(trip.Departments) == 0 {
		return fmt.Errorf("%w: at least one department is required", domain.ErrValidation)
	}
	if len(trip.Location) > 0 && !json.Valid(trip.Location) {
		return fmt.Errorf("%w: location must be a JSON document", domain.ErrValidation)
	}
	for _, a := range trip.Attachments {
		if strings.TrimSpace(a.FileName) == "" || strings.TrimSpace(a.StorageKey) == "" {
			return fmt.Errorf("%w: attachments need a file name and a storage key", domain.ErrValidation)
		}
	}
	return nil
}
