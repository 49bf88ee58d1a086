package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/repo"
)

// PollService implements business logic for Poll operations.
type PollService struct {
	polls repo.PollRepo
}

// NewPollService constructs a PollService backed by the provided PollRepo.
func NewPollService(polls repo.PollRepo) *PollService {
	return &PollService{polls: polls}
}

// Create validates and persists a new poll with its choices.
// Returns domain.ErrValidation if input violates business rules.
func (s *PollService) Create(ctx context.Context, poll domain.Poll) (domain.Poll, error) {
	if err := validatePoll(poll.Title, poll.Expiry, poll.Departments); err != nil {
		return domain.Poll{}, err
	}
	if len(poll.Choices) == 0 {
		return domain.Poll{}, fmt.Errorf("%w: at least one choice is required", domain.ErrValidation)
	}
	for _, c := range poll.Choices {
		if strings.TrimSpace(c.Text) == "" {
			return domain.Poll{}, fmt.Errorf("%w: choice text is required", domain.ErrValidation)
		}
	}
	result, err := s.polls.Create(ctx, poll)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("service.PollService.Create: %w", err)
	}
	return result, nil
}

// GetByID returns a single poll with its choices in insertion order.
// Returns domain.ErrNotFound if the poll does not exist or was deleted.
func (s *PollService) GetByID(ctx context.Context, id uuid.UUID) (domain.Poll, error) {
	result, err := s.polls.GetByID(ctx, id)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("service.PollService.GetByID: %w", err)
	}
	return result, nil
}

// Update validates and persists changes to an existing poll. Only the poll's
// creator may update it. Choice updates carrying an id replace that choice's
// text and reset its tally; updates without an id append a new choice.
func (s *PollService) Update(ctx context.Context, actingUser uuid.UUID, poll domain.Poll, choices []domain.ChoiceUpdate) (domain.Poll, error) {
	existing, err := s.polls.GetByID(ctx, poll.ID)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("service.PollService.Update: %w", err)
	}
	if existing.CreatedBy != actingUser {
		return domain.Poll{}, fmt.Errorf("service.PollService.Update: %w: only the creator may update a poll", domain.ErrNotAuthorized)
	}
	if err := validatePoll(poll.Title, poll.Expiry, poll.Departments); err != nil {
		return domain.Poll{}, err
	}
	for _, c := range choices {
		if strings.TrimSpace(c.Text) == "" {
			return domain.Poll{}, fmt.Errorf("%w: choice text is required", domain.ErrValidation)
		}
	}
	result, err := s.polls.Update(ctx, poll, choices)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("service.PollService.Update: %w", err)
	}
	return result, nil
}

// Delete soft-deletes a poll. Only the poll's creator may delete it.
func (s *PollService) Delete(ctx context.Context, actingUser, id uuid.UUID) error {
	existing, err := s.polls.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service.PollService.Delete: %w", err)
	}
	if existing.CreatedBy != actingUser {
		return fmt.Errorf("service.PollService.Delete: %w: only the creator may delete a poll", domain.ErrNotAuthorized)
	}
	if err := s.polls.MarkDeleted(ctx, id, actingUser); err != nil {
		return fmt.Errorf("service.PollService.Delete: %w", err)
	}
	return nil
}

// validatePoll enforces rules common to both Create and Update. The expiry
// must be strictly in the future at creation and at any update.
func validatePoll(title string, expiry time.Time, departments []uuid.UUID) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if !expiry.After(time.Now()) {
		return fmt.Errorf("%w: expiry must be in the future", domain.ErrValidation)
	}
	if len(departments) == 0 {
		return fmt.Errorf("%w: at least one department is required", domain.ErrValidation)
	}
	return nil
}
