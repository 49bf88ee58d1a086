package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/repo"
)

// VoteService gates the vote toggle behind the poll's business rules. The
// toggle itself, including tally consistency, lives in repo.VoteRepo.
type VoteService struct {
	users repo.UserRepo
	polls repo.PollRepo
	votes repo.VoteRepo
}

// NewVoteService constructs a VoteService backed by the provided repos.
func NewVoteService(users repo.UserRepo, polls repo.PollRepo, votes repo.VoteRepo) *VoteService {
	return &VoteService{users: users, polls: polls, votes: votes}
}

// Cast toggles the user's ballot on a choice: first cast adds the vote, a
// repeat on the same choice removes it, and a cast on a sibling choice moves
// the ballot over.
//
// Returns domain.ErrNotFound if the choice or its poll does not exist (a
// deleted poll reads as missing), domain.ErrPollExpired once the poll's
// expiry has passed, and domain.ErrWrongDepartment when the user's department
// is not on the poll.
func (s *VoteService) Cast(ctx context.Context, userID, choiceID uuid.UUID) (domain.VoteOutcome, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("service.VoteService.Cast: %w", err)
	}
	choice, err := s.polls.GetChoice(ctx, choiceID)
	if err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("service.VoteService.Cast: %w", err)
	}
	poll, err := s.polls.GetByID(ctx, choice.PollID)
	if err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("service.VoteService.Cast: %w", err)
	}
	if poll.Expired(time.Now()) {
		return domain.VoteOutcome{}, fmt.Errorf("service.VoteService.Cast: %w", domain.ErrPollExpired)
	}
	if !poll.OpenToDepartment(user.DepartmentID) {
		return domain.VoteOutcome{}, fmt.Errorf("service.VoteService.Cast: %w", domain.ErrWrongDepartment)
	}

	outcome, err := s.votes.Cast(ctx, userID, poll.ID, choiceID)
	if err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("service.VoteService.Cast: %w", err)
	}
	return outcome, nil
}
