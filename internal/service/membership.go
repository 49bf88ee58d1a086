package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/repo"
	"github.com/tripdesk/backend/internal/splitwise"
)

// MembershipService implements the trip interest workflow: the local
// membership row plus the best-effort sync into the trip's remote expense
// group. It holds the user repo because the sync needs the trip creator's
// provider credential and the acting user's profile.
type MembershipService struct {
	trips       repo.TripRepo
	memberships repo.MembershipRepo
	users       repo.UserRepo
	provider    splitwise.Client
	log         *slog.Logger
}

// NewMembershipService constructs a MembershipService backed by the provided
// repos and provider client.
func NewMembershipService(
	trips repo.TripRepo,
	memberships repo.MembershipRepo,
	users repo.UserRepo,
	provider splitwise.Client,
	log *slog.Logger,
) *MembershipService {
	return &MembershipService{
		trips:       trips,
		memberships: memberships,
		users:       users,
		provider:    provider,
		log:         log,
	}
}

// SetInterest records the user's interest status on a trip. The first signal
// creates the membership row; every later signal mutates the same row.
//
// Returns domain.ErrNotFound if the trip or user does not exist,
// domain.ErrTripStarted once the trip's start date has passed, and
// domain.ErrWrongDepartment when the user's department is not on the trip.
// A concurrent first-time signal can surface domain.ErrDuplicateMembership;
// retrying the request resolves it.
//
// When the resulting status is interested and the trip already has an expense
// group, the user is added to the remote group after the local write commits.
// The outcome reports how that sync fared; a provider failure or timeout
// never rolls back or fails the local mutation.
func (s *MembershipService) SetInterest(ctx context.Context, userID, tripID uuid.UUID, interested bool) (domain.MembershipOutcome, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.MembershipOutcome{}, fmt.Errorf("service.MembershipService.SetInterest: %w", err)
	}
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.MembershipOutcome{}, fmt.Errorf("service.MembershipService.SetInterest: %w", err)
	}
	if trip.Started(time.Now()) {
		return domain.MembershipOutcome{}, fmt.Errorf("service.MembershipService.SetInterest: %w", domain.ErrTripStarted)
	}
	if !trip.OpenToDepartment(user.DepartmentID) {
		return domain.MembershipOutcome{}, fmt.Errorf("service.MembershipService.SetInterest: %w", domain.ErrWrongDepartment)
	}

	var outcome domain.MembershipOutcome
	membership, err := s.memberships.UpdateInterest(ctx, userID, tripID, interested)
	if errors.Is(err, domain.ErrNotFound) {
		membership, err = s.memberships.InsertNew(ctx, domain.TripMembership{
			TripID:     tripID,
			UserID:     userID,
			Interested: interested,
		})
		outcome.Created = true
	}
	if err != nil {
		return domain.MembershipOutcome{}, fmt.Errorf("service.MembershipService.SetInterest: %w", err)
	}
	outcome.Membership = membership

	// The local write is committed; anything from here on is best-effort.
	if membership.Interested && trip.ExpenseGroupID != nil {
		outcome.Sync, outcome.SyncErr = s.addToGroup(ctx, trip, user)
	}
	return outcome, nil
}

// addToGroup adds the user to the trip's remote expense group using the trip
// creator's provider credential. The creator owns the group on the provider
// side, so theirs is the only token known to be authorized on it.
//
// AddUserToGroup is idempotent at the provider, so a deferred sync can simply
// be retried by toggling interest again.
func (s *MembershipService) addToGroup(ctx context.Context, trip domain.Trip, user domain.User) (domain.RemoteSync, error) {
	creator, err := s.users.GetByID(ctx, trip.CreatedBy)
	if err != nil {
		s.log.ErrorContext(ctx, "membership sync: load trip creator", "trip_id", trip.ID, "error", err)
		return domain.RemoteSyncFailed, err
	}
	if !creator.ProviderLinked {
		err := fmt.Errorf("%w: trip creator has no linked expense account", domain.ErrNotAuthorized)
		s.log.WarnContext(ctx, "membership sync skipped", "trip_id", trip.ID, "user_id", user.ID, "error", err)
		return domain.RemoteSyncFailed, err
	}

	err = s.provider.AddUserToGroup(ctx, creator.ProviderToken, *trip.ExpenseGroupID, toGroupMember(user.Profile()))
	switch {
	case err == nil:
		return domain.RemoteSyncSynced, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.log.WarnContext(ctx, "membership sync deferred", "trip_id", trip.ID, "user_id", user.ID, "error", err)
		return domain.RemoteSyncDeferred, err
	default:
		s.log.ErrorContext(ctx, "membership sync failed", "trip_id", trip.ID, "user_id", user.ID, "error", err)
		return domain.RemoteSyncFailed, err
	}
}
