package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/repo"
	"github.com/tripdesk/backend/internal/splitwise"
)

// GroupService creates a trip's remote expense group. Group creation is the
// one moment the interested-member set is pushed to the provider wholesale;
// afterwards members trickle in one by one through the membership sync.
type GroupService struct {
	trips       repo.TripRepo
	memberships repo.MembershipRepo
	users       repo.UserRepo
	provider    splitwise.Client
	log         *slog.Logger
}

// NewGroupService constructs a GroupService backed by the provided repos and
// provider client.
func NewGroupService(
	trips repo.TripRepo,
	memberships repo.MembershipRepo,
	users repo.UserRepo,
	provider splitwise.Client,
	log *slog.Logger,
) *GroupService {
	return &GroupService{
		trips:       trips,
		memberships: memberships,
		users:       users,
		provider:    provider,
		log:         log,
	}
}

// CreateForTrip creates the remote expense group for a trip, named after the
// trip and seeded with every currently-interested member, then records the
// group id on the trip. The id is set at most once; a second creation attempt
// returns domain.ErrGroupExists.
//
// Only the trip's creator may create the group: the group is owned by their
// provider account, and the membership sync later relies on their credential.
func (s *GroupService) CreateForTrip(ctx context.Context, actingUser, tripID uuid.UUID) (string, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return "", fmt.Errorf("service.GroupService.CreateForTrip: %w", err)
	}
	if trip.CreatedBy != actingUser {
		return "", fmt.Errorf("service.GroupService.CreateForTrip: %w: only the creator may create the expense group", domain.ErrNotAuthorized)
	}
	if trip.ExpenseGroupID != nil {
		return "", fmt.Errorf("service.GroupService.CreateForTrip: %w", domain.ErrGroupExists)
	}

	creator, err := s.users.GetByID(ctx, actingUser)
	if err != nil {
		return "", fmt.Errorf("service.GroupService.CreateForTrip: %w", err)
	}
	if !creator.ProviderLinked {
		return "", fmt.Errorf("service.GroupService.CreateForTrip: %w: expense account not linked", domain.ErrNotAuthorized)
	}

	profiles, err := s.memberships.ListInterested(ctx, tripID)
	if err != nil {
		return "", fmt.Errorf("service.GroupService.CreateForTrip: %w", err)
	}
	members := make([]splitwise.GroupMember, len(profiles))
	for i, p := range profiles {
		members[i] = toGroupMember(p)
	}

	group, err := s.provider.CreateGroup(ctx, creator.ProviderToken, trip.Title, members)
	if err != nil {
		return "", fmt.Errorf("service.GroupService.CreateForTrip: %w", err)
	}

	groupID := splitwise.FormatGroupID(group.ID)
	if err := s.trips.SetExpenseGroupID(ctx, tripID, groupID); err != nil {
		// The remote group exists but a concurrent creation won the set-once
		// race; this group is now orphaned on the provider side.
		s.log.ErrorContext(ctx, "expense group created remotely but not recorded",
			"trip_id", tripID, "group_id", groupID, "error", err)
		return "", fmt.Errorf("service.GroupService.CreateForTrip: %w", err)
	}
	return groupID, nil
}

// toGroupMember maps a member profile to the provider's wire shape.
func toGroupMember(p domain.MemberProfile) splitwise.GroupMember {
	return splitwise.GroupMember{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
	}
}
