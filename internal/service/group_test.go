package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/service"
	"github.com/tripdesk/backend/internal/splitwise"
)

func TestGroupService_CreateForTrip_OK(t *testing.T) {
	f := newMembershipFixture()
	interested := []domain.MemberProfile{
		{FirstName: "Minna", LastName: "Member", Email: "minna@example.com"},
		{FirstName: "Ola", LastName: "Other", Email: "ola@example.com"},
	}

	svc := service.NewGroupService(
		&mockTripRepo{
			getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) { return f.trip, nil },
			setExpenseGroupID: func(_ context.Context, id uuid.UUID, groupID string) error {
				assert.Equal(t, f.trip.ID, id)
				assert.Equal(t, "4242", groupID)
				return nil
			},
		},
		&mockMembershipRepo{
			listInterested: func(_ context.Context, _ uuid.UUID) ([]domain.MemberProfile, error) {
				return interested, nil
			},
		},
		&mockUserRepo{getByID: f.userLookup()},
		&mockProviderClient{
			createGroup: func(_ context.Context, token, name string, members []splitwise.GroupMember) (splitwise.Group, error) {
				assert.Equal(t, "creator-token", token)
				assert.Equal(t, f.trip.Title, name)
				require.Len(t, members, 2)
				assert.Equal(t, "ola@example.com", members[1].Email)
				return splitwise.Group{ID: 4242, Name: name}, nil
			},
		},
		discardLogger(),
	)

	groupID, err := svc.CreateForTrip(context.Background(), f.creator.ID, f.trip.ID)

	require.NoError(t, err)
	assert.Equal(t, "4242", groupID)
}

func TestGroupService_CreateForTrip_NotCreator(t *testing.T) {
	f := newMembershipFixture()

	svc := service.NewGroupService(
		&mockTripRepo{
			getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) { return f.trip, nil },
		},
		&mockMembershipRepo{},
		&mockUserRepo{getByID: f.userLookup()},
		&mockProviderClient{},
		discardLogger(),
	)

	_, err := svc.CreateForTrip(context.Background(), f.user.ID, f.trip.ID)

	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestGroupService_CreateForTrip_GroupAlreadySet(t *testing.T) {
	f := newMembershipFixture()
	f.withGroup("777")

	svc := service.NewGroupService(
		&mockTripRepo{
			getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) { return f.trip, nil },
		},
		&mockMembershipRepo{},
		&mockUserRepo{getByID: f.userLookup()},
		&mockProviderClient{},
		discardLogger(),
	)

	_, err := svc.CreateForTrip(context.Background(), f.creator.ID, f.trip.ID)

	assert.ErrorIs(t, err, domain.ErrGroupExists)
}

func TestGroupService_CreateForTrip_CreatorNotLinked(t *testing.T) {
	f := newMembershipFixture()
	f.creator.ProviderLinked = false

	svc := service.NewGroupService(
		&mockTripRepo{
			getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) { return f.trip, nil },
		},
		&mockMembershipRepo{},
		&mockUserRepo{getByID: f.userLookup()},
		&mockProviderClient{},
		discardLogger(),
	)

	_, err := svc.CreateForTrip(context.Background(), f.creator.ID, f.trip.ID)

	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestGroupService_CreateForTrip_ProviderError(t *testing.T) {
	f := newMembershipFixture()

	svc := service.NewGroupService(
		&mockTripRepo{
			getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) { return f.trip, nil },
		},
		&mockMembershipRepo{
			listInterested: func(_ context.Context, _ uuid.UUID) ([]domain.MemberProfile, error) {
				return nil, nil
			},
		},
		&mockUserRepo{getByID: f.userLookup()},
		&mockProviderClient{
			createGroup: func(_ context.Context, _, _ string, _ []splitwise.GroupMember) (splitwise.Group, error) {
				return splitwise.Group{}, &splitwise.Error{Code: 502, Message: "provider down"}
			},
		},
		discardLogger(),
	)

	_, err := svc.CreateForTrip(context.Background(), f.creator.ID, f.trip.ID)

	var pe *splitwise.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 502, pe.Code)
}

func TestGroupService_CreateForTrip_LostSetOnceRace(t *testing.T) {
	f := newMembershipFixture()

	svc := service.NewGroupService(
		&mockTripRepo{
			getByID: func(_ context.Context, _ uuid.UUID) (domain.Trip, error) { return f.trip, nil },
			setExpenseGroupID: func(_ context.Context, _ uuid.UUID, _ string) error {
				return domain.ErrGroupExists
			},
		},
		&mockMembershipRepo{
			listInterested: func(_ context.Context, _ uuid.UUID) ([]domain.MemberProfile, error) {
				return nil, nil
			},
		},
		&mockUserRepo{getByID: f.userLookup()},
		&mockProviderClient{
			createGroup: func(_ context.Context, _, name string, _ []splitwise.GroupMember) (splitwise.Group, error) {
				return splitwise.Group{ID: 4242, Name: name}, nil
			},
		},
		discardLogger(),
	)

	_, err := svc.CreateForTrip(context.Background(), f.creator.ID, f.trip.ID)

	assert.ErrorIs(t, err, domain.ErrGroupExists)
}
