package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/repo"
	"github.com/tripdesk/backend/internal/service"
)

// ---- mock repos ------------------------------------------------------------

// mockVoteRepo is a hand-written test double for repo.VoteRepo.
type mockVoteRepo struct {
	cast func(ctx context.Context, userID, pollID, choiceID uuid.UUID) (domain.VoteOutcome, error)
}

func (m *mockVoteRepo) Cast(ctx context.Context, userID, pollID, choiceID uuid.UUID) (domain.VoteOutcome, error) {
	return m.cast(ctx, userID, pollID, choiceID)
}

// compile-time check: mockVoteRepo must satisfy repo.VoteRepo.
var _ repo.VoteRepo = (*mockVoteRepo)(nil)

// ---- helpers ---------------------------------------------------------------

// voteFixture wires the voter, their poll, and the first choice together.
type voteFixture struct {
	voter  domain.User
	poll   domain.Poll
	choice domain.Choice
}

func newVoteFixture() voteFixture {
	dept := uuid.New()
	poll := validPoll(dept)
	poll.ID = uuid.New()
	poll.Choices[0].ID = uuid.New()
	poll.Choices[0].PollID = poll.ID
	poll.Choices[1].ID = uuid.New()
	poll.Choices[1].PollID = poll.ID
	return voteFixture{
		voter:  domain.User{ID: uuid.New(), DepartmentID: dept},
		poll:   poll,
		choice: poll.Choices[0],
	}
}

func (f voteFixture) service(votes *mockVoteRepo) *service.VoteService {
	return service.NewVoteService(
		&mockUserRepo{
			getByID: func(_ context.Context, _ uuid.UUID) (domain.User, error) { return f.voter, nil },
		},
		&mockPollRepo{
			getChoice: func(_ context.Context, _ uuid.UUID) (domain.Choice, error) { return f.choice, nil },
			getByID:   func(_ context.Context, _ uuid.UUID) (domain.Poll, error) { return f.poll, nil },
		},
		votes,
	)
}

// ---- Cast ------------------------------------------------------------------

func TestVoteService_Cast_OK(t *testing.T) {
	f := newVoteFixture()

	svc := f.service(&mockVoteRepo{
		cast: func(_ context.Context, userID, pollID, choiceID uuid.UUID) (domain.VoteOutcome, error) {
			assert.Equal(t, f.voter.ID, userID)
			assert.Equal(t, f.poll.ID, pollID, "poll id is resolved from the choice")
			assert.Equal(t, f.choice.ID, choiceID)
			chosen := f.choice
			chosen.Votes = 1
			return domain.VoteOutcome{Result: domain.VoteAdded, Choice: chosen}, nil
		},
	})

	outcome, err := svc.Cast(context.Background(), f.voter.ID, f.choice.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.VoteAdded, outcome.Result)
	assert.Equal(t, 1, outcome.Choice.Votes)
}

func TestVoteService_Cast_PollExpired(t *testing.T) {
	f := newVoteFixture()
	f.poll.Expiry = time.Now().Add(-1 * time.Minute)

	// The vote repo stays nil: an expired poll must not reach the ledger.
	svc := f.service(&mockVoteRepo{})

	_, err := svc.Cast(context.Background(), f.voter.ID, f.choice.ID)

	assert.ErrorIs(t, err, domain.ErrPollExpired)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestVoteService_Cast_WrongDepartment(t *testing.T) {
	f := newVoteFixture()
	f.voter.DepartmentID = uuid.New() // not on the poll

	svc := f.service(&mockVoteRepo{})

	_, err := svc.Cast(context.Background(), f.voter.ID, f.choice.ID)

	assert.ErrorIs(t, err, domain.ErrWrongDepartment)
}

func TestVoteService_Cast_ChoiceNotFound(t *testing.T) {
	f := newVoteFixture()

	svc := service.NewVoteService(
		&mockUserRepo{
			getByID: func(_ context.Context, _ uuid.UUID) (domain.User, error) { return f.voter, nil },
		},
		&mockPollRepo{
			getChoice: func(_ context.Context, _ uuid.UUID) (domain.Choice, error) {
				return domain.Choice{}, domain.ErrNotFound
			},
		},
		&mockVoteRepo{},
	)

	_, err := svc.Cast(context.Background(), f.voter.ID, uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVoteService_Cast_DeletedPollReadsAsMissing(t *testing.T) {
	f := newVoteFixture()

	svc := service.NewVoteService(
		&mockUserRepo{
			getByID: func(_ context.Context, _ uuid.UUID) (domain.User, error) { return f.voter, nil },
		},
		&mockPollRepo{
			getChoice: func(_ context.Context, _ uuid.UUID) (domain.Choice, error) { return f.choice, nil },
			getByID: func(_ context.Context, _ uuid.UUID) (domain.Poll, error) {
				return domain.Poll{}, domain.ErrNotFound
			},
		},
		&mockVoteRepo{},
	)

	_, err := svc.Cast(context.Background(), f.voter.ID, f.choice.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVoteService_Cast_LedgerErrorPropagates(t *testing.T) {
	f := newVoteFixture()

	svc := f.service(&mockVoteRepo{
		cast: func(_ context.Context, _, _, _ uuid.UUID) (domain.VoteOutcome, error) {
			return domain.VoteOutcome{}, domain.ErrConflict
		},
	})

	_, err := svc.Cast(context.Background(), f.voter.ID, f.choice.ID)

	assert.ErrorIs(t, err, domain.ErrConflict)
}
