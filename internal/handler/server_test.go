package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/handler"
	"github.com/tripdesk/backend/internal/middleware"
	"github.com/tripdesk/backend/internal/splitwise"
)

// ---- mock servicers ----------------------------------------------------------

type mockAuthServicer struct {
	signup               func(ctx context.Context, user domain.User, password string) (domain.User, error)
	login                func(ctx context.Context, email, password string) (domain.User, string, error)
	requestPasswordReset func(ctx context.Context, email string) error
	resetPassword        func(ctx context.Context, email, code, newPassword string) error
}

func (m *mockAuthServicer) Signup(ctx context.Context, user domain.User, password string) (domain.User, error) {
	return m.signup(ctx, user, password)
}
func (m *mockAuthServicer) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	return m.login(ctx, email, password)
}
func (m *mockAuthServicer) RequestPasswordReset(ctx context.Context, email string) error {
	return m.requestPasswordReset(ctx, email)
}
func (m *mockAuthServicer) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return m.resetPassword(ctx, email, code, newPassword)
}

type mockTripServicer struct {
	create  func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	update  func(ctx context.Context, actingUser uuid.UUID, trip domain.Trip) (domain.Trip, error)
	delete  func(ctx context.Context, actingUser, id uuid.UUID) error
}

func (m *mockTripServicer) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripServicer) Update(ctx context.Context, actingUser uuid.UUID, trip domain.Trip) (domain.Trip, error) {
	return m.update(ctx, actingUser, trip)
}
func (m *mockTripServicer) Delete(ctx context.Context, actingUser, id uuid.UUID) error {
	return m.delete(ctx, actingUser, id)
}

type mockMembershipServicer struct {
	setInterest func(ctx context.Context, userID, tripID uuid.UUID, interested bool) (domain.MembershipOutcome, error)
}

func (m *mockMembershipServicer) SetInterest(ctx context.Context, userID, tripID uuid.UUID, interested bool) (domain.MembershipOutcome, error) {
	return m.setInterest(ctx, userID, tripID, interested)
}

type mockGroupServicer struct {
	createForTrip func(ctx context.Context, actingUser, tripID uuid.UUID) (string, error)
}

func (m *mockGroupServicer) CreateForTrip(ctx context.Context, actingUser, tripID uuid.UUID) (string, error) {
	return m.createForTrip(ctx, actingUser, tripID)
}

type mockPollServicer struct {
	create  func(ctx context.Context, poll domain.Poll) (domain.Poll, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Poll, error)
	update  func(ctx context.Context, actingUser uuid.UUID, poll domain.Poll, choices []domain.ChoiceUpdate) (domain.Poll, error)
	delete  func(ctx context.Context, actingUser, id uuid.UUID) error
}

func (m *mockPollServicer) Create(ctx context.Context, poll domain.Poll) (domain.Poll, error) {
	return m.create(ctx, poll)
}
func (m *mockPollServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Poll, error) {
	return m.getByID(ctx, id)
}
func (m *mockPollServicer) Update(ctx context.Context, actingUser uuid.UUID, poll domain.Poll, choices []domain.ChoiceUpdate) (domain.Poll, error) {
	return m.update(ctx, actingUser, poll, choices)
}
func (m *mockPollServicer) Delete(ctx context.Context, actingUser, id uuid.UUID) error {
	return m.delete(ctx, actingUser, id)
}

type mockVoteServicer struct {
	cast func(ctx context.Context, userID, choiceID uuid.UUID) (domain.VoteOutcome, error)
}

func (m *mockVoteServicer) Cast(ctx context.Context, userID, choiceID uuid.UUID) (domain.VoteOutcome, error) {
	return m.cast(ctx, userID, choiceID)
}

type mockExpenseServicer struct {
	submit func(ctx context.Context, userID uuid.UUID, in domain.ExpenseInput) (domain.ExpenseRecord, error)
	update func(ctx context.Context, userID uuid.UUID, expenseID string, in domain.ExpenseInput) (domain.ExpenseRecord, error)
	delete func(ctx context.Context, userID uuid.UUID, expenseID string) error
}

func (m *mockExpenseServicer) Submit(ctx context.Context, userID uuid.UUID, in domain.ExpenseInput) (domain.ExpenseRecord, error) {
	return m.submit(ctx, userID, in)
}
func (m *mockExpenseServicer) Update(ctx context.Context, userID uuid.UUID, expenseID string, in domain.ExpenseInput) (domain.ExpenseRecord, error) {
	return m.update(ctx, userID, expenseID, in)
}
func (m *mockExpenseServicer) Delete(ctx context.Context, userID uuid.UUID, expenseID string) error {
	return m.delete(ctx, userID, expenseID)
}

type mockAccountServicer struct {
	initiateLink func(ctx context.Context, userID uuid.UUID) (string, error)
	completeLink func(ctx context.Context, state, code string) (domain.User, error)
	status       func(ctx context.Context, userID uuid.UUID) (bool, splitwise.User, error)
}

func (m *mockAccountServicer) InitiateLink(ctx context.Context, userID uuid.UUID) (string, error) {
	return m.initiateLink(ctx, userID)
}
func (m *mockAccountServicer) CompleteLink(ctx context.Context, state, code string) (domain.User, error) {
	return m.completeLink(ctx, state, code)
}
func (m *mockAccountServicer) Status(ctx context.Context, userID uuid.UUID) (bool, splitwise.User, error) {
	return m.status(ctx, userID)
}

// compile-time checks: the mocks must satisfy the handler's interfaces.
var (
	_ handler.AuthServicer       = (*mockAuthServicer)(nil)
	_ handler.TripServicer       = (*mockTripServicer)(nil)
	_ handler.MembershipServicer = (*mockMembershipServicer)(nil)
	_ handler.GroupServicer      = (*mockGroupServicer)(nil)
	_ handler.PollServicer       = (*mockPollServicer)(nil)
	_ handler.VoteServicer       = (*mockVoteServicer)(nil)
	_ handler.ExpenseServicer    = (*mockExpenseServicer)(nil)
	_ handler.AccountServicer    = (*mockAccountServicer)(nil)
)

// ---- helpers -------------------------------------------------------------------

// serverMocks bundles one mock per servicer so a test can set expectations on
// exactly the calls it wants; any other call panics on its nil function field.
type serverMocks struct {
	auth        *mockAuthServicer
	trips       *mockTripServicer
	memberships *mockMembershipServicer
	groups      *mockGroupServicer
	polls       *mockPollServicer
	votes       *mockVoteServicer
	expenses    *mockExpenseServicer
	accounts    *mockAccountServicer
}

// newTestServer wires a Server around fresh mocks and returns the routed
// handler. Every request through the returned handler is authenticated as
// userID, standing in for the bearer-token middleware.
func newTestServer(userID uuid.UUID) (*serverMocks, http.Handler) {
	m := &serverMocks{
		auth:        &mockAuthServicer{},
		trips:       &mockTripServicer{},
		memberships: &mockMembershipServicer{},
		groups:      &mockGroupServicer{},
		polls:       &mockPollServicer{},
		votes:       &mockVoteServicer{},
		expenses:    &mockExpenseServicer{},
		accounts:    &mockAccountServicer{},
	}
	srv := handler.NewServer(
		m.auth, m.trips, m.memberships, m.groups,
		m.polls, m.votes, m.expenses, m.accounts,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	asUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), userID)))
		})
	}
	return m, srv.Routes(asUser)
}

// jsonBody wraps a JSON literal for use as a request body.
func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}
