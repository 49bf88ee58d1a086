// Package handler implements the HTTP handlers for the Tripdesk API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, etc.) but all share the same Server struct so
// they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/middleware"
	"github.com/tripdesk/backend/internal/splitwise"
)

// The *Servicer interfaces define the business operations each handler file
// depends on. Defining them here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.

// AuthServicer covers signup, login, and the OTP password-reset flow.
type AuthServicer interface {
	Signup(ctx context.Context, user domain.User, password string) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.User, string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// TripServicer covers the trip CRUD operations.
type TripServicer interface {
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	Update(ctx context.Context, actingUser uuid.UUID, trip domain.Trip) (domain.Trip, error)
	Delete(ctx context.Context, actingUser, id uuid.UUID) error
}

// MembershipServicer covers the interest toggle.
type MembershipServicer interface {
	SetInterest(ctx context.Context, userID, tripID uuid.UUID, interested bool) (domain.MembershipOutcome, error)
}

// GroupServicer covers remote expense-group creation.
type GroupServicer interface {
	CreateForTrip(ctx context.Context, actingUser, tripID uuid.UUID) (string, error)
}

// PollServicer covers the poll CRUD operations.
type PollServicer interface {
	Create(ctx context.Context, poll domain.Poll) (domain.Poll, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Poll, error)
	Update(ctx context.Context, actingUser uuid.UUID, poll domain.Poll, choices []domain.ChoiceUpdate) (domain.Poll, error)
	Delete(ctx context.Context, actingUser, id uuid.UUID) error
}

// VoteServicer covers the vote toggle.
type VoteServicer interface {
	Cast(ctx context.Context, userID, choiceID uuid.UUID) (domain.VoteOutcome, error)
}

// ExpenseServicer covers expense submission against the provider.
type ExpenseServicer interface {
	Submit(ctx context.Context, userID uuid.UUID, in domain.ExpenseInput) (domain.ExpenseRecord, error)
	Update(ctx context.Context, userID uuid.UUID, expenseID string, in domain.ExpenseInput) (domain.ExpenseRecord, error)
	Delete(ctx context.Context, userID uuid.UUID, expenseID string) error
}

// AccountServicer covers provider account linking.
type AccountServicer interface {
	InitiateLink(ctx context.Context, userID uuid.UUID) (string, error)
	CompleteLink(ctx context.Context, state, code string) (domain.User, error)
	Status(ctx context.Context, userID uuid.UUID) (bool, splitwise.User, error)
}

// Server holds the dependencies shared by all API endpoints.
// Methods are in domain-specific files but all operate on this struct.
type Server struct {
	auth        AuthServicer
	trips       TripServicer
	memberships MembershipServicer
	groups      GroupServicer
	polls       PollServicer
	votes       VoteServicer
	expenses    ExpenseServicer
	accounts    AccountServicer
	log         *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(
	auth AuthServicer,
	trips TripServicer,
	memberships MembershipServicer,
	groups GroupServicer,
	polls PollServicer,
	votes VoteServicer,
	expenses ExpenseServicer,
	accounts AccountServicer,
	log *slog.Logger,
) *Server {
	return &Server{
		auth:        auth,
		trips:       trips,
		memberships: memberships,
		groups:      groups,
		polls:       polls,
		votes:       votes,
		expenses:    expenses,
		accounts:    accounts,
		log:         log,
	}
}

// Routes builds the API router. requireAuth guards every route that needs an
// authenticated user; the auth endpoints, the OAuth callback (authenticated by
// its state parameter), and the health check stay public.
func (s *Server) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/docs", s.GetDocs)

	r.Post("/auth/signup", s.Signup)
	r.Post("/auth/login", s.Login)
	r.Post("/auth/password/otp", s.RequestPasswordReset)
	r.Post("/auth/password/reset", s.ResetPassword)

	r.Get("/splitwise/callback", s.CompleteProviderLink)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/trips", s.CreateTrip)
		r.Get("/trips/{id}", s.GetTrip)
		r.Put("/trips/{id}", s.UpdateTrip)
		r.Delete("/trips/{id}", s.DeleteTrip)

		r.Post("/trips/interest/{tripID}", s.SetInterest)
		r.Put("/trips/interest/{tripID}", s.SetInterest)
		r.Post("/trips/{id}/group", s.CreateGroup)

		r.Post("/trips/group/expenses", s.SubmitExpense)
		r.Patch("/trips/group/expenses", s.UpdateExpense)
		r.Delete("/trips/group/expenses", s.DeleteExpense)

		r.Post("/polls", s.CreatePoll)
		r.Get("/polls/{id}", s.GetPoll)
		r.Put("/polls/{id}", s.UpdatePoll)
		r.Delete("/polls/{id}", s.DeletePoll)
		r.Post("/polls/vote/{choiceID}", s.CastVote)

		r.Get("/splitwise/initiate", s.InitiateProviderLink)
		r.Get("/splitwise/account", s.ProviderAccountStatus)
	})

	return r
}

// actingUser reads the authenticated user's id placed in the context by the
// auth middleware, answering 401 itself when it is absent.
func (s *Server) actingUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		s.respond(w, http.StatusUnauthorized, unauthorizedBody("missing bearer token"))
		return uuid.Nil, false
	}
	return id, true
}
