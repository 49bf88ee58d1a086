package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/kvstore"
	"github.com/tripdesk/backend/internal/repo"
	"github.com/tripdesk/backend/internal/splitwise"
)

const (
	// oauthStatePrefix namespaces OAuth2 state keys in the kv store.
	oauthStatePrefix = "oauth:state:"
	// oauthStateTTL bounds how long a user has to complete the consent flow.
	oauthStateTTL = 10 * time.Minute
)

// AccountService links Tripdesk accounts to the expense provider via the
// OAuth2 authorization-code flow. The anti-forgery state is parked in the TTL
// store between the initiate and callback legs; the resulting bearer token is
// stored on the user row.
type AccountService struct {
	users    repo.UserRepo
	provider splitwise.Client
	states   kvstore.Store
}

// NewAccountService constructs an AccountService backed by the provided repo,
// provider client, and state store.
func NewAccountService(users repo.UserRepo, provider splitwise.Client, states kvstore.Store) *AccountService {
	return &AccountService{users: users, provider: provider, states: states}
}

// InitiateLink starts the consent flow for a user and returns the provider
// URL to redirect them to. The generated state expires on its own if the user
// never completes the flow.
func (s *AccountService) InitiateLink(ctx context.Context, userID uuid.UUID) (string, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", fmt.Errorf("service.AccountService.InitiateLink: %w", err)
	}

	state := uuid.NewString()
	if err := s.states.Put(ctx, oauthStatePrefix+state, userID.String(), oauthStateTTL); err != nil {
		return "", fmt.Errorf("service.AccountService.InitiateLink: %w", err)
	}
	return s.provider.AuthorizeURL(state), nil
}

// CompleteLink finishes the consent flow: it validates the callback state,
// trades the code for a bearer token, resolves the provider-side account, and
// stores both on the user row. The state is consumed before any provider call
// so a replayed callback cannot reuse it.
func (s *AccountService) CompleteLink(ctx context.Context, state, code string) (domain.User, error) {
	raw, err := s.states.Get(ctx, oauthStatePrefix+state)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("service.AccountService.CompleteLink: %w: unknown or expired oauth state", domain.ErrNotAuthorized)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.CompleteLink: %w", err)
	}
	if err := s.states.Delete(ctx, oauthStatePrefix+state); err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.CompleteLink: %w", err)
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.CompleteLink: %w: state does not name a user", domain.ErrNotAuthorized)
	}

	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.CompleteLink: %w", err)
	}
	account, err := s.provider.GetCurrentUser(ctx, token.AccessToken)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.CompleteLink: %w", err)
	}

	if err := s.users.SetProviderCredential(ctx, userID, token.AccessToken, account.ID); err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.CompleteLink: %w", err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AccountService.CompleteLink: %w", err)
	}
	return user, nil
}

// Status reports whether the user has a linked provider account and, if so,
// the provider-side account it resolves to.
func (s *AccountService) Status(ctx context.Context, userID uuid.UUID) (bool, splitwise.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, splitwise.User{}, fmt.Errorf("service.AccountService.Status: %w", err)
	}
	if !user.ProviderLinked {
		return false, splitwise.User{}, nil
	}
	account, err := s.provider.GetCurrentUser(ctx, user.ProviderToken)
	if err != nil {
		return false, splitwise.User{}, fmt.Errorf("service.AccountService.Status: %w", err)
	}
	return true, account, nil
}
