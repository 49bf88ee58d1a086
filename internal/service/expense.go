package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/repo"
	"github.com/tripdesk/backend/internal/splitwise"
)

// ExpenseService builds and submits expense records against a trip's remote
// group. Expenses live entirely on the provider side; the service holds the
// user repo only to load the acting user's provider credential.
type ExpenseService struct {
	users    repo.UserRepo
	provider splitwise.Client
}

// NewExpenseService constructs an ExpenseService backed by the provided repo
// and provider client.
func NewExpenseService(users repo.UserRepo, provider splitwise.Client) *ExpenseService {
	return &ExpenseService{users: users, provider: provider}
}

// Submit records a new expense in a group. When in.SplitEqually is set, every
// participant's owed share is recomputed as an equal split of the cost,
// overriding whatever the input carried; paid shares pass through unchanged.
// Provider failures surface as *splitwise.Error.
func (s *ExpenseService) Submit(ctx context.Context, userID uuid.UUID, in domain.ExpenseInput) (domain.ExpenseRecord, error) {
	token, err := s.providerToken(ctx, userID)
	if err != nil {
		return domain.ExpenseRecord{}, fmt.Errorf("service.ExpenseService.Submit: %w", err)
	}
	if err := validateExpense(in); err != nil {
		return domain.ExpenseRecord{}, err
	}
	expense, err := s.provider.CreateExpense(ctx, token, expenseParams(in, true))
	if err != nil {
		return domain.ExpenseRecord{}, fmt.Errorf("service.ExpenseService.Submit: %w", err)
	}
	return toExpenseRecord(expense), nil
}

// Update replaces an existing expense. Unlike Submit it never recomputes
// shares: equal-split recomputation applies only at creation, so both shares
// are taken from the input verbatim.
func (s *ExpenseService) Update(ctx context.Context, userID uuid.UUID, expenseID string, in domain.ExpenseInput) (domain.ExpenseRecord, error) {
	token, err := s.providerToken(ctx, userID)
	if err != nil {
		return domain.ExpenseRecord{}, fmt.Errorf("service.ExpenseService.Update: %w", err)
	}
	if strings.TrimSpace(expenseID) == "" {
		return domain.ExpenseRecord{}, fmt.Errorf("%w: expense_id is required", domain.ErrValidation)
	}
	if err := validateExpense(in); err != nil {
		return domain.ExpenseRecord{}, err
	}
	expense, err := s.provider.UpdateExpense(ctx, token, expenseID, expenseParams(in, false))
	if err != nil {
		return domain.ExpenseRecord{}, fmt.Errorf("service.ExpenseService.Update: %w", err)
	}
	return toExpenseRecord(expense), nil
}

// Delete removes an expense by provider id.
func (s *ExpenseService) Delete(ctx context.Context, userID uuid.UUID, expenseID string) error {
	token, err := s.providerToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("service.ExpenseService.Delete: %w", err)
	}
	if strings.TrimSpace(expenseID) == "" {
		return fmt.Errorf("%w: expense_id is required", domain.ErrValidation)
	}
	if err := s.provider.DeleteExpense(ctx, token, expenseID); err != nil {
		return fmt.Errorf("service.ExpenseService.Delete: %w", err)
	}
	return nil
}

// providerToken loads the acting user's provider credential.
func (s *ExpenseService) providerToken(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.ProviderLinked {
		return "", fmt.Errorf("%w: expense account not linked", domain.ErrNotAuthorized)
	}
	return user.ProviderToken, nil
}

// validateExpense enforces the rules shared by Submit and Update.
func validateExpense(in domain.ExpenseInput) error {
	if strings.TrimSpace(in.GroupID) == "" {
		return fmt.Errorf("%w: group_id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description is required", domain.ErrValidation)
	}
	if !in.Cost.IsPositive() {
		return fmt.Errorf("%w: cost must be greater than zero", domain.ErrValidation)
	}
	if len(in.Participants) == 0 {
		return fmt.Errorf("%w: at least one participant is required", domain.ErrValidation)
	}
	return nil
}

// expenseParams maps an ExpenseInput to the provider's wire shape. Equal
// splits are computed locally rather than delegated to the provider so the
// cent remainder lands deterministically on the last participant.
func expenseParams(in domain.ExpenseInput, allowRecompute bool) splitwise.ExpenseParams {
	params := splitwise.ExpenseParams{
		GroupID:     in.GroupID,
		Description: in.Description,
		Cost:        in.Cost,
		Shares:      make([]splitwise.ExpenseShare, len(in.Participants)),
	}

	owed := make([]decimal.Decimal, len(in.Participants))
	for i, p := range in.Participants {
		owed[i] = p.OwedShare
	}
	if allowRecompute && in.SplitEqually {
		owed = domain.EqualShares(in.Cost, len(in.Participants))
	}

	for i, p := range in.Participants {
		params.Shares[i] = splitwise.ExpenseShare{
			UserID:    p.ProviderUserID,
			PaidShare: p.PaidShare,
			OwedShare: owed[i],
		}
	}
	return params
}

// toExpenseRecord translates the provider's expense record into the local
// representation.
func toExpenseRecord(e splitwise.Expense) domain.ExpenseRecord {
	record := domain.ExpenseRecord{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Cost:        e.Cost,
		Users:       make([]domain.ExpenseUserShare, len(e.Users)),
		Repayments:  make([]domain.Repayment, len(e.Repayments)),
	}
	for i, u := range e.Users {
		id := u.UserID
		if id == 0 {
			id = u.User.ID
		}
		record.Users[i] = domain.ExpenseUserShare{
			ProviderUserID: id,
			FirstName:      u.User.FirstName,
			LastName:       u.User.LastName,
			PaidShare:      u.PaidShare,
			OwedShare:      u.OwedShare,
			NetBalance:     u.NetBalance,
		}
	}
	for i, r := range e.Repayments {
		record.Repayments[i] = domain.Repayment{From: r.From, To: r.To, Amount: r.Amount}
	}
	return record
}
