package splitwise

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// ExpenseShare is one participant's slice of an expense on the wire.
type ExpenseShare struct {
	UserID    int64
	PaidShare decimal.Decimal
	OwedShare decimal.Decimal
}

// ExpenseParams describes an expense to create or replace.
type ExpenseParams struct {
	GroupID     string
	Description string
	Cost        decimal.Decimal
	// SplitEqually lets the provider divide the cost; Shares is ignored.
	SplitEqually bool
	Shares       []ExpenseShare
}

// ExpenseUser is a participant's share as the provider reports it back.
type ExpenseUser struct {
	User       User            `json:"user"`
	UserID     int64           `json:"user_id"`
	PaidShare  decimal.Decimal `json:"paid_share"`
	OwedShare  decimal.Decimal `json:"owed_share"`
	NetBalance decimal.Decimal `json:"net_balance"`
}

// Repayment is a provider-computed settlement edge.
type Repayment struct {
	From   int64           `json:"from"`
	To     int64           `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// Expense is an expense record as the provider stores it.
type Expense struct {
	ID          int64           `json:"id"`
	GroupID     int64           `json:"group_id"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	Users       []ExpenseUser   `json:"users"`
	Repayments  []Repayment     `json:"repayments"`
}

// expenseEnvelope is the response shape of create_expense and update_expense.
type expenseEnvelope struct {
	Expenses []Expense `json:"expenses"`
	Errors   apiErrors `json:"errors"`
}

// expenseForm renders ExpenseParams as the provider's form encoding. Shares
// use the indexed users__N__ field convention.
func expenseForm(in ExpenseParams) url.Values {
	form := url.Values{}
	form.Set("cost", in.Cost.StringFixed(2))
	form.Set("description", in.Description)
	if in.GroupID != "" {
		form.Set("group_id", in.GroupID)
	}
	if in.SplitEqually {
		form.Set("split_equally", "true")
		return form
	}
	for i, s := range in.Shares {
		prefix := fmt.Sprintf("users__%d__", i)
		form.Set(prefix+"user_id", strconv.FormatInt(s.UserID, 10))
		form.Set(prefix+"paid_share", s.PaidShare.StringFixed(2))
		form.Set(prefix+"owed_share", s.OwedShare.StringFixed(2))
	}
	return form
}

// CreateExpense records a new expense in a group.
func (c *httpClient) CreateExpense(ctx context.Context, token string, in ExpenseParams) (Expense, error) {
	var envelope expenseEnvelope
	err := c.post(ctx, token, "/create_expense", expenseForm(in), &envelope)
	if err != nil {
		return Expense{}, fmt.Errorf("splitwise.Client.CreateExpense: %w", err)
	}
	expense, err := envelope.first()
	if err != nil {
		return Expense{}, fmt.Errorf("splitwise.Client.CreateExpense: %w", err)
	}
	return expense, nil
}

// UpdateExpense replaces the mutable fields of an existing expense.
func (c *httpClient) UpdateExpense(ctx context.Context, token, expenseID string, in ExpenseParams) (Expense, error) {
	var envelope expenseEnvelope
	err := c.post(ctx, token, "/update_expense/"+url.PathEscape(expenseID), expenseForm(in), &envelope)
	if err != nil {
		return Expense{}, fmt.Errorf("splitwise.Client.UpdateExpense: %w", err)
	}
	expense, err := envelope.first()
	if err != nil {
		return Expense{}, fmt.Errorf("splitwise.Client.UpdateExpense: %w", err)
	}
	return expense, nil
}

// DeleteExpense removes an expense by provider id. Transient failures are
// retried with backoff.
func (c *httpClient) DeleteExpense(ctx context.Context, token, expenseID string) error {
	err := withRetry(ctx, func(ctx context.Context) error {
		var envelope struct {
			Success bool      `json:"success"`
			Errors  apiErrors `json:"errors"`
		}
		if err := c.post(ctx, token, "/delete_expense/"+url.PathEscape(expenseID), nil, &envelope); err != nil {
			return err
		}
		if !envelope.Success {
			return &Error{Code: 200, Message: envelope.Errors.join()}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("splitwise.Client.DeleteExpense: %w", err)
	}
	return nil
}

// first returns the single expense record of the envelope, surfacing the
// provider's in-envelope errors.
func (e expenseEnvelope) first() (Expense, error) {
	if !e.Errors.empty() {
		return Expense{}, &Error{Code: 200, Message: e.Errors.join()}
	}
	if len(e.Expenses) == 0 {
		return Expense{}, &Error{Code: 200, Message: "provider returned no expense record"}
	}
	return e.Expenses[0], nil
}
