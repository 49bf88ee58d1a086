package domain

import (
	"github.com/shopspring/decimal"
)

// ExpenseParticipant is one user's slice of an expense, expressed in the
// provider's paid/owed model. PaidShare records what the user fronted,
// OwedShare what they are responsible for; both sum to the expense cost
// across all participants.
type ExpenseParticipant struct {
	ProviderUserID int64           `json:"user_id"`
	PaidShare      decimal.Decimal `json:"paid_share"`
	OwedShare      decimal.Decimal `json:"owed_share"`
}

// ExpenseInput describes one expense to create or replace in a trip's
// expense group.
type ExpenseInput struct {
	GroupID      string
	Description  string
	Cost         decimal.Decimal
	SplitEqually bool
	// When SplitEqually is set, each participant's OwedShare on input is
	// ignored and recomputed; PaidShare always passes through.
	Participants []ExpenseParticipant
}

// ExpenseUserShare is a participant's share as the provider reports it back.
type ExpenseUserShare struct {
	ProviderUserID int64           `json:"user_id"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	PaidShare      decimal.Decimal `json:"paid_share"`
	OwedShare      decimal.Decimal `json:"owed_share"`
	NetBalance     decimal.Decimal `json:"net_balance"`
}

// Repayment is a provider-computed settlement edge: From owes To Amount.
type Repayment struct {
	From   int64           `json:"from"`
	To     int64           `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// ExpenseRecord is an expense as stored by the provider, echoed back on
// create and update.
type ExpenseRecord struct {
	ID          int64              `json:"id"`
	GroupID     int64              `json:"group_id"`
	Description string             `json:"description"`
	Cost        decimal.Decimal    `json:"cost"`
	Users       []ExpenseUserShare `json:"users"`
	Repayments  []Repayment        `json:"repayments"`
}

// EqualShares splits cost evenly across n participants at cent precision.
// Every share is the floor of cost/n to two decimals; the final share
// absorbs the remainder so the slice always sums to cost exactly.
func EqualShares(cost decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	base := cost.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	shares := make([]decimal.Decimal, n)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = base
		running = running.Add(base)
	}
	shares[n-1] = cost.Sub(running)
	return shares
}
