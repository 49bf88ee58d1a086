package domain

import (
	"time"

	"github.com/google/uuid"
)

// Department groups users; trips and polls are visible per department.
type Department struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// User is an account holder. PasswordHash is a bcrypt digest and never leaves
// the repo/service layers.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	DepartmentID uuid.UUID `json:"department_id"`
	PasswordHash string    `json:"-"`

	// Expense-provider account linkage, populated by the OAuth callback.
	// ProviderToken is the bearer credential used for all provider calls made
	// on this user's behalf; ProviderUserID is their numeric id on the
	// provider side. Both are zero until the account is linked.
	ProviderToken  string `json:"-"`
	ProviderUserID int64  `json:"-"`
	ProviderLinked bool   `json:"provider_linked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberProfile is the subset of a user handed to the expense provider when
// adding them to a remote group or an expense.
type MemberProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Profile extracts the provider-facing profile from a user.
func (u User) Profile() MemberProfile {
	return MemberProfile{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}
