package splitwise

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// User is a provider account as returned by get_current_user.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// GroupMember identifies a person to add to a group. The provider matches on
// email, creating a ghost account when no registered user exists.
type GroupMember struct {
	FirstName string
	LastName  string
	Email     string
}

// Group is an expense group as returned by create_group.
type Group struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Members []User `json:"members"`
}

// GetCurrentUser returns the provider account the token belongs to.
func (c *httpClient) GetCurrentUser(ctx context.Context, token string) (User, error) {
	var envelope struct {
		User User `json:"user"`
	}
	err := c.get(ctx, token, "/get_current_user", &envelope)
	if err != nil {
		return User{}, fmt.Errorf("splitwise.Client.GetCurrentUser: %w", err)
	}
	return envelope.User, nil
}

// CreateGroup creates a trip-type expense group with the given members. The
// token's owner is always a member regardless of the members list.
func (c *httpClient) CreateGroup(ctx context.Context, token, name string, members []GroupMember) (Group, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("group_type", "trip")
	for i, m := range members {
		prefix := fmt.Sprintf("users__%d__", i)
		form.Set(prefix+"first_name", m.FirstName)
		form.Set(prefix+"last_name", m.LastName)
		form.Set(prefix+"email", m.Email)
	}

	var envelope struct {
		Group struct {
			Group
			Errors apiErrors `json:"errors"`
		} `json:"group"`
	}
	err := c.post(ctx, token, "/create_group", form, &envelope)
	if err != nil {
		return Group{}, fmt.Errorf("splitwise.Client.CreateGroup: %w", err)
	}
	if !envelope.Group.Errors.empty() {
		return Group{}, fmt.Errorf("splitwise.Client.CreateGroup: %w",
			&Error{Code: 200, Message: envelope.Group.Errors.join()})
	}
	return envelope.Group.Group, nil
}

// AddUserToGroup adds one member to an existing group. Idempotent at the
// provider; transient failures are retried with backoff.
func (c *httpClient) AddUserToGroup(ctx context.Context, token, groupID string, member GroupMember) error {
	form := url.Values{}
	form.Set("group_id", groupID)
	form.Set("first_name", member.FirstName)
	form.Set("last_name", member.LastName)
	form.Set("email", member.Email)

	err := withRetry(ctx, func(ctx context.Context) error {
		var envelope struct {
			Success bool      `json:"success"`
			Errors  apiErrors `json:"errors"`
		}
		if err := c.post(ctx, token, "/add_user_to_group", form, &envelope); err != nil {
			return err
		}
		if !envelope.Success {
			return &Error{Code: 200, Message: envelope.Errors.join()}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("splitwise.Client.AddUserToGroup: %w", err)
	}
	return nil
}

// FormatGroupID renders a provider group id the way Trip rows store it.
func FormatGroupID(id int64) string {
	return strconv.FormatInt(id, 10)
}
