package handler

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tripdesk/backend/internal/domain"
)

// ExpenseRequest is the body of POST and PATCH /trips/group/expenses.
type ExpenseRequest struct {
	GroupID      string                      `json:"group_id"`
	Description  string                      `json:"description"`
	Cost         decimal.Decimal             `json:"cost"`
	SplitEqually bool                        `json:"split_equally"`
	Participants []domain.ExpenseParticipant `json:"participants"`
}

// ExpenseResponse mirrors the provider's record shape.
type ExpenseResponse struct {
	ExpenseID   int64                     `json:"expense_id"`
	Cost        decimal.Decimal           `json:"cost"`
	Description string                    `json:"description"`
	GroupID     int64                     `json:"group_id"`
	Users       []domain.ExpenseUserShare `json:"users"`
	Repayments  []domain.Repayment        `json:"repayments"`
}

// SubmitExpense handles POST /trips/group/expenses.
func (s *Server) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	var req ExpenseRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	record, err := s.expenses.Submit(r.Context(), userID, requestToExpense(req))
	if err != nil {
		s.respondExpenseError(w, r, err)
		return
	}

	s.respond(w, http.StatusCreated, expenseToResponse(record))
}

// UpdateExpense handles PATCH /trips/group/expenses?expense_id=.
func (s *Server) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}
	var req ExpenseRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	expenseID := r.URL.Query().Get("expense_id")
	record, err := s.expenses.Update(r.Context(), userID, expenseID, requestToExpense(req))
	if err != nil {
		s.respondExpenseError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, expenseToResponse(record))
}

// DeleteExpense handles DELETE /trips/group/expenses?expense_id=.
func (s *Server) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	expenseID := r.URL.Query().Get("expense_id")
	if err := s.expenses.Delete(r.Context(), userID, expenseID); err != nil {
		s.respondExpenseError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondExpenseError resolves the failures shared by the expense endpoints.
func (s *Server) respondExpenseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		s.respond(w, http.StatusUnprocessableEntity, validationBody(err))
	case errors.Is(err, domain.ErrNotAuthorized):
		s.respond(w, http.StatusForbidden, forbiddenBody(err))
	case errors.Is(err, domain.ErrNotFound):
		s.respond(w, http.StatusNotFound, notFoundBody("user not found"))
	default:
		s.respondProviderOr500(w, r, err)
	}
}

// requestToExpense converts an ExpenseRequest body into a domain.ExpenseInput.
func requestToExpense(req ExpenseRequest) domain.ExpenseInput {
	return domain.ExpenseInput{
		GroupID:      req.GroupID,
		Description:  req.Description,
		Cost:         req.Cost,
		SplitEqually: req.SplitEqually,
		Participants: req.Participants,
	}
}

// expenseToResponse converts a domain.ExpenseRecord into the wire shape.
func expenseToResponse(record domain.ExpenseRecord) ExpenseResponse {
	return ExpenseResponse{
		ExpenseID:   record.ID,
		Cost:        record.Cost,
		Description: record.Description,
		GroupID:     record.GroupID,
		Users:       record.Users,
		Repayments:  record.Repayments,
	}
}
