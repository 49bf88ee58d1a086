package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/tripdesk/backend/internal/domain"
)

// SignupRequest is the body of POST /auth/signup. Email uses the openapi
// runtime type so format validation happens during decoding.
type SignupRequest struct {
	Username     string              `json:"username"`
	Email        openapi_types.Email `json:"email"`
	FirstName    string              `json:"first_name"`
	LastName     string              `json:"last_name"`
	DepartmentID uuid.UUID           `json:"department_id"`
	Password     string              `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

// LoginResponse carries the bearer token and the account it belongs to.
type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// PasswordOTPRequest is the body of POST /auth/password/otp.
type PasswordOTPRequest struct {
	Email openapi_types.Email `json:"email"`
}

// PasswordResetRequest is the body of POST /auth/password/reset.
type PasswordResetRequest struct {
	Email       openapi_types.Email `json:"email"`
	Code        string              `json:"code"`
	NewPassword string              `json:"new_password"`
}

// messageResponse is the body of endpoints that only acknowledge.
type messageResponse struct {
	Message string `json:"message"`
}

// Signup handles POST /auth/signup.
func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	user := domain.User{
		Username:     req.Username,
		Email:        string(req.Email),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DepartmentID: req.DepartmentID,
	}
	created, err := s.auth.Signup(r.Context(), user, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			s.respond(w, http.StatusUnprocessableEntity, validationBody(err))
		case errors.Is(err, domain.ErrConflict):
			s.respond(w, http.StatusConflict, conflictBody(err))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	s.respond(w, http.StatusCreated, created)
}

// Login handles POST /auth/login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	user, token, err := s.auth.Login(r.Context(), string(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthorized) {
			s.respond(w, http.StatusUnauthorized, unauthorizedBody("invalid credentials"))
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// RequestPasswordReset handles POST /auth/password/otp. It answers the same
// way whether or not the email names an account.
func (s *Server) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordOTPRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	if err := s.auth.RequestPasswordReset(r.Context(), string(req.Email)); err != nil {
		s.internalError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, messageResponse{Message: "if the account exists, a reset code was issued"})
}

// ResetPassword handles POST /auth/password/reset.
func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	err := s.auth.ResetPassword(r.Context(), string(req.Email), req.Code, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			s.respond(w, http.StatusUnprocessableEntity, validationBody(err))
		case errors.Is(err, domain.ErrNotAuthorized):
			s.respond(w, http.StatusUnauthorized, unauthorizedBody("invalid or expired code"))
		case errors.Is(err, domain.ErrNotFound):
			s.respond(w, http.StatusNotFound, notFoundBody("account not found"))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	s.respond(w, http.StatusOK, messageResponse{Message: "password updated"})
}
