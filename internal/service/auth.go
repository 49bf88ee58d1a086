package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/auth"
	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/kvstore"
	"github.com/tripdesk/backend/internal/repo"
)

const (
	// otpPrefix namespaces password-reset codes in the kv store.
	otpPrefix = "otp:"
	// otpTTL is how long a password-reset code stays valid.
	otpTTL = 10 * time.Minute

	minPasswordLength = 8
)

// OTPSender delivers a password-reset code to a user. Mail delivery is an
// external collaborator; the default implementation logs the code.
type OTPSender interface {
	Send(ctx context.Context, email, code string) error
}

// logOTPSender writes codes to the structured log instead of sending mail.
type logOTPSender struct {
	log *slog.Logger
}

// NewLogOTPSender returns an OTPSender that logs codes via slog.
func NewLogOTPSender(log *slog.Logger) OTPSender {
	return &logOTPSender{log: log}
}

func (s *logOTPSender) Send(ctx context.Context, email, code string) error {
	s.log.InfoContext(ctx, "password reset code issued", "email", email, "code", code)
	return nil
}

// AuthService implements signup, login, and the OTP-based password reset.
type AuthService struct {
	users       repo.UserRepo
	departments repo.DepartmentRepo
	tokens      *auth.TokenIssuer
	otps        kvstore.Store
	sender      OTPSender
	log         *slog.Logger
}

// NewAuthService constructs an AuthService backed by the provided repos,
// token issuer, OTP store, and sender.
func NewAuthService(
	users repo.UserRepo,
	departments repo.DepartmentRepo,
	tokens *auth.TokenIssuer,
	otps kvstore.Store,
	sender OTPSender,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		departments: departments,
		tokens:      tokens,
		otps:        otps,
		sender:      sender,
		log:         log,
	}
}

// Signup validates and creates a new account. The department must exist; a
// username or email collision surfaces as domain.ErrConflict.
func (s *AuthService) Signup(ctx context.Context, user domain.User, password string) (domain.User, error) {
	if err := validateSignup(user, password); err != nil {
		return domain.User{}, err
	}
	if _, err := s.departments.GetByID(ctx, user.DepartmentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: unknown department %s", domain.ErrValidation, user.DepartmentID)
		}
		return domain.User{}, fmt.Errorf("service.AuthService.Signup: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AuthService.Signup: %w", err)
	}
	user.PasswordHash = hash

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AuthService.Signup: %w", err)
	}
	return created, nil
}

// Login checks the credentials and mints a bearer token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, "", fmt.Errorf("service.AuthService.Login: %w: invalid credentials", domain.ErrNotAuthorized)
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("service.AuthService.Login: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return domain.User{}, "", fmt.Errorf("service.AuthService.Login: %w", err)
	}

	token, err := s.tokens.Mint(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("service.AuthService.Login: %w", err)
	}
	return user, token, nil
}

// RequestPasswordReset issues a reset code for the account behind email and
// hands it to the sender. Unknown emails are not revealed to the caller: the
// request succeeds without issuing anything.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.InfoContext(ctx, "password reset requested for unknown email", "email", email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("service.AuthService.RequestPasswordReset: %w", err)
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("service.AuthService.RequestPasswordReset: %w", err)
	}
	if err := s.otps.Put(ctx, otpPrefix+user.Email, code, otpTTL); err != nil {
		return fmt.Errorf("service.AuthService.RequestPasswordReset: %w", err)
	}
	if err := s.sender.Send(ctx, user.Email, code); err != nil {
		return fmt.Errorf("service.AuthService.RequestPasswordReset: %w", err)
	}
	return nil
}

// ResetPassword replaces the account's password if the code matches the one
// issued for the email. The code is single-use: it is consumed on success.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}

	stored, err := s.otps.Get(ctx, otpPrefix+email)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("service.AuthService.ResetPassword: %w: invalid or expired code", domain.ErrNotAuthorized)
	}
	if err != nil {
		return fmt.Errorf("service.AuthService.ResetPassword: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return fmt.Errorf("service.AuthService.ResetPassword: %w: invalid or expired code", domain.ErrNotAuthorized)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("service.AuthService.ResetPassword: %w", err)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("service.AuthService.ResetPassword: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service.AuthService.ResetPassword: %w", err)
	}
	if err := s.otps.Delete(ctx, otpPrefix+email); err != nil {
		s.log.WarnContext(ctx, "reset code not deleted after use", "email", email, "error", err)
	}
	return nil
}

// validateSignup enforces the account-shape rules.
func validateSignup(user domain.User, password string) error {
	if strings.TrimSpace(user.Username) == "" {
		return fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if strings.TrimSpace(user.FirstName) == "" || strings.TrimSpace(user.LastName) == "" {
		return fmt.Errorf("%w: first and last name are required", domain.ErrValidation)
	}
	if user.DepartmentID == uuid.Nil {
		return fmt.Errorf("%w: department is required", domain.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	return nil
}

// generateOTP returns a six-digit numeric one-time password.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
