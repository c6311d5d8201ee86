package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	// GetCredentialsByEmail returns ErrInvalidCredentials when no profile has the email.
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	// GetSessionUser loads the email and role of an active user.
	GetSessionUser(ctx context.Context, userID string) (*Credentials, error)
}

// Service is the main auth service with dependencies
type Service struct {
	repo           Repository
	tokenGenerator TokenGenerator
	logger         *slog.Logger
	timeout        time.Duration
}

func NewService(repo Repository, tokenGen TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		logger:         logger,
		timeout:        5 * time.Second,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if appErr := dto.Validate(); appErr != nil {
		return AuthTokens{}, appErr
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	creds, err := s.repo.GetCredentialsByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, internal.ErrInvalidCredentials) {
			s.logger.Warn("login failed: unknown email", "email", dto.Email)
			return AuthTokens{}, internal.ErrInvalidCredentials
		}
		s.logger.Error("login failed: credential lookup", "error", err)
		return AuthTokens{}, internal.NewInternalError("failed to authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login failed: password mismatch", "user_id", creds.UserID)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	if !creds.IsActive {
		s.logger.Warn("login refused: inactive user", "user_id", creds.UserID)
		return AuthTokens{}, internal.ErrUserInactive
	}

	tokens, err := s.issue(creds.UserID, creds.Email)
	if err != nil {
		return AuthTokens{}, err
	}

	s.logger.Info("user logged in", "user_id", creds.UserID, "role", creds.Role)
	return tokens, nil
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.repo.GetSessionUser(ctx, claims.UserID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.StatusCode < 500 {
			return AuthTokens{}, appErr
		}
		return AuthTokens{}, internal.NewInternalError("failed to refresh tokens", err)
	}
	if !user.IsActive {
		return AuthTokens{}, internal.ErrUserInactive
	}

	return s.issue(user.UserID, user.Email)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// LoadSession resolves a validated token into the caller's session. The role
// is read on every request so a role change applies without re-login.
func (s *Service) LoadSession(ctx context.Context, claims *Claims) (internal.Session, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.repo.GetSessionUser(ctx, claims.UserID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.StatusCode < 500 {
			return internal.Session{}, appErr
		}
		return internal.Session{}, internal.NewInternalError("failed to load session", err)
	}
	if !user.IsActive {
		return internal.Session{}, internal.ErrUserInactive
	}

	role := user.Role
	if !role.Valid() {
		// a profile without a role row is treated as a plain employee
		role = internal.RoleEmployee
	}

	return internal.Session{UserID: user.UserID, Email: user.Email, Role: role}, nil
}

func (s *Service) issue(userID, email string) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(userID, email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(userID, email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}
	return AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
