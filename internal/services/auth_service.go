package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"wealthtrack/internal/auth"
	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
	"wealthtrack/internal/storage"
)

// AuthService registers accounts and exchanges credentials for access tokens.
type AuthService struct {
	users      storage.UserStore
	tokens     *auth.TokenIssuer
	bcryptCost int
	clock      Clock
	logger     *log.Logger
}

func NewAuthService(users storage.UserStore, tokens *auth.TokenIssuer, bcryptCost int, clock Clock, logger *log.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		clock:      clock,
		logger:     orDiscard(logger).WithComponent(log.ComponentAuth),
	}
}

// Register creates an active account. A taken email yields core.ErrConflict.
func (s *AuthService) Register(ctx context.Context, email, fullName, password string) (core.User, error) {
	if err := core.ValidateRegistration(email, fullName, password); err != nil {
		return core.User{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return core.User{}, err
	}

	user, err := s.users.CreateUser(ctx, core.User{
		ID:           uuid.New(),
		Email:        core.NormalizeEmail(email),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    s.clock.now(),
	})
	if err != nil {
		return core.User{}, fmt.Errorf("register user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, user.ID.String())
	return user, nil
}

// Authenticate checks the credentials and returns a signed access token.
// Unknown emails, wrong passwords and inactive accounts all yield
// core.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.logger.WarnContext(ctx, "Login attempt for unknown email")
			return "", fmt.Errorf("incorrect email or password: %w", core.ErrUnauthorized)
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		s.logger.WarnContext(ctx, "Login attempt with wrong password", log.FieldUserID, user.ID.String())
		return "", fmt.Errorf("incorrect email or password: %w", core.ErrUnauthorized)
	}
	if !user.IsActive {
		return "", fmt.Errorf("inactive user: %w", core.ErrUnauthorized)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, user.ID.String())
	return token, nil
}

// UserForToken resolves a bearer token to its active account.
func (s *AuthService) UserForToken(ctx context.Context, token string) (core.User, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return core.User{}, err
	}
	user, err := s.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, fmt.Errorf("unknown token subject: %w", core.ErrUnauthorized)
		}
		return core.User{}, err
	}
	if !user.IsActive {
		return core.User{}, fmt.Errorf("inactive user: %w", core.ErrUnauthorized)
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (core.User, error) {
	return s.users.UserByID(ctx, userID)
}
