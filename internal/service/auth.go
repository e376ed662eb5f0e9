package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rensmac/go-api-starter/internal/domain"
	"github.com/rensmac/go-api-starter/internal/security"
)

// UserRepository is the storage contract the auth service depends on
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo     UserRepository
	hasher       *security.PasswordHasher
	tokenManager *security.TokenManager
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo UserRepository,
	hasher *security.PasswordHasher,
	tokenManager *security.TokenManager,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		hasher:       hasher,
		tokenManager: tokenManager,
	}
}

// Register creates a new user account and issues a token for it.
// Returns domain.ErrDuplicateEmail when the email is already taken.
func (s *AuthService) Register(ctx context.Context, input domain.UserCreate) (*domain.AuthResult, error) {
	email := normalizeEmail(input.Email)

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index is the authority on duplicates; checking first
	// would still race with concurrent registrations.
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokenManager.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &domain.AuthResult{Token: token, User: user}, nil
}

// Login authenticates a user and issues a token. An unknown email and
// a wrong password both return domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input domain.UserLogin) (*domain.AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokenManager.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &domain.AuthResult{Token: token, User: user}, nil
}

// GetUserByID retrieves a user by ID. Returns domain.ErrUserNotFound
// when no such user exists.
func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
