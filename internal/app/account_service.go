package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-forge-service/internal/auth"
	"quiz-forge-service/internal/domain"
)

// AccountService registers users and exchanges credentials for tokens.
type AccountService struct {
	users  UserRepository
	tokens *auth.TokenIssuer
	now    func() time.Time
}

func NewAccountService(users UserRepository, tokens *auth.TokenIssuer) *AccountService {
	return &AccountService{
		users:  users,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountService) CreateUser(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, domain.ErrInvalidUsername
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Authenticate verifies credentials and issues a signed session token.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (domain.Session, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Session{}, fmt.Errorf("account not found, create an account: %w", domain.ErrAuthFailed)
	}
	if err != nil {
		return domain.Session{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return domain.Session{}, err
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{UserID: u.ID, Username: u.Username, Token: token}, nil
}

// ResolveToken returns the id of the user a token was issued to.
func (s *AccountService) ResolveToken(ctx context.Context, token string) (string, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrAuthFailed
		}
		return "", err
	}
	return userID, nil
}
