package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"queryhub/internal/crypto"
	"queryhub/internal/models"
	"queryhub/internal/notifier"
	"queryhub/internal/repository"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // Returns JWT token, its expiry, and error
}

type authService struct {
	users    repository.UserRepository
	hasher   *crypto.PasswordHasher
	tokens   *TokenService
	notifier *notifier.Notifier
	logger   *zap.Logger
}

func NewAuthService(users repository.UserRepository, hasher *crypto.PasswordHasher, tokens *TokenService, ntf *notifier.Notifier, logger *zap.Logger) AuthService {
	return &authService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		notifier: ntf,
		logger:   logger,
	}
}

func (s *authService) Register(ctx context.Context, username, password string) (*models.User, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:       username,
		PasswordDigest: digest,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("username", user.Username), zap.Int64("user_id", user.ID))
	s.notifier.UserRegistered(user.Username)

	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, ErrUserNotFound
		}
		s.logger.Error("Failed to get user by username", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordDigest) {
		return "", time.Time{}, ErrInvalidCredentials
	}

	tokenString, expirationTime, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User logged in successfully.", zap.String("username", user.Username))

	return tokenString, expirationTime, nil
}
