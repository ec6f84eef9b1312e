package repository

import (
	"context"
	"errors"

	"queryhub/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrDuplicateUser       = errors.New("username already exists")
	ErrForeignKeyViolation = errors.New("referenced row does not exist")
)

// Postgres error codes for constraint violations.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type userRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewUserRepository(db *sqlx.DB, logger *zap.Logger) UserRepository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (username, password_digest) VALUES ($1, $2) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, user.Username, user.PasswordDigest).StructScan(user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, password_digest, created_at FROM users WHERE username = $1`
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
