package repository

import (
	"context"
	"errors"

	"queryhub/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type QueryRepository interface {
	RecordQuery(ctx context.Context, q *models.Query) error
	GetQueryByID(ctx context.Context, id int64) (*models.Query, error)
	ListQueriesForUser(ctx context.Context, userID int64) ([]models.Query, error)
}

type queryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewQueryRepository(db *sqlx.DB, logger *zap.Logger) QueryRepository {
	return &queryRepository{db: db, logger: logger}
}

// RecordQuery inserts one history row and fills in the assigned id and
// creation timestamp. The single INSERT commits or fails as a whole.
func (r *queryRepository) RecordQuery(ctx context.Context, q *models.Query) error {
	query := `INSERT INTO queries (user_id, query_text, model, parameters, response)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, q.UserID, q.QueryText, q.Model, q.Parameters, q.Response).StructScan(q)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return ErrForeignKeyViolation
		}
		return err
	}
	return nil
}

func (r *queryRepository) GetQueryByID(ctx context.Context, id int64) (*models.Query, error) {
	var q models.Query
	query := `SELECT id, user_id, query_text, model, parameters, response, created_at FROM queries WHERE id = $1`
	err := r.db.GetContext(ctx, &q, query, id)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQueriesForUser returns the user's history in insertion order.
func (r *queryRepository) ListQueriesForUser(ctx context.Context, userID int64) ([]models.Query, error) {
	queries := []models.Query{}
	query := `SELECT id, user_id, query_text, model, parameters, response, created_at
	          FROM queries WHERE user_id = $1 ORDER BY id`
	err := r.db.SelectContext(ctx, &queries, query, userID)
	if err != nil {
		return nil, err
	}
	return queries, nil
}
