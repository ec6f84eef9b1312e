package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"queryhub/internal/cache"
	"queryhub/internal/metrics"
	"queryhub/internal/models"
	"queryhub/internal/notifier"
	"queryhub/internal/repository"
)

// Completer produces a completion for a query. Implemented by
// openai_client.Client; stubbed in tests.
type Completer interface {
	Complete(ctx context.Context, queryText, model string, params models.QueryParameters) (string, error)
}

type SubmitRequest struct {
	QueryText  string
	Model      string
	Parameters models.QueryParameters
}

type SubmitResult struct {
	QueryID  int64
	Response string
	Cached   bool
}

// QueryService runs the query pipeline for an authenticated user: consult
// the cache, call the completion provider on a miss, persist the pair, then
// populate the cache. The store is the audit trail — every served request
// records a row, hit or miss, and no row is ever written without a response.
type QueryService interface {
	Submit(ctx context.Context, userID int64, req SubmitRequest) (*SubmitResult, error)
	History(ctx context.Context, userID int64) ([]models.Query, error)
	Response(ctx context.Context, userID, queryID int64) (string, error)
}

type queryService struct {
	queries           repository.QueryRepository
	cache             cache.ResponseCache
	completer         Completer
	notifier          *notifier.Notifier
	completionTimeout time.Duration
	logger            *zap.Logger
}

func NewQueryService(queries repository.QueryRepository, respCache cache.ResponseCache, completer Completer, ntf *notifier.Notifier, completionTimeout time.Duration, logger *zap.Logger) QueryService {
	return &queryService{
		queries:           queries,
		cache:             respCache,
		completer:         completer,
		notifier:          ntf,
		completionTimeout: completionTimeout,
		logger:            logger,
	}
}

func (s *queryService) Submit(ctx context.Context, userID int64, req SubmitRequest) (*SubmitResult, error) {
	key := cache.Key(req.QueryText, req.Model, req.Parameters)

	response, hit := s.cache.Get(ctx, key)
	if !hit {
		cctx, cancel := context.WithTimeout(ctx, s.completionTimeout)
		defer cancel()

		var err error
		response, err = s.completer.Complete(cctx, req.QueryText, req.Model, req.Parameters)
		if err != nil {
			metrics.CompletionRequestsTotal.WithLabelValues("error").Inc()
			s.logger.Error("Completion call failed",
				zap.String("model", req.Model),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			s.notifier.UpstreamFailure(req.Model, err)
			return nil, err
		}
		metrics.CompletionRequestsTotal.WithLabelValues("ok").Inc()
	}

	q := &models.Query{
		UserID:     userID,
		QueryText:  req.QueryText,
		Model:      req.Model,
		Parameters: req.Parameters,
		Response:   response,
	}
	if err := s.queries.RecordQuery(ctx, q); err != nil {
		s.logger.Error("Failed to record query", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: failed to record query", ErrStoreUnavailable)
	}

	if !hit {
		if err := s.cache.Put(ctx, key, response); err != nil {
			// The row is committed; a cold cache only costs the next caller
			// an upstream round trip.
			s.logger.Warn("Failed to populate cache", zap.String("key", key), zap.Error(err))
		}
	}

	return &SubmitResult{
		QueryID:  q.ID,
		Response: response,
		Cached:   hit,
	}, nil
}

func (s *queryService) History(ctx context.Context, userID int64) ([]models.Query, error) {
	queries, err := s.queries.ListQueriesForUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list queries", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: failed to list queries", ErrStoreUnavailable)
	}
	return queries, nil
}

// Response returns the stored response for a query owned by userID. A row
// owned by someone else is indistinguishable from a missing one.
func (s *queryService) Response(ctx context.Context, userID, queryID int64) (string, error) {
	q, err := s.queries.GetQueryByID(ctx, queryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrQueryNotFound
		}
		s.logger.Error("Failed to get query", zap.Int64("query_id", queryID), zap.Error(err))
		return "", fmt.Errorf("%w: failed to get query", ErrStoreUnavailable)
	}
	if q.UserID != userID {
		return "", ErrQueryNotFound
	}
	return q.Response, nil
}
