package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"queryhub/internal/cache"
	"queryhub/internal/models"
	"queryhub/internal/openai_client"
)

type fakeQueryRepo struct {
	rows      []models.Query
	nextID    int64
	recordErr error
}

func (r *fakeQueryRepo) RecordQuery(ctx context.Context, q *models.Query) error {
	if r.recordErr != nil {
		return r.recordErr
	}
	r.nextID++
	q.ID = r.nextID
	q.CreatedAt = time.Now().UTC()
	r.rows = append(r.rows, *q)
	return nil
}

func (r *fakeQueryRepo) GetQueryByID(ctx context.Context, id int64) (*models.Query, error) {
	for i := range r.rows {
		if r.rows[i].ID == id {
			return &r.rows[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeQueryRepo) ListQueriesForUser(ctx context.Context, userID int64) ([]models.Query, error) {
	var out []models.Query
	for _, q := range r.rows {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakeCache struct {
	entries  map[string]string
	down     bool
	getCalls int
	putCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, bool) {
	c.getCalls++
	if c.down {
		return "", false
	}
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Put(ctx context.Context, key, response string) error {
	c.putCalls++
	if c.down {
		return errors.New("cache unavailable")
	}
	c.entries[key] = response
	return nil
}

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompleter) Complete(ctx context.Context, queryText, model string, params models.QueryParameters) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestQueryService(repo *fakeQueryRepo, c *fakeCache, f *fakeCompleter) QueryService {
	return NewQueryService(repo, c, f, nil, time.Second, zap.NewNop())
}

func floatPtr(v float64) *float64 { return &v }

func TestSubmitCacheMiss(t *testing.T) {
	repo := &fakeQueryRepo{}
	respCache := newFakeCache()
	completer := &fakeCompleter{response: "4"}
	svc := newTestQueryService(repo, respCache, completer)

	req := SubmitRequest{
		QueryText:  "2+2?",
		Model:      "modelA",
		Parameters: models.QueryParameters{Temperature: floatPtr(0.5)},
	}
	result, err := svc.Submit(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if result.Response != "4" {
		t.Errorf("response = %q, want %q", result.Response, "4")
	}
	if result.Cached {
		t.Error("result.Cached = true, want false on first submit")
	}
	if completer.calls != 1 {
		t.Errorf("completer calls = %d, want 1", completer.calls)
	}
	if len(repo.rows) != 1 || repo.rows[0].Response != "4" {
		t.Fatalf("expected one recorded row with response \"4\", got %+v", repo.rows)
	}
	if result.QueryID != repo.rows[0].ID {
		t.Errorf("result query id = %d, want %d", result.QueryID, repo.rows[0].ID)
	}

	key := cache.Key(req.QueryText, req.Model, req.Parameters)
	if v, ok := respCache.entries[key]; !ok || v != "4" {
		t.Errorf("cache entry for key = %q, %v; want \"4\", true", v, ok)
	}
}

func TestSubmitCacheHitStillRecords(t *testing.T) {
	repo := &fakeQueryRepo{}
	respCache := newFakeCache()
	completer := &fakeCompleter{response: "4"}
	svc := newTestQueryService(repo, respCache, completer)

	req := SubmitRequest{
		QueryText:  "2+2?",
		Model:      "modelA",
		Parameters: models.QueryParameters{Temperature: floatPtr(0.5)},
	}
	ctx := context.Background()

	if _, err := svc.Submit(ctx, 1, req); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	result, err := svc.Submit(ctx, 1, req)
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}

	if completer.calls != 1 {
		t.Errorf("completer calls = %d, want 1 (second submit must hit the cache)", completer.calls)
	}
	if !result.Cached {
		t.Error("result.Cached = false, want true on identical resubmit")
	}
	if result.Response != "4" {
		t.Errorf("response = %q, want %q", result.Response, "4")
	}
	// The audit trail grows by one row per served request, hit or miss.
	if len(repo.rows) != 2 {
		t.Errorf("recorded rows = %d, want 2", len(repo.rows))
	}
}

func TestSubmitCompletionFailure(t *testing.T) {
	transportErr := &openai_client.TransportError{Err: errors.New("connection refused")}
	repo := &fakeQueryRepo{}
	respCache := newFakeCache()
	completer := &fakeCompleter{err: transportErr}
	svc := newTestQueryService(repo, respCache, completer)

	_, err := svc.Submit(context.Background(), 1, SubmitRequest{QueryText: "2+2?", Model: "modelA"})

	var te *openai_client.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Submit() error = %v, want *TransportError", err)
	}
	if len(repo.rows) != 0 {
		t.Errorf("recorded rows = %d, want 0 after failed completion", len(repo.rows))
	}
	if respCache.putCalls != 0 {
		t.Errorf("cache put calls = %d, want 0 after failed completion", respCache.putCalls)
	}
}

func TestSubmitStoreFailure(t *testing.T) {
	repo := &fakeQueryRepo{recordErr: errors.New("db down")}
	respCache := newFakeCache()
	completer := &fakeCompleter{response: "4"}
	svc := newTestQueryService(repo, respCache, completer)

	_, err := svc.Submit(context.Background(), 1, SubmitRequest{QueryText: "2+2?", Model: "modelA"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Submit() error = %v, want ErrStoreUnavailable", err)
	}
	if respCache.putCalls != 0 {
		t.Errorf("cache put calls = %d, want 0 when the row was not committed", respCache.putCalls)
	}
}

func TestSubmitCacheUnavailableDegradesToMiss(t *testing.T) {
	repo := &fakeQueryRepo{}
	respCache := newFakeCache()
	respCache.down = true
	completer := &fakeCompleter{response: "4"}
	svc := newTestQueryService(repo, respCache, completer)

	result, err := svc.Submit(context.Background(), 1, SubmitRequest{QueryText: "2+2?", Model: "modelA"})
	if err != nil {
		t.Fatalf("Submit() error = %v, want success in store-only mode", err)
	}
	if result.Response != "4" {
		t.Errorf("response = %q, want %q", result.Response, "4")
	}
	if completer.calls != 1 {
		t.Errorf("completer calls = %d, want 1", completer.calls)
	}
	if len(repo.rows) != 1 {
		t.Errorf("recorded rows = %d, want 1", len(repo.rows))
	}
}

func TestHistoryOrderAndOwnership(t *testing.T) {
	repo := &fakeQueryRepo{}
	svc := newTestQueryService(repo, newFakeCache(), &fakeCompleter{response: "ok"})
	ctx := context.Background()

	for _, tc := range []struct {
		userID int64
		text   string
	}{
		{1, "first"},
		{2, "other user"},
		{1, "second"},
	} {
		if _, err := svc.Submit(ctx, tc.userID, SubmitRequest{QueryText: tc.text, Model: "modelA"}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	queries, err := svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("history length = %d, want 2", len(queries))
	}
	if queries[0].QueryText != "first" || queries[1].QueryText != "second" {
		t.Errorf("history out of order: %q, %q", queries[0].QueryText, queries[1].QueryText)
	}
}

func TestResponseOwnership(t *testing.T) {
	repo := &fakeQueryRepo{}
	svc := newTestQueryService(repo, newFakeCache(), &fakeCompleter{response: "42"})
	ctx := context.Background()

	result, err := svc.Submit(ctx, 1, SubmitRequest{QueryText: "meaning?", Model: "modelA"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	response, err := svc.Response(ctx, 1, result.QueryID)
	if err != nil {
		t.Fatalf("Response() error = %v", err)
	}
	if response != "42" {
		t.Errorf("response = %q, want %q", response, "42")
	}

	if _, err := svc.Response(ctx, 2, result.QueryID); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("Response() for other user error = %v, want ErrQueryNotFound", err)
	}
	if _, err := svc.Response(ctx, 1, 9999); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("Response() for unknown id error = %v, want ErrQueryNotFound", err)
	}
}
