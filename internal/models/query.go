package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Query is one served request: the prompt, the model parameters it was sent
// with and the response the caller received. Rows are append-only.
type Query struct {
	ID         int64           `db:"id" json:"id"`
	UserID     int64           `db:"user_id" json:"user_id"`
	QueryText  string          `db:"query_text" json:"query_text"`
	Model      string          `db:"model" json:"model"`
	Parameters QueryParameters `db:"parameters" json:"parameters"`
	Response   string          `db:"response" json:"response"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// QueryParameters are the optional completion knobs. Nil fields are omitted
// from the upstream request so the provider applies its own behavior;
// temperature and max_tokens get documented defaults at the client instead.
type QueryParameters struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
}

// Value implements driver.Valuer so parameters persist as a JSONB blob.
func (p QueryParameters) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *QueryParameters) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = QueryParameters{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported type %T for query parameters", src)
	}
}
