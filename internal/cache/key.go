package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"queryhub/internal/models"
)

// Key computes a deterministic cache key over the (query text, model,
// parameters) triple. Parameters marshal with fixed field order, so
// identical requests always map to the same key.
func Key(queryText, model string, params models.QueryParameters) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(queryText))
	h.Write([]byte{0})
	data, _ := json.Marshal(params)
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}
