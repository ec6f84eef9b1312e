package openai_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"queryhub/internal/models"
)

// Defaults applied when the caller leaves a knob unset. The remaining
// optional parameters are omitted entirely so the provider decides.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 256
)

// RemoteAPIError means the provider rejected the request (invalid model,
// quota, auth). The response body is kept for logging, never for callers.
type RemoteAPIError struct {
	StatusCode int
	Body       string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("completion provider returned status %d", e.StatusCode)
}

// TransportError means the request never completed: connection failure,
// timeout, or an unreadable response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("completion transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is a client for an OpenAI-compatible completions API. It performs
// no retries; retry policy belongs to the caller.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new completions client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type completionRequest struct {
	Model            string   `json:"model"`
	Prompt           string   `json:"prompt"`
	Temperature      float64  `json:"temperature"`
	MaxTokens        int      `json:"max_tokens"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete sends queryText to the provider and returns the completion text.
// Errors are classified as *RemoteAPIError or *TransportError.
func (c *Client) Complete(ctx context.Context, queryText, model string, params models.QueryParameters) (string, error) {
	reqBody := completionRequest{
		Model:            model,
		Prompt:           queryText,
		Temperature:      defaultTemperature,
		MaxTokens:        defaultMaxTokens,
		TopP:             params.TopP,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
	}
	if params.Temperature != nil {
		reqBody.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		reqBody.MaxTokens = *params.MaxTokens
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("completion provider rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model),
			zap.ByteString("body", body),
		)
		return "", &RemoteAPIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	// An empty choice list is a successful empty response, not an error.
	if len(result.Choices) == 0 {
		return "", nil
	}

	return result.Choices[0].Text, nil
}
