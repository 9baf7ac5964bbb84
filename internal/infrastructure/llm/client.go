package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ShortsPipeline/internal/config"
	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/logging"
	"ShortsPipeline/internal/ports"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000

	maxTemperature = 2.0
	errorBodyLimit = 1024
)

// Client implements ports.CompletionClient against an OpenAI-compatible chat endpoint.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.CompletionClient = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// NewClient builds a client from configuration. Credentials and model are fixed for its lifetime.
func NewClient(cfg config.LLMConfig, log *slog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		model:      strings.TrimSpace(cfg.Model),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete sends one system+user exchange and returns the reply verbatim.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("llm client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("llm client misconfigured")
	}
	if req.Temperature < 0 || req.Temperature > maxTemperature {
		return "", fmt.Errorf("temperature %.2f outside [0, %.0f]", req.Temperature, maxTemperature)
	}
	if req.MaxTokens <= 0 {
		return "", fmt.Errorf("max tokens must be positive, got %d", req.MaxTokens)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("llm request", "model", c.model, "temperature", req.Temperature, "max_tokens", req.MaxTokens)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.TransportError{Op: "chat completion", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return "", &domain.TransportError{
			Op:         "chat completion",
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(payload))),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &domain.TransportError{Op: "decode chat completion", StatusCode: resp.StatusCode, Err: err}
	}
	if len(decoded.Choices) == 0 {
		return "", &domain.TransportError{Op: "chat completion", StatusCode: resp.StatusCode, Err: errors.New("no choices in response")}
	}

	content := decoded.Choices[0].Message.Content
	tokens := 0
	if decoded.Usage != nil {
		tokens = decoded.Usage.TotalTokens
	}
	c.logger.Debug("llm response", "chars", len(content), "tokens", tokens, "elapsed", time.Since(start))

	return content, nil
}

// CompleteJSON runs Complete, strips one markdown fence and decodes the remainder into out.
func (c *Client) CompleteJSON(ctx context.Context, req ports.CompletionRequest, out any) error {
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(StripCodeFence(raw)), out); err != nil {
		c.logger.Warn("json parse error", "error", err)
		c.logger.Debug("raw model response", "response", raw)
		return &domain.MalformedOutputError{Raw: raw, Err: err}
	}
	return nil
}

// StripCodeFence removes at most one leading ```json or ``` marker and one trailing ``` marker.
func StripCodeFence(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
