// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mistral provides the general-knowledge chat client.
//
// The client streams completions from the Mistral chat API
// (POST /v1/chat/completions with stream=true). The credential and base URL
// are validated once when the client is built; a bad configuration is
// returned by every call before any network activity.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/model"
	"github.com/jeranaias/studymate/internal/transport"
)

// Configuration defaults for the Mistral API.
const (
	DefaultBaseURL     = "https://api.mistral.ai"
	DefaultModel       = "mistral-large-latest"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000

	// PlaceholderAPIKey is the value shipped in the sample .env file.
	PlaceholderAPIKey = "your_mistral_api_key_here"

	opChat = "chat"
)

// apiKeyRemedy is shown to the user when the credential is unusable.
const apiKeyRemedy = "Set STUDYMATE_MISTRAL_API_KEY (or MISTRAL_API_KEY in .env) " +
	"to a key from https://console.mistral.ai/ and restart."

// =============================================================================
// CLIENT
// =============================================================================

// Config holds the settings used to build a Client.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float64
	MaxTokens         int
	RequestsPerMinute int

	// HTTPClient overrides the pooled streaming client.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client streams general chat completions.
type Client struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	maxTokens   int

	httpClient *http.Client
	limiter    *transport.Limiter
	logger     *zap.Logger

	// configErr is set at construction when the client cannot be used.
	configErr error
}

// New builds a client. It never fails; configuration problems are reported
// by ConfigError and by every call.
func New(cfg Config) *Client {
	c := &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       ResolveModel(cfg.Model),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  cfg.HTTPClient,
		limiter:     transport.NewLimiter(cfg.RequestsPerMinute),
		logger:      cfg.Logger,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.httpClient == nil {
		c.httpClient = transport.NewStreamingHTTPClient()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	switch {
	case c.apiKey == "" || c.apiKey == PlaceholderAPIKey:
		c.configErr = errs.Configuration("mistral.api_key",
			"Mistral API key is not configured", apiKeyRemedy)
	default:
		endpoint, err := endpointURL(baseURL)
		if err != nil {
			c.configErr = errs.Configuration("mistral.base_url", err.Error(),
				"Set STUDYMATE_MISTRAL_URL to an http(s) URL such as "+DefaultBaseURL+".")
		}
		c.endpoint = endpoint
	}
	return c
}

// ConfigError returns the construction-time configuration problem, if any.
func (c *Client) ConfigError() error {
	return c.configErr
}

// Model returns the API model identifier in use.
func (c *Client) Model() string {
	return c.model
}

func endpointURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: want http(s)://host", base)
	}
	return u.String() + "/v1/chat/completions", nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type chatRequest struct {
	Model       string              `json:"model"`
	Messages    []model.HistoryTurn `json:"messages"`
	Stream      bool                `json:"stream"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// streamChunk is one data event of the OpenAI-compatible stream.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamCompletion sends messages and streams the reply. onChunk receives
// each delta with the accumulated text. The returned string equals the last
// accumulated value.
func (c *Client) StreamCompletion(ctx context.Context, messages []model.HistoryTurn, onChunk transport.ChunkFunc) (string, error) {
	if c.configErr != nil {
		return "", c.configErr
	}
	if len(messages) == 0 {
		return "", errs.Validation("messages", "at least one message is required")
	}
	if err := c.limiter.Wait(ctx, opChat); err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      true,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errs.Transport(opChat, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	c.logger.Debug("chat request", zap.String("model", c.model), zap.Int("messages", len(messages)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transport.WrapRequestError(opChat, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errs.Configuration("mistral.api_key", "Mistral rejected the API key", apiKeyRemedy)
	}
	if resp.StatusCode != http.StatusOK {
		return "", transport.ResponseError(opChat, resp)
	}

	acc := transport.NewAccumulator(onChunk)
	if err := c.processStream(resp, acc); err != nil {
		c.logger.Debug("chat stream failed",
			zap.Int("partial_chars", len(acc.Text())), zap.Error(err))
		return "", err
	}

	c.logger.Debug("chat complete",
		zap.Int("chunks", acc.Chunks()), zap.Duration("elapsed", time.Since(start)))
	return acc.Text(), nil
}

// processStream reads SSE data events until [DONE] or end of body.
func (c *Client) processStream(resp *http.Response, acc *transport.Accumulator) error {
	reader := transport.NewSSEReader(resp.Body)
	for {
		ev, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return transport.WrapRequestError(opChat, err)
		}
		if ev.IsDone() {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(ev.Data, &chunk); err != nil {
			return errs.Transport(opChat, fmt.Errorf("malformed stream chunk: %w", err))
		}
		if chunk.Error != nil {
			return &errs.TransportError{Op: opChat, Detail: chunk.Error.Message}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		acc.Add(chunk.Choices[0].Delta.Content)
	}
}
