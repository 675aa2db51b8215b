// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rag provides the client for the document-grounded backend:
// PDF ingestion, grounded chat (streamed or single-shot) and resource
// metadata.
package rag

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/transport"
)

// Configuration defaults for the grounded backend.
const (
	DefaultBaseURL        = "http://localhost:5000"
	DefaultRequestTimeout = 120 * time.Second
	DefaultInfoCacheTTL   = 5 * time.Minute

	// MaxQuestionLength mirrors the backend's request validation.
	MaxQuestionLength = transport.MaxQuestionLength
)

// Operation names used in transport errors.
const (
	opUpload   = "upload"
	opGrounded = "grounded chat"
	opInfo     = "resource info"
	opDelete   = "delete resource"
)

// Config holds the settings used to build a Client.
type Config struct {
	BaseURL string

	// Streaming selects /api/chat/stream. When false the single-shot
	// /api/chat endpoint is used and its answer is delivered as one chunk.
	Streaming bool

	// RequestTimeout bounds uploads and other non-streaming calls.
	RequestTimeout time.Duration

	// InfoCacheTTL controls how long resource metadata is cached.
	InfoCacheTTL time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Streaming:      true,
		RequestTimeout: DefaultRequestTimeout,
		InfoCacheTTL:   DefaultInfoCacheTTL,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the grounded backend.
type Client struct {
	baseURL        string
	streaming      bool
	requestTimeout time.Duration

	httpClient *http.Client
	logger     *zap.Logger
	infoCache  *cache.Cache

	configErr error
}

// New builds a client. Configuration problems are reported by ConfigError
// and returned by every call before any network activity.
func New(cfg Config) *Client {
	c := &Client{
		streaming:      cfg.Streaming,
		requestTimeout: cfg.RequestTimeout,
		httpClient:     cfg.HTTPClient,
		logger:         cfg.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = transport.NewStreamingHTTPClient()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	ttl := cfg.InfoCacheTTL
	if ttl <= 0 {
		ttl = DefaultInfoCacheTTL
	}
	c.infoCache = cache.New(ttl, 2*ttl)

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.configErr = errs.Configuration("rag.base_url",
			fmt.Sprintf("invalid document service URL %q", base),
			"Set STUDYMATE_API_URL (or VITE_API_URL) to the document service, e.g. "+DefaultBaseURL+".")
		return c
	}
	c.baseURL = u.String()
	return c
}

// ConfigError returns the construction-time configuration problem, if any.
func (c *Client) ConfigError() error {
	return c.configErr
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// withTimeout applies the request timeout to non-streaming calls.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func (c *Client) resourceURL(id string) string {
	return c.baseURL + "/api/resources/" + url.PathEscape(id)
}
