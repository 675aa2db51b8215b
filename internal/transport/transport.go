// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"crypto/tls"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/model"
)

// =============================================================================
// SHARED TYPES
// =============================================================================

// ChunkFunc receives each streamed delta together with the text accumulated
// so far, delta included.
type ChunkFunc func(delta, accumulated string)

// Answer is the normalized end of a grounded stream.
type Answer struct {
	Text      string
	Citations []model.Citation
}

// UploadResult describes a document accepted by the ingestion backend.
type UploadResult struct {
	ResourceID string `json:"resource_id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
}

// MaxQuestionLength is the longest question the document service accepts,
// counted in characters after trimming.
const MaxQuestionLength = 1000

// CheckQuestionLength rejects a grounded question the backend would refuse.
func CheckQuestionLength(question string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(question)); n > MaxQuestionLength {
		return errs.Validation("question", "is %d characters, the limit is %d", n, MaxQuestionLength)
	}
	return nil
}

// =============================================================================
// HTTP CLIENTS
// =============================================================================

// MaxResponseSize bounds non-streaming response bodies.
const MaxResponseSize = 10 * 1024 * 1024

// NewStreamingHTTPClient returns a pooled client without an overall timeout.
// Streams are bounded by the caller's context instead.
func NewStreamingHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
