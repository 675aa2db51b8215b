// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides presentation helpers shared by the
// full-screen and line-mode chat.
package components

import (
	"runtime"
	"strings"
	"sync"
)

// =============================================================================
// ERROR CATEGORIES
// =============================================================================

// ErrorCategory represents the type of error for display.
type ErrorCategory string

const (
	// CategoryNetwork represents connectivity errors
	CategoryNetwork ErrorCategory = "Network"
	// CategoryConfig represents configuration and credential errors
	CategoryConfig ErrorCategory = "Config"
	// CategoryDocument represents rejected or unreadable uploads
	CategoryDocument ErrorCategory = "Document"
	// CategoryTimeout represents timeouts
	CategoryTimeout ErrorCategory = "Timeout"
	// CategoryUnknown represents unclassified errors
	CategoryUnknown ErrorCategory = "Error"
)

// =============================================================================
// ERROR PATTERN MATCHER
// =============================================================================

// ErrorPattern maps keywords in an error message to advice.
type ErrorPattern struct {
	// Keywords to match in the error message (case-insensitive, any match triggers)
	Keywords []string

	Category    ErrorCategory
	Title       string
	Suggestions []string
}

// ErrorHint is the advice shown under a failed answer or upload.
type ErrorHint struct {
	Category    ErrorCategory
	Title       string
	Message     string
	Suggestions []string
}

// ErrorPatternMatcher analyzes error strings and provides suggestions.
type ErrorPatternMatcher struct {
	mu       sync.RWMutex
	patterns []ErrorPattern
}

var (
	defaultMatcher     *ErrorPatternMatcher
	defaultMatcherOnce sync.Once
)

// GetDefaultMatcher returns the shared matcher.
func GetDefaultMatcher() *ErrorPatternMatcher {
	defaultMatcherOnce.Do(func() {
		defaultMatcher = NewErrorPatternMatcher()
	})
	return defaultMatcher
}

// NewErrorPatternMatcher creates a matcher with the default patterns.
func NewErrorPatternMatcher() *ErrorPatternMatcher {
	m := &ErrorPatternMatcher{}
	m.registerDefaultPatterns()
	return m
}

// registerDefaultPatterns registers patterns from most to least specific.
// The first match wins.
func (m *ErrorPatternMatcher) registerDefaultPatterns() {
	m.AddPattern(ErrorPattern{
		Keywords: []string{"api key", "http 401", "unauthorized"},
		Category: CategoryConfig,
		Title:    "Mistral Key Rejected",
		Suggestions: []string{
			"Create a key at https://console.mistral.ai/",
			"Set STUDYMATE_MISTRAL_API_KEY or MISTRAL_API_KEY in .env",
			"Check it with: studymate config get mistral.api_key",
		},
	})

	m.AddPattern(ErrorPattern{
		Keywords:    []string{"localhost:5000", "127.0.0.1:5000", "document service", "upload failed", "grounded chat failed"},
		Category:    CategoryNetwork,
		Title:       "Document Service Unreachable",
		Suggestions: documentServiceSuggestions(),
	})

	m.AddPattern(ErrorPattern{
		Keywords: []string{"only pdf", "not look like a pdf", "too large", "is a directory", "cannot read"},
		Category: CategoryDocument,
		Title:    "Document Rejected",
		Suggestions: []string{
			"Upload a PDF of at most 20 MiB",
			"Check the path; ~ is expanded to your home directory",
		},
	})

	m.AddPattern(ErrorPattern{
		Keywords: []string{"rate limit", "too many requests", "http 429", "quota"},
		Category: CategoryNetwork,
		Title:    "Rate Limited",
		Suggestions: []string{
			"Wait a moment and ask again",
			"Lower mistral.requests_per_minute in the config",
		},
	})

	m.AddPattern(ErrorPattern{
		Keywords: []string{"deadline exceeded", "timed out", "timeout"},
		Category: CategoryTimeout,
		Title:    "Request Timed Out",
		Suggestions: []string{
			"Try again; large PDFs take longer to index",
			"Raise rag.request_timeout_secs for slow uploads",
		},
	})

	m.AddPattern(ErrorPattern{
		Keywords: []string{"connection refused", "no such host", "dial tcp", "network is unreachable", "eof"},
		Category: CategoryNetwork,
		Title:    "Connection Error",
		Suggestions: []string{
			"Check your internet connection",
			"Verify the URLs with: studymate config show",
		},
	})

	m.AddPattern(ErrorPattern{
		Keywords: []string{"http 500", "http 502", "http 503", "http 504"},
		Category: CategoryNetwork,
		Title:    "Server Error",
		Suggestions: []string{
			"The service had a problem; ask again in a moment",
		},
	})
}

// AddPattern appends a pattern. Thread-safe.
func (m *ErrorPatternMatcher) AddPattern(pattern ErrorPattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
}

// Match returns advice for errMsg, or nil if no pattern matches.
func (m *ErrorPatternMatcher) Match(errMsg string) *ErrorHint {
	if errMsg == "" {
		return nil
	}
	errLower := strings.ToLower(errMsg)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, pattern := range m.patterns {
		if matchesPattern(errLower, pattern) {
			return &ErrorHint{
				Category:    pattern.Category,
				Title:       pattern.Title,
				Message:     errMsg,
				Suggestions: pattern.Suggestions,
			}
		}
	}
	return nil
}

// MatchOrDefault is Match with a generic hint titled title.
func (m *ErrorPatternMatcher) MatchOrDefault(title, errMsg string) ErrorHint {
	if matched := m.Match(errMsg); matched != nil {
		return *matched
	}
	return ErrorHint{Category: CategoryUnknown, Title: title, Message: errMsg}
}

func matchesPattern(errLower string, pattern ErrorPattern) bool {
	for _, keyword := range pattern.Keywords {
		if strings.Contains(errLower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// documentServiceSuggestions returns startup advice for the backend.
func documentServiceSuggestions() []string {
	start := "Start it: cd backend && uvicorn app.main:app --port 5000"
	if runtime.GOOS == "windows" {
		start = "Start it: cd backend; python -m uvicorn app.main:app --port 5000"
	}
	return []string{
		start,
		"Or point studymate elsewhere: --api-url or STUDYMATE_API_URL",
	}
}

// =============================================================================
// SMART ERROR CREATION
// =============================================================================

// SmartError matches message with the default matcher.
func SmartError(title, message string) ErrorHint {
	return GetDefaultMatcher().MatchOrDefault(title, message)
}

// SmartErrorFromError is SmartError for a Go error.
func SmartErrorFromError(title string, err error) ErrorHint {
	if err == nil {
		return ErrorHint{Category: CategoryUnknown, Title: title, Message: "Unknown error"}
	}
	return SmartError(title, err.Error())
}

// FirstSuggestion returns the leading suggestion, or "".
func (h ErrorHint) FirstSuggestion() string {
	if len(h.Suggestions) == 0 {
		return ""
	}
	return h.Suggestions[0]
}
