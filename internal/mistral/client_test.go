// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mistral

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/model"
)

// sseServer replies with one data event per token followed by [DONE].
func sseServer(t *testing.T, tokens []string, check func(r *http.Request, body chatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(r, body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, tok := range tokens {
			payload, _ := json.Marshal(map[string]any{
				"choices": []map[string]any{{"delta": map[string]string{"content": tok}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func history(text string) []model.HistoryTurn {
	return []model.HistoryTurn{
		{Role: "system", Content: "You are a study assistant."},
		{Role: "user", Content: text},
	}
}

func TestStreamCompletion_Chunks(t *testing.T) {
	srv := sseServer(t, []string{"4", "."}, func(r *http.Request, body chatRequest) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.True(t, body.Stream)
		assert.Equal(t, DefaultModel, body.Model)
		assert.Equal(t, DefaultTemperature, body.Temperature)
		assert.Equal(t, DefaultMaxTokens, body.MaxTokens)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
		}
	})
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL, Temperature: DefaultTemperature})

	var deltas, accs []string
	full, err := c.StreamCompletion(context.Background(), history("What is 2+2?"), func(delta, acc string) {
		deltas = append(deltas, delta)
		accs = append(accs, acc)
	})

	require.NoError(t, err)
	assert.Equal(t, "4.", full)
	assert.Equal(t, []string{"4", "."}, deltas)
	assert.Equal(t, []string{"4", "4."}, accs)
	assert.Equal(t, accs[len(accs)-1], full)
}

func TestStreamCompletion_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing key", Config{}},
		{"whitespace key", Config{APIKey: "   "}},
		{"placeholder key", Config{APIKey: PlaceholderAPIKey}},
		{"bad base url", Config{APIKey: "k", BaseURL: "ftp://example.com"}},
		{"base url without host", Config{APIKey: "k", BaseURL: "https://"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
			}))
			defer srv.Close()

			if tc.cfg.BaseURL == "" {
				tc.cfg.BaseURL = srv.URL
			}
			c := New(tc.cfg)
			require.Error(t, c.ConfigError())

			called := false
			_, err := c.StreamCompletion(context.Background(), history("hi"), func(string, string) { called = true })
			require.Error(t, err)
			assert.True(t, errs.IsConfiguration(err), "got %v", err)
			assert.False(t, called)
			assert.Zero(t, hits.Load(), "no network attempt expected")
		})
	}
}

func TestStreamCompletion_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := New(Config{APIKey: "revoked", BaseURL: srv.URL}).
		StreamCompletion(context.Background(), history("hi"), nil)
	assert.True(t, errs.IsConfiguration(err))
}

func TestStreamCompletion_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"Requests rate limit exceeded"}`))
	}))
	defer srv.Close()

	_, err := New(Config{APIKey: "k", BaseURL: srv.URL}).
		StreamCompletion(context.Background(), history("hi"), nil)
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
	assert.Contains(t, err.Error(), "Requests rate limit exceeded")
}

func TestStreamCompletion_MalformedChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\n\n")
		fmt.Fprint(w, "data: {not json\n\n")
	}))
	defer srv.Close()

	var last string
	_, err := New(Config{APIKey: "k", BaseURL: srv.URL}).
		StreamCompletion(context.Background(), history("hi"), func(_, acc string) { last = acc })
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
	assert.Equal(t, "par", last)
}

func TestStreamCompletion_StreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"model overloaded\"}}\n\n")
	}))
	defer srv.Close()

	_, err := New(Config{APIKey: "k", BaseURL: srv.URL}).
		StreamCompletion(context.Background(), history("hi"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestStreamCompletion_EndWithoutDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
	}))
	defer srv.Close()

	full, err := New(Config{APIKey: "k", BaseURL: srv.URL}).
		StreamCompletion(context.Background(), history("hi"), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", full)
}

func TestStreamCompletion_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := New(Config{APIKey: "k", BaseURL: srv.URL}).
		StreamCompletion(ctx, history("hi"), nil)
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
}

func TestStreamCompletion_EmptyMessages(t *testing.T) {
	_, err := New(Config{APIKey: "k"}).StreamCompletion(context.Background(), nil, nil)
	assert.True(t, errs.IsValidation(err))
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{APIKey: "k", Model: "small"})
	assert.NoError(t, c.ConfigError())
	assert.Equal(t, "mistral-small-latest", c.Model())
	assert.True(t, strings.HasSuffix(c.endpoint, "/v1/chat/completions"))

	assert.Equal(t, DefaultModel, New(Config{APIKey: "k"}).Model())
}

// =============================================================================
// MODEL REGISTRY TESTS
// =============================================================================

func TestGetModelInfo(t *testing.T) {
	tests := []struct {
		query string
		want  string
		found bool
	}{
		{"large", "mistral-large-latest", true},
		{"LARGE", "mistral-large-latest", true},
		{"mistral-small-latest", "mistral-small-latest", true},
		{"codestral-latest", "", false},
	}

	for _, tc := range tests {
		info, ok := GetModelInfo(tc.query)
		if ok != tc.found {
			t.Errorf("GetModelInfo(%q) found = %v, want %v", tc.query, ok, tc.found)
		}
		if info.ID != tc.want {
			t.Errorf("GetModelInfo(%q).ID = %q, want %q", tc.query, info.ID, tc.want)
		}
	}
}

func TestResolveModel_PassThrough(t *testing.T) {
	if got := ResolveModel("codestral-latest"); got != "codestral-latest" {
		t.Errorf("ResolveModel() = %q", got)
	}
}

func TestModels_HaveRequiredFields(t *testing.T) {
	for name, info := range Models {
		if info.ID == "" || info.Name == "" || info.ContextWindow == 0 {
			t.Errorf("model %q is missing required fields: %+v", name, info)
		}
	}
	if names := ModelShortNames(); names[0] != "large" {
		t.Errorf("ModelShortNames() not sorted: %v", names)
	}
}

func TestModelInfo_ContextString(t *testing.T) {
	if got := Models["large"].ContextString(); got != "128K tokens" {
		t.Errorf("ContextString() = %q", got)
	}
}
