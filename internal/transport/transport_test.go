// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/studymate/internal/errs"
)

// pdfBytes is the smallest content mimetype recognizes as a PDF.
var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

// =============================================================================
// ACCUMULATOR TESTS
// =============================================================================

func TestAccumulator_PrefixExtension(t *testing.T) {
	var got []string
	acc := NewAccumulator(func(delta, accumulated string) {
		if len(got) > 0 {
			prev := got[len(got)-1]
			if !strings.HasPrefix(accumulated, prev) {
				t.Errorf("accumulated %q does not extend %q", accumulated, prev)
			}
		}
		if !strings.HasSuffix(accumulated, delta) {
			t.Errorf("accumulated %q does not end with delta %q", accumulated, delta)
		}
		got = append(got, accumulated)
	})

	for _, d := range []string{"4", "", ".", " Done"} {
		acc.Add(d)
	}

	assert.Equal(t, []string{"4", "4.", "4. Done"}, got)
	assert.Equal(t, "4. Done", acc.Text())
	assert.Equal(t, 3, acc.Chunks())
}

func TestAccumulator_NilCallback(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.Add("x")
	assert.Equal(t, "x", acc.Text())
}

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader_Events(t *testing.T) {
	stream := ": keepalive\n" +
		"data: {\"a\":1}\n\n" +
		"event: citations\r\n" +
		"data: [{\"page\":3}]\r\n\r\n" +
		"data: line one\n" +
		"data: line two\n\n" +
		"data: [DONE]\n\n"

	r := NewSSEReader(strings.NewReader(stream))

	ev, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "", ev.Type)
	assert.Equal(t, `{"a":1}`, string(ev.Data))

	ev, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "citations", ev.Type)
	assert.Equal(t, `[{"page":3}]`, string(ev.Data))

	ev, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "", ev.Type, "event type must not leak into the next event")
	assert.Equal(t, "line one\nline two", string(ev.Data))

	ev, err = r.ReadEvent()
	require.NoError(t, err)
	assert.True(t, ev.IsDone())

	_, err = r.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEReader_TrailingEventWithoutBlankLine(t *testing.T) {
	r := NewSSEReader(strings.NewReader("data: tail"))
	ev, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "tail", string(ev.Data))
}

func TestSSEReader_PreservesLeadingSpaceInToken(t *testing.T) {
	r := NewSSEReader(strings.NewReader("data:  world\n\n"))
	ev, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, " world", string(ev.Data))
}

func TestSSEReader_EventTooLarge(t *testing.T) {
	big := "data: " + strings.Repeat("x", MaxEventSize+1) + "\n\n"
	_, err := NewSSEReader(strings.NewReader(big)).ReadEvent()
	assert.Error(t, err)
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr bool
	}{
		{"valid pdf", NewDocument("notes.pdf", pdfBytes), false},
		{"uppercase extension", NewDocument("NOTES.PDF", pdfBytes), false},
		{"wrong extension", NewDocument("notes.txt", pdfBytes), true},
		{"not really a pdf", NewDocument("notes.pdf", []byte("hello world")), true},
		{"empty", NewDocument("notes.pdf", nil), true},
		{"oversized", &Document{Name: "big.pdf", Size: 25 << 20}, true},
		{"nil", nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.doc.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errs.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDocument_ExactlyAtLimit(t *testing.T) {
	data := make([]byte, MaxDocumentSize)
	copy(data, pdfBytes)
	assert.NoError(t, NewDocument("max.pdf", data).Validate())
}

func TestOpenDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "physics.pdf")
	require.NoError(t, os.WriteFile(path, pdfBytes, 0o600))

	doc, err := OpenDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "physics.pdf", doc.Name)
	assert.Equal(t, DocumentMIME, doc.MIME())
	assert.NoError(t, doc.Validate())

	content, err := io.ReadAll(doc.Reader())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(pdfBytes, content))

	_, err = OpenDocument(filepath.Join(dir, "missing.pdf"))
	assert.True(t, errs.IsValidation(err))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "20.0 MiB", FormatSize(MaxDocumentSize))
	assert.Equal(t, "1.5 KiB", FormatSize(1536))
}

// =============================================================================
// ERROR DECODING TESTS
// =============================================================================

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"Only PDF files are allowed"}`, "Only PDF files are allowed"},
		{`{"detail":[{"msg":"field required"},{"msg":"bad id"}]}`, "field required; bad id"},
		{`{"error":{"message":"Unauthorized"}}`, "Unauthorized"},
		{`{"message":"boom"}`, "boom"},
		{"plain text failure\n", "plain text failure"},
		{"", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ErrorDetail([]byte(tc.body)), tc.body)
	}
}

func TestResponseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"detail":"File too large. Maximum size is 20MB"}`))
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	err = ResponseError("upload", resp)
	assert.True(t, errs.IsTransport(err))
	assert.Equal(t, "upload failed (HTTP 413): File too large. Maximum size is 20MB", err.Error())
}

func TestWrapRequestError(t *testing.T) {
	assert.NoError(t, WrapRequestError("chat", nil))

	err := WrapRequestError("chat", context.Canceled)
	assert.True(t, errs.IsTransport(err))
	assert.True(t, IsCanceled(err))

	cfg := errs.Configuration("k", "m", "r")
	assert.Same(t, cfg, WrapRequestError("chat", cfg))
}

// =============================================================================
// LIMITER TESTS
// =============================================================================

func TestLimiter_Unlimited(t *testing.T) {
	var nilLimiter *Limiter
	assert.NoError(t, nilLimiter.Wait(context.Background(), "chat"))
	assert.NoError(t, NewLimiter(0).Wait(context.Background(), "chat"))
}

func TestLimiter_HonorsContext(t *testing.T) {
	l := NewLimiter(1)
	require.NoError(t, l.Wait(context.Background(), "chat"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "chat")
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
}

func TestCheckQuestionLength(t *testing.T) {
	tests := []struct {
		name    string
		q       string
		wantErr bool
	}{
		{"short", "What is osmosis?", false},
		{"at limit", strings.Repeat("a", MaxQuestionLength), false},
		{"padding ignored", "  " + strings.Repeat("a", MaxQuestionLength) + "\n", false},
		{"multibyte counted as characters", strings.Repeat("é", MaxQuestionLength), false},
		{"over limit", strings.Repeat("a", MaxQuestionLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckQuestionLength(tt.q)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
