// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/model"
	"github.com/jeranaias/studymate/internal/transport"
)

// Event types understood on the grounded event stream.
const (
	eventCitations = "citations"
	eventError     = "error"
)

type chatRequest struct {
	Question            string              `json:"question"`
	ResourceID          string              `json:"resource_id"`
	ConversationHistory []model.HistoryTurn `json:"conversation_history"`
}

type chatResponse struct {
	Answer    string           `json:"answer"`
	Citations []model.Citation `json:"citations"`
}

// =============================================================================
// GROUNDED CHAT
// =============================================================================

// StreamGroundedCompletion asks question about the document resourceID.
//
// The backend may answer with a text/plain chunked body, a text/event-stream
// (data events are tokens, a "citations" event carries the sources), or a
// single JSON {answer, citations}. All three are normalized into an Answer;
// a JSON reply is delivered to onChunk as one chunk.
func (c *Client) StreamGroundedCompletion(ctx context.Context, question, resourceID string,
	history []model.HistoryTurn, onChunk transport.ChunkFunc) (transport.Answer, error) {
	if c.configErr != nil {
		return transport.Answer{}, c.configErr
	}
	if err := validateQuestion(question, resourceID); err != nil {
		return transport.Answer{}, err
	}
	if history == nil {
		history = []model.HistoryTurn{}
	}

	path := "/api/chat/stream"
	if !c.streaming {
		path = "/api/chat"
	}

	body, err := json.Marshal(chatRequest{
		Question:            question,
		ResourceID:          resourceID,
		ConversationHistory: history,
	})
	if err != nil {
		return transport.Answer{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return transport.Answer{}, errs.Transport(opGrounded, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, text/plain, application/json")

	start := time.Now()
	c.logger.Debug("grounded chat request",
		zap.String("resource_id", resourceID), zap.Int("history", len(history)), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transport.Answer{}, transport.WrapRequestError(opGrounded, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return transport.Answer{}, transport.ResponseError(opGrounded, resp)
	}

	acc := transport.NewAccumulator(onChunk)
	var citations []model.Citation

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		citations, err = readJSON(resp.Body, acc)
	case "text/event-stream":
		citations, err = readEvents(resp.Body, acc)
	default:
		err = readPlain(resp.Body, acc)
	}
	if err != nil {
		c.logger.Debug("grounded stream failed",
			zap.Int("partial_chars", len(acc.Text())), zap.Error(err))
		return transport.Answer{}, err
	}

	c.logger.Debug("grounded chat complete",
		zap.String("media_type", mediaType),
		zap.Int("chunks", acc.Chunks()),
		zap.Int("citations", len(citations)),
		zap.Duration("elapsed", time.Since(start)))
	return transport.Answer{Text: acc.Text(), Citations: citations}, nil
}

func validateQuestion(question, resourceID string) error {
	q := strings.TrimSpace(question)
	if q == "" {
		return errs.Validation("question", "must not be blank")
	}
	if err := transport.CheckQuestionLength(q); err != nil {
		return err
	}
	if strings.TrimSpace(resourceID) == "" {
		return errs.Validation("resource_id", "is required")
	}
	return nil
}

// =============================================================================
// BODY READERS
// =============================================================================

// readJSON handles the single-shot {answer, citations} reply.
func readJSON(body io.Reader, acc *transport.Accumulator) ([]model.Citation, error) {
	var cr chatResponse
	if err := json.NewDecoder(io.LimitReader(body, transport.MaxResponseSize)).Decode(&cr); err != nil {
		return nil, wrapRead(fmt.Errorf("malformed answer: %w", err))
	}
	acc.Add(cr.Answer)
	return cr.Citations, nil
}

// readEvents handles an event stream. Unnamed and "message" events are
// tokens; a "citations" event carries a JSON array of sources.
func readEvents(body io.Reader, acc *transport.Accumulator) ([]model.Citation, error) {
	var citations []model.Citation
	reader := transport.NewSSEReader(body)
	for {
		ev, err := reader.ReadEvent()
		if errors.Is(err, io.EOF) {
			return citations, nil
		}
		if err != nil {
			return nil, wrapRead(err)
		}
		if ev.IsDone() {
			return citations, nil
		}

		switch ev.Type {
		case eventCitations:
			if err := json.Unmarshal(ev.Data, &citations); err != nil {
				return nil, wrapRead(fmt.Errorf("malformed citations event: %w", err))
			}
		case eventError:
			return nil, &errs.TransportError{Op: opGrounded, Detail: transport.ErrorDetail(ev.Data)}
		case "", "message", "token":
			acc.Add(string(ev.Data))
		}
	}
}

// readPlain handles a chunked text body. Bytes are only delivered up to the
// last complete UTF-8 sequence so a rune split across reads is never shown
// half-decoded.
func readPlain(body io.Reader, acc *transport.Accumulator) error {
	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := body.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completeUTF8Prefix(pending)
			if cut > 0 {
				acc.Add(string(pending[:cut]))
				pending = append(pending[:0], pending[cut:]...)
			}
		}
		if errors.Is(err, io.EOF) {
			if len(pending) > 0 {
				acc.Add(string(pending))
			}
			return nil
		}
		if err != nil {
			return wrapRead(err)
		}
	}
}

// completeUTF8Prefix returns the length of the longest prefix of b that does
// not end in the middle of a multi-byte sequence.
func completeUTF8Prefix(b []byte) int {
	// A rune is at most 4 bytes, so only the tail needs checking.
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}

func wrapRead(err error) error {
	return transport.WrapRequestError(opGrounded, err)
}
