// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/studymate/internal/errs"
)

// errorBody covers the error shapes the backends return: FastAPI
// {"detail": ...} and OpenAI-style {"error": {"message": ...}}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ResponseError converts a non-2xx response into a TransportError, using the
// server's human-readable detail when it provides one.
func ResponseError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return errs.HTTPStatus(op, resp.StatusCode, ErrorDetail(body))
}

// ErrorDetail extracts a human-readable message from an error body.
func ErrorDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return strings.TrimSpace(string(body))
	}
	if len(eb.Detail) > 0 {
		var s string
		if json.Unmarshal(eb.Detail, &s) == nil {
			return s
		}
		// FastAPI validation errors carry a list of objects
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(eb.Detail, &items) == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				msgs = append(msgs, it.Msg)
			}
			return strings.Join(msgs, "; ")
		}
		return string(eb.Detail)
	}
	if eb.Error.Message != "" {
		return eb.Error.Message
	}
	return eb.Message
}

// WrapRequestError classifies a failed round trip. Context cancellation is
// still reported as a TransportError, with the context error as its cause.
func WrapRequestError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errs.IsTransport(err) || errs.IsConfiguration(err) || errs.IsValidation(err) {
		return err
	}
	return errs.Transport(op, err)
}

// IsCanceled reports whether err stems from the caller aborting.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
