// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errs defines the error taxonomy shared by the studymate core.
//
// Four kinds of failure are distinguished so that hosts can surface them
// differently:
//
//   - ValidationError: bad input rejected locally before any network call
//   - ConfigurationError: missing or placeholder credential, bad base URL
//   - TransportError: network/HTTP failure or a malformed stream
//   - ProtocolError: internal invariant violation (stray mutation)
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError reports input that was rejected before reaching a transport.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation creates a ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// ConfigurationError reports a client that cannot be used as configured.
// Remedy is user-facing guidance suitable for a banner.
type ConfigurationError struct {
	Setting string
	Message string
	Remedy  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Setting, e.Message)
}

// Configuration creates a ConfigurationError.
func Configuration(setting, message, remedy string) error {
	return &ConfigurationError{Setting: setting, Message: message, Remedy: remedy}
}

// =============================================================================
// TRANSPORT
// =============================================================================

// TransportError reports a failed request or an unreadable response stream.
type TransportError struct {
	Op     string // "upload", "grounded chat", "chat", ...
	Status int    // HTTP status, 0 when the request never completed
	Detail string // human-readable detail from the server, if any
	Cause  error
}

func (e *TransportError) Error() string {
	msg := e.Op + " failed"
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Transport wraps cause as a TransportError for op.
func Transport(op string, cause error) error {
	return &TransportError{Op: op, Cause: cause}
}

// HTTPStatus creates a TransportError for a non-2xx response.
func HTTPStatus(op string, status int, detail string) error {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &TransportError{Op: op, Status: status, Detail: detail}
}

// =============================================================================
// PROTOCOL
// =============================================================================

// ProtocolError reports a mutation against a message that is not the
// current in-flight message. It signals a programming defect, not a user
// problem.
type ProtocolError struct {
	Op        string
	MessageID string
	Reason    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s %s: %s", e.Op, e.MessageID, e.Reason)
}

// Protocol creates a ProtocolError.
func Protocol(op, id, reason string) error {
	return &ProtocolError{Op: op, MessageID: id, Reason: reason}
}

// =============================================================================
// CLASSIFIERS
// =============================================================================

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err is or wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsProtocol reports whether err is or wraps a ProtocolError.
func IsProtocol(err error) bool {
	var target *ProtocolError
	return errors.As(err, &target)
}

// AsConfiguration extracts a ConfigurationError from err.
func AsConfiguration(err error) (*ConfigurationError, bool) {
	var target *ConfigurationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
