// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jessevdk/go-flags"

	"github.com/jeranaias/studymate/internal/config"
	"github.com/jeranaias/studymate/internal/errs"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates a failed request to a backend
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var flagErr *flags.Error
	if errors.As(err, &flagErr) {
		return ExitUsageError
	}
	var usage *UsageError
	if errors.As(err, &usage) || errs.IsValidation(err) {
		return ExitUsageError
	}

	var cfgErrs config.ValidateErrors
	var cfgErr config.ValidationError
	if errs.IsConfiguration(err) || errors.As(err, &cfgErrs) || errors.As(err, &cfgErr) {
		return ExitConfigError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeoutError
	}
	var te *errs.TransportError
	if errors.As(err, &te) {
		if te.Status == http.StatusNotFound {
			return ExitNotFoundError
		}
		return ExitNetworkError
	}
	return ExitGeneralError
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a command invoked with bad arguments.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

func usageErrorf(command, format string, args ...any) error {
	return &UsageError{Command: command, Reason: fmt.Sprintf(format, args...)}
}
