// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces outgoing requests on the client side. A nil Limiter or one
// built with a non-positive rate never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter allows perMinute requests per minute with a burst of one.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		return &Limiter{}
	}
	every := time.Minute / time.Duration(perMinute)
	return &Limiter{limiter: rate.NewLimiter(rate.Every(every), 1)}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context, op string) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return WrapRequestError(op, err)
	}
	return nil
}
