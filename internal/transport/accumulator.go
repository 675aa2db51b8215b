// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import "strings"

// Accumulator builds streamed text and forwards every non-empty delta to a
// ChunkFunc. Because text only ever grows, each accumulated value it reports
// is a prefix extension of the previous one.
type Accumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	content strings.Builder
	onChunk ChunkFunc
	chunks  int
}

// NewAccumulator creates an accumulator. onChunk may be nil.
func NewAccumulator(onChunk ChunkFunc) *Accumulator {
	return &Accumulator{onChunk: onChunk}
}

// Add appends delta and notifies the callback. Empty deltas are ignored.
func (a *Accumulator) Add(delta string) {
	if delta == "" {
		return
	}
	a.content.WriteString(delta)
	a.chunks++
	if a.onChunk != nil {
		a.onChunk(delta, a.content.String())
	}
}

// Text returns the accumulated text.
func (a *Accumulator) Text() string {
	return a.content.String()
}

// Chunks returns how many non-empty deltas were delivered.
func (a *Accumulator) Chunks() int {
	return a.chunks
}
