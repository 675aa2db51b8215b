// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport holds the pieces shared by the chat and document
// clients: the chunk callback contract, the prefix-extension accumulator,
// an SSE reader, document validation and HTTP error decoding.
//
// # Streaming Contract
//
// A client invokes ChunkFunc zero or more times. Each accumulated value is a
// prefix extension of the previous one, and the value returned by the client
// on success equals the last accumulated value. Clients never retry.
package transport
