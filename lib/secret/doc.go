// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data such
// as bot tokens and API credentials.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, guaranteeing secret material does not persist after release.
//
// Constructors:
//
//   - [New] allocates a zero-filled buffer of a given size
//   - [NewFromBytes] copies into protected memory, zeros the source
//   - [NewFromString] copies a string value (the immutable source
//     string cannot be zeroed; prefer NewFromBytes when possible)
//   - [ReadFromPath] reads a token from a file, or stdin via "-"
//
// Access via [Buffer.Bytes] (slice into the mmap region) or
// [Buffer.String] (heap copy for API boundaries that require a
// string). After Close, any access panics. Close is idempotent.
//
// Depends on golang.org/x/sys/unix. No Courier-internal dependencies.
// The botapi client stores the bot token in a Buffer for the lifetime
// of the client.
package secret
