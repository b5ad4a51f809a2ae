// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/zeebo/blake3"
)

// UploadCache remembers the server-assigned file_id for content the
// bot has already uploaded, keyed by a BLAKE3 hash of the content.
// Resending the same photo or document then costs one small form
// request instead of a full upload. Entries live for the process
// lifetime; the server may expire a file_id, which the sender handles
// by falling back to a fresh upload.
//
// Safe for concurrent use.
type UploadCache struct {
	mu  sync.Mutex
	ids map[string]string
}

// NewUploadCache returns an empty cache.
func NewUploadCache() *UploadCache {
	return &UploadCache{ids: make(map[string]string)}
}

func (c *UploadCache) lookup(sum string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fileID, ok := c.ids[sum]
	return fileID, ok
}

func (c *UploadCache) store(sum, fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[sum] = fileID
}

func (c *UploadCache) remove(sum string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, sum)
}

// Len returns the number of cached uploads.
func (c *UploadCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

// contentSum hashes an InputFile's content when that is possible
// without consuming it: bytes and paths qualify, readers do not
// (hashing would drain them), references carry no content.
func contentSum(f InputFile) (string, bool) {
	switch {
	case f.data != nil:
		sum := blake3.Sum256(f.data)
		return hex.EncodeToString(sum[:]), true
	case f.path != "":
		file, err := os.Open(f.path)
		if err != nil {
			return "", false
		}
		defer file.Close()
		hasher := blake3.New()
		if _, err := io.Copy(hasher, file); err != nil {
			return "", false
		}
		return hex.EncodeToString(hasher.Sum(nil)), true
	}
	return "", false
}
