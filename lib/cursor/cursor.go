// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package cursor persists the update offset between runs of a polling
// bot. A bot that crashes or restarts resumes from the saved offset
// instead of reprocessing updates the server already delivered.
//
// The checkpoint file is written atomically (write to temporary file,
// fsync, rename) so a crash mid-save never leaves a partial or corrupt
// checkpoint. A missing file loads as the zero cursor, which tells the
// poller to start from the server's current backlog.
package cursor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Cursor is one poll checkpoint.
type Cursor struct {
	// Offset is the next update_id to request, one past the highest
	// update_id processed so far. Zero means no updates have been
	// processed yet.
	Offset int64 `cbor:"offset"`

	// SavedAt is when the checkpoint was written. Diagnostic only; the
	// poller does not discard old checkpoints, since the server
	// expires undelivered updates on its own schedule.
	SavedAt time.Time `cbor:"saved_at"`
}

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Saving the same cursor twice
// produces identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cursor: CBOR encoder initialization failed: " + err.Error())
	}
}

// Store reads and writes checkpoints at a fixed file path.
type Store struct {
	path string
}

// NewStore returns a Store bound to path. The parent directory must
// exist before the first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint. A missing file is not an error: it
// returns the zero Cursor, meaning "start fresh". A corrupt or
// unreadable file is an error so the caller can distinguish "no
// checkpoint" from "checkpoint exists but unusable".
func (s *Store) Load() (Cursor, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Cursor{}, nil
		}
		return Cursor{}, fmt.Errorf("cursor: reading checkpoint %s: %w", s.path, err)
	}

	var c Cursor
	if err := cbor.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("cursor: parsing checkpoint %s: %w", s.path, err)
	}
	return c, nil
}

// Save atomically writes the checkpoint. The file is written to a
// temporary location in the same directory, fsynced for durability,
// and renamed into place. Readers never see a partial write. The file
// is created with mode 0600.
func (s *Store) Save(c Cursor) error {
	data, err := encMode.Marshal(c)
	if err != nil {
		return fmt.Errorf("cursor: marshaling checkpoint: %w", err)
	}

	temporaryPath := s.path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cursor: creating temporary checkpoint: %w", err)
	}

	// Write, sync, close, in that order. If any step fails, remove the
	// temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("cursor: writing temporary checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("cursor: syncing temporary checkpoint: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("cursor: closing temporary checkpoint: %w", err)
	}

	if err := os.Rename(temporaryPath, s.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("cursor: renaming checkpoint into place: %w", err)
	}

	// Sync the parent directory so the rename survives power loss
	// between the rename and the OS flushing directory metadata.
	parentDirectory, err := os.Open(filepath.Dir(s.path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}

// Clear removes the checkpoint file. Idempotent: returns nil when the
// file does not exist.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cursor: removing checkpoint: %w", err)
	}
	return nil
}
