// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContentSum(t *testing.T) {
	content := []byte("identical bytes")

	t.Run("bytes and disk content hash alike", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "photo.png")
		if err := os.WriteFile(path, content, 0o600); err != nil {
			t.Fatalf("write fixture: %v", err)
		}

		fromBytes, ok := contentSum(FileBytes("photo.png", content))
		if !ok {
			t.Fatal("bytes source should be hashable")
		}
		fromDisk, ok := contentSum(FilePath(path))
		if !ok {
			t.Fatal("path source should be hashable")
		}
		if fromBytes != fromDisk {
			t.Errorf("sums differ: %s vs %s", fromBytes, fromDisk)
		}
	})

	t.Run("different content hashes differently", func(t *testing.T) {
		a, _ := contentSum(FileBytes("a", []byte("one")))
		b, _ := contentSum(FileBytes("b", []byte("two")))
		if a == b {
			t.Error("distinct content produced the same sum")
		}
	})

	t.Run("readers are not hashable", func(t *testing.T) {
		if _, ok := contentSum(FileReader("s", strings.NewReader("x"))); ok {
			t.Error("hashing a reader would consume it")
		}
	})

	t.Run("references carry no content", func(t *testing.T) {
		if _, ok := contentSum(FileID("AgAD-1")); ok {
			t.Error("file_id reference should not be hashable")
		}
		if _, ok := contentSum(FileURL("https://cdn.example/x")); ok {
			t.Error("url reference should not be hashable")
		}
	})

	t.Run("unreadable path", func(t *testing.T) {
		if _, ok := contentSum(FilePath(filepath.Join(t.TempDir(), "absent"))); ok {
			t.Error("missing file should not be hashable")
		}
	})
}

func TestUploadCache(t *testing.T) {
	cache := NewUploadCache()
	if cache.Len() != 0 {
		t.Fatalf("new cache Len = %d", cache.Len())
	}

	sum, _ := contentSum(FileBytes("x", []byte("content")))
	if _, ok := cache.lookup(sum); ok {
		t.Fatal("lookup hit on an empty cache")
	}

	cache.store(sum, "AgAD-42")
	fileID, ok := cache.lookup(sum)
	if !ok || fileID != "AgAD-42" {
		t.Fatalf("lookup = %q, %v", fileID, ok)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}

	cache.store(sum, "AgAD-43")
	fileID, _ = cache.lookup(sum)
	if fileID != "AgAD-43" {
		t.Errorf("overwrite kept %q", fileID)
	}

	cache.remove(sum)
	if _, ok := cache.lookup(sum); ok {
		t.Error("lookup hit after remove")
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d after remove", cache.Len())
	}

	// Removing an absent entry is a no-op.
	cache.remove(sum)
}
