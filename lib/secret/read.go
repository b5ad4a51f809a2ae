// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// ReadFromPath reads a secret from a file, or from stdin when path is
// "-". This backs the --token-file flag on Courier binaries. Files are
// read whole; stdin supplies only its first line, so a pipe can carry
// the token without the rest of the stream mattering. Surrounding
// whitespace is trimmed, including the trailing newline every editor
// leaves behind. The secret lands in a protected Buffer and the
// intermediate heap copies are zeroed before returning.
func ReadFromPath(path string) (*Buffer, error) {
	var data []byte

	if path == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("secret: reading stdin: %w", err)
			}
			return nil, fmt.Errorf("secret: stdin is empty")
		}
		data = scanner.Bytes()
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("secret: reading %s: %w", path, err)
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		if path == "-" {
			return nil, fmt.Errorf("secret: stdin is blank")
		}
		return nil, fmt.Errorf("secret: %s holds only whitespace", path)
	}

	// NewFromBytes zeros trimmed, which aliases into data; the second
	// Zero clears the surrounding whitespace bytes as well.
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	return buffer, err
}
