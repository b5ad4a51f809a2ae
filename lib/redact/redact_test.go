// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package redact

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

const testToken = "7211895634:AAHVqkNmVzAYOqxQkFiHCDeFmbzzQkPa-rc"

func TestToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare token",
			input: "token " + testToken + " rejected",
			want:  "token <redacted> rejected",
		},
		{
			name:  "token in request URL",
			input: "Post \"https://api.telegram.org/bot" + testToken + "/getMe\": EOF",
			want:  "Post \"https://api.telegram.org/bot<redacted>/getMe\": EOF",
		},
		{
			name:  "file download URL",
			input: "https://api.telegram.org/file/bot" + testToken + "/photos/file_1.jpg",
			want:  "https://api.telegram.org/file/bot<redacted>/photos/file_1.jpg",
		},
		{
			name:  "multiple tokens",
			input: testToken + " and bot" + testToken,
			want:  "<redacted> and bot<redacted>",
		},
		{
			name:  "no token",
			input: "connection refused",
			want:  "connection refused",
		},
		{
			name:  "short secret left alone",
			input: "123:abc is not a token",
			want:  "123:abc is not a token",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Token(tt.input)
			if got != tt.want {
				t.Errorf("Token(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHandlerScrubsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("request to bot" + testToken + " failed")

	output := buf.String()
	if strings.Contains(output, testToken) {
		t.Fatalf("log output contains token: %s", output)
	}
	if !strings.Contains(output, "bot<redacted>") {
		t.Errorf("log output missing redaction marker: %s", output)
	}
}

func TestHandlerScrubsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("request failed",
		"url", "https://api.telegram.org/bot"+testToken+"/getUpdates",
		"attempt", 3,
	)

	output := buf.String()
	if strings.Contains(output, testToken) {
		t.Fatalf("log output contains token: %s", output)
	}
	if !strings.Contains(output, "attempt=3") {
		t.Errorf("non-string attribute mangled: %s", output)
	}
}

func TestHandlerScrubsErrorAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	err := fmt.Errorf("send: %w", errors.New("Post \"https://api.telegram.org/bot"+testToken+"/sendMessage\": timeout"))
	logger.Error("send failed", "error", err)

	output := buf.String()
	if strings.Contains(output, testToken) {
		t.Fatalf("log output contains token: %s", output)
	}
	if !strings.Contains(output, "bot<redacted>") {
		t.Errorf("log output missing redaction marker: %s", output)
	}
}

func TestHandlerScrubsGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("poll cycle",
		slog.Group("request",
			slog.String("url", "https://api.telegram.org/bot"+testToken+"/getUpdates"),
			slog.Int("timeout", 50),
		),
	)

	output := buf.String()
	if strings.Contains(output, testToken) {
		t.Fatalf("log output contains token: %s", output)
	}
	if !strings.Contains(output, "request.timeout=50") {
		t.Errorf("group structure lost: %s", output)
	}
}

func TestHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	bound := logger.With("endpoint", "https://api.telegram.org/bot"+testToken)
	bound.Info("ready")

	output := buf.String()
	if strings.Contains(output, testToken) {
		t.Fatalf("log output contains token: %s", output)
	}
}

func TestHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	grouped := logger.WithGroup("poll")
	grouped.Info("retry", "cause", "Get \"https://api.telegram.org/bot"+testToken+"/getUpdates\": EOF")

	output := buf.String()
	if strings.Contains(output, testToken) {
		t.Fatalf("log output contains token: %s", output)
	}
	if !strings.Contains(output, "poll.cause") {
		t.Errorf("group name lost: %s", output)
	}
}
