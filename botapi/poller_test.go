// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/courier-foundation/courier/lib/clock"
	"github.com/courier-foundation/courier/lib/testutil"
)

// sourceStep is one scripted GetUpdates outcome.
type sourceStep struct {
	batch []Update
	err   error
}

// scriptedSource plays back a fixed sequence of GetUpdates outcomes,
// recording each request. Once the script is exhausted it blocks like
// a real long poll with an empty backlog, returning a transport error
// when the context is cancelled. The called channel signals after
// every invocation so tests can synchronize without polling.
type scriptedSource struct {
	mu     sync.Mutex
	steps  []sourceStep
	calls  []GetUpdatesRequest
	called chan struct{}

	closedIdle atomic.Int64
}

func newScriptedSource(steps ...sourceStep) *scriptedSource {
	return &scriptedSource{
		steps:  steps,
		called: make(chan struct{}, 32),
	}
}

func (s *scriptedSource) GetUpdates(ctx context.Context, request GetUpdatesRequest) ([]Update, error) {
	s.mu.Lock()
	s.calls = append(s.calls, request)
	exhausted := len(s.steps) == 0
	var step sourceStep
	if !exhausted {
		step = s.steps[0]
		s.steps = s.steps[1:]
	}
	s.mu.Unlock()

	s.called <- struct{}{}

	if exhausted {
		<-ctx.Done()
		return nil, &TransportError{Method: "getUpdates", Err: ctx.Err()}
	}
	return step.batch, step.err
}

func (s *scriptedSource) CloseIdleConnections() {
	s.closedIdle.Add(1)
}

// waitForCalls blocks until the source has served n more calls.
func (s *scriptedSource) waitForCalls(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.called:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for poll call %d of %d", i+1, n)
		}
	}
}

func (s *scriptedSource) requests() []GetUpdatesRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GetUpdatesRequest(nil), s.calls...)
}

func messageUpdate(id int64, text string) Update {
	return Update{
		ID:      id,
		Type:    UpdateMessage,
		Message: &Message{MessageID: id, Date: 1700000000, Chat: Chat{ID: 5, Type: ChatPrivate}, Text: &text},
	}
}

// startPoller runs the poller in a goroutine, returning a channel
// carrying Run's result.
func startPoller(t *testing.T, ctx context.Context, p *Poller) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()
	return done
}

func TestNewPollerValidation(t *testing.T) {
	tests := []struct {
		name   string
		config PollerConfig
	}{
		{"missing source", PollerConfig{}},
		{"limit too large", PollerConfig{Source: newScriptedSource(), Limit: 101}},
		{"negative limit", PollerConfig{Source: newScriptedSource(), Limit: -1}},
		{"sub-second timeout", PollerConfig{Source: newScriptedSource(), Timeout: 500 * time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPoller(tt.config); err == nil {
				t.Fatal("expected config error")
			}
		})
	}

	t.Run("valid", func(t *testing.T) {
		p, err := NewPoller(PollerConfig{Source: newScriptedSource(), Offset: 88})
		if err != nil {
			t.Fatalf("NewPoller: %v", err)
		}
		if p.Offset() != 88 {
			t.Errorf("Offset() = %d, want 88", p.Offset())
		}
	})
}

func TestPollerDeliversInOrderAndAdvancesOffset(t *testing.T) {
	source := newScriptedSource(
		sourceStep{batch: []Update{
			messageUpdate(101, "a"),
			messageUpdate(102, "b"),
			messageUpdate(103, "c"),
		}},
		sourceStep{batch: []Update{
			{ID: 104, Type: UpdateUnknown},
		}},
	)
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	p, err := NewPoller(PollerConfig{
		Source:  source,
		Offset:  100,
		Limit:   25,
		Timeout: time.Second,
		Clock:   fakeClock,
	})
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startPoller(t, ctx, p)

	for i, wantID := range []int64{101, 102, 103} {
		update := testutil.RequireReceive(t, p.Updates(), 5*time.Second, "update %d", i)
		if update.ID != wantID {
			t.Fatalf("update %d: ID = %d, want %d", i, update.ID, wantID)
		}
		if update.Type != UpdateMessage {
			t.Fatalf("update %d: Type = %q", i, update.Type)
		}
	}

	// Unrecognized variants flow through; dropping them would stall
	// the cursor on a forward-compatible stream.
	unknown := testutil.RequireReceive(t, p.Updates(), 5*time.Second, "unknown update")
	if unknown.Type != UpdateUnknown || unknown.ID != 104 {
		t.Fatalf("unknown update: %+v", unknown)
	}

	// The third call proves both batches were confirmed.
	source.waitForCalls(t, 3)
	requests := source.requests()
	if requests[0].Offset != 100 {
		t.Errorf("first poll offset = %d, want 100", requests[0].Offset)
	}
	if requests[1].Offset != 104 {
		t.Errorf("second poll offset = %d, want 104", requests[1].Offset)
	}
	if requests[2].Offset != 105 {
		t.Errorf("third poll offset = %d, want 105", requests[2].Offset)
	}
	if requests[0].Limit != 25 || requests[0].Timeout != 1 {
		t.Errorf("request shape = %+v", requests[0])
	}
	if p.Offset() != 105 {
		t.Errorf("Offset() = %d, want 105", p.Offset())
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run return"); err != nil {
		t.Errorf("Run returned %v, want nil on cancellation", err)
	}
	testutil.RequireClosed(t, p.Updates(), time.Second, "updates after cancellation")
	if p.Err() != nil {
		t.Errorf("Err() = %v, want nil", p.Err())
	}
}

func TestPollerEmptyBatchRepollsImmediately(t *testing.T) {
	source := newScriptedSource(
		sourceStep{},
		sourceStep{},
		sourceStep{batch: []Update{messageUpdate(7, "late")}},
	)
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	p, err := NewPoller(PollerConfig{Source: source, Clock: fakeClock})
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startPoller(t, ctx, p)

	// Three polls complete without the clock moving: empty batches
	// must not sleep, the long-poll hold is the idle time.
	update := testutil.RequireReceive(t, p.Updates(), 5*time.Second, "update after empty batches")
	if update.ID != 7 {
		t.Fatalf("update ID = %d, want 7", update.ID)
	}
	if n := fakeClock.PendingCount(); n != 0 {
		t.Errorf("%d timers pending, want 0 (no sleeps between empty polls)", n)
	}

	cancel()
	testutil.RequireReceive(t, done, 5*time.Second, "Run return")
}

func TestPollerHonorsRetryAfterHint(t *testing.T) {
	source := newScriptedSource(
		sourceStep{err: &APIError{Code: 429, Description: "Too Many Requests: retry after 5", RetryAfter: 5, StatusCode: 429}},
		sourceStep{batch: []Update{messageUpdate(201, "after limit")}},
	)
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	p, err := NewPoller(PollerConfig{
		Source:        source,
		Offset:        200,
		RetryFallback: time.Second,
		MaxRetryDelay: time.Second,
		Clock:         fakeClock,
	})
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startPoller(t, ctx, p)

	source.waitForCalls(t, 1)
	fakeClock.WaitForTimers(1)

	// 4s in: the hinted 5s wait is still running. Were the hint
	// ignored, the 1s fallback schedule would have fired long ago.
	fakeClock.Advance(4 * time.Second)
	select {
	case <-source.called:
		t.Fatal("poll retried before the retry_after hint elapsed")
	case <-time.After(100 * time.Millisecond):
	}

	fakeClock.Advance(2 * time.Second)
	source.waitForCalls(t, 1)

	update := testutil.RequireReceive(t, p.Updates(), 5*time.Second, "update after rate limit")
	if update.ID != 201 {
		t.Fatalf("update ID = %d, want 201", update.ID)
	}

	requests := source.requests()
	if requests[0].Offset != 200 || requests[1].Offset != 200 {
		t.Errorf("offsets = %d, %d: a failed poll must not advance the cursor",
			requests[0].Offset, requests[1].Offset)
	}

	cancel()
	testutil.RequireReceive(t, done, 5*time.Second, "Run return")
}

func TestPollerBacksOffOnTransportErrors(t *testing.T) {
	source := newScriptedSource(
		sourceStep{err: &TransportError{Method: "getUpdates", Err: errors.New("connection reset")}},
		sourceStep{err: &TransportError{Method: "getUpdates", Err: errors.New("connection reset")}},
		sourceStep{batch: []Update{messageUpdate(9, "recovered")}},
	)
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	p, err := NewPoller(PollerConfig{
		Source:        source,
		RetryFallback: time.Second,
		MaxRetryDelay: 2 * time.Second,
		Clock:         fakeClock,
	})
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startPoller(t, ctx, p)

	// Each advance clears the randomized backoff's worst case for
	// that attempt.
	source.waitForCalls(t, 1)
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(2 * time.Second)

	source.waitForCalls(t, 1)
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(4 * time.Second)

	source.waitForCalls(t, 1)
	update := testutil.RequireReceive(t, p.Updates(), 5*time.Second, "update after recovery")
	if update.ID != 9 {
		t.Fatalf("update ID = %d, want 9", update.ID)
	}

	if n := source.closedIdle.Load(); n != 2 {
		t.Errorf("CloseIdleConnections called %d times, want once per transport error", n)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run return"); err != nil {
		t.Errorf("Run returned %v, want nil", err)
	}
}

func TestPollerHaltsOnUnauthorized(t *testing.T) {
	source := newScriptedSource(
		sourceStep{err: &APIError{Code: 401, Description: "Unauthorized", StatusCode: 401}},
	)
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	p, err := NewPoller(PollerConfig{Source: source, Clock: fakeClock})
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}

	done := startPoller(t, context.Background(), p)

	runErr := testutil.RequireReceive(t, done, 5*time.Second, "Run return")
	if !IsUnauthorized(runErr) {
		t.Fatalf("Run returned %v, want 401 APIError", runErr)
	}
	testutil.RequireClosed(t, p.Updates(), time.Second, "updates after fatal error")
	if !IsUnauthorized(p.Err()) {
		t.Errorf("Err() = %v, want the fatal error", p.Err())
	}
	if got := len(source.requests()); got != 1 {
		t.Errorf("source saw %d calls, want 1 (no retry on a fatal error)", got)
	}
}

func TestPollerCleanCancelDuringPoll(t *testing.T) {
	source := newScriptedSource() // blocks immediately
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	p, err := NewPoller(PollerConfig{Source: source, Clock: fakeClock})
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startPoller(t, ctx, p)

	source.waitForCalls(t, 1)
	cancel()

	// The in-flight poll fails with a cancellation transport error;
	// that is a clean shutdown, not a poll failure.
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run return"); err != nil {
		t.Errorf("Run returned %v, want nil", err)
	}
	if p.Err() != nil {
		t.Errorf("Err() = %v, want nil", p.Err())
	}
}

func TestPollerRejectsSecondRun(t *testing.T) {
	source := newScriptedSource()
	p, err := NewPoller(PollerConfig{Source: source})
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startPoller(t, ctx, p)
	source.waitForCalls(t, 1)
	cancel()
	testutil.RequireReceive(t, done, 5*time.Second, "first Run return")

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("second Run should be rejected")
	}
}

func TestRecoverableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"encoding error", &EncodingError{Field: "offset", Reason: "must not be negative"}, false},
		{"bad request", &APIError{Code: 400}, false},
		{"unauthorized", &APIError{Code: 401}, false},
		{"forbidden", &APIError{Code: 403}, false},
		{"conflict", &APIError{Code: 409}, false},
		{"rate limited", &APIError{Code: 429, RetryAfter: 3}, true},
		{"server error", &APIError{Code: 500}, true},
		{"bad gateway", &APIError{Code: 502}, true},
		{"transport error", &TransportError{Method: "getUpdates", Err: errors.New("reset")}, true},
		{"decoding error", &DecodingError{StatusCode: 200, Snippet: "x"}, true},
		{"plain error", errors.New("anything else"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recoverable(tt.err); got != tt.want {
				t.Errorf("recoverable(%v) = %v, want %v", tt.err, got, tt.want)
			}
			wrapped := fmt.Errorf("botapi: getUpdates failed: %w", tt.err)
			if got := recoverable(wrapped); got != tt.want {
				t.Errorf("recoverable(wrapped %v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
