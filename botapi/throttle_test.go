// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"testing"
	"time"
)

func TestThrottleDefaults(t *testing.T) {
	throttle := NewThrottle(ThrottleConfig{})
	if got := float64(throttle.global.Limit()); got != 30 {
		t.Errorf("global rate = %v, want 30", got)
	}
	if got := throttle.global.Burst(); got != 30 {
		t.Errorf("global burst = %d, want 30", got)
	}
	if got := float64(throttle.perChatRate); got != 1 {
		t.Errorf("per-chat rate = %v, want 1", got)
	}
	if got := throttle.perChatBurst; got != 1 {
		t.Errorf("per-chat burst = %d, want 1", got)
	}
}

func TestThrottleWaitWithinBurst(t *testing.T) {
	throttle := NewThrottle(ThrottleConfig{
		GlobalPerSecond:  1000,
		PerChatPerSecond: 1000,
		PerChatBurst:     10,
	})

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := throttle.Wait(context.Background(), ChatID(42)); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("five in-burst waits took %v", elapsed)
	}
}

func TestThrottlePerChatBudgetBlocks(t *testing.T) {
	throttle := NewThrottle(ThrottleConfig{
		GlobalPerSecond:  1000,
		PerChatPerSecond: 0.01,
		PerChatBurst:     1,
	})

	if err := throttle.Wait(context.Background(), ChatID(42)); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	// The chat's burst is spent; the next token is ~100s away, so
	// Wait must give up at the context deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := throttle.Wait(ctx, ChatID(42)); err == nil {
		t.Fatal("second Wait in the same chat should exceed the deadline")
	}
}

func TestThrottleChatsAreIndependent(t *testing.T) {
	throttle := NewThrottle(ThrottleConfig{
		GlobalPerSecond:  1000,
		PerChatPerSecond: 0.01,
		PerChatBurst:     1,
	})

	if err := throttle.Wait(context.Background(), ChatID(1)); err != nil {
		t.Fatalf("Wait chat 1: %v", err)
	}
	// Chat 1 is exhausted; chat 2 still has its burst.
	if err := throttle.Wait(context.Background(), ChatID(2)); err != nil {
		t.Fatalf("Wait chat 2: %v", err)
	}
	// Username and numeric references are distinct buckets.
	if err := throttle.Wait(context.Background(), ChatUsername("broadcast")); err != nil {
		t.Fatalf("Wait username chat: %v", err)
	}
}

func TestThrottleZeroChatUsesOnlyGlobalBudget(t *testing.T) {
	throttle := NewThrottle(ThrottleConfig{
		GlobalPerSecond:  1000,
		PerChatPerSecond: 0.01,
		PerChatBurst:     1,
	})

	// Repeated zero-chat waits never touch a per-chat bucket, so
	// nothing blocks.
	for i := 0; i < 5; i++ {
		if err := throttle.Wait(context.Background(), ChatRef{}); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if got := len(throttle.chats); got != 0 {
		t.Errorf("%d per-chat buckets created by zero-chat waits", got)
	}
}

func TestThrottleCancelledContext(t *testing.T) {
	throttle := NewThrottle(ThrottleConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := throttle.Wait(ctx, ChatID(42)); err == nil {
		t.Fatal("Wait with a cancelled context should fail")
	}
}
