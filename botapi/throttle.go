// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// ThrottleConfig sets client-side send rates. The zero value gets the
// platform's published limits: roughly 30 messages per second overall
// and one per second within a chat.
type ThrottleConfig struct {
	// GlobalPerSecond is the send rate across all chats. Zero means 30.
	GlobalPerSecond float64
	// PerChatPerSecond is the send rate within one chat. Zero means 1.
	PerChatPerSecond float64
	// PerChatBurst is how many sends to one chat may pass without
	// waiting. Zero means 1.
	PerChatBurst int
}

// Throttle paces send-class calls with a global token bucket plus one
// bucket per chat. Wire it into a Bot through BotConfig; a nil
// Throttle there disables pacing entirely.
//
// The per-chat buckets are kept for the life of the Throttle. A bot
// talking to an unbounded set of chats should expect the map to grow
// with the chat population.
type Throttle struct {
	global       *rate.Limiter
	perChatRate  rate.Limit
	perChatBurst int

	mu    sync.Mutex
	chats map[string]*rate.Limiter
}

// NewThrottle returns a Throttle with the given rates.
func NewThrottle(config ThrottleConfig) *Throttle {
	globalPerSecond := config.GlobalPerSecond
	if globalPerSecond == 0 {
		globalPerSecond = 30
	}
	perChatPerSecond := config.PerChatPerSecond
	if perChatPerSecond == 0 {
		perChatPerSecond = 1
	}
	perChatBurst := config.PerChatBurst
	if perChatBurst == 0 {
		perChatBurst = 1
	}

	// The global burst matches one second of budget so a quiet bot can
	// deliver a prompt flurry without violating the sustained rate.
	globalBurst := int(math.Ceil(globalPerSecond))
	if globalBurst < 1 {
		globalBurst = 1
	}

	return &Throttle{
		global:       rate.NewLimiter(rate.Limit(globalPerSecond), globalBurst),
		perChatRate:  rate.Limit(perChatPerSecond),
		perChatBurst: perChatBurst,
		chats:        make(map[string]*rate.Limiter),
	}
}

// Wait blocks until one send to the given chat is within budget, or
// the context is done. A zero ChatRef consumes only global budget.
func (t *Throttle) Wait(ctx context.Context, chat ChatRef) error {
	if err := t.global.Wait(ctx); err != nil {
		return err
	}
	if chat.IsZero() {
		return nil
	}
	return t.chatLimiter(chat).Wait(ctx)
}

func (t *Throttle) chatLimiter(chat ChatRef) *rate.Limiter {
	key := chat.String()
	t.mu.Lock()
	defer t.mu.Unlock()
	limiter, ok := t.chats[key]
	if !ok {
		limiter = rate.NewLimiter(t.perChatRate, t.perChatBurst)
		t.chats[key] = limiter
	}
	return limiter
}
