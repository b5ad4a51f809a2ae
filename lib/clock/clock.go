// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for retry scheduling. Production code
// injects Real; tests inject a Fake and advance it explicitly.
package clock

import "time"

// Clock supplies the current time and timed wakeups.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. A non-positive d delivers immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns the Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
