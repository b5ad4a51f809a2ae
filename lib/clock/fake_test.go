// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	c := Fake(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Errorf("Now() = %v, want %v", got, epoch)
	}

	c.Advance(5 * time.Second)
	want := epoch.Add(5 * time.Second)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeAfterFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	channel := c.After(3 * time.Second)

	c.Advance(2 * time.Second)
	select {
	case fired := <-channel:
		t.Fatalf("fired early at %v", fired)
	default:
	}

	c.Advance(time.Second)
	select {
	case fired := <-channel:
		want := epoch.Add(3 * time.Second)
		if !fired.Equal(want) {
			t.Errorf("fired at %v, want %v", fired, want)
		}
	default:
		t.Fatal("did not fire at deadline")
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	c := Fake(epoch)

	select {
	case <-c.After(0):
	default:
		t.Error("After(0) did not deliver immediately")
	}
	select {
	case <-c.After(-time.Second):
	default:
		t.Error("After(negative) did not deliver immediately")
	}
	if n := c.PendingCount(); n != 0 {
		t.Errorf("PendingCount() = %d after immediate deliveries", n)
	}
}

func TestFakeAdvanceDeliversInDeadlineOrder(t *testing.T) {
	c := Fake(epoch)

	// Register out of order; one Advance spans all three deadlines.
	late := c.After(3 * time.Second)
	early := c.After(1 * time.Second)
	middle := c.After(2 * time.Second)

	c.Advance(5 * time.Second)

	target := epoch.Add(5 * time.Second)
	for name, channel := range map[string]<-chan time.Time{
		"early": early, "middle": middle, "late": late,
	} {
		select {
		case fired := <-channel:
			if !fired.Equal(target) {
				t.Errorf("%s fired at %v, want %v", name, fired, target)
			}
		default:
			t.Errorf("%s did not fire", name)
		}
	}
}

func TestFakePendingCount(t *testing.T) {
	c := Fake(epoch)
	if n := c.PendingCount(); n != 0 {
		t.Fatalf("fresh clock PendingCount() = %d", n)
	}

	c.After(time.Second)
	c.After(2 * time.Second)
	if n := c.PendingCount(); n != 2 {
		t.Errorf("PendingCount() = %d, want 2", n)
	}

	c.Advance(time.Second)
	if n := c.PendingCount(); n != 1 {
		t.Errorf("PendingCount() after partial advance = %d, want 1", n)
	}

	c.Advance(time.Second)
	if n := c.PendingCount(); n != 0 {
		t.Errorf("PendingCount() after full advance = %d, want 0", n)
	}
}

func TestFakeWaitForTimersSynchronizes(t *testing.T) {
	c := Fake(epoch)

	var woke atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-c.After(10 * time.Second)
		woke.Store(true)
	}()

	// Blocks until the goroutine has registered its wakeup; Advance
	// after this cannot miss it.
	c.WaitForTimers(1)
	if woke.Load() {
		t.Fatal("goroutine woke before the clock advanced")
	}

	c.Advance(10 * time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("goroutine did not wake after Advance")
	}
	if !woke.Load() {
		t.Error("wakeup flag not set")
	}
}

func TestFakeSequentialWaits(t *testing.T) {
	// A retry loop sleeps repeatedly; WaitForTimers must count only
	// wakeups that have not yet been delivered.
	c := Fake(epoch)

	ready := make(chan struct{})
	go func() {
		<-c.After(time.Second)
		ready <- struct{}{}
		<-c.After(time.Second)
		ready <- struct{}{}
	}()

	c.WaitForTimers(1)
	c.Advance(time.Second)
	<-ready

	c.WaitForTimers(1)
	c.Advance(time.Second)
	<-ready
}

func TestRealClockBasics(t *testing.T) {
	c := Real()

	before := time.Now()
	now := c.Now()
	if now.Before(before.Add(-time.Minute)) || now.After(before.Add(time.Minute)) {
		t.Errorf("Real Now() = %v, far from %v", now, before)
	}

	select {
	case <-c.After(time.Millisecond):
	case <-time.After(5 * time.Second):
		t.Fatal("Real After(1ms) did not deliver")
	}
}
