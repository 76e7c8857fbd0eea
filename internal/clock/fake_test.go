// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeClockSleepBlocksUntilAdvance(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	done := make(chan struct{})
	go func() {
		c.Sleep(5 * time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	select {
	case <-done:
		t.Fatal("Sleep returned before Advance")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeClockAfterFiresAtDeadlineNotBefore(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ch := c.After(10 * time.Second)

	c.Advance(9 * time.Second)
	select {
	case <-ch:
		t.Fatal("channel fired before deadline")
	default:
	}

	c.Advance(1 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("channel did not fire at deadline")
	}
}

func TestFakeClockNonPositiveDurationFiresImmediately(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ch := c.After(0)
	select {
	case <-ch:
	default:
		t.Fatal("non-positive After did not fire immediately")
	}
}

func TestFakeClockTickerFiresOncePerInterval(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ticker := c.NewTicker(1 * time.Second)
	defer ticker.Stop()

	c.Advance(3*time.Second + 500*time.Millisecond)

	fired := 0
drain:
	for {
		select {
		case <-ticker.C:
			fired++
		default:
			break drain
		}
	}
	if fired == 0 {
		t.Fatal("ticker never fired across three intervals")
	}
}

func TestFakeClockTickerStopPreventsFutureTicks(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ticker := c.NewTicker(1 * time.Second)
	ticker.Stop()

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeClockAfterFuncInvokesCallbackSynchronously(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var fired bool
	c.AfterFunc(5*time.Second, func() { fired = true })

	c.Advance(5 * time.Second)
	if !fired {
		t.Fatal("AfterFunc callback did not run")
	}
}

func TestFakeClockAfterFuncStopPreventsCallback(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var fired bool
	timer := c.AfterFunc(5*time.Second, func() { fired = true })
	if !timer.Stop() {
		t.Fatal("Stop on a pending timer should return true")
	}

	c.Advance(10 * time.Second)
	if fired {
		t.Fatal("stopped AfterFunc callback ran anyway")
	}
}

func TestFakeClockPendingCountTracksActiveWaiters(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if c.PendingCount() != 0 {
		t.Fatalf("expected 0 pending, got %d", c.PendingCount())
	}

	c.After(1 * time.Second)
	c.After(2 * time.Second)
	if c.PendingCount() != 2 {
		t.Fatalf("expected 2 pending, got %d", c.PendingCount())
	}

	c.Advance(1 * time.Second)
	if c.PendingCount() != 1 {
		t.Fatalf("expected 1 pending after first fires, got %d", c.PendingCount())
	}
}
