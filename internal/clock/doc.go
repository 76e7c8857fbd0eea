// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for
// testability.
//
// The orchestration loop (internal/loop) accepts a Clock parameter
// instead of calling time.Now, time.After, time.NewTicker,
// time.AfterFunc, or time.Sleep directly, so that tests of the
// poll/dispatch/sleep cycle never depend on wall-clock delays. In
// production, Real() provides standard library behavior. In tests,
// Fake() provides a deterministic clock that advances only when
// Advance is called.
//
// # Wiring Pattern
//
// Add a Clock field to structs that use time:
//
//	type Loop struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	l := &Loop{clock: clock.Real()}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	l := &Loop{clock: c}
//	// ... start the loop goroutine ...
//	c.WaitForTimers(1)         // wait for the poll sleep to register
//	c.Advance(2 * time.Second) // fire it deterministically
//
// # FakeClock Synchronization
//
// When a goroutine calls Sleep, After, NewTicker, or AfterFunc on a
// FakeClock, it registers a pending timer. Use WaitForTimers to block
// until a specific number of timers are registered before calling
// Advance. This eliminates the race between timer registration and
// time advancement that plagues tests relying on real sleeps for
// synchronization.
package clock
