// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the time operations used by polling loops:
// introspection watchers, router startup and shutdown waits, and the
// follower liveness monitor.
//
// Production code injects [Real]. Tests inject [Fake] and drive time
// with [FakeClock.Advance], using [FakeClock.WaitForTimers] to avoid
// racing the goroutine that registers the timer:
//
//	fake := clock.Fake(time.Unix(0, 0))
//	go watcher.Run(ctx, events)
//	fake.WaitForTimers(1)
//	fake.Advance(pollInterval)
package clock
