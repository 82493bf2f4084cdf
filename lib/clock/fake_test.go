// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	if got, want := clock.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfter(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	clock.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case fired := <-channel:
		if want := epoch.Add(3 * time.Second); !fired.Equal(want) {
			t.Errorf("After delivered %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}

	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount after firing = %d, want 0", count)
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	clock := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-clock.After(d):
		default:
			t.Errorf("After(%v) should be ready immediately", d)
		}
	}
}

func TestFakeClockTicker(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for tick := 1; tick <= 3; tick++ {
		clock.Advance(10 * time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d not delivered", tick)
		}
	}
}

func TestFakeClockTickerDropsWhenFull(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	// Five intervals elapse but the channel holds one tick.
	clock.Advance(5 * time.Second)

	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("expected extra ticks to be dropped")
	default:
	}
}

func TestFakeClockTickerStop(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Second)
	ticker.Stop()

	clock.Advance(time.Minute)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker delivered a tick")
	default:
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount after Stop = %d, want 0", count)
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	registered := make(chan (<-chan time.Time))

	go func() {
		registered <- clock.After(time.Minute)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Minute)

	channel := <-registered
	select {
	case <-channel:
	default:
		t.Fatal("After registered by another goroutine did not fire")
	}
}

func TestFakeClockTickerPanicsOnNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewTicker(0) did not panic")
		}
	}()
	Fake(epoch).NewTicker(0)
}

func TestFakeClockAfterFunc(t *testing.T) {
	clock := Fake(epoch)
	calls := 0
	clock.AfterFunc(2*time.Second, func() { calls++ })

	clock.Advance(time.Second)
	if calls != 0 {
		t.Fatalf("AfterFunc called %d times before its deadline", calls)
	}
	clock.Advance(time.Second)
	if calls != 1 {
		t.Fatalf("AfterFunc called %d times at its deadline, want 1", calls)
	}
	clock.Advance(time.Minute)
	if calls != 1 {
		t.Errorf("AfterFunc called %d times, want exactly 1", calls)
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount after firing = %d, want 0", count)
	}
}

func TestFakeClockAfterFuncStop(t *testing.T) {
	clock := Fake(epoch)
	called := false
	timer := clock.AfterFunc(time.Second, func() { called = true })

	if !timer.Stop() {
		t.Error("Stop on a pending timer returned false")
	}
	if timer.Stop() {
		t.Error("second Stop returned true")
	}
	clock.Advance(time.Second)
	if called {
		t.Error("stopped timer fired")
	}
}

func TestFakeClockAfterFuncReset(t *testing.T) {
	clock := Fake(epoch)
	calls := 0
	timer := clock.AfterFunc(time.Second, func() { calls++ })

	// Pushing the deadline out postpones the call.
	clock.Advance(900 * time.Millisecond)
	if !timer.Reset(time.Second) {
		t.Error("Reset on a pending timer returned false")
	}
	clock.Advance(900 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("AfterFunc fired before the reset deadline")
	}
	clock.Advance(100 * time.Millisecond)
	if calls != 1 {
		t.Fatalf("calls = %d after the reset deadline, want 1", calls)
	}

	// Reset after firing rearms the timer.
	if timer.Reset(time.Second) {
		t.Error("Reset on a fired timer returned true")
	}
	clock.WaitForTimers(1)
	clock.Advance(time.Second)
	if calls != 2 {
		t.Errorf("calls = %d after rearming, want 2", calls)
	}
}
