package common

import (
	"testing"
	"time"
)

func TestWatchdog_Timeout(t *testing.T) {
	w := NewWatchdog("test", 50*time.Millisecond, nil)
	done := w.Start()

	select {
	case <-done:
		if !w.Fired() {
			t.Error("Fired() = false after timeout")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Watchdog did not fire")
	}
}

func TestWatchdog_Kick(t *testing.T) {
	w := NewWatchdog("test", 50*time.Millisecond, nil)
	done := w.Start()

	// Kick at 25ms
	time.Sleep(25 * time.Millisecond)
	w.Kick()

	// Should not fire until 25ms + 50ms = 75ms total
	select {
	case <-done:
		t.Fatal("Watchdog fired too early")
	case <-time.After(35 * time.Millisecond):
	}

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Watchdog did not fire eventually")
	}
}

func TestWatchdog_Stop(t *testing.T) {
	w := NewWatchdog("test", 50*time.Millisecond, nil)
	done := w.Start()

	w.Stop()

	select {
	case <-done:
		t.Fatal("Watchdog fired after stop")
	case <-time.After(100 * time.Millisecond):
	}
	if w.Fired() {
		t.Error("Fired() = true after stop")
	}
}

func TestWatchdog_Zero(t *testing.T) {
	w := NewWatchdog("test", 0, nil)
	done := w.Start()
	w.Kick()

	select {
	case <-done:
		t.Fatal("Zero timeout fired")
	case <-time.After(50 * time.Millisecond):
	}
}
