package clock

import (
	"testing"
	"time"
)

func TestNewStartsStoppedAtZero(t *testing.T) {
	t.Parallel()

	c := New()
	if c.Running() {
		t.Error("new clock should not be running")
	}
	if pos := c.Position(); pos != 0 {
		t.Errorf("Position: got %v, want 0", pos)
	}
}

func TestRunAdvancesPosition(t *testing.T) {
	t.Parallel()

	c := New()
	c.Run()
	time.Sleep(50 * time.Millisecond)

	if pos := c.Position(); pos < 0.04 {
		t.Errorf("Position after 50ms: got %v, want >= 0.04", pos)
	}
}

func TestPauseFreezesPosition(t *testing.T) {
	t.Parallel()

	c := New()
	c.Run()
	time.Sleep(20 * time.Millisecond)
	c.Pause()

	frozen := c.Position()
	time.Sleep(30 * time.Millisecond)
	if pos := c.Position(); pos != frozen {
		t.Errorf("Position moved while paused: got %v, want %v", pos, frozen)
	}
}

func TestSetPositionKeepsRunState(t *testing.T) {
	t.Parallel()

	c := New()
	c.SetPosition(42.5)
	if c.Running() {
		t.Error("SetPosition should not start a stopped clock")
	}
	if pos := c.Position(); pos != 42.5 {
		t.Errorf("Position: got %v, want 42.5", pos)
	}

	c.Run()
	c.SetPosition(10)
	if !c.Running() {
		t.Error("SetPosition should not stop a running clock")
	}
	if pos := c.Position(); pos < 10 || pos > 10.5 {
		t.Errorf("Position after seek while running: got %v, want ~10", pos)
	}
}

func TestResetStopsAndZeroes(t *testing.T) {
	t.Parallel()

	c := New()
	c.SetPosition(5)
	c.Run()
	c.Reset()

	if c.Running() {
		t.Error("clock should not run after Reset")
	}
	if pos := c.Position(); pos != 0 {
		t.Errorf("Position after Reset: got %v, want 0", pos)
	}
}

func TestRunWhileRunningIsNoOp(t *testing.T) {
	t.Parallel()

	c := New()
	c.SetPosition(1)
	c.Run()
	time.Sleep(20 * time.Millisecond)
	c.Run()

	// A second Run must not rewind the reference point.
	if pos := c.Position(); pos < 1.015 {
		t.Errorf("Position: got %v, want >= 1.015", pos)
	}
}
