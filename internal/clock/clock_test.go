package clock

import (
	"testing"
	"time"
)

func TestStoppedClockIsFrozen(t *testing.T) {
	start := time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC)
	c := New(start, 2.0)

	first := c.Now()
	time.Sleep(20 * time.Millisecond)
	second := c.Now()

	if !first.Equal(second) {
		t.Errorf("Stopped clock advanced: %v -> %v", first, second)
	}
	if !first.Equal(start) {
		t.Errorf("Expected frozen time %v, got %v", start, first)
	}
}

func TestRunningClockAdvances(t *testing.T) {
	c := New(DefaultStartTime, 0.01) // 10ms real per game minute
	c.Start()

	time.Sleep(50 * time.Millisecond)
	elapsed := c.Now().Sub(DefaultStartTime)

	if elapsed < time.Minute {
		t.Errorf("Expected at least one game minute to pass, got %v", elapsed)
	}
}

func TestStopFreezesAnchor(t *testing.T) {
	c := New(DefaultStartTime, 0.01)
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()

	frozen := c.Now()
	time.Sleep(30 * time.Millisecond)
	if !c.Now().Equal(frozen) {
		t.Error("Clock kept advancing after Stop")
	}
	if !frozen.After(DefaultStartTime) {
		t.Error("Stop lost the time accumulated while running")
	}
}

func TestSetSpeedRejectsNonPositive(t *testing.T) {
	c := New(DefaultStartTime, 2.0)

	if err := c.SetSpeed(0); err != ErrInvalidSpeed {
		t.Errorf("Expected ErrInvalidSpeed for 0, got %v", err)
	}
	if err := c.SetSpeed(-1); err != ErrInvalidSpeed {
		t.Errorf("Expected ErrInvalidSpeed for -1, got %v", err)
	}
	if c.Speed() != 2.0 {
		t.Errorf("Rejected SetSpeed mutated speed to %v", c.Speed())
	}
}

func TestSetSpeedPreservesCurrentMoment(t *testing.T) {
	c := New(DefaultStartTime, 0.01)
	c.Start()
	time.Sleep(30 * time.Millisecond)

	before := c.Now()
	if err := c.SetSpeed(100); err != nil {
		t.Fatalf("SetSpeed failed: %v", err)
	}
	after := c.Now()

	// Re-anchoring must not jump the clock backward or far forward.
	if after.Before(before) {
		t.Errorf("Clock moved backward across SetSpeed: %v -> %v", before, after)
	}
	if after.Sub(before) > time.Minute {
		t.Errorf("Clock jumped %v across SetSpeed", after.Sub(before))
	}
}

func TestSetTimeJumps(t *testing.T) {
	c := New(DefaultStartTime, 2.0)
	target := time.Date(2023, 10, 8, 12, 0, 0, 0, time.UTC)

	c.SetTime(target)
	if !c.Now().Equal(target) {
		t.Errorf("Expected %v after SetTime, got %v", target, c.Now())
	}
}

func TestZeroValueDefaultsApplied(t *testing.T) {
	c := New(time.Time{}, 0)

	if c.Speed() != DefaultSpeed {
		t.Errorf("Expected default speed %v, got %v", DefaultSpeed, c.Speed())
	}
	if !c.Now().Equal(DefaultStartTime) {
		t.Errorf("Expected default start time, got %v", c.Now())
	}
}
