// Package clock implements the virtual game clock.
//
// The clock is decoupled from wall time: speed is measured in real seconds
// per game minute, so speed 2.0 means one game minute elapses every two real
// seconds. Speed and time changes re-anchor atomically so concurrent readers
// never observe a discontinuity.
package clock

import (
	"errors"
	"sync"
	"time"
)

// DefaultSpeed is real seconds per game minute.
const DefaultSpeed = 2.0

// DefaultStartTime is the opening moment of a fresh game.
var DefaultStartTime = time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC)

// ErrInvalidSpeed is returned for non-positive speed factors.
var ErrInvalidSpeed = errors.New("clock speed must be positive")

// GameClock converts elapsed real time into virtual game time.
type GameClock struct {
	mu sync.RWMutex

	speed       float64   // real seconds per game minute
	virtualBase time.Time // game time at the anchor
	realBase    time.Time // wall time at the anchor
	running     bool
}

// New creates a stopped clock anchored at the given game time.
func New(start time.Time, speed float64) *GameClock {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	if start.IsZero() {
		start = DefaultStartTime
	}
	return &GameClock{
		speed:       speed,
		virtualBase: start,
	}
}

// Start begins advancing virtual time from the current anchor.
func (c *GameClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.realBase = time.Now()
	c.running = true
}

// Stop freezes the clock. The frozen moment becomes the new anchor.
func (c *GameClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.virtualBase = c.nowLocked()
	c.running = false
}

// Now returns the current virtual game time.
func (c *GameClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nowLocked()
}

// nowLocked computes virtual time; callers must hold at least a read lock.
func (c *GameClock) nowLocked() time.Time {
	if !c.running {
		return c.virtualBase
	}
	elapsedReal := time.Since(c.realBase).Seconds()
	gameMinutes := elapsedReal / c.speed
	return c.virtualBase.Add(time.Duration(gameMinutes * float64(time.Minute)))
}

// Speed returns the current speed factor.
func (c *GameClock) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// Running reports whether the clock is advancing.
func (c *GameClock) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// SetSpeed changes the speed factor, re-anchoring so the current virtual
// moment is preserved across the change.
func (c *GameClock) SetSpeed(speed float64) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.virtualBase = c.nowLocked()
	c.realBase = time.Now()
	c.speed = speed
	return nil
}

// SetTime jumps the virtual clock to an arbitrary moment.
func (c *GameClock) SetTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.virtualBase = t
	c.realBase = time.Now()
}
