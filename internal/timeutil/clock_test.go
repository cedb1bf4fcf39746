// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package timeutil

import (
	"testing"
	"time"
)

func TestMockClock_SleepAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	c.Sleep(10 * time.Millisecond)
	c.Sleep(15 * time.Millisecond)

	if got := c.Since(start); got != 25*time.Millisecond {
		t.Errorf("Since = %v, want 25ms", got)
	}
	if got := len(c.Sleeps()); got != 2 {
		t.Errorf("len(Sleeps) = %d, want 2", got)
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	c.Advance(time.Second)
	if !c.Now().Equal(start.Add(time.Second)) {
		t.Errorf("Now = %v, want %v", c.Now(), start.Add(time.Second))
	}
	if len(c.Sleeps()) != 0 {
		t.Error("Advance must not record sleeps")
	}
}
