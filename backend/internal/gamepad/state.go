package gamepad

import (
	"math"
	"time"
)

// Snapshot is one atomic read of every button and axis of the active device.
// Axes are normalized to -1.0..1.0 with up/forward/left positive.
type Snapshot struct {
	Time      time.Time `json:"time"`
	Connected bool      `json:"connected"`
	Name      string    `json:"name,omitempty"`
	Buttons   []bool    `json:"buttons"`
	Axes      []float64 `json:"axes"`
}

// Button reports whether button i is held. Negative or out-of-range indices
// read as released.
func (s Snapshot) Button(i int) bool {
	if i < 0 || i >= len(s.Buttons) {
		return false
	}
	return s.Buttons[i]
}

// Axis returns the value of axis i and whether the index is present in this
// snapshot.
func (s Snapshot) Axis(i int) (float64, bool) {
	if i < 0 || i >= len(s.Axes) {
		return 0, false
	}
	return s.Axes[i], true
}

// Active reports whether any button is held or any axis is off center.
func (s Snapshot) Active() bool {
	for _, b := range s.Buttons {
		if b {
			return true
		}
	}
	for _, a := range s.Axes {
		if a != 0 {
			return true
		}
	}
	return false
}

// Released returns a snapshot of the same shape with every input at rest.
func (s Snapshot) Released(at time.Time) Snapshot {
	return Snapshot{
		Time:    at,
		Buttons: make([]bool, len(s.Buttons)),
		Axes:    make([]float64, len(s.Axes)),
	}
}

const analogThreshold = 0.01

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < analogThreshold
}

// Changed reports whether next differs from prev in connection, shape, any
// button, or any axis by more than the analog threshold. An axis moving to or
// from exactly zero always counts as a change.
func Changed(prev, next Snapshot) bool {
	if prev.Connected != next.Connected || prev.Name != next.Name {
		return true
	}
	if len(prev.Buttons) != len(next.Buttons) || len(prev.Axes) != len(next.Axes) {
		return true
	}
	for i := range prev.Buttons {
		if prev.Buttons[i] != next.Buttons[i] {
			return true
		}
	}
	for i := range prev.Axes {
		if (prev.Axes[i] == 0) != (next.Axes[i] == 0) {
			return true
		}
		if !floatEqual(prev.Axes[i], next.Axes[i]) {
			return true
		}
	}
	return false
}
