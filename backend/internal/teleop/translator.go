// Package teleop turns joystick snapshots into velocity and steering
// commands for the wheeled base.
package teleop

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/soar/freightteleop/backend/internal/binding"
	"github.com/soar/freightteleop/backend/internal/gamepad"
)

// Mode is the resolved enable condition of one evaluation.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeDrive
	ModeHoriz
	ModeTwist
)

func (m Mode) String() string {
	switch m {
	case ModeDrive:
		return "drive"
	case ModeHoriz:
		return "horiz"
	case ModeTwist:
		return "twist"
	default:
		return "none"
	}
}

// modeOrder is the fixed dispatch priority.
var modeOrder = []struct {
	mode    Mode
	binding binding.Mode
	realign Wheel
}{
	{ModeDrive, binding.Drive, WheelAllStraight},
	{ModeHoriz, binding.Horiz, WheelAllHoriz},
	{ModeTwist, binding.Twist, WheelAllTwist},
}

// steeringThreshold is how far the delta axis must be pushed to qualify a
// nudge.
const steeringThreshold = 0.5

// Translator holds the only mutable teleop state. It is not safe for
// concurrent use; feed it snapshots from one goroutine, in arrival order.
type Translator struct {
	table  *binding.Table
	logger golog.Logger

	active      Mode
	neutralSent bool
}

// NewTranslator returns a translator in the idle state.
func NewTranslator(table *binding.Table, logger golog.Logger) *Translator {
	return &Translator{table: table, logger: logger}
}

// Mode returns the active mode. An idle evaluation resets it to ModeNone.
func (t *Translator) Mode() Mode {
	return t.active
}

// Evaluate translates one snapshot into the commands to send, in order.
func (t *Translator) Evaluate(s gamepad.Snapshot) []Command {
	for _, entry := range modeOrder {
		idx, ok := t.table.EnableButtonIndex(entry.binding)
		if !ok || !s.Button(idx) {
			continue
		}
		var out []Command
		if t.active != entry.mode {
			t.logger.Debugw("mode change", "from", t.active, "to", entry.mode)
			out = append(out, SteeringAdjust{Target: entry.realign, Direction: Increase}, Neutral)
			t.neutralSent = true
			t.active = entry.mode
		}
		out = append(out, t.velocity(s, entry.binding))
		t.neutralSent = false
		return out
	}

	if cmd, ok := t.nudge(s, t.table.AdjustFrontIndex, WheelFL, WheelFR); ok {
		return cmd
	}
	if cmd, ok := t.nudge(s, t.table.AdjustBackIndex, WheelBL, WheelBR); ok {
		return cmd
	}

	if t.active != ModeNone {
		t.logger.Debugw("mode change", "from", t.active, "to", ModeNone)
		t.active = ModeNone
	}
	if t.neutralSent {
		return nil
	}
	t.neutralSent = true
	return []Command{Neutral}
}

// nudge handles one adjust axis. ok is false when the axis is unbound or
// centered and evaluation should fall through to the next branch.
func (t *Translator) nudge(
	s gamepad.Snapshot,
	index func() (int, bool),
	positive, negative Wheel,
) ([]Command, bool) {
	idx, ok := index()
	if !ok {
		return nil, false
	}
	v, ok := s.Axis(idx)
	if !ok || v == 0 {
		return nil, false
	}

	wheel := negative
	if v > 0 {
		wheel = positive
	}
	adj, ok := t.qualify(s, wheel)
	if !ok {
		return nil, true
	}
	return []Command{adj}, true
}

// qualify decides the direction of a single-wheel nudge from the steering
// delta axis. ok is false when the delta axis is inside the threshold.
func (t *Translator) qualify(s gamepad.Snapshot, wheel Wheel) (SteeringAdjust, bool) {
	var d float64
	if idx, ok := t.table.SteeringDeltaIndex(); ok {
		d, _ = s.Axis(idx)
	}
	switch {
	case d < -steeringThreshold:
		return SteeringAdjust{Target: wheel, Direction: Decrease}, true
	case d > steeringThreshold:
		return SteeringAdjust{Target: wheel, Direction: Increase}, true
	default:
		return SteeringAdjust{}, false
	}
}

func (t *Translator) velocity(s gamepad.Snapshot, m binding.Mode) Velocity {
	return Velocity{
		Linear: r3.Vector{
			X: t.value(s, m, binding.X),
			Y: t.value(s, m, binding.Y),
			Z: t.value(s, m, binding.Z),
		},
		Angular: r3.Vector{
			X: t.value(s, m, binding.Roll),
			Y: t.value(s, m, binding.Pitch),
			Z: t.value(s, m, binding.Yaw),
		},
	}
}

func (t *Translator) value(s gamepad.Snapshot, m binding.Mode, ch binding.Channel) float64 {
	idx, ok := t.table.AxisIndex(ch)
	if !ok {
		return 0
	}
	v, ok := s.Axis(idx)
	if !ok {
		return 0
	}
	return v * t.table.Scale(m, ch)
}
