package teleop

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// CommandKind tags the variant of a Command.
type CommandKind uint8

const (
	KindVelocity CommandKind = iota + 1
	KindSteering
)

func (k CommandKind) String() string {
	switch k {
	case KindVelocity:
		return "velocity"
	case KindSteering:
		return "steering"
	default:
		return fmt.Sprintf("CommandKind(%d)", uint8(k))
	}
}

// Command is one outgoing command: a Velocity or a SteeringAdjust.
type Command interface {
	Kind() CommandKind
}

// Velocity is a complete velocity target, not a delta. Angular X is roll,
// Y is pitch and Z is yaw.
type Velocity struct {
	Linear  r3.Vector
	Angular r3.Vector
}

// Neutral is the all-zero velocity used as a stop and as the idle signal.
var Neutral = Velocity{}

// Kind implements Command.
func (Velocity) Kind() CommandKind { return KindVelocity }

// IsZero reports whether every component is zero.
func (v Velocity) IsZero() bool {
	return v.Linear == (r3.Vector{}) && v.Angular == (r3.Vector{})
}

func (v Velocity) String() string {
	return fmt.Sprintf("Velocity{linear: [%.3f, %.3f, %.3f], angular: [%.3f, %.3f, %.3f]}",
		v.Linear.X, v.Linear.Y, v.Linear.Z,
		v.Angular.X, v.Angular.Y, v.Angular.Z)
}

// Wheel identifies a steering adjustment target. The values are the wire
// codes understood by the steering controller; 0 means no wheel.
type Wheel int16

const (
	WheelNone        Wheel = 0
	WheelFR          Wheel = 1
	WheelFL          Wheel = 2
	WheelBR          Wheel = 3
	WheelBL          Wheel = 4
	WheelAllStraight Wheel = 5
	WheelAllHoriz    Wheel = 6
	WheelAllTwist    Wheel = 7
)

var wheelNames = map[Wheel]string{
	WheelNone:        "none",
	WheelFR:          "front_right",
	WheelFL:          "front_left",
	WheelBR:          "back_right",
	WheelBL:          "back_left",
	WheelAllStraight: "all_straight",
	WheelAllHoriz:    "all_horiz",
	WheelAllTwist:    "all_twist",
}

func (w Wheel) String() string {
	if name, ok := wheelNames[w]; ok {
		return name
	}
	return fmt.Sprintf("Wheel(%d)", int16(w))
}

// AllWheels reports whether w realigns every wheel rather than nudging one.
func (w Wheel) AllWheels() bool {
	return w == WheelAllStraight || w == WheelAllHoriz || w == WheelAllTwist
}

// Direction qualifies a single-wheel nudge.
type Direction int8

const (
	Increase Direction = 1
	Decrease Direction = -1
)

func (d Direction) String() string {
	if d == Decrease {
		return "decrease"
	}
	return "increase"
}

// SteeringAdjust is a one-shot steering event. Direction is meaningful only
// for single-wheel targets; all-wheel targets always carry Increase.
type SteeringAdjust struct {
	Target    Wheel
	Direction Direction
}

// Kind implements Command.
func (SteeringAdjust) Kind() CommandKind { return KindSteering }

// Code returns the signed wire code: the wheel code, negated for a decrease.
func (s SteeringAdjust) Code() int16 {
	if s.Direction == Decrease && !s.Target.AllWheels() {
		return -int16(s.Target)
	}
	return int16(s.Target)
}

// SteeringFromCode is the inverse of Code.
func SteeringFromCode(code int16) SteeringAdjust {
	if code < 0 {
		return SteeringAdjust{Target: Wheel(-code), Direction: Decrease}
	}
	return SteeringAdjust{Target: Wheel(code), Direction: Increase}
}

func (s SteeringAdjust) String() string {
	if s.Target.AllWheels() {
		return fmt.Sprintf("SteeringAdjust{%s}", s.Target)
	}
	return fmt.Sprintf("SteeringAdjust{%s %s}", s.Target, s.Direction)
}
