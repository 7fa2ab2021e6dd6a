package sink

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/soar/freightteleop/backend/internal/teleop"
)

// Twist frame layout (56 bytes, little-endian):
//   - 0-23:  linear x, y, z (float64)
//   - 24-47: angular x, y, z (float64)
//   - 48-55: timestamp (uint64, milliseconds since epoch)
const (
	TwistFrameSize    = 56
	SteeringFrameSize = 2
)

// ErrFrameSize indicates a frame whose length does not match its format.
var ErrFrameSize = errors.New("invalid frame size")

// EncodeTwist encodes v with timestamp at.
func EncodeTwist(v teleop.Velocity, at time.Time) []byte {
	buf := make([]byte, TwistFrameSize)
	for i, f := range []float64{
		v.Linear.X, v.Linear.Y, v.Linear.Z,
		v.Angular.X, v.Angular.Y, v.Angular.Z,
	} {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	binary.LittleEndian.PutUint64(buf[48:], uint64(at.UnixMilli()))
	return buf
}

// DecodeTwist is the inverse of EncodeTwist.
func DecodeTwist(data []byte) (teleop.Velocity, time.Time, error) {
	if len(data) != TwistFrameSize {
		return teleop.Velocity{}, time.Time{}, errors.Wrapf(ErrFrameSize, "twist: got %d bytes, want %d", len(data), TwistFrameSize)
	}
	f := func(i int) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	v := teleop.Velocity{
		Linear:  r3.Vector{X: f(0), Y: f(1), Z: f(2)},
		Angular: r3.Vector{X: f(3), Y: f(4), Z: f(5)},
	}
	ms := int64(binary.LittleEndian.Uint64(data[48:]))
	return v, time.UnixMilli(ms), nil
}

// EncodeSteering encodes the signed steering code as an int16.
func EncodeSteering(s teleop.SteeringAdjust) []byte {
	buf := make([]byte, SteeringFrameSize)
	binary.LittleEndian.PutUint16(buf, uint16(s.Code()))
	return buf
}

// DecodeSteering is the inverse of EncodeSteering.
func DecodeSteering(data []byte) (teleop.SteeringAdjust, error) {
	if len(data) != SteeringFrameSize {
		return teleop.SteeringAdjust{}, errors.Wrapf(ErrFrameSize, "steering: got %d bytes, want %d", len(data), SteeringFrameSize)
	}
	return teleop.SteeringFromCode(int16(binary.LittleEndian.Uint16(data))), nil
}
