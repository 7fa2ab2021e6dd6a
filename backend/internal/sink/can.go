package sink

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"

	"github.com/soar/freightteleop/backend/internal/teleop"
)

// CANConfig selects the SocketCAN interface and the frame ID block. Frames
// use extended IDs: BaseID carries linear velocity, BaseID+1 angular
// velocity and BaseID+2 steering codes.
type CANConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Interface string `mapstructure:"interface" yaml:"interface"`
	BaseID    uint32 `mapstructure:"base_id" yaml:"base_id"`
}

const (
	canLinearOffset   = 0
	canAngularOffset  = 1
	canSteeringOffset = 2

	// velocity components travel as int16 thousandths
	canVelocityScale = 1000
)

// canPayload is one frame worth of data before it is bound to a socket type.
type canPayload struct {
	ID   uint32
	Data []byte
}

// canPayloads encodes cmd into the frames that carry it.
func canPayloads(base uint32, cmd teleop.Command) []canPayload {
	switch c := cmd.(type) {
	case teleop.Velocity:
		return []canPayload{
			{ID: base + canLinearOffset, Data: vectorData(c.Linear)},
			{ID: base + canAngularOffset, Data: vectorData(c.Angular)},
		}
	case teleop.SteeringAdjust:
		data := make([]byte, 2)
		binary.LittleEndian.PutUint16(data, uint16(c.Code()))
		return []canPayload{{ID: base + canSteeringOffset, Data: data}}
	}
	return nil
}

func vectorData(v r3.Vector) []byte {
	data := make([]byte, 0, 6)
	for _, f := range []float64{v.X, v.Y, v.Z} {
		data = binary.LittleEndian.AppendUint16(data, uint16(toMilli(f)))
	}
	return data
}

// toMilli scales f to thousandths, clamped to the int16 range.
func toMilli(f float64) int16 {
	m := math.Round(f * canVelocityScale)
	if m > math.MaxInt16 {
		return math.MaxInt16
	}
	if m < math.MinInt16 {
		return math.MinInt16
	}
	return int16(m)
}
