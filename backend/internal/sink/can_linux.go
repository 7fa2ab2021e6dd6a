//go:build linux

package sink

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/go-daq/canbus"
	"github.com/pkg/errors"

	"github.com/soar/freightteleop/backend/internal/teleop"
)

// CAN writes commands to a SocketCAN interface.
type CAN struct {
	socket *canbus.Socket
	base   uint32
	logger golog.Logger
}

// NewCAN opens and binds a raw CAN socket on cfg.Interface.
func NewCAN(cfg CANConfig, logger golog.Logger) (*CAN, error) {
	socket, err := canbus.New()
	if err != nil {
		return nil, errors.Wrap(err, "can sink: open socket")
	}
	if err := socket.Bind(cfg.Interface); err != nil {
		_ = socket.Close()
		return nil, errors.Wrapf(err, "can sink: bind %s", cfg.Interface)
	}
	return &CAN{socket: socket, base: cfg.BaseID, logger: logger}, nil
}

// Send implements Sink.
func (s *CAN) Send(_ context.Context, cmd teleop.Command) error {
	payloads := canPayloads(s.base, cmd)
	if payloads == nil {
		return errors.Errorf("can sink: unsupported command %T", cmd)
	}
	for _, p := range payloads {
		frame := canbus.Frame{ID: p.ID, Data: p.Data, Kind: canbus.EFF}
		if _, err := s.socket.Send(frame); err != nil {
			return errors.Wrapf(err, "can sink: send 0x%X", p.ID)
		}
		s.logger.Debugw("frame", "id", p.ID, "data", p.Data)
	}
	return nil
}

// Close releases the socket.
func (s *CAN) Close() error {
	return s.socket.Close()
}
