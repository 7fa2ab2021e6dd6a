//go:build !linux

package sink

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/soar/freightteleop/backend/internal/teleop"
)

// CAN is only available on Linux.
type CAN struct{}

// NewCAN always fails off Linux.
func NewCAN(cfg CANConfig, _ golog.Logger) (*CAN, error) {
	return nil, errors.Errorf("can sink: SocketCAN interface %q requires linux", cfg.Interface)
}

// Send implements Sink.
func (*CAN) Send(context.Context, teleop.Command) error { return nil }

// Close implements Sink.
func (*CAN) Close() error { return nil }
