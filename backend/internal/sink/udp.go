package sink

import (
	"context"
	"net"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/soar/freightteleop/backend/internal/teleop"
)

// UDPConfig holds the destinations of the two command streams. An empty
// address drops that kind of command.
type UDPConfig struct {
	CmdVelAddr         string `mapstructure:"cmd_vel_addr" yaml:"cmd_vel_addr"`
	AdjustSteeringAddr string `mapstructure:"adjust_steering_addr" yaml:"adjust_steering_addr"`
}

// UDP sends velocity commands as twist frames and steering adjustments as
// int16 codes over UDP.
type UDP struct {
	cmdVel *net.UDPConn
	steer  *net.UDPConn
	logger golog.Logger
	now    func() time.Time
}

// NewUDP dials the configured addresses.
func NewUDP(cfg UDPConfig, logger golog.Logger) (*UDP, error) {
	s := &UDP{logger: logger, now: time.Now}
	var err error
	if s.cmdVel, err = dialUDP(cfg.CmdVelAddr); err != nil {
		return nil, errors.Wrap(err, "cmd_vel")
	}
	if s.steer, err = dialUDP(cfg.AdjustSteeringAddr); err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "adjust_steering")
	}
	return s, nil
}

func dialUDP(addr string) (*net.UDPConn, error) {
	if addr == "" {
		return nil, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return net.DialUDP("udp", nil, udpAddr)
}

// Send implements Sink.
func (s *UDP) Send(_ context.Context, cmd teleop.Command) error {
	var (
		conn    *net.UDPConn
		payload []byte
	)
	switch c := cmd.(type) {
	case teleop.Velocity:
		conn, payload = s.cmdVel, EncodeTwist(c, s.now())
	case teleop.SteeringAdjust:
		conn, payload = s.steer, EncodeSteering(c)
	default:
		return errors.Errorf("udp sink: unsupported command %T", cmd)
	}
	if conn == nil {
		return nil
	}
	if _, err := conn.Write(payload); err != nil {
		return errors.Wrapf(err, "udp sink: write %s", cmd.Kind())
	}
	s.logger.Debugw("udp sent", "kind", cmd.Kind(), "bytes", len(payload))
	return nil
}

// Close releases the UDP sockets.
func (s *UDP) Close() error {
	var err error
	for _, c := range []*net.UDPConn{s.cmdVel, s.steer} {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
