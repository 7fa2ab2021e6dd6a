package sink

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/soar/freightteleop/backend/internal/teleop"
)

// SerialConfig selects a serial motor controller link.
type SerialConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Port     string `mapstructure:"port" yaml:"port"`
	BaudRate int    `mapstructure:"baud_rate" yaml:"baud_rate"`
}

// Serial writes commands as text lines to a motor controller:
//
//	V <lin x> <lin y> <lin z> <ang x> <ang y> <ang z>\r\n
//	S <code>\r\n
type Serial struct {
	mu     sync.Mutex
	port   io.WriteCloser
	logger golog.Logger
}

// NewSerial opens cfg.Port at 8N1.
func NewSerial(cfg SerialConfig, logger golog.Logger) (*Serial, error) {
	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "serial sink: open %s", cfg.Port)
	}
	logger.Infow("serial port open", "port", cfg.Port, "baud", cfg.BaudRate)
	return newSerial(port, logger), nil
}

func newSerial(port io.WriteCloser, logger golog.Logger) *Serial {
	return &Serial{port: port, logger: logger}
}

// Send implements Sink.
func (s *Serial) Send(_ context.Context, cmd teleop.Command) error {
	line, err := FormatSerial(cmd)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.port, line); err != nil {
		return errors.Wrap(err, "serial sink: write")
	}
	return nil
}

// Close implements Sink.
func (s *Serial) Close() error {
	return s.port.Close()
}

// FormatSerial renders cmd as one protocol line.
func FormatSerial(cmd teleop.Command) (string, error) {
	switch c := cmd.(type) {
	case teleop.Velocity:
		return fmt.Sprintf("V %s %s %s %s %s %s\r\n",
			num(c.Linear.X), num(c.Linear.Y), num(c.Linear.Z),
			num(c.Angular.X), num(c.Angular.Y), num(c.Angular.Z)), nil
	case teleop.SteeringAdjust:
		return "S " + strconv.Itoa(int(c.Code())) + "\r\n", nil
	}
	return "", errors.Errorf("serial sink: unsupported command %T", cmd)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}
