// Package sink delivers teleop commands to the platform's motion and
// steering controllers.
package sink

import (
	"context"

	"go.uber.org/multierr"

	"github.com/soar/freightteleop/backend/internal/teleop"
)

// Sink receives commands in emission order. A Velocity is a complete target
// state; a SteeringAdjust is a one-shot event.
type Sink interface {
	Send(ctx context.Context, cmd teleop.Command) error
	Close() error
}

// Func adapts a function to a Sink with a no-op Close.
type Func func(ctx context.Context, cmd teleop.Command) error

// Send implements Sink.
func (f Func) Send(ctx context.Context, cmd teleop.Command) error { return f(ctx, cmd) }

// Close implements Sink.
func (f Func) Close() error { return nil }

// Multi fans every command out to all sinks in order. A failing sink does not
// prevent delivery to the others.
type Multi []Sink

// Send implements Sink.
func (m Multi) Send(ctx context.Context, cmd teleop.Command) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Send(ctx, cmd))
	}
	return err
}

// Split returns the individual sinks behind s, flattening nested Multis, so
// a caller can retry each one on its own.
func Split(s Sink) []Sink {
	m, ok := s.(Multi)
	if !ok {
		return []Sink{s}
	}
	var out []Sink
	for _, member := range m {
		out = append(out, Split(member)...)
	}
	return out
}

// Close implements Sink.
func (m Multi) Close() error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Close())
	}
	return err
}
