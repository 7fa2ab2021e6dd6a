// Package runner drives the translator from the joystick reader and delivers
// the resulting commands to the sink.
package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"github.com/soar/freightteleop/backend/internal/gamepad"
	"github.com/soar/freightteleop/backend/internal/sink"
	"github.com/soar/freightteleop/backend/internal/teleop"
)

const (
	retryBackoff = 10 * time.Millisecond
	finalTimeout = time.Second
)

// Config tunes delivery.
type Config struct {
	// SendRetries is how many times a failed send is retried.
	SendRetries int
}

// Batch is the output of one evaluation.
type Batch struct {
	Seq      uint64
	Time     time.Time
	Mode     teleop.Mode
	Commands []teleop.Command
}

// Observer is notified of every non-empty batch. Observe is called on the
// runner goroutine and must not block.
type Observer interface {
	Observe(Batch)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(Batch)

// Observe implements Observer.
func (f ObserverFunc) Observe(b Batch) { f(b) }

// Observers notifies each observer in order.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(b Batch) {
	for _, obs := range o {
		obs.Observe(b)
	}
}

// Stats are the runner's counters.
type Stats struct {
	Snapshots  uint64      `json:"snapshots"`
	Batches    uint64      `json:"batches"`
	Commands   uint64      `json:"commands"`
	SendErrors uint64      `json:"sendErrors"`
	Mode       teleop.Mode `json:"-"`
}

// Runner owns the translator. Snapshots are evaluated one at a time in
// arrival order.
type Runner struct {
	cfg        Config
	translator *teleop.Translator
	snapshots  <-chan gamepad.Snapshot
	sinks      []sink.Sink
	observer   Observer
	logger     golog.Logger
	now        func() time.Time

	cancelCtx context.Context
	cancel    context.CancelFunc
	workers   sync.WaitGroup
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	snapshotCount atomic.Uint64
	batchCount    atomic.Uint64
	commandCount  atomic.Uint64
	sendErrors    atomic.Uint64
	mode          atomic.Uint32
}

// New returns a stopped runner. observer may be nil.
func New(
	cfg Config,
	translator *teleop.Translator,
	snapshots <-chan gamepad.Snapshot,
	s sink.Sink,
	observer Observer,
	logger golog.Logger,
) *Runner {
	if cfg.SendRetries < 0 {
		cfg.SendRetries = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:        cfg,
		translator: translator,
		snapshots:  snapshots,
		sinks:      sink.Split(s),
		observer:   observer,
		logger:     logger,
		now:        time.Now,
		cancelCtx:  ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start launches the processing goroutine.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		r.workers.Add(1)
		utils.ManagedGo(r.loop, func() {
			r.sendFinal()
			close(r.done)
			r.workers.Done()
		})
	})
}

// Done is closed once the loop has exited and the final neutral was sent.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Stop ends processing and waits for the final neutral to go out.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		r.workers.Wait()
	})
}

// Stats returns a copy of the counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Snapshots:  r.snapshotCount.Load(),
		Batches:    r.batchCount.Load(),
		Commands:   r.commandCount.Load(),
		SendErrors: r.sendErrors.Load(),
		Mode:       teleop.Mode(r.mode.Load()),
	}
}

func (r *Runner) loop() {
	for {
		select {
		case <-r.cancelCtx.Done():
			return
		case s, ok := <-r.snapshots:
			if !ok {
				r.logger.Info("snapshot stream closed")
				return
			}
			r.process(s)
		}
	}
}

func (r *Runner) process(s gamepad.Snapshot) {
	r.snapshotCount.Add(1)
	cmds := r.translator.Evaluate(s)
	r.mode.Store(uint32(r.translator.Mode()))
	if len(cmds) == 0 {
		return
	}

	for _, cmd := range cmds {
		r.deliver(r.cancelCtx, cmd)
	}

	seq := r.batchCount.Add(1)
	r.commandCount.Add(uint64(len(cmds)))
	if r.observer != nil {
		r.observer.Observe(Batch{
			Seq:      seq,
			Time:     r.now(),
			Mode:     r.translator.Mode(),
			Commands: cmds,
		})
	}
}

// deliver sends cmd to every sink. Each sink is retried on its own so one
// failing link never repeats a steering event on the others.
func (r *Runner) deliver(ctx context.Context, cmd teleop.Command) bool {
	ok := true
	for _, s := range r.sinks {
		if !r.deliverTo(ctx, s, cmd) {
			ok = false
		}
	}
	return ok
}

// deliverTo sends cmd to s, retrying on failure. It gives up early if ctx
// ends.
func (r *Runner) deliverTo(ctx context.Context, s sink.Sink, cmd teleop.Command) bool {
	for attempt := 0; ; attempt++ {
		err := s.Send(ctx, cmd)
		if err == nil {
			return true
		}
		r.sendErrors.Add(1)
		r.logger.Warnw("send failed", "command", cmd, "attempt", attempt+1, "error", err)
		if attempt >= r.cfg.SendRetries {
			r.logger.Errorw("dropping command", "command", cmd)
			return false
		}
		if !utils.SelectContextOrWait(ctx, retryBackoff) {
			return false
		}
	}
}

// sendFinal stops the base whatever state the translator was left in.
func (r *Runner) sendFinal() {
	ctx, cancel := context.WithTimeout(context.Background(), finalTimeout)
	defer cancel()
	if r.deliver(ctx, teleop.Neutral) {
		r.logger.Debug("final neutral sent")
	}
}
