package hub

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/edaniels/golog"

	"github.com/soar/freightteleop/backend/internal/runner"
)

const (
	fullSyncInterval = 5 * time.Second
	batchBuffer      = 64
)

// StatsSource reports the runner counters for status messages.
type StatsSource interface {
	Stats() runner.Stats
}

// StatsFunc adapts a function to a StatsSource.
type StatsFunc func() runner.Stats

// Stats implements StatsSource.
func (f StatsFunc) Stats() runner.Stats { return f() }

// Broadcaster receives batches from the runner and broadcasts them to the hub.
// It implements runner.Observer and StatusRequester.
type Broadcaster struct {
	hub     *Hub
	stats   StatsSource
	batches chan runner.Batch
	seq     atomic.Uint64
	dropped atomic.Uint64
	logger  golog.Logger

	syncInterval time.Duration
}

// NewBroadcaster returns a broadcaster for h. Run must be started for batches
// to be delivered.
func NewBroadcaster(h *Hub, stats StatsSource, logger golog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:          h,
		stats:        stats,
		batches:      make(chan runner.Batch, batchBuffer),
		logger:       logger,
		syncInterval: fullSyncInterval,
	}
}

// Observe queues b for broadcast. It never blocks; batches are dropped when
// the monitor falls behind.
func (b *Broadcaster) Observe(batch runner.Batch) {
	select {
	case b.batches <- batch:
	default:
		b.dropped.Add(1)
	}
}

// Dropped returns how many batches were discarded.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Run is the broadcaster loop. It returns when done is closed.
func (b *Broadcaster) Run(done <-chan struct{}) {
	ticker := time.NewTicker(b.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case batch := <-b.batches:
			b.seq.Store(batch.Seq)
			b.broadcast(NewBatchMessage(batch))

		case <-ticker.C:
			if b.hub.Len() == 0 {
				continue
			}
			b.broadcast(b.status())

		case <-done:
			return
		}
	}
}

// SendStatus sends a full status to a single client.
func (b *Broadcaster) SendStatus(c *Client) {
	data, err := json.Marshal(b.status())
	if err != nil {
		b.logger.Errorw("marshal status", "error", err)
		return
	}
	if !b.hub.SendTo(c, data) {
		b.logger.Debugw("status dropped", "client", c.ID)
	}
}

func (b *Broadcaster) status() *WSMessage {
	var stats runner.Stats
	if b.stats != nil {
		stats = b.stats.Stats()
	}
	return NewStatusMessage(b.seq.Load(), stats, b.hub.Len())
}

func (b *Broadcaster) broadcast(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Errorw("marshal message", "type", msg.Type, "error", err)
		return
	}
	b.hub.Broadcast(data)
}
