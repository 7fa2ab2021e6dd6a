package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/freightteleop/backend/internal/runner"
	"github.com/soar/freightteleop/backend/internal/teleop"
)

type fixedStats runner.Stats

func (f fixedStats) Stats() runner.Stats { return runner.Stats(f) }

func newTestClient(h *Hub, buf int) *Client {
	return &Client{ID: "test", hub: h, send: make(chan []byte, buf), logger: h.logger}
}

func startHub(t *testing.T) (*Hub, chan struct{}) {
	t.Helper()
	h := NewHub(golog.NewTestLogger(t))
	done := make(chan struct{})
	go h.Run(done)
	t.Cleanup(func() { close(done) })
	return h, done
}

// register adds c and checks the hub recorded it.
func register(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	n := h.Len()
	require.True(t, h.Register(c))
	require.Equal(t, n+1, h.Len())
}

func recv(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
	}
	return WSMessage{}
}

func TestHubRegisterBroadcast(t *testing.T) {
	h, _ := startHub(t)
	a := newTestClient(h, 4)
	b := newTestClient(h, 4)
	register(t, h, a)
	register(t, h, b)

	h.Broadcast([]byte("hi"))
	assert.Equal(t, []byte("hi"), <-a.send)
	assert.Equal(t, []byte("hi"), <-b.send)

	h.Unregister(a)
	_, ok := <-a.send
	assert.False(t, ok)
	assert.Equal(t, 1, h.Len())
}

func TestHubDropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	slow := newTestClient(h, 1)
	register(t, h, slow)

	h.Broadcast([]byte("1"))
	h.Broadcast([]byte("2"))

	assert.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStatusToDroppedClient(t *testing.T) {
	h, _ := startHub(t)
	slow := newTestClient(h, 1)
	register(t, h, slow)
	b := NewBroadcaster(h, fixedStats{}, golog.NewTestLogger(t))

	h.Broadcast([]byte("1"))
	h.Broadcast([]byte("2"))
	require.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	// the hub has closed slow.send; a late request must not write to it
	assert.NotPanics(t, func() { b.SendStatus(slow) })
	assert.False(t, h.SendTo(slow, []byte("x")))
}

func TestRegisterAfterStop(t *testing.T) {
	h := NewHub(golog.NewTestLogger(t))
	done := make(chan struct{})
	go h.Run(done)
	close(done)
	<-h.stopped

	c := newTestClient(h, 4)
	assert.False(t, h.Register(c))
	assert.Equal(t, 0, h.Len())

	b := NewBroadcaster(h, fixedStats{}, golog.NewTestLogger(t))
	assert.NotPanics(t, func() { b.SendStatus(c) })
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message %s", msg)
	default:
	}
	h.Unregister(c)
}

func TestSendToFullBuffer(t *testing.T) {
	h, _ := startHub(t)
	c := newTestClient(h, 1)
	register(t, h, c)

	assert.True(t, h.SendTo(c, []byte("a")))
	assert.False(t, h.SendTo(c, []byte("b")))
	assert.Equal(t, []byte("a"), <-c.send)
}

func TestBroadcasterBatch(t *testing.T) {
	h, _ := startHub(t)
	c := newTestClient(h, 8)
	register(t, h, c)

	b := NewBroadcaster(h, nil, golog.NewTestLogger(t))
	done := make(chan struct{})
	defer close(done)
	go b.Run(done)

	b.Observe(runner.Batch{
		Seq:  7,
		Time: time.UnixMilli(1000),
		Mode: teleop.ModeTwist,
		Commands: []teleop.Command{
			teleop.SteeringAdjust{Target: teleop.WheelAllTwist, Direction: teleop.Increase},
			teleop.Velocity{Angular: r3.Vector{Z: 0.3}},
		},
	})

	msg := recv(t, c)
	assert.Equal(t, TypeBatch, msg.Type)
	assert.Equal(t, uint64(7), msg.Seq)
	assert.Equal(t, int64(1000), msg.Timestamp)
	assert.Equal(t, "twist", msg.Mode)
	require.Len(t, msg.Commands, 2)
	assert.Equal(t, "steering", msg.Commands[0].Kind)
	assert.Equal(t, "all_twist", msg.Commands[0].Wheel)
	assert.Equal(t, int16(7), msg.Commands[0].Code)
	assert.Equal(t, "velocity", msg.Commands[1].Kind)
	assert.Equal(t, &[3]float64{0, 0, 0.3}, msg.Commands[1].Angular)
}

func TestBroadcasterStatus(t *testing.T) {
	h, _ := startHub(t)
	c := newTestClient(h, 8)
	register(t, h, c)

	b := NewBroadcaster(h, fixedStats{Snapshots: 10, Commands: 4, Mode: teleop.ModeDrive}, golog.NewTestLogger(t))
	b.SendStatus(c)

	msg := recv(t, c)
	assert.Equal(t, TypeStatus, msg.Type)
	assert.Equal(t, "drive", msg.Mode)
	assert.Equal(t, 1, msg.Clients)
	require.NotNil(t, msg.Stats)
	assert.Equal(t, uint64(10), msg.Stats.Snapshots)
	assert.Equal(t, uint64(4), msg.Stats.Commands)
}

func TestBroadcasterPeriodicStatus(t *testing.T) {
	h, _ := startHub(t)
	c := newTestClient(h, 8)
	register(t, h, c)

	b := NewBroadcaster(h, fixedStats{}, golog.NewTestLogger(t))
	b.syncInterval = 20 * time.Millisecond
	done := make(chan struct{})
	defer close(done)
	go b.Run(done)

	assert.Equal(t, TypeStatus, recv(t, c).Type)
}

func TestObserveNeverBlocks(t *testing.T) {
	h := NewHub(golog.NewTestLogger(t))
	b := NewBroadcaster(h, nil, golog.NewTestLogger(t))

	for i := 0; i < batchBuffer+5; i++ {
		b.Observe(runner.Batch{Seq: uint64(i)})
	}
	assert.Equal(t, uint64(5), b.Dropped())
}

func TestStatsFunc(t *testing.T) {
	calls := 0
	src := StatsFunc(func() runner.Stats {
		calls++
		return runner.Stats{Batches: 4}
	})
	assert.Equal(t, uint64(4), src.Stats().Batches)
	assert.Equal(t, 1, calls)
}
