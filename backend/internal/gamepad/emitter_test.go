package gamepad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func held(at time.Time) Snapshot {
	return Snapshot{Time: at, Connected: true, Buttons: []bool{true}, Axes: []float64{0.7}}
}

func TestEmitterRecordsAccepted(t *testing.T) {
	e := NewEmitter(1)
	at := time.UnixMilli(1000)

	require.True(t, e.Emit(held(at)))
	assert.Equal(t, held(at), e.Last())

	// full queue: the change is not recorded so the next poll retries it
	moved := held(at.Add(time.Millisecond))
	moved.Axes[0] = -0.7
	assert.False(t, e.Emit(moved))
	assert.Equal(t, held(at), e.Last())
	assert.Equal(t, uint64(1), e.Dropped())
	assert.True(t, e.Due(moved, 0))
}

func TestEmitterDue(t *testing.T) {
	e := NewEmitter(4)
	at := time.UnixMilli(1000)
	require.True(t, e.Emit(held(at)))

	assert.False(t, e.Due(held(at.Add(50*time.Millisecond)), 100*time.Millisecond))
	assert.True(t, e.Due(held(at.Add(100*time.Millisecond)), 100*time.Millisecond))
	assert.False(t, e.Due(held(at.Add(time.Second)), 0))

	idle := Snapshot{Time: at.Add(time.Second), Connected: true, Buttons: []bool{false}, Axes: []float64{0}}
	require.True(t, e.Emit(idle))
	assert.False(t, e.Due(Snapshot{Time: at.Add(2 * time.Second), Connected: true, Buttons: []bool{false}, Axes: []float64{0}}, 100*time.Millisecond))
}

func TestEmitterReleaseRetriedUntilAccepted(t *testing.T) {
	e := NewEmitter(1)
	at := time.UnixMilli(1000)
	require.True(t, e.Emit(held(at)))

	// the consumer lags: the release cannot be queued yet
	e.Release(at.Add(time.Millisecond))
	assert.False(t, e.Flush(at.Add(2*time.Millisecond)))

	// nothing newer may overtake the pending release
	assert.False(t, e.Emit(held(at.Add(3*time.Millisecond))))

	assert.Equal(t, held(at), <-e.C())
	assert.True(t, e.Flush(at.Add(4*time.Millisecond)))

	rel := <-e.C()
	assert.False(t, rel.Active())
	assert.False(t, rel.Connected)
	assert.Len(t, rel.Buttons, 1)
	assert.Len(t, rel.Axes, 1)
	assert.Equal(t, rel, e.Last())

	// released once
	assert.True(t, e.Flush(at.Add(5*time.Millisecond)))
	select {
	case s := <-e.C():
		t.Fatalf("unexpected snapshot %+v", s)
	default:
	}
}

func TestEmitterReleaseGoesBeforeNextSnapshot(t *testing.T) {
	e := NewEmitter(1)
	at := time.UnixMilli(1000)
	require.True(t, e.Emit(held(at)))
	e.Release(at.Add(time.Millisecond))
	<-e.C()

	e2 := held(at.Add(2 * time.Millisecond))
	assert.False(t, e.Emit(e2), "release takes the only slot")
	assert.False(t, (<-e.C()).Active())
	assert.True(t, e.Emit(e2))
	assert.Equal(t, e2, <-e.C())
}

func TestEmitterClose(t *testing.T) {
	e := NewEmitter(1)
	e.Close()
	_, ok := <-e.C()
	assert.False(t, ok)
}
