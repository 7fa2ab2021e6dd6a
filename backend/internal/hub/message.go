package hub

import (
	"time"

	"github.com/soar/freightteleop/backend/internal/runner"
	"github.com/soar/freightteleop/backend/internal/teleop"
)

// Message types.
const (
	TypeBatch         = "batch"
	TypeStatus        = "status"
	TypeRequestStatus = "request_status"
)

// WSMessage is a message sent from server to client.
type WSMessage struct {
	Type      string        `json:"type"`
	Seq       uint64        `json:"seq"`
	Timestamp int64         `json:"timestamp"` // unix ms
	Mode      string        `json:"mode"`
	Commands  []CommandView `json:"commands,omitempty"`
	Stats     *runner.Stats `json:"stats,omitempty"`
	Clients   int           `json:"clients,omitempty"`
}

// CommandView is the JSON form of a teleop.Command.
type CommandView struct {
	Kind    string      `json:"kind"`
	Linear  *[3]float64 `json:"linear,omitempty"`
	Angular *[3]float64 `json:"angular,omitempty"`
	Wheel   string      `json:"wheel,omitempty"`
	Code    int16       `json:"code,omitempty"`
}

// NewCommandView converts cmd for display.
func NewCommandView(cmd teleop.Command) CommandView {
	view := CommandView{Kind: cmd.Kind().String()}
	switch c := cmd.(type) {
	case teleop.Velocity:
		view.Linear = &[3]float64{c.Linear.X, c.Linear.Y, c.Linear.Z}
		view.Angular = &[3]float64{c.Angular.X, c.Angular.Y, c.Angular.Z}
	case teleop.SteeringAdjust:
		view.Wheel = c.Target.String()
		view.Code = c.Code()
	}
	return view
}

// NewBatchMessage creates a "batch" message for one evaluation.
func NewBatchMessage(b runner.Batch) *WSMessage {
	views := make([]CommandView, len(b.Commands))
	for i, cmd := range b.Commands {
		views[i] = NewCommandView(cmd)
	}
	return &WSMessage{
		Type:      TypeBatch,
		Seq:       b.Seq,
		Timestamp: b.Time.UnixMilli(),
		Mode:      b.Mode.String(),
		Commands:  views,
	}
}

// NewStatusMessage creates a "status" full sync.
func NewStatusMessage(seq uint64, stats runner.Stats, clients int) *WSMessage {
	return &WSMessage{
		Type:      TypeStatus,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Mode:      stats.Mode.String(),
		Stats:     &stats,
		Clients:   clients,
	}
}

// ClientMessage is a message sent from the client to the server.
type ClientMessage struct {
	Type string `json:"type"`
}
