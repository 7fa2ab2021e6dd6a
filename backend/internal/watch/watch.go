// Package watch follows a running monitor from the terminal.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/lxzan/gws"
	"github.com/pkg/errors"

	"github.com/soar/freightteleop/backend/internal/hub"
)

type handler struct {
	gws.BuiltinEventHandler
	out    io.Writer
	logger golog.Logger
	closed chan error
}

func (h *handler) OnOpen(socket *gws.Conn) {
	msg, _ := json.Marshal(hub.ClientMessage{Type: hub.TypeRequestStatus})
	if err := socket.WriteMessage(gws.OpcodeText, msg); err != nil {
		h.logger.Warnw("request status", "error", err)
	}
}

func (h *handler) OnClose(_ *gws.Conn, err error) {
	h.closed <- err
}

func (h *handler) OnMessage(_ *gws.Conn, message *gws.Message) {
	defer message.Close()

	var msg hub.WSMessage
	if err := json.Unmarshal(message.Bytes(), &msg); err != nil {
		h.logger.Debugw("skip message", "error", err)
		return
	}
	fmt.Fprintln(h.out, FormatLine(&msg))
}

// Run connects to the monitor at url and prints one line per message to out
// until ctx is done or the server goes away.
func Run(ctx context.Context, url string, out io.Writer, logger golog.Logger) error {
	h := &handler{out: out, logger: logger, closed: make(chan error, 1)}
	socket, _, err := gws.NewClient(h, &gws.ClientOption{Addr: url})
	if err != nil {
		return errors.Wrapf(err, "connect %s", url)
	}
	logger.Infow("watching", "url", url)
	go socket.ReadLoop()

	select {
	case <-ctx.Done():
		socket.WriteClose(1000, nil)
		select {
		case <-h.closed:
		case <-time.After(time.Second):
		}
		return nil
	case err := <-h.closed:
		if err == nil || isNormalClose(err) {
			return nil
		}
		return errors.Wrap(err, "monitor connection")
	}
}

func isNormalClose(err error) bool {
	var ce *gws.CloseError
	return errors.As(err, &ce) && ce.Code == 1000
}

// FormatLine renders a monitor message as one line of text.
func FormatLine(msg *hub.WSMessage) string {
	at := time.UnixMilli(msg.Timestamp).Format("15:04:05.000")
	switch msg.Type {
	case hub.TypeBatch:
		parts := make([]string, len(msg.Commands))
		for i, c := range msg.Commands {
			parts[i] = formatCommand(c)
		}
		return fmt.Sprintf("%s #%d %-5s %s", at, msg.Seq, msg.Mode, strings.Join(parts, " | "))
	case hub.TypeStatus:
		line := fmt.Sprintf("%s status mode=%s clients=%d", at, msg.Mode, msg.Clients)
		if msg.Stats != nil {
			line += fmt.Sprintf(" snapshots=%d batches=%d commands=%d send_errors=%d",
				msg.Stats.Snapshots, msg.Stats.Batches, msg.Stats.Commands, msg.Stats.SendErrors)
		}
		return line
	default:
		return fmt.Sprintf("%s %s", at, msg.Type)
	}
}

func formatCommand(c hub.CommandView) string {
	if c.Linear != nil && c.Angular != nil {
		return fmt.Sprintf("vel lin=[%.2f %.2f %.2f] ang=[%.2f %.2f %.2f]",
			c.Linear[0], c.Linear[1], c.Linear[2],
			c.Angular[0], c.Angular[1], c.Angular[2])
	}
	return fmt.Sprintf("steer %s (%d)", c.Wheel, c.Code)
}
