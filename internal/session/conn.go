// internal/session/conn.go
package session

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Conn is a single client's presence in the session layer. The transport
// adapter owns the websocket; the orchestrator only ever talks to the
// out-channel.
type Conn struct {
	ID     string
	Cancel context.CancelFunc
	Out    chan map[string]interface{}
}

// NewConn builds a connection with a buffered out-channel.
func NewConn(id string, cancel context.CancelFunc) *Conn {
	return &Conn{
		ID:     id,
		Cancel: cancel,
		Out:    make(chan map[string]interface{}, 16),
	}
}

// Write pushes a message onto the out-channel non-blockingly. A slow or gone
// client drops the message rather than stalling the lobby's command path.
func (c *Conn) Write(msg map[string]interface{}) {
	select {
	case c.Out <- msg:
	default:
		msgType, _ := msg["type"].(string)
		logrus.Warnf("session: out-channel for conn %s full, dropped %q", c.ID, msgType)
	}
}

// WriteError sends a one-way error message to this connection.
func (c *Conn) WriteError(msg string) {
	c.Write(map[string]interface{}{
		"type":    EventError,
		"message": msg,
	})
}
