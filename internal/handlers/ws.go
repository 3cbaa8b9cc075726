// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lovelobby/server/internal/session"
)

// clientFrame is the envelope every inbound message arrives in.
type clientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SessionWSHandler terminates one client connection: it upgrades to
// WebSocket, registers the connection with the orchestrator, runs the write
// pump in a goroutine and the read pump inline, and on exit hands the
// disconnect to the orchestrator so the lobby pauses rather than dies.
func SessionWSHandler(logger *logrus.Logger, orch *session.Orchestrator, allowedOrigin string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origins := []string{"*"}
		if allowedOrigin != "" {
			origins = []string{allowedOrigin}
		}
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lovelobby"},
			OriginPatterns: origins,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lovelobby" {
			c.Close(BadSubprotocolError, "client must speak the lovelobby subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := session.NewConn(uuid.NewString(), cancel)
		orch.Register(conn)
		logger.Infof("client %s connected from %s", conn.ID, r.RemoteAddr)

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, conn, orch, logger)

		orch.HandleDisconnect(conn)
		logger.Infof("client %s cleanup complete", conn.ID)
	}
}

// readPump decodes inbound frames and feeds them to the orchestrator until
// the connection dies.
func readPump(ctx context.Context, c *websocket.Conn, conn *session.Conn, orch *session.Orchestrator, logger *logrus.Logger) {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			switch {
			case closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway:
				logger.Infof("client %s closed connection", conn.ID)
			case strings.Contains(err.Error(), "context canceled"):
			default:
				logger.Warnf("client %s read error: %v", conn.ID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("client %s sent non-text message, ignoring", conn.ID)
			continue
		}

		var frame clientFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			conn.WriteError("Invalid JSON format")
			continue
		}
		if frame.Type == "" {
			conn.WriteError("Missing event type")
			continue
		}
		orch.HandleMessage(conn, frame.Type, frame.Payload)
	}
}

// writePump drains the connection's out-channel onto the wire. It exits when
// the channel closes or the context ends; the non-blocking Write on the
// session side guarantees it can never back-pressure a lobby.
func writePump(ctx context.Context, c *websocket.Conn, conn *session.Conn, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.Out:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("client %s marshal error: %v", conn.ID, err)
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				logger.Warnf("client %s write error: %v", conn.ID, err)
				return
			}
		}
	}
}
