package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WebSocket message types of the viewer protocol
const (
	// Client -> Server messages
	MsgTypeAction = "action"
	MsgTypePing   = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeSnapshot  = "snapshot"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 64 * 1024
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSActionPayload runs one viewer action over the socket
type WSActionPayload struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// WebSocket error response
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// the page may be served from a dev server
			return true
		},
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
	}
}

// wsConn serialises writes to one connection.
type wsConn struct {
	ws     *websocket.Conn
	out    chan WSMessage
	logger zerolog.Logger
}

func newWSConn(ws *websocket.Conn, logger zerolog.Logger) *wsConn {
	ws.SetReadLimit(wsMaxMessage)
	ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	return &wsConn{ws: ws, out: make(chan WSMessage, 16), logger: logger}
}

// send queues msg; it is dropped when the writer is gone or far behind.
func (w *wsConn) send(msg WSMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	select {
	case w.out <- msg:
	default:
		w.logger.Warn().Str("type", msg.Type).Msg("websocket send queue full, dropping message")
	}
}

func (w *wsConn) sendError(message, code string, cause error) {
	payload := WSErrorResponse{Message: message, Code: code}
	if cause != nil {
		payload.Details = cause.Error()
	}
	w.send(WSMessage{Type: MsgTypeError, Payload: mustJSON(payload)})
}

// writeLoop owns all writes until done is closed or a write fails.
func (w *wsConn) writeLoop(done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			w.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			w.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-w.out:
			w.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := w.ws.WriteJSON(msg); err != nil {
				w.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			w.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := w.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
