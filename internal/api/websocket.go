package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sunpath-tracker/backend/internal/dataset"
	"github.com/sunpath-tracker/backend/internal/models"
	"go.uber.org/zap"
)

// WebSocket message types for the series stream
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeSnapshot  = "snapshot"
	MsgTypeLoadStart = "load:start"
	MsgTypePoint     = "point"
	MsgTypeLoadDone  = "load:done"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const (
	clientSendBuffer = 256
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

// WSMessage is the envelope for every message on the series stream.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// PointPayload carries one appended point. Index is its position in the series.
type PointPayload struct {
	Point models.DataPoint `json:"point"`
	Index int              `json:"index"`
}

// LoadStartPayload tells clients to clear their chart.
type LoadStartPayload struct {
	Path   string                `json:"path"`
	Config models.PlaybackConfig `json:"config"`
}

type wsClient struct {
	send chan []byte
}

// Hub fans out series events to connected clients. Broadcast never blocks;
// a client that falls behind is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	log     *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{clients: make(map[*wsClient]struct{}), log: log}
}

func (h *Hub) register() *wsClient {
	c := &wsClient{send: make(chan []byte, clientSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends a message of type msgType to every client.
func (h *Hub) Broadcast(msgType, id string, payload any) {
	data, err := encodeMessage(msgType, id, payload)
	if err != nil {
		h.log.Error("encoding websocket message", zap.String("type", msgType), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("dropping slow websocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// LoadStarted announces a new load.
func (h *Hub) LoadStarted(loadID, path string, cfg models.PlaybackConfig) {
	h.Broadcast(MsgTypeLoadStart, loadID, LoadStartPayload{Path: path, Config: cfg})
}

// PointAdded matches loader.ProgressFunc.
func (h *Hub) PointAdded(loadID string, p models.DataPoint, index int) {
	h.Broadcast(MsgTypePoint, loadID, PointPayload{Point: p, Index: index})
}

// LoadFinished matches loader.DoneFunc.
func (h *Hub) LoadFinished(result models.LoadResult) {
	h.Broadcast(MsgTypeLoadDone, result.LoadID, result)
}

func encodeMessage(msgType, id string, payload any) ([]byte, error) {
	msg := WSMessage{Type: msgType, ID: id, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}

// WebSocketHandler streams the series to browser clients
type WebSocketHandler struct {
	hub      *Hub
	series   *dataset.Series
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWebSocketHandler creates a new series stream handler
func NewWebSocketHandler(hub *Hub, series *dataset.Series, log *zap.Logger) *WebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocketHandler{
		hub:    hub,
		series: series,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		log: log.Named("ws"),
	}
}

// HandleWebSocket upgrades the connection, sends a snapshot of the series and
// then relays live events. Point events whose index is below the snapshot
// length are already contained in it.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	client := wsh.hub.register()
	defer wsh.hub.unregister(client)

	remote := c.RealIP()
	wsh.log.Info("client connected", zap.String("remote", remote), zap.Int("clients", wsh.hub.ClientCount()))
	defer wsh.log.Info("client disconnected", zap.String("remote", remote))

	snapshot, err := encodeMessage(MsgTypeSnapshot, "", wsh.series.Payload())
	if err != nil {
		return err
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, snapshot); err != nil {
		return nil
	}

	pongs := make(chan []byte, 4)
	readDone := make(chan struct{})
	go wsh.readLoop(ws, pongs, readDone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
				return nil
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return nil
			}
		case data := <-pongs:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return nil
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-readDone:
			return nil
		}
	}
}

// readLoop answers client pings until the connection closes. Writes stay on
// the handler goroutine.
func (wsh *WebSocketHandler) readLoop(ws *websocket.Conn, pongs chan<- []byte, done chan<- struct{}) {
	defer close(done)

	ws.SetReadLimit(4 * 1024)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsh.log.Debug("connection error", zap.Error(err))
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))

		var reply []byte
		var err error
		switch msg.Type {
		case MsgTypePing:
			reply, err = encodeMessage(MsgTypePong, msg.ID, nil)
		default:
			reply, err = encodeMessage(MsgTypeError, msg.ID, map[string]string{
				"message": "Unknown message type: " + msg.Type,
				"code":    "INVALID_TYPE",
			})
		}
		if err != nil {
			continue
		}
		select {
		case pongs <- reply:
		default:
			wsh.log.Debug("dropping reply", zap.String("type", msg.Type))
		}
	}
}
