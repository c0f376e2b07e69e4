// Package ws streams layout frames to websocket clients and routes
// their gesture messages into the interaction controller.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"crmgraph/application/controller"
	"crmgraph/application/view"
	"crmgraph/domain/graph"
	"crmgraph/pkg/errors"
)

const sendBuffer = 16

// Hub fans layout frames out to connected clients. Clients that cannot
// keep up are disconnected rather than allowed to stall the simulation.
type Hub struct {
	view     *view.View
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub bound to one graph view.
func NewHub(v *view.View, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		view:   v,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
	}
}

// Handle upgrades an HTTP request and serves the client until it
// disconnects.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.logger.Info("Websocket client connected", zap.String("remoteAddr", r.RemoteAddr))

	// Send the current state immediately so a new client doesn't wait
	// for the next tick.
	if frame, err := json.Marshal(h.view.Snapshot()); err == nil {
		select {
		case c.send <- frame:
		default:
		}
	}

	go h.writeLoop(c)
	h.readLoop(r.Context(), c)
}

// Broadcast sends a frame to every connected client.
func (h *Hub) Broadcast(frame view.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Failed to encode frame", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Backpressure: drop the client instead of blocking.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
	c.conn.Close()
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	defer h.drop(c)

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Websocket read failed", zap.Error(err))
			}
			return
		}

		var msg gestureMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Warn("Dropping malformed gesture message", zap.Error(err))
			continue
		}
		h.dispatch(ctx, msg)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// gestureMessage is one inbound client message.
type gestureMessage struct {
	Type   string  `json:"type"`
	Target string  `json:"target,omitempty"`
	NodeID string  `json:"node_id,omitempty"`
	EdgeID string  `json:"edge_id,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Mode   string  `json:"mode,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// dispatch routes one gesture to the controller or the view.
func (h *Hub) dispatch(ctx context.Context, msg gestureMessage) {
	ctrl := h.view.Controller()

	switch msg.Type {
	case "click":
		ctrl.Click(h.target(msg))
	case "double_click":
		ctrl.DoubleClick(h.target(msg))
	case "drag_start":
		ctrl.DragStart(graph.NodeID(msg.NodeID), msg.X, msg.Y)
	case "drag_move":
		ctrl.DragMove(graph.NodeID(msg.NodeID), msg.X, msg.Y)
	case "drag_end":
		ctrl.DragEnd(graph.NodeID(msg.NodeID))
	case "set_mode":
		if msg.Mode == "connect" {
			ctrl.SetMode(controller.ModeConnect)
		} else {
			ctrl.SetMode(controller.ModeDrag)
		}
	case "resize":
		h.view.Resize(msg.Width, msg.Height)
	case "commit":
		go func() {
			if _, err := h.view.Commit(context.WithoutCancel(ctx)); err != nil {
				if errors.IsConflict(err) {
					h.logger.Warn("Commit rejected, one already in flight")
					return
				}
				h.logger.Error("Commit failed", zap.Error(err))
			}
		}()
	case "discard":
		h.view.Discard()
	default:
		h.logger.Warn("Unknown gesture type", zap.String("type", msg.Type))
	}
}

func (h *Hub) target(msg gestureMessage) controller.Target {
	switch msg.Target {
	case "node":
		return controller.NodeTarget(graph.NodeID(msg.NodeID))
	case "edge":
		return controller.EdgeTarget(msg.EdgeID)
	default:
		return controller.CanvasTarget()
	}
}
