package display

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/l3itisys/ATC-system/pkg/airspace"
)

// PushMessage is one broadcast unit sent to every connected client.
type PushMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

const (
	MessageTypeAircraftSnapshot = "aircraft.snapshot"
	MessageTypeAlert            = "alert.raised"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
)

// AircraftView is the wire shape the hub and the REST handlers both
// serve for one tracked aircraft.
type AircraftView struct {
	Callsign string            `json:"callsign"`
	Position airspace.Position `json:"position"`
	Speed    float64           `json:"speed"`
	Heading  float64           `json:"heading"`
	Status   string            `json:"status"`
	Quality  int               `json:"quality"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan PushMessage
}

// Hub fans simulator snapshots out to every connected websocket client,
// dropping messages to any client whose send buffer is full rather than
// blocking the broadcaster.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*client
	broadcast  chan PushMessage
	register   chan *client
	unregister chan *client
	logger     zerolog.Logger
}

// NewHub constructs an idle Hub; call Run to start its event loop.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		broadcast:  make(chan PushMessage, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger.With().Str("component", "display_hub").Logger(),
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			h.logger.Info().Str("client_id", c.id).Int("total", len(h.clients)).Msg("client connected")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn().Str("client_id", c.id).Msg("send buffer full, dropping message")
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[string]*client)
}

// PushAircraft broadcasts the current set of reportable aircraft views.
func (h *Hub) PushAircraft(views []AircraftView) {
	payload, err := json.Marshal(views)
	if err != nil {
		return
	}
	h.send(PushMessage{Type: MessageTypeAircraftSnapshot, Payload: payload, Timestamp: time.Now()})
}

// PushAlertText broadcasts a human-readable alert description.
func (h *Hub) PushAlertText(description string) {
	payload, err := json.Marshal(map[string]string{"description": description})
	if err != nil {
		return
	}
	h.send(PushMessage{Type: MessageTypeAlert, Payload: payload, Timestamp: time.Now()})
}

func (h *Hub) send(msg PushMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn().Str("type", msg.Type).Msg("broadcast buffer full")
	}
}

// ClientCount reports the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and pumps hub broadcasts to it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan PushMessage, 64)}
	h.register <- c

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx, h)
}

func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, c.conn, PushMessage{Type: MessageTypePing, Timestamp: time.Now()})
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(ctx context.Context, h *Hub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var msg PushMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			return
		}
	}
}
