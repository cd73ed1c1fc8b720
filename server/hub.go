package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hupe1980/guesswho/core"
	"github.com/hupe1980/guesswho/logging"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan core.Event
}

// EventHub fans game events out to websocket subscribers keyed by session id.
// It implements core.Sink; Emit never blocks on a slow client, events beyond
// the client's buffer are dropped.
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]bool

	logger logging.Logger
}

// NewEventHub creates an empty hub.
func NewEventHub(logger logging.Logger) *EventHub {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &EventHub{
		clients: make(map[string]map[*client]bool),
		logger:  logger,
	}
}

// Emit implements core.Sink.
func (h *EventHub) Emit(ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[ev.SessionID] {
		select {
		case c.send <- ev:
		default:
			h.logger.Warn("dropping event for slow subscriber",
				"session_id", ev.SessionID, "event_type", string(ev.Type))
		}
	}
}

func (h *EventHub) add(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*client]bool)
	}
	h.clients[sessionID][c] = true
}

func (h *EventHub) remove(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, sessionID)
		}
	}
}

// subscribe upgrades the request and pumps session events to the connection
// until the client disconnects.
func (h *EventHub) subscribe(w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan core.Event, clientSendSize)}
	h.add(sessionID, c)

	go h.writePump(sessionID, c)
	go h.readPump(sessionID, c)

	return nil
}

func (h *EventHub) writePump(sessionID string, c *client) {
	defer func() {
		h.remove(sessionID, c)
		_ = c.conn.Close()
	}()

	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// readPump discards inbound frames so pings and close frames are processed.
func (h *EventHub) readPump(sessionID string, c *client) {
	defer func() {
		h.remove(sessionID, c)
		close(c.send)
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
