// Package feed streams applied entity updates to websocket clients, so a
// browser or a debugging tool can watch scripted entities move.
package feed

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/zeusync/jo/internal/core/events/bus"
	"github.com/zeusync/jo/internal/core/observability/log"
)

const (
	FrameHello  = "hello"
	FrameUpdate = "update"
	FrameRemove = "remove"

	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingPeriod   = pongTimeout * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Frame is one websocket message.
type Frame struct {
	Type        string             `json:"type"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Entities    []bus.EntityUpdate `json:"entities,omitempty"`
	Time        time.Time          `json:"time"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to every connected client. It remembers the latest
// update per entity so late joiners get a full picture in their hello frame.
type Hub struct {
	mu          sync.Mutex
	clients     map[*client]struct{}
	latest      map[string]bus.EntityUpdate
	fingerprint string
	closed      bool
	logger      log.Log
}

// NewHub creates a hub. fingerprint identifies the behaviour code in use and
// is echoed in hello frames.
func NewHub(fingerprint uint64, logger log.Log) *Hub {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Hub{
		clients:     make(map[*client]struct{}),
		latest:      make(map[string]bus.EntityUpdate),
		fingerprint: strconv.FormatUint(fingerprint, 16),
		logger:      logger.Named("feed"),
	}
}

// Attach subscribes the hub to entity events on b.
func (h *Hub) Attach(b bus.EventBus) ([]bus.Subscription, error) {
	updated, err := b.Subscribe(bus.EntityUpdated, func(e bus.Event) error {
		if update, ok := e.Data.(bus.EntityUpdate); ok {
			h.Update(update)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	removed, err := b.Subscribe(bus.EntityUnregistered, func(e bus.Event) error {
		if update, ok := e.Data.(bus.EntityUpdate); ok {
			h.Remove(update.ID)
		}
		return nil
	})
	if err != nil {
		_ = updated.Cancel()
		return nil, err
	}
	return []bus.Subscription{updated, removed}, nil
}

// Update records update and broadcasts it.
func (h *Hub) Update(update bus.EntityUpdate) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.latest[update.ID] = update
	h.mu.Unlock()

	h.broadcast(Frame{Type: FrameUpdate, Entities: []bus.EntityUpdate{update}, Time: time.Now()})
}

// Remove forgets id and tells clients it is gone.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	delete(h.latest, id)
	h.mu.Unlock()

	h.broadcast(Frame{Type: FrameRemove, Entities: []bus.EntityUpdate{{ID: id}}, Time: time.Now()})
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", log.String("remote", r.RemoteAddr), log.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if err := h.register(c); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeTimeout))
		_ = conn.Close()
		return
	}
	h.logger.Debug("Feed client connected", log.String("remote", conn.RemoteAddr().String()))
	go h.writeLoop(c)
	h.readLoop(c)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
}

// register queues the hello frame before the client becomes visible to
// broadcast, so it is always the first frame a client sees.
func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}

	ids := make([]string, 0, len(h.latest))
	for id := range h.latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entities := make([]bus.EntityUpdate, 0, len(ids))
	for _, id := range ids {
		entities = append(entities, h.latest[id])
	}

	hello, err := json.Marshal(Frame{
		Type:        FrameHello,
		Fingerprint: h.fingerprint,
		Entities:    entities,
		Time:        time.Now(),
	})
	if err != nil {
		return err
	}
	c.send <- hello
	h.clients[c] = struct{}{}
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast never blocks; a client whose buffer is full is disconnected.
func (h *Hub) broadcast(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Warn("Frame encoding failed", log.String("type", f.Type), log.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Feed client too slow, dropping", log.String("remote", c.conn.RemoteAddr().String()))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop only exists to process control frames and notice disconnects.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Feed client read failed", log.Error(err))
			}
			return
		}
	}
}
