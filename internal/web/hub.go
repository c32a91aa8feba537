package web

import (
	"net/http"
	"strings"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const readDeadline = 60 * time.Second

// Event is pushed to every connected client when the tree changes.
type Event struct {
	Type      string   `json:"type"`
	Files     []string `json:"files,omitempty"`
	Error     string   `json:"error,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// Hub fans reload events out to websocket clients. Clients send nothing
// meaningful; the read side exists for keepalive and close detection.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*websocket.Conn]bool

	broadcast  chan *Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		log:   log,
		conns: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     localOrigin,
		},
		broadcast:  make(chan *Event, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// localOrigin admits same-origin requests and localhost clients only.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "https://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1") ||
		strings.HasPrefix(origin, "https://127.0.0.1")
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn] = true
			total := len(h.conns)
			h.mu.Unlock()
			h.log.Debug("reload client connected", zap.Int("total", total))
		case conn := <-h.unregister:
			h.drop(conn)
		case ev := <-h.broadcast:
			h.sendToAll(ev)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
	total := len(h.conns)
	h.mu.Unlock()
	h.log.Debug("reload client disconnected", zap.Int("total", total))
}

func (h *Hub) sendToAll(ev *Event) {
	payload, err := gojson.Marshal(ev)
	if err != nil {
		h.log.Warn("cannot encode reload event", zap.Error(err))
		return
	}

	h.mu.RLock()
	var failed []*websocket.Conn
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range failed {
		h.drop(conn)
	}
}

// ServeHTTP upgrades the request and keeps the connection registered
// until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}
	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
			conn.Close()
		}
	}()

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) publish(ev *Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// NotifyReload tells clients a new tree version is live.
func (h *Hub) NotifyReload(files []string) {
	h.publish(&Event{Type: "reload", Files: files, Timestamp: time.Now().Unix()})
}

// NotifyError tells clients the last rebuild failed and the previous tree
// is still being served.
func (h *Hub) NotifyError(msg string) {
	h.publish(&Event{Type: "error", Error: msg, Timestamp: time.Now().Unix()})
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close drops every client and stops the hub. Safe to call more than once.
func (h *Hub) Close() {
	select {
	case <-h.done:
		return
	default:
		close(h.done)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
	}
	h.conns = make(map[*websocket.Conn]bool)
}
