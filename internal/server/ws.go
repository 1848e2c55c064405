package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/pipeline"
)

const (
	clientBuffer = 16
	writeWait    = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is the message pushed to WebSocket clients for every frame that
// produced at least one gesture.
type Event struct {
	Seq       uint64             `json:"seq"`
	Timestamp int64              `json:"timestamp"`
	Outcomes  []pipeline.Outcome `json:"outcomes"`
	Commands  []string           `json:"commands,omitempty"`
}

// Hub broadcasts pipeline reports to WebSocket clients. It implements
// pipeline.Observer. Slow clients miss events rather than stalling the
// pipeline.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan []byte)}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Observe broadcasts reports that contain a gesture.
func (h *Hub) Observe(_ context.Context, r pipeline.Report) {
	if h.Clients() == 0 || !hasGesture(r) {
		return
	}

	ev := Event{
		Seq:       r.Seq,
		Timestamp: r.Timestamp.UnixMilli(),
		Outcomes:  r.Outcomes,
	}
	for _, c := range r.Commands() {
		ev.Commands = append(ev.Commands, c.String())
	}

	msg, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Warn("Cannot encode event.")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func hasGesture(r pipeline.Report) bool {
	for _, o := range r.Outcomes {
		if !o.Event.None() {
			return true
		}
	}
	return false
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("Websocket upgrade failed.")
		return
	}

	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	done := make(chan struct{})
	go h.write(conn, ch, done)

	// Keep the connection open until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	close(done)
	conn.Close()
}

func (h *Hub) write(conn *websocket.Conn, ch <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				return
			}
		}
	}
}
