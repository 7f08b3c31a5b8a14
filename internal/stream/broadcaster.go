package stream

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/regions/internal/region"
)

// Connection timing for subscribers.
const (
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
)

// DefaultSendBuffer is the number of events queued per subscriber before
// new events are dropped for it.
const DefaultSendBuffer = 64

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster manages websocket connections and broadcasts workspace changes.
// Each connection has its own writer goroutine so a slow client never blocks
// the engine publishing the change.
type Broadcaster struct {
	mu          sync.RWMutex
	connections map[*websocket.Conn]*subscriber
	bufferSize  int
	metrics     *Metrics
}

// NewBroadcaster creates a broadcaster. metrics may be nil.
func NewBroadcaster(metrics *Metrics) *Broadcaster {
	return &Broadcaster{
		connections: make(map[*websocket.Conn]*subscriber),
		bufferSize:  DefaultSendBuffer,
		metrics:     metrics,
	}
}

// Subscribe registers a connection and starts its writer.
func (b *Broadcaster) Subscribe(conn *websocket.Conn) {
	s := &subscriber{conn: conn, send: make(chan []byte, b.bufferSize)}

	b.mu.Lock()
	b.connections[conn] = s
	n := len(b.connections)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.SetConnections(n)
	}
	go b.writeLoop(s)
}

// Unsubscribe removes a connection and stops its writer. The caller still
// owns the connection and must close it.
func (b *Broadcaster) Unsubscribe(conn *websocket.Conn) {
	b.mu.Lock()
	s, ok := b.connections[conn]
	if ok {
		delete(b.connections, conn)
		close(s.send)
	}
	n := len(b.connections)
	b.mu.Unlock()

	if ok && b.metrics != nil {
		b.metrics.SetConnections(n)
	}
}

// Broadcast queues a change for every subscriber.
func (b *Broadcaster) Broadcast(c region.Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.connections) == 0 {
		return
	}

	// Serialize event once
	data, err := json.Marshal(c)
	if err != nil {
		slog.Error("failed to marshal change event", "error", err)
		return
	}

	for _, s := range b.connections {
		select {
		case s.send <- data:
		default:
			b.count(OutcomeDropped)
			slog.Warn("change feed subscriber is too slow, dropping event", "change", c.Type)
		}
	}
}

// ConnectionCount returns the number of active subscribers.
func (b *Broadcaster) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.connections)
}

// Close unsubscribes and closes every connection.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.connections))
	for conn, s := range b.connections {
		close(s.send)
		conns = append(conns, conn)
	}
	b.connections = make(map[*websocket.Conn]*subscriber)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.SetConnections(0)
	}
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (b *Broadcaster) writeLoop(s *subscriber) {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-s.send:
			if !ok {
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				b.count(OutcomeFailed)
				slog.Warn("failed to send message to websocket client", "error", err)
				// The read loop notices the broken connection and unsubscribes.
				continue
			}
			b.count(OutcomeSent)
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteWait)); err != nil {
				slog.Debug("websocket ping failed", "error", err)
			}
		}
	}
}

func (b *Broadcaster) count(outcome string) {
	if b.metrics != nil {
		b.metrics.IncMessage(outcome)
	}
}
