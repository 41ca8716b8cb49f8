// Package realtime implements the Realtime Broker from spec.md §4.7:
// websocket clients connect, subscribe with a filter, receive heartbeats,
// and get EventNew/ClusterUpdated/AlertTriggered messages. Delivery is
// best-effort: each client has a bounded send buffer, a client whose buffer
// is full is disconnected and the message is dropped for it, and nothing is
// redelivered on reconnect. Clients send no per-message acks; a "ping"
// frame only resets the missed-heartbeat count.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harrowgate/sitrep/internal/metrics"
	"github.com/harrowgate/sitrep/internal/models"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// MessageType enumerates the wire protocol's push message kinds.
type MessageType string

const (
	MsgEventNew       MessageType = "event:new"
	MsgClusterUpdated MessageType = "cluster:updated"
	MsgAlertTriggered MessageType = "alert:triggered"
	MsgHeartbeat      MessageType = "heartbeat"
)

// Message is the envelope sent to every subscribed client.
type Message struct {
	Type      MessageType `json:"type"`
	OrgID     string      `json:"org_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Filter narrows which messages a client receives, set via the client's
// subscribe frame.
type Filter struct {
	OrgID       string
	Categories  []string
	MinPriority float64
}

type client struct {
	conn             *websocket.Conn
	send             chan Message
	filter           Filter
	mu               sync.Mutex
	missedHeartbeats int32
}

const (
	writeWait        = 10 * time.Second
	readWait         = 90 * time.Second
	heartbeatInterval = 30 * time.Second
	maxMissedHeartbeats = 2
	sendBufferSize   = 32
)

// Broker fans out messages to connected clients with per-client bounded
// buffers; a client whose buffer fills (a slow consumer) is disconnected
// rather than allowed to stall the broker (spec.md §5 backpressure
// policy).
type Broker struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     zerolog.Logger
}

func NewBroker(log zerolog.Logger) *Broker {
	return &Broker{clients: make(map[*client]struct{}), log: log}
}

// ServeHTTP upgrades the connection and runs the client's read/write pumps
// until disconnect.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("realtime: upgrade failed")
		return
	}
	orgID := r.URL.Query().Get("org_id")
	c := &client{conn: conn, send: make(chan Message, sendBufferSize), filter: Filter{OrgID: orgID}}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	metrics.RealtimeConnections.Inc()

	go b.writePump(c)
	b.readPump(c)
}

// clientEnvelope is the frame shape a client sends: subscribe/unsubscribe
// carry a filter, ping acknowledges the most recent heartbeat, protocol
// optionally names the client's wire-protocol version for future
// negotiation.
type clientEnvelope struct {
	Type     string         `json:"type"`
	Filter   *filterPayload `json:"filter,omitempty"`
	Protocol string         `json:"protocol,omitempty"`
}

type filterPayload struct {
	Categories  []string `json:"categories"`
	MinPriority float64  `json:"min_priority"`
}

func (b *Broker) readPump(c *client) {
	defer b.remove(c)
	c.conn.SetReadDeadline(time.Now().Add(readWait))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(readWait))

		var env clientEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case "subscribe":
			if env.Filter == nil {
				continue
			}
			c.mu.Lock()
			c.filter.Categories = env.Filter.Categories
			c.filter.MinPriority = env.Filter.MinPriority
			c.mu.Unlock()
		case "unsubscribe":
			c.mu.Lock()
			c.filter.Categories = nil
			c.filter.MinPriority = 0
			c.mu.Unlock()
		case "ping":
			atomic.StoreInt32(&c.missedHeartbeats, 0)
		}
	}
}

func (b *Broker) writePump(c *client) {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if atomic.AddInt32(&c.missedHeartbeats, 1) > maxMissedHeartbeats {
				b.log.Warn().Msg("realtime: missed heartbeats, disconnecting")
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			hb := Message{Type: MsgHeartbeat, Timestamp: time.Now().UTC()}
			if err := c.conn.WriteJSON(hb); err != nil {
				return
			}
		}
	}
}

func (b *Broker) remove(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
	metrics.RealtimeConnections.Dec()
}

// publish fans msg out to every client whose filter matches, dropping
// (disconnecting) any client whose send buffer is full.
func (b *Broker) publish(msg Message, categories []string, priority float64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.clients {
		c.mu.Lock()
		f := c.filter
		c.mu.Unlock()
		if f.OrgID != "" && msg.OrgID != "" && f.OrgID != msg.OrgID {
			continue
		}
		if f.MinPriority > 0 && priority < f.MinPriority {
			continue
		}
		if len(f.Categories) > 0 && !anyMatch(f.Categories, categories) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			b.log.Warn().Msg("realtime: slow consumer, disconnecting")
			go b.remove(c)
		}
	}
}

func anyMatch(filter, categories []string) bool {
	set := make(map[string]bool, len(categories))
	for _, c := range categories {
		set[strings.ToLower(c)] = true
	}
	for _, f := range filter {
		if set[strings.ToLower(f)] {
			return true
		}
	}
	return false
}

func (b *Broker) PublishNewEvent(ctx context.Context, e *models.Event) {
	b.publish(Message{Type: MsgEventNew, Timestamp: time.Now().UTC(), Payload: e},
		[]string{string(e.Category)}, e.PriorityScore)
}

func (b *Broker) PublishClusterUpdated(ctx context.Context, c *models.Cluster) {
	b.publish(Message{Type: MsgClusterUpdated, Timestamp: time.Now().UTC(), Payload: c}, nil, c.TopPriority)
}

func (b *Broker) PublishAlertTriggered(ctx context.Context, orgID string, e *models.Event, reason string) {
	b.publish(Message{Type: MsgAlertTriggered, OrgID: orgID, Timestamp: time.Now().UTC(), Payload: map[string]interface{}{
		"event": e, "reason": reason,
	}}, []string{string(e.Category)}, e.PriorityScore)
}
