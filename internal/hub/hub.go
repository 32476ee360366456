// Package hub fans out monitoring events to WebSocket subscribers.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tokenwise/internal/observability"
)

// Conn is a single client connection capable of receiving messages.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Envelope is the wire format for every outbound message.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Registry tracks connected clients and broadcasts messages to all of them.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn

	onEmpty func()

	log zerolog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		log:   log,
	}
}

// SetOnEmpty installs a callback invoked whenever the last connection is
// removed. The callback runs synchronously with the removal; it must not
// call back into the Registry's write paths.
func (r *Registry) SetOnEmpty(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEmpty = fn
}

// Register adds a connection and returns its assigned client ID.
func (r *Registry) Register(c Conn) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.conns[id] = c
	count := len(r.conns)
	r.mu.Unlock()

	observability.DefaultMetrics.ActiveConnections.Set(float64(count))
	r.log.Info().Str("client_id", id).Int("connections", count).Msg("client connected")
	return id
}

// Unregister removes a connection by ID and closes it.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	c, exists := r.conns[id]
	if exists {
		delete(r.conns, id)
	}
	count := len(r.conns)
	onEmpty := r.onEmpty
	r.mu.Unlock()

	if !exists {
		return
	}
	c.Close()

	observability.DefaultMetrics.ActiveConnections.Set(float64(count))
	r.log.Info().Str("client_id", id).Int("connections", count).Msg("client disconnected")

	if count == 0 && onEmpty != nil {
		onEmpty()
	}
}

// Count returns the current number of connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Send delivers a message to a single client. A transport failure
// unregisters the connection; the error is returned so the owning loop can
// stop servicing it.
func (r *Registry) Send(id string, msgType string, payload interface{}) error {
	r.mu.RLock()
	c, exists := r.conns[id]
	r.mu.RUnlock()

	if !exists {
		return nil
	}

	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	if err := c.Send(data); err != nil {
		r.Unregister(id)
		return err
	}
	return nil
}

// Broadcast delivers a message to every connected client. Connections whose
// send fails are pruned in a post pass so one bad client cannot block the
// rest.
func (r *Registry) Broadcast(msgType string, payload interface{}) {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		r.log.Error().Err(err).Str("type", msgType).Msg("marshal broadcast")
		return
	}

	// Snapshot so sends happen outside the lock.
	r.mu.RLock()
	targets := make(map[string]Conn, len(r.conns))
	for id, c := range r.conns {
		targets[id] = c
	}
	r.mu.RUnlock()

	var failed []string
	for id, c := range targets {
		if err := c.Send(data); err != nil {
			failed = append(failed, id)
		}
	}

	observability.DefaultMetrics.BroadcastsTotal.WithLabelValues(msgType).Inc()

	if len(failed) == 0 {
		return
	}

	r.mu.Lock()
	for _, id := range failed {
		if c, exists := r.conns[id]; exists {
			delete(r.conns, id)
			c.Close()
		}
	}
	count := len(r.conns)
	onEmpty := r.onEmpty
	r.mu.Unlock()

	observability.DefaultMetrics.ActiveConnections.Set(float64(count))
	observability.DefaultMetrics.ConnectionsPruned.Add(float64(len(failed)))
	r.log.Warn().Int("pruned", len(failed)).Int("connections", count).Msg("dropped unreachable clients")

	if count == 0 && onEmpty != nil {
		onEmpty()
	}
}

func marshalEnvelope(msgType string, payload interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      msgType,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	})
}
