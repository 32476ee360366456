package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tokenwise/internal/storage"
)

// Status is the live monitoring state reported to clients.
type Status struct {
	MonitoringActive bool   `json:"monitoring_active"`
	ConnectedClients int    `json:"connected_clients"`
	TrackedWallets   int64  `json:"tracked_wallets"`
	MonitoringToken  string `json:"monitoring_token"`
}

// StatusFunc reports the current monitoring status.
type StatusFunc func(ctx context.Context) Status

// Timeouts for client connections.
const (
	// defaultReadTimeout bounds the wait for an inbound command; on expiry
	// a keepalive is sent instead of dropping the client.
	defaultReadTimeout = 30 * time.Second

	writeTimeout = 10 * time.Second
)

// defaultRecentLimit is used when a get_recent_transactions command carries
// no limit.
const defaultRecentLimit = 10

// Handler upgrades HTTP requests to WebSocket connections and services
// client commands until disconnect.
type Handler struct {
	registry    *Registry
	txs         storage.TransactionStore
	status      StatusFunc
	log         zerolog.Logger
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithReadTimeout overrides the idle period after which a keepalive is sent.
func WithReadTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.readTimeout = d
	}
}

// NewHandler creates a WebSocket endpoint handler.
func NewHandler(registry *Registry, txs storage.TransactionStore, status StatusFunc, log zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry: registry,
		txs:      txs,
		status:   status,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a different origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		readTimeout: defaultReadTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ws := &wsConn{conn: conn}
	id := h.registry.Register(ws)
	defer h.registry.Unregister(id)

	st := h.status(r.Context())
	greeting := map[string]interface{}{
		"client_id":        id,
		"message":          "Connected to real-time feed",
		"monitoring_token": st.MonitoringToken,
		"tracked_wallets":  st.TrackedWallets,
	}
	if err := h.registry.Send(id, "connection_established", greeting); err != nil {
		return
	}

	h.readLoop(r.Context(), id, conn)
}

// inbound carries one read result from the connection.
type inbound struct {
	data []byte
	err  error
}

// messageReader is the read side of a client connection.
type messageReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// readLoop services client commands. A quiet period produces a keepalive
// rather than a disconnect.
func (h *Handler) readLoop(ctx context.Context, id string, conn messageReader) {
	// done releases the reader goroutine when the loop exits with a read
	// result still undelivered, such as after a failed keepalive send.
	done := make(chan struct{})
	defer close(done)

	reads := make(chan inbound)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			select {
			case reads <- inbound{data: data, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case in := <-reads:
			if in.err != nil {
				h.log.Debug().Str("client_id", id).Err(in.err).Msg("client read ended")
				return
			}
			h.handleCommand(ctx, id, in.data)
		case <-time.After(h.readTimeout):
			if err := h.registry.Send(id, "keepalive", nil); err != nil {
				return
			}
		}
	}
}

// handleCommand dispatches one inbound client command. Unknown commands and
// malformed payloads are ignored.
func (h *Handler) handleCommand(ctx context.Context, id string, data []byte) {
	var cmd struct {
		Command string `json:"command"`
		Limit   int    `json:"limit"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return
	}

	switch cmd.Command {
	case "ping":
		h.registry.Send(id, "pong", nil)

	case "get_status":
		h.registry.Send(id, "status", h.status(ctx))

	case "get_recent_transactions":
		limit := cmd.Limit
		if limit <= 0 {
			limit = defaultRecentLimit
		}
		txs, err := h.txs.Recent(ctx, limit)
		if err != nil {
			h.log.Error().Err(err).Msg("fetch recent transactions")
			return
		}
		h.registry.Send(id, "recent_transactions", map[string]interface{}{
			"transactions": txs,
		})
	}
}

// wsConn adapts a gorilla connection to the Conn interface with serialized
// writes.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
