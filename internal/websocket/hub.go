package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"rally-backend/internal/metrics"
	"rally-backend/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser validates the bearer token passed on the handshake.
type TokenParser interface {
	ParseToken(tokenStr string) (uuid.UUID, string, error)
}

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks open connections per user. With Redis configured, events are
// published to user_updates:<id> and every instance delivers to the
// connections it holds; without Redis delivery is local only.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*conn
	cancelFuncs map[uuid.UUID]context.CancelFunc

	publisher  *redis.Client
	subscriber *redis.Client
	auth       TokenParser
	logger     *slog.Logger
}

// NewHub builds a hub. publisher and subscriber may both be nil.
func NewHub(publisher, subscriber *redis.Client, auth TokenParser, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections: make(map[uuid.UUID][]*conn),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		publisher:   publisher,
		subscriber:  subscriber,
		auth:        auth,
		logger:      logger,
	}
}

func channelFor(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on the handshake, so the token rides in the query.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _, err := h.auth.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &conn{ws: ws}
	h.register(userID, c)

	done := make(chan struct{})
	go h.readLoop(userID, c, done)
	go h.pingLoop(c, done)
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Hub) readLoop(userID uuid.UUID, c *conn, done chan struct{}) {
	defer close(done)
	defer h.unregister(userID, c)

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) pingLoop(c *conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(userID uuid.UUID, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], c)
	metrics.IncWSActive()

	if len(h.connections[userID]) == 1 && h.subscriber != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribe(ctx, userID)
	}

	h.logger.Debug("websocket connected", "user_id", userID, "connections", len(h.connections[userID]))
}

func (h *Hub) unregister(userID uuid.UUID, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.ws.Close()

	conns := h.connections[userID]
	for i, existing := range conns {
		if existing == c {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			metrics.DecWSActive()
			break
		}
	}

	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	h.logger.Debug("websocket disconnected", "user_id", userID)
}

func (h *Hub) subscribe(ctx context.Context, userID uuid.UUID) {
	pubsub := h.subscriber.Subscribe(ctx, channelFor(userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.deliver(userID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) deliver(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	conns := append([]*conn(nil), h.connections[userID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			h.logger.Debug("websocket write failed", "user_id", userID, "error", err)
		}
	}
}

// SendToUser pushes {type, payload} to every connection the user has open.
func (h *Hub) SendToUser(ctx context.Context, userID uuid.UUID, event string, payload any) {
	data, err := json.Marshal(models.WSMessage{Type: event, Payload: payload})
	if err != nil {
		h.logger.Error("websocket encode failed", "event", event, "error", err)
		return
	}
	metrics.IncWSEvent(event)

	if h.publisher != nil {
		err := h.publisher.Publish(ctx, channelFor(userID), data).Err()
		if err == nil {
			return
		}
		h.logger.Warn("websocket publish failed, delivering locally", "user_id", userID, "error", err)
	}
	h.deliver(userID, data)
}

// Connections reports how many sockets the user has open on this instance.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// Close drops every connection and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.connections {
		for _, c := range conns {
			c.ws.Close()
			metrics.DecWSActive()
		}
		delete(h.connections, userID)
	}
	for userID, cancel := range h.cancelFuncs {
		cancel()
		delete(h.cancelFuncs, userID)
	}
}
