package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"go.uber.org/zap"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 512
	sendBufferSize        = 256
)

// Hub maintains the set of active clients and broadcasts events to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	broadcast  chan Event
	register   chan *Client
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	config   config.WebSocketConfig
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu    sync.RWMutex
	stats HubStats
}

// NewHub creates a new WebSocket hub
func NewHub(cfg config.WebSocketConfig, log *logger.Logger) *Hub {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteWait
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongTimeout {
		cfg.PingInterval = (cfg.PongTimeout * 9) / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, sendBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		config:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.WithComponent("websocket"),
	}
}

// Run handles client registration and broadcasting until ctx is cancelled.
// Remaining clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Starting WebSocket hub")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event, nil)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ActiveConnections = int64(len(h.clients))
	h.stats.LastConnectionTime = time.Now()
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	h.logger.Info("Client connected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active),
	)

	if h.config.Events.BroadcastConnections {
		h.broadcastEvent(connectionEvent("connected", client), client)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.stats.ActiveConnections = int64(len(h.clients))
	h.stats.LastDisconnectTime = time.Now()
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	h.logger.Info("Client disconnected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active),
	)

	if h.config.Events.BroadcastConnections {
		h.broadcastEvent(connectionEvent("disconnected", client), nil)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
	h.stats.ActiveConnections = 0
}

func connectionEvent(action string, client *Client) Event {
	return Event{
		Type:      EventTypeConnection,
		Timestamp: time.Now(),
		Data: ConnectionEvent{
			Action:    action,
			ClientID:  client.ID,
			ClientIP:  client.IP,
			UserAgent: client.UserAgent,
			Message:   fmt.Sprintf("Client %s %s", client.ID, action),
		},
	}
}

// broadcastEvent delivers event to every subscribed client except exclude.
// Clients whose send buffer is full are dropped.
func (h *Hub) broadcastEvent(event Event, exclude *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.TotalBroadcasts++
	h.stats.LastBroadcastTime = time.Now()

	for client := range h.clients {
		if client == exclude || !shouldSendToClient(client, event) {
			continue
		}
		select {
		case client.Send <- event:
			h.stats.TotalMessages++
		default:
			h.logger.Warn("Client send channel full, closing connection",
				zap.String("client_id", client.ID),
			)
			delete(h.clients, client)
			close(client.Send)
		}
	}
	h.stats.ActiveConnections = int64(len(h.clients))
}

// shouldSendToClient checks the client's subscription, if any
func shouldSendToClient(client *Client, event Event) bool {
	sub := client.subscription()
	if sub == nil {
		return true
	}

	if len(sub.Events) > 0 {
		subscribed := false
		for _, eventType := range sub.Events {
			if eventType == event.Type {
				subscribed = true
				break
			}
		}
		if !subscribed {
			return false
		}
	}

	if sub.Filter != nil {
		return applyEventFilter(sub.Filter, event)
	}
	return true
}

func applyEventFilter(filter *EventFilter, event Event) bool {
	if filter.SessionID != "" && event.SessionID != filter.SessionID {
		return false
	}

	if len(filter.Categories) > 0 {
		for _, want := range filter.Categories {
			for _, got := range event.Categories {
				if want == got {
					return true
				}
			}
		}
		return false
	}
	return true
}

// BroadcastEvent queues an event for all connected clients if its type is
// enabled in the configuration
func (h *Hub) BroadcastEvent(event Event) {
	if !h.shouldBroadcastEvent(event.Type) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- event:
	default:
		h.mu.Lock()
		h.stats.DroppedEvents++
		h.mu.Unlock()
		h.logger.Warn("Broadcast channel full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

// BroadcastRedaction publishes the outcome of a text redaction. Only the
// category, offsets and replacement of each detection are sent.
func (h *Hub) BroadcastRedaction(sessionID, requestID, clientIP string, outcome privacy.Outcome) {
	counts := outcome.CountByCategory()
	h.BroadcastEvent(Event{
		Type:       EventTypeRedaction,
		RequestID:  requestID,
		SessionID:  sessionID,
		Categories: sortedKeys(counts),
		Data: RedactionEvent{
			Detections:      Summarize(outcome.Detections),
			TotalDetections: len(outcome.Detections),
			Categories:      counts,
			LatencyMS:       outcome.LatencyMS,
			ClientIP:        clientIP,
		},
	})
}

// BroadcastFile publishes the summary of a processed file
func (h *Hub) BroadcastFile(sessionID, requestID string, file FileProcessedEvent) {
	h.BroadcastEvent(Event{
		Type:       EventTypeFileProcessed,
		RequestID:  requestID,
		SessionID:  sessionID,
		Categories: sortedKeys(file.Categories),
		Data:       file,
	})
}

// Summarize strips detections down to what may leave the process
func Summarize(detections []privacy.Detection) []DetectionSummary {
	out := make([]DetectionSummary, len(detections))
	for i, d := range detections {
		out[i] = DetectionSummary{
			Category:    d.Category,
			Start:       d.Start,
			End:         d.End,
			Replacement: d.Replacement,
		}
	}
	return out
}

func (h *Hub) shouldBroadcastEvent(eventType EventType) bool {
	switch eventType {
	case EventTypeRedaction:
		return h.config.Events.BroadcastRedactions
	case EventTypeFileProcessed:
		return h.config.Events.BroadcastFiles
	case EventTypeConnection:
		return h.config.Events.BroadcastConnections
	default:
		return false
	}
}

// HandleWebSocket upgrades the request and registers the client. Basic auth
// is required only when a username is configured.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.config.Username != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != h.config.Username || pass != h.config.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="pii-redactor"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          "client_" + uuid.NewString()[:8],
		Conn:        conn,
		Send:        make(chan Event, sendBufferSize),
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.handleClientWrite(client)
	go h.handleClientRead(client)
}

func (h *Hub) handleClientWrite(client *Client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(event); err != nil {
				h.logger.Error("Failed to write WebSocket message",
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleClientRead(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.Conn.Close()
	}()

	conn := client.Conn
	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		client.touch()
		conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
		return nil
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket read error",
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
			}
			return
		}
		h.handleClientMessage(client, msg)
	}
}

func (h *Hub) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		raw, err := json.Marshal(msg.Data)
		if err != nil {
			return
		}
		var subscription SubscriptionRequest
		if err := json.Unmarshal(raw, &subscription); err != nil {
			h.logger.Debug("Ignoring malformed subscription",
				zap.String("client_id", client.ID),
				zap.Error(err),
			)
			return
		}
		client.setSubscription(&subscription)
		h.logger.Info("Client subscription updated",
			zap.String("client_id", client.ID),
			zap.Any("subscription", subscription),
		)

	case "ping":
		client.touch()
		pong := Event{
			Type:      EventTypePong,
			Timestamp: time.Now(),
			Data:      map[string]string{"message": "pong"},
		}
		h.mu.RLock()
		_, registered := h.clients[client]
		if registered {
			select {
			case client.Send <- pong:
			default:
			}
		}
		h.mu.RUnlock()
	}
}

// Stats returns current hub statistics
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.ActiveConnections = int64(len(h.clients))
	return stats
}

func (c *Client) subscription() *SubscriptionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Subscription
}

func (c *Client) setSubscription(sub *SubscriptionRequest) {
	c.mu.Lock()
	c.Subscription = sub
	c.mu.Unlock()
}

func (c *Client) touch() {
	c.mu.Lock()
	c.LastPing = time.Now()
	c.mu.Unlock()
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
