package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeRedaction is sent after a text was redacted
	EventTypeRedaction EventType = "redaction"
	// EventTypeFileProcessed is sent after an uploaded file was redacted
	EventTypeFileProcessed EventType = "file_processed"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type       EventType   `json:"type"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       interface{} `json:"data"`
	RequestID  string      `json:"request_id,omitempty"`
	SessionID  string      `json:"session_id,omitempty"`
	Categories []string    `json:"categories,omitempty"`
}

// DetectionSummary describes one masked value without the value itself
type DetectionSummary struct {
	Category    string `json:"category"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Replacement string `json:"replacement"`
}

// RedactionEvent is the payload of EventTypeRedaction
type RedactionEvent struct {
	Detections      []DetectionSummary `json:"detections"`
	TotalDetections int                `json:"total_detections"`
	Categories      map[string]int     `json:"categories"`
	LatencyMS       float64            `json:"latency_ms"`
	ClientIP        string             `json:"client_ip,omitempty"`
}

// FileProcessedEvent is the payload of EventTypeFileProcessed
type FileProcessedEvent struct {
	FileName        string         `json:"file_name"`
	Format          string         `json:"format"`
	Records         int            `json:"records"`
	Skipped         int            `json:"skipped"`
	TotalDetections int            `json:"total_detections"`
	Categories      map[string]int `json:"categories"`
	LatencyMS       float64        `json:"latency_ms"`
	F1              *float64       `json:"f1,omitempty"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType  `json:"events"`
	Filter *EventFilter `json:"filter,omitempty"`
}

// EventFilter narrows the events a client receives
type EventFilter struct {
	// SessionID keeps only events of one session
	SessionID string `json:"session_id,omitempty"`
	// Categories keeps only events with at least one of these categories
	Categories []string `json:"categories,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string

	mu sync.Mutex
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalMessages      int64     `json:"total_messages"`
	TotalBroadcasts    int64     `json:"total_broadcasts"`
	DroppedEvents      int64     `json:"dropped_events"`
	LastConnectionTime time.Time `json:"last_connection_time"`
	LastDisconnectTime time.Time `json:"last_disconnect_time"`
	LastBroadcastTime  time.Time `json:"last_broadcast_time"`
}
