package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Redaction RedactionConfig `yaml:"redaction" mapstructure:"redaction"`
	Sessions  SessionConfig   `yaml:"sessions" mapstructure:"sessions"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// RedactionConfig contains PII detection and masking configuration
type RedactionConfig struct {
	Enabled       bool         `yaml:"enabled" mapstructure:"enabled"`
	Detectors     []string     `yaml:"detectors" mapstructure:"detectors"`
	IgnoreFillers bool         `yaml:"ignore_fillers" mapstructure:"ignore_fillers"`
	CustomRules   []RuleConfig `yaml:"custom_rules" mapstructure:"custom_rules"`
	RulesFile     string       `yaml:"rules_file" mapstructure:"rules_file"`
	MaxFileMB     int          `yaml:"max_file_mb" mapstructure:"max_file_mb"`
	MaxTextBytes  int          `yaml:"max_text_bytes" mapstructure:"max_text_bytes"`
	WorkerCount   int          `yaml:"worker_count" mapstructure:"worker_count"`
	TextField     string       `yaml:"text_field" mapstructure:"text_field"`
	IDField       string       `yaml:"id_field" mapstructure:"id_field"`
}

// RuleConfig declares a custom detection rule
type RuleConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Pattern     string `yaml:"pattern" mapstructure:"pattern"`
	Placeholder string `yaml:"placeholder" mapstructure:"placeholder"`
	Style       string `yaml:"style" mapstructure:"style"` // tag or preserve
}

// SessionConfig contains per-session metrics storage configuration
type SessionConfig struct {
	Backend         string        `yaml:"backend" mapstructure:"backend"` // memory or redis
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxSamples      int           `yaml:"max_samples" mapstructure:"max_samples"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	RedisURL        string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix       string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns    int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// AuditConfig contains audit log configuration
type AuditConfig struct {
	Backend         string        `yaml:"backend" mapstructure:"backend"` // none, file or postgres
	FilePath        string        `yaml:"file_path" mapstructure:"file_path"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin int           `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Burst          int           `yaml:"burst" mapstructure:"burst"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size" mapstructure:"max_message_size"`
	Username        string        `yaml:"username" mapstructure:"username"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Events          struct {
		BroadcastRedactions  bool `yaml:"broadcast_redactions" mapstructure:"broadcast_redactions"`
		BroadcastFiles       bool `yaml:"broadcast_files" mapstructure:"broadcast_files"`
		BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redaction: RedactionConfig{
			Enabled:      true,
			Detectors:    []string{"all"},
			MaxFileMB:    5,
			MaxTextBytes: 64 * 1024,
			WorkerCount:  4,
			TextField:    "sentence",
			IDField:      "verbatim_id",
		},
		Sessions: SessionConfig{
			Backend:         "memory",
			TTL:             30 * time.Minute,
			MaxSamples:      500,
			CleanupInterval: time.Minute,
			RedisURL:        "redis://localhost:6379/0",
			KeyPrefix:       "pii",
			MaxConnections:  10,
			MinIdleConns:    2,
		},
		Audit: AuditConfig{
			Backend:         "none",
			FilePath:        "logs/audit.jsonl",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 120,
			Burst:          20,
			IdleTimeout:    time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageSize:  512,
		},
	}

	cfg.Logging.File.Path = "logs/redactor.log"
	cfg.WebSocket.Events.BroadcastRedactions = true
	cfg.WebSocket.Events.BroadcastFiles = true
	cfg.WebSocket.Events.BroadcastConnections = true

	return cfg
}
