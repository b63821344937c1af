package audit

import (
	"fmt"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
)

// NewSink creates the sink selected by cfg.Backend
func NewSink(cfg config.AuditConfig, log *logger.Logger) (Sink, error) {
	switch cfg.Backend {
	case "", "none":
		return NopSink{}, nil
	case "file":
		return NewFileSink(cfg.FilePath)
	case "postgres":
		return NewPostgresStore(cfg, log)
	default:
		return nil, fmt.Errorf("unknown audit backend: %s", cfg.Backend)
	}
}
