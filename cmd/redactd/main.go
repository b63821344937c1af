package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raaihank/pii-redactor/internal/audit"
	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/raaihank/pii-redactor/internal/metrics"
	"github.com/raaihank/pii-redactor/internal/privacy"
	"github.com/raaihank/pii-redactor/internal/server"
	"go.uber.org/zap"
)

var (
	version = server.Version
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
		healthURL   = flag.String("health-url", "http://localhost:8080/health", "URL used by -health-check")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pii-redactor %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck(*healthURL)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting PII redactor",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	detector, err := privacy.New(cfg.Redaction, log.WithComponent("privacy"))
	if err != nil {
		log.Fatal("Failed to create privacy detector", zap.Error(err))
	}

	store, err := metrics.NewStore(cfg.Sessions, log)
	if err != nil {
		log.Fatal("Failed to create session store", zap.Error(err))
	}
	defer store.Close()

	sink, err := audit.NewSink(cfg.Audit, log)
	if err != nil {
		log.Fatal("Failed to create audit sink", zap.Error(err))
	}
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if mem, ok := store.(*metrics.MemoryStore); ok {
		go mem.Run(ctx, cfg.Sessions.CleanupInterval)
	}

	// Hot reload of detection rules
	if err := config.Watch(*configPath, func(next *config.Config) {
		if err := detector.Reload(next.Redaction); err != nil {
			log.Error("Keeping previous detection rules", zap.Error(err))
		}
	}, func(err error) {
		log.Error("Ignoring invalid configuration change", zap.Error(err))
	}); err != nil {
		log.Info("Configuration hot reload disabled", zap.Error(err))
	}

	srv := server.New(cfg, log, detector, metrics.NewCollector(store, log), sink)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Error("Server error", zap.Error(err))
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			return
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(url string) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
