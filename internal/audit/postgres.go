package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
	"go.uber.org/zap"
)

const schema = `
	CREATE TABLE IF NOT EXISTS redaction_audit (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		record_id TEXT NOT NULL,
		category TEXT NOT NULL,
		masked TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset INTEGER NOT NULL,
		source TEXT NOT NULL,
		fingerprint CHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`

// columns per inserted row
const entryColumns = 9

// maxRowsPerInsert keeps one statement within 65535 bind parameters
const maxRowsPerInsert = 65535 / entryColumns

// PostgresStore keeps audit entries in PostgreSQL. Original values are never
// stored; the fingerprint identifies repeated values.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewPostgresStore connects to the configured database and creates the table
func NewPostgresStore(cfg config.AuditConfig, log *logger.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := NewPostgresStoreWithDB(db, log)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return store, nil
}

// NewPostgresStoreWithDB wraps an existing connection
func NewPostgresStoreWithDB(db *sqlx.DB, log *logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: log.WithComponent("audit")}
}

// EnsureSchema creates the audit table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}
	return nil
}

// Write inserts entries in one transaction, splitting them into statements
// that stay under the PostgreSQL bind parameter limit
func (s *PostgresStore) Write(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}

	rows := Redacted(entries)
	for len(rows) > 0 {
		n := min(len(rows), maxRowsPerInsert)
		if err := insertEntries(ctx, tx, rows[:n]); err != nil {
			tx.Rollback()
			s.logger.Error("Audit insert failed", zap.Error(err), zap.Int("entries", len(entries)))
			return fmt.Errorf("audit insert failed: %w", err)
		}
		rows = rows[n:]
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit entries: %w", err)
	}

	s.logger.Debug("Audit entries stored",
		zap.Int("entries", len(entries)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

func insertEntries(ctx context.Context, tx *sqlx.Tx, entries []Entry) error {
	valueStrings := make([]string, 0, len(entries))
	valueArgs := make([]interface{}, 0, len(entries)*entryColumns)

	for i, e := range entries {
		placeholders := make([]string, entryColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", i*entryColumns+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")

		valueArgs = append(valueArgs,
			e.SessionID,
			e.RecordID,
			e.Category,
			e.Masked,
			e.Start,
			e.End,
			e.Source,
			e.Fingerprint,
			e.Timestamp,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO redaction_audit (session_id, record_id, category, masked, start_offset, end_offset, source, fingerprint, created_at)
		VALUES %s`,
		strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// CountByCategory returns the number of stored entries per category for a session
func (s *PostgresStore) CountByCategory(ctx context.Context, sessionID string) (map[string]int, error) {
	var rows []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}

	query := `
		SELECT category, COUNT(*) AS count
		FROM redaction_audit
		WHERE session_id = $1
		GROUP BY category`

	if err := s.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to count audit entries: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}
	return counts, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL hides the password of a database URL for logging
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	colon := strings.LastIndex(userPart, ":")
	if colon < 0 || colon < strings.Index(userPart, "//") {
		return url
	}
	return userPart[:colon+1] + "***" + url[at:]
}
