// Package taskstore persists task state to SQLite: status transitions,
// benchmark results keyed by scenario invocation, and verification logs.
package taskstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/cloudbench/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// StatusEntry is one recorded status transition.
type StatusEntry struct {
	TaskUUID  string
	Status    string
	Timestamp time.Time
}

// StoredResult is one persisted benchmark result batch.
type StoredResult struct {
	TaskUUID string
	Key      models.ResultKey
	Results  []models.InvocationResult
}

// Store manages the SQLite database holding task state.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if necessary) the database at dbPath and applies
// the schema. Use ":memory:" for an ephemeral store.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout must come first so the remaining pragmas wait on locks
	// instead of failing when another process holds the database.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry retries a statement with exponential backoff on lock errors
// that can occur during concurrent initialization of the same file.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// AppendStatus records a status transition for the task.
func (s *Store) AppendStatus(ctx context.Context, taskUUID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_status (task_uuid, status) VALUES (?, ?)`,
		taskUUID, status)
	if err != nil {
		return fmt.Errorf("insert task status: %w", err)
	}
	return nil
}

// StatusLog returns every recorded status transition for the task, oldest
// first.
func (s *Store) StatusLog(ctx context.Context, taskUUID string) ([]StatusEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_uuid, status, timestamp FROM task_status WHERE task_uuid = ? ORDER BY id`,
		taskUUID)
	if err != nil {
		return nil, fmt.Errorf("query task status: %w", err)
	}
	defer rows.Close()

	var entries []StatusEntry
	for rows.Next() {
		var e StatusEntry
		if err := rows.Scan(&e.TaskUUID, &e.Status, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan task status: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendResults persists one batch of invocation results under its key.
func (s *Store) AppendResults(ctx context.Context, taskUUID string, key models.ResultKey, results []models.InvocationResult) error {
	keyJSON := key.String()
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO task_results (task_uuid, result_key, results) VALUES (?, ?, ?)`,
		taskUUID, keyJSON, string(resultsJSON))
	if err != nil {
		return fmt.Errorf("insert task results: %w", err)
	}
	return nil
}

// Results returns every persisted result batch for the task, in insertion
// order.
func (s *Store) Results(ctx context.Context, taskUUID string) ([]StoredResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_uuid, result_key, results FROM task_results WHERE task_uuid = ? ORDER BY id`,
		taskUUID)
	if err != nil {
		return nil, fmt.Errorf("query task results: %w", err)
	}
	defer rows.Close()

	var stored []StoredResult
	for rows.Next() {
		var (
			sr          StoredResult
			keyJSON     string
			resultsJSON string
		)
		if err := rows.Scan(&sr.TaskUUID, &keyJSON, &resultsJSON); err != nil {
			return nil, fmt.Errorf("scan task results: %w", err)
		}
		if err := json.Unmarshal([]byte(keyJSON), &sr.Key); err != nil {
			return nil, fmt.Errorf("unmarshal result key: %w", err)
		}
		if err := json.Unmarshal([]byte(resultsJSON), &sr.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
		stored = append(stored, sr)
	}
	return stored, rows.Err()
}

// SaveVerificationLog persists the verification output as one JSON document.
func (s *Store) SaveVerificationLog(ctx context.Context, taskUUID string, log interface{}) error {
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal verification log: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verification_logs (task_uuid, log) VALUES (?, ?)`,
		taskUUID, string(data))
	if err != nil {
		return fmt.Errorf("insert verification log: %w", err)
	}
	return nil
}

// VerificationLog returns the most recent verification log for the task as
// raw JSON, or sql.ErrNoRows when none exists.
func (s *Store) VerificationLog(ctx context.Context, taskUUID string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT log FROM verification_logs WHERE task_uuid = ? ORDER BY id DESC LIMIT 1`,
		taskUUID).Scan(&data)
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}
