package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/telephasma/telephasma/internal/model"
)

// ScanDB provides SQLite-based storage for scan runs, per-user findings,
// and the gift edges connecting them.
//
// Design decision: one database file holds every run rather than a file per
// run. Cross-run queries (was this user seen before, which runs touched
// this chat) stay cheap, and backup is a single file copy.
type ScanDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ScanDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ScanDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, "telephasma.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to refuse creating new files and
	// mode=rwc to allow it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection avoids
	// the busy-retry dance entirely on our side.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *ScanDB) createTables() error {
	schema := `
	-- Runs record one traversal each
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		delay_ms INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Findings store one probed user per row, full result as JSON
	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		username TEXT,
		depth INTEGER NOT NULL,
		discovered_from TEXT,
		result_json TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
	CREATE INDEX IF NOT EXISTS idx_findings_user ON findings(user_id);

	-- Gift edges connect a receiving user to each sender
	CREATE TABLE IF NOT EXISTS gift_edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		receiver_id INTEGER NOT NULL,
		sender_id INTEGER NOT NULL,
		gift_id INTEGER,
		stars INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_edges_run ON gift_edges(run_id);
	CREATE INDEX IF NOT EXISTS idx_edges_sender ON gift_edges(sender_id);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusStopped   = "stopped"
	RunStatusFailed    = "failed"
)

// Run describes one stored traversal.
type Run struct {
	ID         string
	Seed       string
	MaxDepth   int
	Delay      time.Duration
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// CreateRun records the start of a traversal.
func (sdb *ScanDB) CreateRun(ctx context.Context, run *Run) error {
	query := `
	INSERT INTO runs (id, seed, max_depth, delay_ms, status)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := sdb.db.ExecContext(ctx, query,
		run.ID,
		run.Seed,
		run.MaxDepth,
		run.Delay.Milliseconds(),
		RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// FinishRun marks a run as ended with the given status.
func (sdb *ScanDB) FinishRun(ctx context.Context, runID, status string) error {
	query := `
	UPDATE runs SET status = ?, finished_at = CURRENT_TIMESTAMP
	WHERE id = ?
	`

	res, err := sdb.db.ExecContext(ctx, query, status, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	return nil
}

// GetRun retrieves a run by id. Returns nil without error when absent.
func (sdb *ScanDB) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `
	SELECT id, seed, max_depth, delay_ms, status, started_at, finished_at
	FROM runs
	WHERE id = ?
	`

	var run Run
	var delayMS int64
	var startedAt string
	var finishedAt sql.NullString

	err := sdb.db.QueryRowContext(ctx, query, runID).Scan(
		&run.ID,
		&run.Seed,
		&run.MaxDepth,
		&delayMS,
		&run.Status,
		&startedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Delay = time.Duration(delayMS) * time.Millisecond
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}

	return &run, nil
}

// ListRuns returns all runs, most recent first.
func (sdb *ScanDB) ListRuns(ctx context.Context) ([]Run, error) {
	query := `
	SELECT id, seed, max_depth, delay_ms, status, started_at, finished_at
	FROM runs
	ORDER BY started_at DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var delayMS int64
		var startedAt string
		var finishedAt sql.NullString

		if err := rows.Scan(&run.ID, &run.Seed, &run.MaxDepth, &delayMS, &run.Status, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Delay = time.Duration(delayMS) * time.Millisecond
		run.StartedAt = parseTimestamp(startedAt)
		if finishedAt.Valid {
			run.FinishedAt = parseTimestamp(finishedAt.String)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Finding is one probed user within a run.
type Finding struct {
	ID             int64
	RunID          string
	UserID         int64
	Username       string
	Depth          int
	DiscoveredFrom string
	Result         *model.ScanResult
	Timestamp      time.Time
}

// SaveFinding inserts or updates the finding for a user within a run.
// Re-probing the same user in one run keeps the newest result.
func (sdb *ScanDB) SaveFinding(ctx context.Context, f *Finding) error {
	resultJSON, err := json.Marshal(f.Result)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	query := `
	INSERT INTO findings (run_id, user_id, username, depth, discovered_from, result_json)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, user_id) DO UPDATE SET
		username = excluded.username,
		depth = excluded.depth,
		discovered_from = excluded.discovered_from,
		result_json = excluded.result_json,
		timestamp = CURRENT_TIMESTAMP
	`

	_, err = sdb.db.ExecContext(ctx, query,
		f.RunID,
		f.UserID,
		f.Username,
		f.Depth,
		f.DiscoveredFrom,
		string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save finding: %w", err)
	}

	return nil
}

// RunFindings retrieves all findings of a run in insertion order.
func (sdb *ScanDB) RunFindings(ctx context.Context, runID string) ([]Finding, error) {
	query := `
	SELECT id, run_id, user_id, username, depth, discovered_from, result_json, timestamp
	FROM findings
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := sdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		var username, discoveredFrom sql.NullString
		var resultJSON string
		var timestamp string

		if err := rows.Scan(&f.ID, &f.RunID, &f.UserID, &username, &f.Depth, &discoveredFrom, &resultJSON, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}

		f.Username = username.String
		f.DiscoveredFrom = discoveredFrom.String
		f.Timestamp = parseTimestamp(timestamp)

		var result model.ScanResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			continue // Skip malformed results
		}
		f.Result = &result

		findings = append(findings, f)
	}

	return findings, rows.Err()
}

// GiftEdge is one gift-derived connection between two users.
type GiftEdge struct {
	ID         int64
	RunID      string
	ReceiverID int64
	SenderID   int64
	GiftID     int64
	Stars      int
	Timestamp  time.Time
}

// SaveEdge inserts a gift edge.
func (sdb *ScanDB) SaveEdge(ctx context.Context, edge *GiftEdge) error {
	query := `
	INSERT INTO gift_edges (run_id, receiver_id, sender_id, gift_id, stars)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := sdb.db.ExecContext(ctx, query,
		edge.RunID,
		edge.ReceiverID,
		edge.SenderID,
		edge.GiftID,
		edge.Stars,
	)
	if err != nil {
		return fmt.Errorf("failed to save gift edge: %w", err)
	}

	return nil
}

// RunEdges retrieves all gift edges of a run in insertion order.
func (sdb *ScanDB) RunEdges(ctx context.Context, runID string) ([]GiftEdge, error) {
	query := `
	SELECT id, run_id, receiver_id, sender_id, gift_id, stars, timestamp
	FROM gift_edges
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := sdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gift edges: %w", err)
	}
	defer rows.Close()

	var edges []GiftEdge
	for rows.Next() {
		var edge GiftEdge
		var giftID sql.NullInt64
		var timestamp string

		if err := rows.Scan(&edge.ID, &edge.RunID, &edge.ReceiverID, &edge.SenderID, &giftID, &edge.Stars, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan gift edge: %w", err)
		}

		edge.GiftID = giftID.Int64
		edge.Timestamp = parseTimestamp(timestamp)
		edges = append(edges, edge)
	}

	return edges, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
