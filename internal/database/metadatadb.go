package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/doccrawl/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "doccrawl.db"

// MetadataDB stores document provenance and crawl run history in SQLite.
//
// Every write runs in its own transaction under mu, on a pool of exactly one
// connection, so concurrent download workers never interleave their
// read-modify-write cycles.
type MetadataDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	mu sync.Mutex
}

// Options configures MetadataDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the metadata database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error
// wrapping ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*MetadataDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	mdb := &MetadataDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := mdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return mdb, nil
}

// Close closes the database connection.
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}

// Path returns the database file path.
func (mdb *MetadataDB) Path() string {
	return mdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (mdb *MetadataDB) createTables() error {
	schema := `
	-- One row per local filename; url is fixed by the first download
	CREATE TABLE IF NOT EXISTS documents (
		filename TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		sha3_256 TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Append-only list of successful downloads per filename
	CREATE TABLE IF NOT EXISTS update_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL REFERENCES documents(filename),
		fetched_at TEXT NOT NULL,
		source_url TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		sha3_256 TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_history_filename ON update_history(filename);

	-- Crawl runs store the run report as JSON
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		state TEXT NOT NULL,
		pages_scraped INTEGER NOT NULL DEFAULT 0,
		files_found INTEGER NOT NULL DEFAULT 0,
		files_downloaded INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON crawl_runs(start_url);
	`

	_, err := mdb.db.ExecContext(context.Background(), schema)
	return err
}

// Get returns the record for filename, or nil when there is none.
func (mdb *MetadataDB) Get(ctx context.Context, filename string) (*model.DocumentRecord, error) {
	query := `
	SELECT filename, url, size_bytes, sha3_256
	FROM documents
	WHERE filename = ?
	`

	var record model.DocumentRecord
	err := mdb.db.QueryRowContext(ctx, query, filename).Scan(
		&record.Filename,
		&record.URL,
		&record.SizeBytes,
		&record.SHA3,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	rows, err := mdb.db.QueryContext(ctx,
		`SELECT fetched_at FROM update_history WHERE filename = ? ORDER BY id`, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to get update history: %w", err)
	}
	defer rows.Close()

	record.UpdateHistory = make([]time.Time, 0)
	for rows.Next() {
		var fetchedAt string
		if err := rows.Scan(&fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan update history: %w", err)
		}
		record.UpdateHistory = append(record.UpdateHistory, parseTimestamp(fetchedAt))
	}

	return &record, rows.Err()
}

// Upsert records one successful download of filename.
//
// A new filename creates the record with sourceURL. A known filename keeps
// its recorded URL and gets at appended to its history; size and digest
// follow the latest download.
func (mdb *MetadataDB) Upsert(ctx context.Context, filename, sourceURL string, at time.Time, digest model.Digest) error {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	stamp := formatTimestamp(at)

	tx, err := mdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO documents (filename, url, size_bytes, sha3_256, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(filename) DO UPDATE SET
		size_bytes = excluded.size_bytes,
		sha3_256 = excluded.sha3_256,
		updated_at = excluded.updated_at
	`, filename, sourceURL, digest.SizeBytes, digest.SHA3, stamp, stamp)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO update_history (filename, fetched_at, source_url, size_bytes, sha3_256)
	VALUES (?, ?, ?, ?, ?)
	`, filename, stamp, sourceURL, digest.SizeBytes, digest.SHA3)
	if err != nil {
		return fmt.Errorf("failed to append update history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// ListAll returns every record keyed by filename.
func (mdb *MetadataDB) ListAll(ctx context.Context) (map[string]model.DocumentRecord, error) {
	query := `
	SELECT d.filename, d.url, d.size_bytes, d.sha3_256, h.fetched_at
	FROM documents d
	LEFT JOIN update_history h ON h.filename = d.filename
	ORDER BY d.filename, h.id
	`

	rows, err := mdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	records := make(map[string]model.DocumentRecord)
	for rows.Next() {
		var (
			r         model.DocumentRecord
			fetchedAt sql.NullString
		)
		if err := rows.Scan(&r.Filename, &r.URL, &r.SizeBytes, &r.SHA3, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		existing, ok := records[r.Filename]
		if !ok {
			existing = r
			existing.UpdateHistory = make([]time.Time, 0)
		}
		if fetchedAt.Valid {
			existing.UpdateHistory = append(existing.UpdateHistory, parseTimestamp(fetchedAt.String))
		}
		records[r.Filename] = existing
	}

	return records, rows.Err()
}

// SaveRun stores a run report, replacing any earlier version with the same ID.
func (mdb *MetadataDB) SaveRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize run report: %w", err)
	}

	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	_, err = mdb.db.ExecContext(ctx, `
	INSERT INTO crawl_runs (id, start_url, state, pages_scraped, files_found, files_downloaded, started_at, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		state = excluded.state,
		pages_scraped = excluded.pages_scraped,
		files_found = excluded.files_found,
		files_downloaded = excluded.files_downloaded,
		report_json = excluded.report_json
	`,
		report.ID,
		report.StartURL,
		report.State.String(),
		report.PagesScraped,
		report.FilesFound(),
		report.FilesDownloaded,
		formatTimestamp(report.StartedAt),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	return nil
}

// GetRun returns the run with the given ID, or nil when there is none.
func (mdb *MetadataDB) GetRun(ctx context.Context, id string) (*model.RunReport, error) {
	var reportJSON string
	err := mdb.db.QueryRowContext(ctx, `SELECT report_json FROM crawl_runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}
	return decodeRun(reportJSON)
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (mdb *MetadataDB) ListRuns(ctx context.Context, limit int) ([]*model.RunReport, error) {
	query := `SELECT report_json FROM crawl_runs ORDER BY started_at DESC, id`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := mdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*model.RunReport, 0)
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := decodeRun(reportJSON)
		if err != nil {
			continue // Skip malformed reports
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func decodeRun(reportJSON string) (*model.RunReport, error) {
	var run model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	run.State = model.ParseCrawlState(run.StateText)
	return &run, nil
}

// timestampLayout is RFC 3339 with fixed nanosecond width, so stored UTC
// timestamps sort lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp renders t for storage.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats parseTimestamp accepts.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Written by formatTimestamp
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
