package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jgoulah/poemcast/pkg/models"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite is a single-writer engine
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	PRAGMA busy_timeout = 5000;
	PRAGMA foreign_keys = ON;
	CREATE TABLE IF NOT EXISTS poems (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		theme TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		engine TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS deliveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		poem_id INTEGER NOT NULL REFERENCES poems(id) ON DELETE CASCADE,
		destination TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		remote_id TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		UNIQUE(poem_id, destination)
	);
	CREATE INDEX IF NOT EXISTS idx_poems_created_at ON poems(created_at);
	CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertPoem stores a poem with a pending delivery for each destination and
// sets poem.ID
func (db *DB) InsertPoem(poem *models.Poem, destinations []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if poem.CreatedAt.IsZero() {
		poem.CreatedAt = time.Now().UTC()
	}

	res, err := tx.Exec(`
	INSERT INTO poems (run_id, theme, text, engine, model, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`, poem.RunID, poem.Theme, poem.Text, poem.Engine, poem.Model, poem.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("inserting poem: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading poem id: %w", err)
	}

	now := time.Now().UTC().Format(timeLayout)
	for _, dest := range destinations {
		if _, err := tx.Exec(`
		INSERT OR IGNORE INTO deliveries (poem_id, destination, status, updated_at)
		VALUES (?, ?, ?, ?)
		`, id, dest, models.DeliveryPending, now); err != nil {
			return fmt.Errorf("inserting delivery for %s: %w", dest, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing poem: %w", err)
	}
	poem.ID = int(id)
	return nil
}

// GetPoem retrieves a poem by id, or nil if it does not exist
func (db *DB) GetPoem(id int) (*models.Poem, error) {
	row := db.conn.QueryRow(`
	SELECT id, run_id, theme, text, engine, model, created_at
	FROM poems
	WHERE id = ?
	`, id)

	poem, err := scanPoem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying poem: %w", err)
	}
	return poem, nil
}

// ListPoems retrieves the most recent poems, newest first. limit <= 0 means no limit.
func (db *DB) ListPoems(limit int) ([]models.Poem, error) {
	query := `
	SELECT id, run_id, theme, text, engine, model, created_at
	FROM poems
	ORDER BY created_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying poems: %w", err)
	}
	defer rows.Close()

	var results []models.Poem
	for rows.Next() {
		poem, err := scanPoem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, *poem)
	}

	return results, rows.Err()
}

// ListDeliveries retrieves every delivery of a poem, ordered by destination
func (db *DB) ListDeliveries(poemID int) ([]models.Delivery, error) {
	return db.queryDeliveries(`
	SELECT id, poem_id, destination, status, remote_id, error, updated_at
	FROM deliveries
	WHERE poem_id = ?
	ORDER BY destination
	`, poemID)
}

// ListPendingDeliveries retrieves pending and failed deliveries for a
// destination (all destinations when empty), oldest first
func (db *DB) ListPendingDeliveries(destination string) ([]models.Delivery, error) {
	query := `
	SELECT id, poem_id, destination, status, remote_id, error, updated_at
	FROM deliveries
	WHERE status != ?
	`
	args := []any{models.DeliveryPublished}
	if destination != "" {
		query += ` AND destination = ?`
		args = append(args, destination)
	}
	query += ` ORDER BY poem_id, destination`

	return db.queryDeliveries(query, args...)
}

func (db *DB) queryDeliveries(query string, args ...any) ([]models.Delivery, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var results []models.Delivery
	for rows.Next() {
		var d models.Delivery
		var status, updatedAt string
		if err := rows.Scan(&d.ID, &d.PoemID, &d.Destination, &status, &d.RemoteID, &d.Error, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		d.Status = models.DeliveryStatus(status)
		d.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		results = append(results, d)
	}

	return results, rows.Err()
}

// MarkPublished marks a poem's delivery to a destination as published
func (db *DB) MarkPublished(poemID int, destination, remoteID string) error {
	return db.setDelivery(poemID, destination, models.DeliveryPublished, remoteID, "")
}

// MarkFailed records a failed delivery attempt
func (db *DB) MarkFailed(poemID int, destination string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return db.setDelivery(poemID, destination, models.DeliveryFailed, "", msg)
}

func (db *DB) setDelivery(poemID int, destination string, status models.DeliveryStatus, remoteID, errMsg string) error {
	query := `
	INSERT INTO deliveries (poem_id, destination, status, remote_id, error, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(poem_id, destination) DO UPDATE SET
		status = excluded.status,
		remote_id = excluded.remote_id,
		error = excluded.error,
		updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(timeLayout)
	if _, err := db.conn.Exec(query, poemID, destination, status, remoteID, errMsg, now); err != nil {
		return fmt.Errorf("marking %s delivery as %s: %w", destination, status, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPoem(row scanner) (*models.Poem, error) {
	var poem models.Poem
	var createdAt string
	if err := row.Scan(&poem.ID, &poem.RunID, &poem.Theme, &poem.Text, &poem.Engine, &poem.Model, &createdAt); err != nil {
		return nil, err
	}

	var err error
	poem.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &poem, nil
}
