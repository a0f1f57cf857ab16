package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/swimdata/go-scrape-swim/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS events (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL,
	distance INTEGER NOT NULL,
	stroke   TEXT NOT NULL,
	course   TEXT NOT NULL,
	is_relay INTEGER NOT NULL,
	UNIQUE (name, course)
);

CREATE TABLE IF NOT EXISTS swim_times (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	swimmer_name   TEXT NOT NULL,
	age            INTEGER,
	team           TEXT,
	event_id       INTEGER NOT NULL REFERENCES events (id),
	source_id      INTEGER NOT NULL REFERENCES sources (id),
	time_seconds   REAL NOT NULL,
	time_formatted TEXT NOT NULL,
	meet_name      TEXT,
	meet_date      TEXT,
	source_url     TEXT,
	scraped_at     TEXT NOT NULL,
	UNIQUE (swimmer_name, event_id, time_seconds, meet_name)
);

CREATE INDEX IF NOT EXISTS idx_swim_times_event ON swim_times (event_id);
CREATE INDEX IF NOT EXISTS idx_swim_times_swimmer ON swim_times (swimmer_name);
`

const (
	sourceCacheSize = 16
	eventCacheSize  = 512
)

// SQLiteStore persists records in a normalized SQLite database. Source and
// event dimensions are resolved lookup-or-create, with LRU caches in front
// so a run of similar rows hits the database once per dimension value.
type SQLiteStore struct {
	db      *sql.DB
	sources *lru.Cache[string, int64]
	events  *lru.Cache[string, int64]
}

// NewSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	sources, err := lru.New[string, int64](sourceCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	events, err := lru.New[string, int64](eventCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, sources: sources, events: events}, nil
}

// Save inserts a batch in one transaction and reports how many rows were
// new. Rows matching the uniqueness guard are silently skipped.
func (s *SQLiteStore) Save(ctx context.Context, records []*models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO swim_times
			(swimmer_name, age, team, event_id, source_id, time_seconds,
			 time_formatted, meet_name, meet_date, source_url, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, record := range records {
		sourceID, err := s.sourceID(ctx, tx, record.Source)
		if err != nil {
			return 0, err
		}
		eventID, err := s.eventID(ctx, tx, record)
		if err != nil {
			return 0, err
		}

		res, err := stmt.ExecContext(ctx,
			record.SwimmerName, record.Age, record.Team, eventID, sourceID,
			record.TimeSeconds, record.TimeFormatted, record.MeetName,
			record.MeetDate, record.SourceURL,
			record.ScrapedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return 0, fmt.Errorf("insert swim time: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) sourceID(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	if id, ok := s.sources.Get(name); ok {
		return id, nil
	}
	id, err := lookupOrCreate(ctx, tx,
		`SELECT id FROM sources WHERE name = ?`,
		`INSERT INTO sources (name) VALUES (?)`,
		name)
	if err != nil {
		return 0, fmt.Errorf("source %q: %w", name, err)
	}
	s.sources.Add(name, id)
	return id, nil
}

func (s *SQLiteStore) eventID(ctx context.Context, tx *sql.Tx, record *models.Record) (int64, error) {
	key := record.EventName + "|" + record.Course
	if id, ok := s.events.Get(key); ok {
		return id, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM events WHERE name = ? AND course = ?`,
		record.EventName, record.Course).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (name, distance, stroke, course, is_relay)
			 VALUES (?, ?, ?, ?, ?)`,
			record.EventName, record.Distance, record.Stroke,
			record.Course, record.IsRelay)
		if err != nil {
			return 0, fmt.Errorf("event %q: %w", record.EventName, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("event %q: %w", record.EventName, err)
		}
	case err != nil:
		return 0, fmt.Errorf("event %q: %w", record.EventName, err)
	}

	s.events.Add(key, id)
	return id, nil
}

func lookupOrCreate(ctx context.Context, tx *sql.Tx, selectQuery, insertQuery string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, selectQuery, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, insertQuery, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
