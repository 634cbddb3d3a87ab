// Package store persists the parking log in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"parkd/internal/domain"
)

// timeFormat is fixed-width so stored timestamps order correctly under
// SQLite's lexicographic TEXT comparison. RFC3339Nano trims trailing
// zeros, which breaks range queries at second boundaries.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements domain.ParkingStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs the
// schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open parking db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate parking db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS parking_log (
			id           TEXT PRIMARY KEY,
			plate        TEXT NOT NULL,
			entry_time   TEXT NOT NULL,
			exit_time    TEXT,
			duration_min INTEGER NOT NULL DEFAULT 0,
			amount       REAL NOT NULL DEFAULT 0,
			status       TEXT NOT NULL,
			slot         TEXT
		)
	`)
	if err != nil {
		return err
	}
	// Databases created before slot assignment existed lack the column.
	rows, err := db.Query("PRAGMA table_info(parking_log)")
	if err != nil {
		return err
	}
	defer rows.Close()
	hasSlot := false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if name == "slot" {
			hasSlot = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if !hasSlot {
		if _, err := db.Exec("ALTER TABLE parking_log ADD COLUMN slot TEXT"); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LogEntry(ctx context.Context, rec domain.ParkingRecord) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO parking_log (id, plate, entry_time, status, slot) VALUES (?, ?, ?, ?, ?)",
		rec.ID, rec.Plate, rec.EntryTime.UTC().Format(timeFormat), string(rec.Status), rec.Slot,
	)
	if err != nil {
		return fmt.Errorf("log entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindOpen(ctx context.Context, plate string) (*domain.ParkingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plate, entry_time, exit_time, duration_min, amount, status, slot
		 FROM parking_log WHERE plate = ? AND status = ? ORDER BY entry_time DESC LIMIT 1`,
		plate, string(domain.StatusIn),
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) CompleteExit(ctx context.Context, id string, exitTime time.Time, durationMin int, amount float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE parking_log SET exit_time = ?, duration_min = ?, amount = ?, status = ? WHERE id = ?",
		exitTime.UTC().Format(timeFormat), durationMin, amount, string(domain.StatusOut), id,
	)
	if err != nil {
		return fmt.Errorf("complete exit: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context) ([]domain.ParkingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plate, entry_time, exit_time, duration_min, amount, status, slot
		 FROM parking_log ORDER BY entry_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.ParkingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) OccupiedSlots(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT slot, plate FROM parking_log WHERE status = ?", string(domain.StatusIn))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	occupied := make(map[string]string)
	for rows.Next() {
		var slot sql.NullString
		var plate string
		if err := rows.Scan(&slot, &plate); err != nil {
			return nil, err
		}
		if slot.Valid && slot.String != "" {
			occupied[slot.String] = plate
		}
	}
	return occupied, rows.Err()
}

func (s *SQLiteStore) Stats(ctx context.Context, capacity int) (domain.LotStats, error) {
	stats := domain.LotStats{Capacity: capacity}

	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM parking_log WHERE status = ?", string(domain.StatusIn))
	if err := row.Scan(&stats.Occupied); err != nil {
		return stats, err
	}

	row = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM parking_log WHERE status = ?", string(domain.StatusOut))
	if err := row.Scan(&stats.Revenue); err != nil {
		return stats, err
	}

	stats.Free = capacity - stats.Occupied
	if stats.Free < 0 {
		stats.Free = 0
	}
	return stats, nil
}

func (s *SQLiteStore) Summary(ctx context.Context, t time.Time) (domain.DaySummary, error) {
	day := t.UTC().Truncate(24 * time.Hour)
	start := day.Format(timeFormat)
	end := day.Add(24 * time.Hour).Format(timeFormat)
	sum := domain.DaySummary{Date: day.Format("2006-01-02")}

	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM parking_log WHERE entry_time >= ? AND entry_time < ?", start, end)
	if err := row.Scan(&sum.Entries); err != nil {
		return sum, err
	}

	row = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM parking_log
		 WHERE status = ? AND exit_time >= ? AND exit_time < ?`,
		string(domain.StatusOut), start, end)
	if err := row.Scan(&sum.Exits, &sum.Revenue); err != nil {
		return sum, err
	}
	return sum, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.ParkingRecord, error) {
	var rec domain.ParkingRecord
	var status string
	var entryStr string
	var exitStr, slot sql.NullString
	if err := row.Scan(&rec.ID, &rec.Plate, &entryStr, &exitStr, &rec.DurationMin, &rec.Amount, &status, &slot); err != nil {
		return nil, err
	}
	rec.Status = domain.RecordStatus(status)
	rec.Slot = slot.String

	entry, err := time.Parse(time.RFC3339Nano, entryStr)
	if err != nil {
		return nil, fmt.Errorf("parse entry_time: %w", err)
	}
	rec.EntryTime = entry

	if exitStr.Valid && exitStr.String != "" {
		exit, err := time.Parse(time.RFC3339Nano, exitStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse exit_time: %w", err)
		}
		rec.ExitTime = &exit
	}
	return &rec, nil
}
