package domain

import (
	"context"
	"time"
)

// RecordStatus tracks whether a vehicle is still in the lot.
type RecordStatus string

const (
	StatusIn  RecordStatus = "IN"
	StatusOut RecordStatus = "OUT"
)

// ParkingRecord is one row of the parking log. A record is created when a
// vehicle enters, stays IN until payment is confirmed, and is completed
// with exit time, duration, and amount when it leaves.
type ParkingRecord struct {
	ID          string       `json:"id"`
	Plate       string       `json:"plate"`
	Slot        string       `json:"slot"`
	Status      RecordStatus `json:"status"`
	EntryTime   time.Time    `json:"entry_time"`
	ExitTime    *time.Time   `json:"exit_time,omitempty"`
	DurationMin int          `json:"duration_min,omitempty"`
	Amount      float64      `json:"amount,omitempty"`
}

// LotStats summarizes lot occupancy and revenue.
type LotStats struct {
	Capacity int     `json:"capacity"`
	Occupied int     `json:"occupied"`
	Free     int     `json:"free"`
	Revenue  float64 `json:"revenue"`
}

// DaySummary aggregates a single day of activity.
type DaySummary struct {
	Date    string  `json:"date"`
	Entries int     `json:"entries"`
	Exits   int     `json:"exits"`
	Revenue float64 `json:"revenue"`
}

// ParkingStore persists the parking log.
type ParkingStore interface {
	// LogEntry inserts a new IN record.
	LogEntry(ctx context.Context, rec ParkingRecord) error
	// FindOpen returns the most recent IN record for a plate.
	FindOpen(ctx context.Context, plate string) (*ParkingRecord, error)
	// CompleteExit fills exit fields and flips the record to OUT.
	CompleteExit(ctx context.Context, id string, exitTime time.Time, durationMin int, amount float64) error
	// History returns all records, newest first.
	History(ctx context.Context) ([]ParkingRecord, error)
	// OccupiedSlots maps occupied slot labels to plates.
	OccupiedSlots(ctx context.Context) (map[string]string, error)
	// Stats returns current occupancy and total revenue.
	Stats(ctx context.Context, capacity int) (LotStats, error)
	// Summary aggregates activity for the day containing t.
	Summary(ctx context.Context, t time.Time) (DaySummary, error)
	Close() error
}
