package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Category classifies journal events for filtering and retention.
type Category string

// Event categories.
const (
	// CategoryAlarm covers alarm and fire alarm activations.
	CategoryAlarm Category = "alarm"

	// CategoryArming covers arm and disarm state changes.
	CategoryArming Category = "arming"

	// CategoryTrouble covers trouble and tamper conditions.
	CategoryTrouble Category = "trouble"

	// CategoryCommand covers control command outcomes (accepted, rejected).
	CategoryCommand Category = "command"

	// CategoryConnection covers panel link state changes.
	CategoryConnection Category = "connection"
)

// Event is a single journal entry recording something the bridge observed.
type Event struct {
	// ID is assigned by the database on insert.
	ID int64

	// OccurredAt is when the event was observed (UTC).
	OccurredAt time.Time

	// Category groups the event for filtering.
	Category Category

	// Kind names the specific status fragment or action,
	// e.g. "zones_alarm" or "arm".
	Kind string

	// Numbers lists the zone, partition or output numbers involved.
	Numbers []int

	// Detail carries free-form context, e.g. a rejection reason.
	Detail string
}

// Filter narrows a List query. Zero values mean "no constraint".
type Filter struct {
	Category Category
	Since    time.Time
	Until    time.Time
	Limit    int
}

// defaultListLimit caps unbounded List queries.
const defaultListLimit = 200

// Repository defines the interface for journal persistence.
// The abstraction keeps the bridge testable without a real database.
type Repository interface {
	// Record inserts a new event. The event's ID is set on success.
	// A zero OccurredAt is replaced with the current time.
	Record(ctx context.Context, event *Event) error

	// List retrieves events matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]Event, error)

	// Count returns the total number of journalled events.
	Count(ctx context.Context) (int64, error)

	// PruneBefore deletes events older than the cutoff and reports
	// how many rows were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the
// events table migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a new event.
func (r *SQLiteRepository) Record(ctx context.Context, event *Event) error {
	if event.Kind == "" {
		return ErrMissingKind
	}
	if event.Category == "" {
		return ErrMissingCategory
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	numbers, err := marshalNumbers(event.Numbers)
	if err != nil {
		return fmt.Errorf("encoding event numbers: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO events (occurred_at, category, kind, numbers, detail)
		VALUES (?, ?, ?, ?, ?)`,
		event.OccurredAt.UTC().Format(time.RFC3339Nano),
		string(event.Category),
		event.Kind,
		numbers,
		event.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event id: %w", err)
	}
	event.ID = id
	return nil
}

// List retrieves events matching the filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, occurred_at, category, kind, numbers, detail
		FROM events`

	var conds []string
	var args []any

	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(filter.Category))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "occurred_at < ?")
		args = append(args, filter.Until.UTC().Format(time.RFC3339Nano))
	}

	for i, cond := range conds {
		if i == 0 {
			query += "\n\t\tWHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += "\n\t\tORDER BY occurred_at DESC, id DESC\n\t\tLIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// Count returns the total number of journalled events.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// PruneBefore deletes events older than the cutoff.
func (r *SQLiteRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM events WHERE occurred_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading pruned count: %w", err)
	}
	return removed, nil
}

// scanEvent reads a single event row.
func scanEvent(rows *sql.Rows) (Event, error) {
	var event Event
	var occurredAt, category, numbers string

	if err := rows.Scan(&event.ID, &occurredAt, &category, &event.Kind, &numbers, &event.Detail); err != nil {
		return Event{}, fmt.Errorf("scanning event row: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, occurredAt)
	if err != nil {
		return Event{}, fmt.Errorf("parsing event timestamp: %w", err)
	}
	event.OccurredAt = ts
	event.Category = Category(category)

	if err := json.Unmarshal([]byte(numbers), &event.Numbers); err != nil {
		return Event{}, fmt.Errorf("decoding event numbers: %w", err)
	}
	return event, nil
}

// marshalNumbers encodes the numbers slice as JSON, normalising nil to [].
func marshalNumbers(numbers []int) (string, error) {
	if numbers == nil {
		numbers = []int{}
	}
	data, err := json.Marshal(numbers)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
