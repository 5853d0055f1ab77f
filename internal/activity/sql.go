// internal/activity/sql.go
package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var (
	ErrDuplicateEvent    = errors.New("duplicate activity event id")
	ErrUnsupportedDriver = errors.New("unsupported journal driver")
)

var schemas = map[string]string{
	DriverPostgres: `
		CREATE TABLE IF NOT EXISTS activity_events (
			seq BIGSERIAL PRIMARY KEY,
			id UUID NOT NULL UNIQUE,
			action TEXT NOT NULL,
			subject_type TEXT NOT NULL,
			subject_id BIGINT NOT NULL,
			summary TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
	DriverSQLite: `
		CREATE TABLE IF NOT EXISTS activity_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			action TEXT NOT NULL,
			subject_type TEXT NOT NULL,
			subject_id INTEGER NOT NULL,
			summary TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL
		)`,
}

// SQLJournal stores events in a relational table. It works on postgres
// (lib/pq) and sqlite (mattn/go-sqlite3).
type SQLJournal struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// OpenSQLJournal connects to dsn with the named driver and prepares the
// schema.
func OpenSQLJournal(ctx context.Context, driver, dsn string) (*SQLJournal, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect journal database: %w", err)
	}
	if driver == DriverSQLite {
		// a single connection keeps sqlite writers from tripping over each other
		db.SetMaxOpenConns(1)
	}
	j, err := NewSQLJournal(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// NewSQLJournal wraps an open connection and creates the table if needed.
func NewSQLJournal(ctx context.Context, db *sqlx.DB) (*SQLJournal, error) {
	schema, ok := schemas[db.DriverName()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, db.DriverName())
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create activity schema: %w", err)
	}
	return &SQLJournal{
		db:     db,
		tracer: otel.Tracer("libradesk/activity"),
	}, nil
}

// Record inserts the event.
func (j *SQLJournal) Record(ctx context.Context, event Event) error {
	ctx, span := j.tracer.Start(ctx, "activity.record",
		trace.WithAttributes(
			attribute.String("activity.id", event.ID.String()),
			attribute.String("activity.action", string(event.Action)),
			attribute.String("db.driver", j.db.DriverName()),
		),
	)
	defer span.End()

	query := j.db.Rebind(`
		INSERT INTO activity_events (id, action, subject_type, subject_id, summary, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := j.db.ExecContext(ctx, query,
		event.ID, string(event.Action), event.SubjectType, event.SubjectID, event.Summary, event.OccurredAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateEvent
		} else {
			err = fmt.Errorf("failed to insert activity event: %w", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Recent lists up to limit events, newest first.
func (j *SQLJournal) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	ctx, span := j.tracer.Start(ctx, "activity.recent",
		trace.WithAttributes(attribute.Int("activity.limit", limit)),
	)
	defer span.End()

	query := j.db.Rebind(`
		SELECT id, action, subject_type, subject_id, summary, occurred_at
		FROM activity_events
		ORDER BY seq DESC
		LIMIT ?
	`)
	events := []Event{}
	if err := j.db.SelectContext(ctx, &events, query, limit); err != nil {
		err = fmt.Errorf("failed to query activity events: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for i := range events {
		events[i].OccurredAt = events[i].OccurredAt.UTC()
	}

	span.SetAttributes(attribute.Int("activity.loaded", len(events)))
	return events, nil
}

// Close releases the database handle.
func (j *SQLJournal) Close() error {
	return j.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
