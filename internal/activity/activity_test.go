// internal/activity/activity_test.go
package activity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, time.June, 10, 9, 30, 0, 0, time.UTC)

func sampleEvents(n int) []Event {
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, NewEvent(BookBorrowed, "borrowing", int64(i+1),
			fmt.Sprintf("borrowing %d", i+1), t0.Add(time.Duration(i)*time.Minute)))
	}
	return events
}

// journalContract runs the behavior every Journal must share.
func journalContract(t *testing.T, j Journal) {
	t.Helper()
	ctx := context.Background()

	events, err := j.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = j.Recent(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	for _, e := range sampleEvents(4) {
		require.NoError(t, j.Record(ctx, e))
	}

	events, err = j.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, int64(4), events[0].SubjectID)
	assert.Equal(t, int64(2), events[2].SubjectID)
	assert.Equal(t, BookBorrowed, events[0].Action)
	assert.Equal(t, "borrowing 4", events[0].Summary)
	assert.True(t, t0.Add(3*time.Minute).Equal(events[0].OccurredAt))

	events, err = j.Recent(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestMemoryJournal(t *testing.T) {
	journalContract(t, NewMemoryJournal(0))
}

func TestMemoryJournalWrapsAround(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryJournal(3)
	for _, e := range sampleEvents(5) {
		require.NoError(t, j.Record(ctx, e))
	}

	events, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []int64{5, 4, 3}, []int64{events[0].SubjectID, events[1].SubjectID, events[2].SubjectID})
}

func TestMemoryJournalHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j := NewMemoryJournal(1)
	assert.ErrorIs(t, j.Record(ctx, sampleEvents(1)[0]), context.Canceled)
}

func openSQLite(t *testing.T) *SQLJournal {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "activity.db")
	j, err := OpenSQLJournal(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestSQLiteJournal(t *testing.T) {
	j := openSQLite(t)
	journalContract(t, j)

	events, err := j.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.ErrorIs(t, j.Record(context.Background(), events[0]), ErrDuplicateEvent)
}

func TestSQLiteJournalReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "activity.db")

	j, err := OpenSQLJournal(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, sampleEvents(1)[0]))
	require.NoError(t, j.Close())

	j, err = OpenSQLJournal(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	defer j.Close()
	events, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestOpenSQLJournalRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQLJournal(context.Background(), "mysql", "whatever")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

// postgresDSN builds a DSN from the usual PG* variables. The test is skipped
// when no server answers.
func postgresDSN() string {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		get("PGHOST", "localhost"), get("PGPORT", "5432"), get("PGUSER", "user"),
		get("PGPASSWORD", "password"), get("PGDATABASE", "testdb"))
}

func TestPostgresJournal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	j, err := OpenSQLJournal(ctx, DriverPostgres, postgresDSN())
	if err != nil {
		t.Skipf("skipping postgres journal test: %v", err)
	}
	defer j.Close()

	_, err = j.db.Exec("TRUNCATE TABLE activity_events")
	require.NoError(t, err)
	journalContract(t, j)
}

func TestRedisMessageCodec(t *testing.T) {
	e := sampleEvents(1)[0]
	raw, err := EncodeMessage(e)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"action":"book_borrowed"`)
	assert.Contains(t, string(raw), `"subjectType":"borrowing"`)

	decoded, err := DecodeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, e.ID, decoded.ID)
	assert.True(t, e.OccurredAt.Equal(decoded.OccurredAt))

	_, err = DecodeMessage([]byte("{not json"))
	assert.Error(t, err)
}

func TestNewRedisPublisherRequiresAddress(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), " ", "")
	assert.Error(t, err)
}

func TestRedisPublishSubscribe(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pub, err := NewRedisPublisher(ctx, addr, "libradesk.activity.test")
	require.NoError(t, err)
	defer pub.Close()

	got := make(chan Event, 1)
	subCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = pub.Subscribe(subCtx, func(e Event) { got <- e })
	}()

	want := sampleEvents(1)[0]
	// Publishing before the subscription is live loses the message, so retry.
	for {
		require.NoError(t, pub.Record(ctx, want))
		select {
		case e := <-got:
			assert.Equal(t, want.ID, e.ID)
			return
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("no message received")
		}
	}
}

type stubRecorder struct {
	err    error
	events []Event
}

func (s *stubRecorder) Record(_ context.Context, e Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

type failingPrimary struct{ *MemoryJournal }

func (failingPrimary) Record(context.Context, Event) error { return errors.New("primary down") }

func TestFanout(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryJournal(10)
	ok := &stubRecorder{}
	broken := &stubRecorder{err: errors.New("redis unavailable")}

	f := NewFanout(primary, broken, ok)
	e := sampleEvents(1)[0]
	err := f.Record(ctx, e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis unavailable")
	assert.Len(t, ok.events, 1, "later recorders still run")

	events, err := f.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, e.ID, events[0].ID)

	downstream := &stubRecorder{}
	f = NewFanout(failingPrimary{NewMemoryJournal(1)}, downstream)
	assert.Error(t, f.Record(ctx, e))
	assert.Empty(t, downstream.events)
}

func TestActionLabel(t *testing.T) {
	assert.Equal(t, "New member registered", MemberRegistered.Label())
	assert.Equal(t, "something_else", Action("something_else").Label())
}
