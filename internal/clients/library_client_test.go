// internal/clients/library_client_test.go
package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/activity"
	"libradesk/internal/httpapi"
	"libradesk/internal/library"
)

func newClient(t *testing.T) *LibraryClient {
	t.Helper()
	store := library.NewStore()
	store.Seed(library.DefaultSeed())
	svc := library.NewService(store,
		library.WithClock(library.ClockFunc(func() time.Time {
			return time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)
		})),
		library.WithJournal(activity.NewMemoryJournal(0)),
	)
	srv := httptest.NewServer(httpapi.NewHandler(svc, nil).Routes(httpapi.Config{}))
	t.Cleanup(srv.Close)
	return NewLibraryClient(srv.URL+"/", WithHTTPClient(srv.Client()))
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	books, err := c.ListBooks(ctx, "data")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Data Structures", books[0].Title)

	copies := 1
	book, err := c.AddBook(ctx, library.BookInput{Title: "Dune", Author: "Frank Herbert", Genre: "Fiction", TotalCopies: &copies})
	require.NoError(t, err)
	assert.Equal(t, int64(4), book.ID)

	member, err := c.AddMember(ctx, library.MemberInput{Name: "Paul", Email: "paul@arrakis.test", MemberType: library.MemberPublic})
	require.NoError(t, err)
	assert.Equal(t, "M004", member.MemberID)

	borrowing, err := c.BorrowBook(ctx, library.BorrowRequest{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-24", borrowing.DueDate.String())

	_, err = c.BorrowBook(ctx, library.BorrowRequest{BookID: book.ID, MemberID: member.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrNoCopiesAvailable))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	returned, err := c.ReturnBook(ctx, borrowing.ID)
	require.NoError(t, err)
	assert.NotNil(t, returned.ReturnDate)

	_, err = c.ReturnBook(ctx, borrowing.ID)
	assert.ErrorIs(t, err, library.ErrAlreadyReturned)

	stats, err := c.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalBooks)
	assert.Equal(t, 1, stats.BooksBorrowed)

	items, err := c.RecentActivity(ctx, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, activity.BookReturned, items[0].Action)
}

func TestClientUpdatesAndDeletes(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	title := "Python Programming, 2nd ed."
	book, err := c.UpdateBook(ctx, 1, library.BookPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, book.Title)

	phone := "000"
	member, err := c.UpdateMember(ctx, 2, library.MemberPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "000", member.Phone)

	require.NoError(t, c.DeleteBook(ctx, 3))
	_, err = c.GetBook(ctx, 3)
	assert.ErrorIs(t, err, library.ErrNotFound)

	require.NoError(t, c.DeleteMember(ctx, 3))
	_, err = c.GetMember(ctx, 3)
	assert.ErrorIs(t, err, library.ErrNotFound)

	available, err := c.ListAvailableBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	members, err := c.ListMembers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	borrowings, err := c.ListBorrowings(ctx, "python")
	require.NoError(t, err)
	assert.Len(t, borrowings, 1)
	assert.Equal(t, "Python Programming", borrowings[0].BookTitle, "snapshot is not renamed")

	recent, err := c.RecentBorrowings(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	report, err := c.ReportData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalBooks)
}

func TestClientValidationError(t *testing.T) {
	c := newClient(t)
	_, err := c.AddMember(context.Background(), library.MemberInput{Name: "x", Email: "bad", MemberType: library.MemberStaff})
	require.Error(t, err)
	assert.ErrorIs(t, err, library.ErrValidation)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "email", apiErr.Field)
}

func TestClientNonEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewLibraryClient(srv.URL).ListBooks(context.Background(), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream exploded", apiErr.Message)
	assert.Nil(t, errors.Unwrap(apiErr))
}

func TestClientPropagatesTraceContext(t *testing.T) {
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() { otel.SetTextMapPropagator(prop) })
	otel.SetTextMapPropagator(propagation.TraceContext{})

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("traceparent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))

	_, err := NewLibraryClient(srv.URL).ListBooks(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", got)
}
