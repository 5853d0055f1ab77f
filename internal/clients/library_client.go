// internal/clients/library_client.go
package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"libradesk/internal/httpapi"
	"libradesk/internal/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIError is a decoded error envelope. It unwraps to the library sentinel
// matching its code, so errors.Is works across the wire.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("libradesk api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case httpapi.CodeValidation:
		return library.ErrValidation
	case httpapi.CodeNotFound:
		return library.ErrNotFound
	case httpapi.CodeNoCopies:
		return library.ErrNoCopiesAvailable
	case httpapi.CodeReturned:
		return library.ErrAlreadyReturned
	case httpapi.CodeConflict:
		return library.ErrConflict
	}
	return nil
}

type LibraryClient struct {
	baseURL string
	http    *http.Client
}

type ClientOption func(*LibraryClient)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(lc *LibraryClient) { lc.http = c }
}

func NewLibraryClient(baseURL string, opts ...ClientOption) *LibraryClient {
	c := &LibraryClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LibraryClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope httpapi.ErrorBody
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{Status: resp.StatusCode, Code: httpapi.CodeInternal, Message: strings.TrimSpace(string(raw))}
	}
	return &APIError{
		Status:  resp.StatusCode,
		Code:    envelope.Error.Code,
		Message: envelope.Error.Message,
		Field:   envelope.Error.Field,
	}
}

func withQuery(path, key, value string) string {
	if value == "" {
		return path
	}
	return path + "?" + url.Values{key: {value}}.Encode()
}

func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	return withQuery(path, "limit", strconv.Itoa(limit))
}

func (c *LibraryClient) ListBooks(ctx context.Context, search string) ([]library.Book, error) {
	var books []library.Book
	if err := c.do(ctx, http.MethodGet, withQuery("/books", "q", search), nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *LibraryClient) ListAvailableBooks(ctx context.Context) ([]library.Book, error) {
	var books []library.Book
	if err := c.do(ctx, http.MethodGet, "/books/available", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *LibraryClient) GetBook(ctx context.Context, id int64) (*library.Book, error) {
	var book library.Book
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/books/%d", id), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *LibraryClient) AddBook(ctx context.Context, in library.BookInput) (*library.Book, error) {
	var book library.Book
	if err := c.do(ctx, http.MethodPost, "/books", in, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *LibraryClient) UpdateBook(ctx context.Context, id int64, patch library.BookPatch) (*library.Book, error) {
	var book library.Book
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/books/%d", id), patch, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *LibraryClient) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/books/%d", id), nil, nil)
}

func (c *LibraryClient) ListMembers(ctx context.Context, search string) ([]library.Member, error) {
	var members []library.Member
	if err := c.do(ctx, http.MethodGet, withQuery("/members", "q", search), nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *LibraryClient) GetMember(ctx context.Context, id int64) (*library.Member, error) {
	var member library.Member
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/members/%d", id), nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *LibraryClient) AddMember(ctx context.Context, in library.MemberInput) (*library.Member, error) {
	var member library.Member
	if err := c.do(ctx, http.MethodPost, "/members", in, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *LibraryClient) UpdateMember(ctx context.Context, id int64, patch library.MemberPatch) (*library.Member, error) {
	var member library.Member
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/members/%d", id), patch, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *LibraryClient) DeleteMember(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/members/%d", id), nil, nil)
}

func (c *LibraryClient) ListBorrowings(ctx context.Context, search string) ([]library.Borrowing, error) {
	var borrowings []library.Borrowing
	if err := c.do(ctx, http.MethodGet, withQuery("/borrowings", "q", search), nil, &borrowings); err != nil {
		return nil, err
	}
	return borrowings, nil
}

func (c *LibraryClient) RecentBorrowings(ctx context.Context, limit int) ([]library.Borrowing, error) {
	var borrowings []library.Borrowing
	if err := c.do(ctx, http.MethodGet, withLimit("/borrowings/recent", limit), nil, &borrowings); err != nil {
		return nil, err
	}
	return borrowings, nil
}

// BorrowBook posts the request. A zero due date is omitted so the server
// applies its loan period.
func (c *LibraryClient) BorrowBook(ctx context.Context, req library.BorrowRequest) (*library.Borrowing, error) {
	body := map[string]any{"bookId": req.BookID, "memberId": req.MemberID}
	if req.DueDate.IsValid() {
		body["dueDate"] = req.DueDate.String()
	}
	var borrowing library.Borrowing
	if err := c.do(ctx, http.MethodPost, "/borrowings", body, &borrowing); err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (c *LibraryClient) ReturnBook(ctx context.Context, borrowingID int64) (*library.Borrowing, error) {
	var borrowing library.Borrowing
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/borrowings/%d/return", borrowingID), nil, &borrowing); err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (c *LibraryClient) DashboardStats(ctx context.Context) (library.DashboardStats, error) {
	var stats library.DashboardStats
	err := c.do(ctx, http.MethodGet, "/dashboard", nil, &stats)
	return stats, err
}

func (c *LibraryClient) ReportData(ctx context.Context) (*library.ReportData, error) {
	var report library.ReportData
	if err := c.do(ctx, http.MethodGet, "/reports", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *LibraryClient) RecentActivity(ctx context.Context, limit int) ([]httpapi.ActivityItem, error) {
	var items []httpapi.ActivityItem
	if err := c.do(ctx, http.MethodGet, withLimit("/activity", limit), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
