// internal/httpapi/borrowings.go
package httpapi

import (
	"net/http"
	"strings"

	"cloud.google.com/go/civil"

	"libradesk/internal/activity"
	"libradesk/internal/library"
)

type borrowRequest struct {
	BookID   looseInt `json:"bookId"`
	MemberID looseInt `json:"memberId"`
	DueDate  string   `json:"dueDate"`
}

func (b borrowRequest) request() (library.BorrowRequest, error) {
	if !b.BookID.Set {
		return library.BorrowRequest{}, &library.ValidationError{Field: "bookId", Reason: "is required"}
	}
	if !b.MemberID.Set {
		return library.BorrowRequest{}, &library.ValidationError{Field: "memberId", Reason: "is required"}
	}
	req := library.BorrowRequest{BookID: b.BookID.Value, MemberID: b.MemberID.Value}
	if due := strings.TrimSpace(b.DueDate); due != "" {
		d, err := civil.ParseDate(due)
		if err != nil {
			return library.BorrowRequest{}, &library.ValidationError{Field: "dueDate", Reason: "must be formatted YYYY-MM-DD"}
		}
		req.DueDate = d
	}
	return req, nil
}

func (h *Handler) listBorrowings(w http.ResponseWriter, r *http.Request) {
	borrowings, err := h.service.ListBorrowings(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, borrowings)
}

func (h *Handler) recentBorrowings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	borrowings, err := h.service.RecentBorrowings(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, borrowings)
}

func (h *Handler) borrowBook(w http.ResponseWriter, r *http.Request) {
	var body borrowRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	req, err := body.request()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	borrowing, err := h.service.BorrowBook(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, borrowing)
}

func (h *Handler) returnBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	borrowing, err := h.service.ReturnBook(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, borrowing)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) reports(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ReportData(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ActivityItem is an activity event with its display label.
type ActivityItem struct {
	activity.Event
	Label string `json:"label"`
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	events, err := h.service.RecentActivity(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]ActivityItem, 0, len(events))
	for _, e := range events {
		items = append(items, ActivityItem{Event: e, Label: e.Action.Label()})
	}
	writeJSON(w, http.StatusOK, items)
}
