// internal/library/query.go
package library

import (
	"errors"
	"strconv"
	"strings"
)

// Search matching: text fields compare case-insensitively, identifiers
// (isbn, member code, borrowing id) compare as raw substrings. An empty term
// matches everything. Results are copies in store order.

func containsFold(field, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(field), lowerTerm)
}

func filterBooks(books []Book, term string) []Book {
	lower := strings.ToLower(term)
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if term == "" ||
			containsFold(b.Title, lower) ||
			containsFold(b.Author, lower) ||
			strings.Contains(b.ISBN, term) {
			out = append(out, b)
		}
	}
	return out
}

func availableBooks(books []Book) []Book {
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if b.AvailableCopies > 0 {
			out = append(out, b)
		}
	}
	return out
}

func filterMembers(members []Member, term string) []Member {
	lower := strings.ToLower(term)
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if term == "" ||
			containsFold(m.Name, lower) ||
			containsFold(m.Email, lower) ||
			strings.Contains(m.MemberID, term) {
			out = append(out, m)
		}
	}
	return out
}

func filterBorrowings(borrowings []Borrowing, term string) []Borrowing {
	lower := strings.ToLower(term)
	out := make([]Borrowing, 0, len(borrowings))
	for _, b := range borrowings {
		if term == "" ||
			containsFold(b.BookTitle, lower) ||
			containsFold(b.MemberName, lower) ||
			strings.Contains(strconv.FormatInt(b.ID, 10), term) {
			out = append(out, cloneBorrowing(b))
		}
	}
	return out
}

func countBorrowings(borrowings []Borrowing, pred func(Borrowing) bool) int {
	n := 0
	for _, b := range borrowings {
		if pred(b) {
			n++
		}
	}
	return n
}

func isNoCopies(err error) bool {
	return errors.Is(err, ErrNoCopiesAvailable)
}
