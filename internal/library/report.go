// internal/library/report.go
package library

import (
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const (
	trendMonths = 6
	topGenres   = 4
	othersGenre = "Others"
)

// buildReport expects the caller to hold the store's read lock.
func buildReport(s *Store, today civil.Date) ReportData {
	return ReportData{
		TotalBooks:        len(s.books),
		TotalMembers:      len(s.members),
		ActiveBorrowings:  countBorrowings(s.borrowings, Borrowing.Outstanding),
		OverdueBooks:      countBorrowings(s.borrowings, func(b Borrowing) bool { return b.Overdue(today) }),
		BorrowingTrends:   borrowingTrends(s.borrowings, today),
		GenreDistribution: genreDistribution(s.books),
	}
}

type yearMonth struct {
	year  int
	month time.Month
}

// borrowingTrends counts borrowings by borrow month for the trendMonths
// calendar months ending with today's month, oldest first.
func borrowingTrends(borrowings []Borrowing, today civil.Date) []MonthlyBorrowings {
	months := make([]yearMonth, trendMonths)
	y, m := today.Year, today.Month
	for i := trendMonths - 1; i >= 0; i-- {
		months[i] = yearMonth{y, m}
		if m == time.January {
			y, m = y-1, time.December
		} else {
			m--
		}
	}

	counts := make(map[yearMonth]int, trendMonths)
	for _, b := range borrowings {
		counts[yearMonth{b.BorrowDate.Year, b.BorrowDate.Month}]++
	}

	out := make([]MonthlyBorrowings, 0, trendMonths)
	for _, ym := range months {
		out = append(out, MonthlyBorrowings{
			Month:      ym.month.String()[:3],
			Borrowings: counts[ym],
		})
	}
	return out
}

// genreDistribution counts titles per genre. The topGenres largest are kept
// and the rest fold into Others, which is dropped when empty.
func genreDistribution(books []Book) []GenreShare {
	counts := make(map[string]int)
	others := 0
	for _, b := range books {
		g := strings.TrimSpace(b.Genre)
		if g == "" || strings.EqualFold(g, othersGenre) {
			others++
			continue
		}
		counts[g]++
	}

	shares := make([]GenreShare, 0, len(counts)+1)
	for name, n := range counts {
		shares = append(shares, GenreShare{Name: name, Value: n})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Value != shares[j].Value {
			return shares[i].Value > shares[j].Value
		}
		return shares[i].Name < shares[j].Name
	})

	if len(shares) > topGenres {
		for _, s := range shares[topGenres:] {
			others += s.Value
		}
		shares = shares[:topGenres]
	}
	if others > 0 {
		shares = append(shares, GenreShare{Name: othersGenre, Value: others})
	}
	return shares
}
