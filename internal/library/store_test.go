// internal/library/store_test.go
package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedContinuesCounters(t *testing.T) {
	s := NewStore()
	s.Seed(DefaultSeed())

	_ = s.write(func() error {
		b := s.insertBook(Book{Title: "Fourth"})
		assert.Equal(t, int64(4), b.ID)
		m := s.insertMember(Member{Name: "Dan"})
		assert.Equal(t, int64(4), m.ID)
		assert.Equal(t, "M004", m.MemberID)
		br := s.insertBorrowing(Borrowing{BookID: 4, MemberID: 4})
		assert.Equal(t, int64(3), br.ID)
		return nil
	})
}

func TestSeedReplacesContents(t *testing.T) {
	s := NewStore()
	s.Seed(DefaultSeed())
	s.Seed(SeedData{})

	assert.Empty(t, s.books)
	assert.Empty(t, s.members)
	assert.Empty(t, s.borrowings)

	_ = s.write(func() error {
		assert.Equal(t, int64(1), s.insertBook(Book{}).ID)
		return nil
	})
}

func TestSeedInventoryMatchesOutstanding(t *testing.T) {
	data := DefaultSeed()
	for _, b := range data.Books {
		out := 0
		for _, br := range data.Borrowings {
			if br.BookID == b.ID && br.Outstanding() {
				out++
			}
		}
		assert.Equal(t, b.TotalCopies-b.AvailableCopies, out, "book %d", b.ID)
	}
}

func TestMergeBookShiftsAvailable(t *testing.T) {
	b := Book{TotalCopies: 4, AvailableCopies: 1}
	mergeBook(&b, BookPatch{TotalCopies: intPtr(6)})
	assert.Equal(t, 6, b.TotalCopies)
	assert.Equal(t, 3, b.AvailableCopies)

	mergeBook(&b, BookPatch{Title: strPtr("Renamed")})
	assert.Equal(t, "Renamed", b.Title)
	assert.Equal(t, 3, b.AvailableCopies)
}

func TestRemoveWhere(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	kept, n := removeWhere(items, func(i int) bool { return i%2 == 0 })
	require.Equal(t, 2, n)
	assert.Equal(t, []int{1, 3, 5}, kept)
	assert.Equal(t, []int{1, 3, 5, 0, 0}, items)
}

func TestWriteErrorIsReturned(t *testing.T) {
	s := NewStore()
	err := s.write(func() error { return notFound("book", 9) })
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "book 9: not found")
}
