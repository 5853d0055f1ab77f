// internal/library/store.go
package library

import (
	"fmt"
	"sync"
)

// Store owns the books, members and borrowings collections. Collections keep
// insertion order. Ids come from per-collection counters that never move
// backwards, so an id is never handed out twice even after deletions.
//
// The mutation primitives below expect the caller to hold the write lock;
// the lookup helpers expect at least the read lock.
type Store struct {
	mu sync.RWMutex

	books      []Book
	members    []Member
	borrowings []Borrowing

	lastBookID      int64
	lastMemberID    int64
	lastBorrowingID int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// SeedData is a complete store image used to preload a store.
type SeedData struct {
	Books      []Book
	Members    []Member
	Borrowings []Borrowing
}

// Seed replaces the store contents with data. Ids are kept as given and the
// counters continue after the highest id of each collection.
func (s *Store) Seed(data SeedData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books = append([]Book(nil), data.Books...)
	s.members = append([]Member(nil), data.Members...)
	s.borrowings = make([]Borrowing, 0, len(data.Borrowings))
	for _, b := range data.Borrowings {
		s.borrowings = append(s.borrowings, cloneBorrowing(b))
	}

	s.lastBookID, s.lastMemberID, s.lastBorrowingID = 0, 0, 0
	for _, b := range s.books {
		s.lastBookID = max(s.lastBookID, b.ID)
	}
	for _, m := range s.members {
		s.lastMemberID = max(s.lastMemberID, m.ID)
	}
	for _, b := range s.borrowings {
		s.lastBorrowingID = max(s.lastBorrowingID, b.ID)
	}
}

func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// write runs fn under the write lock. fn must validate everything it needs
// before its first mutation so that a returned error leaves the store intact.
func (s *Store) write(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// memberCode formats the display code for a member id.
func memberCode(id int64) string {
	return fmt.Sprintf("M%03d", id)
}

func (s *Store) insertBook(b Book) Book {
	s.lastBookID++
	b.ID = s.lastBookID
	s.books = append(s.books, b)
	return b
}

func (s *Store) insertMember(m Member) Member {
	s.lastMemberID++
	m.ID = s.lastMemberID
	m.MemberID = memberCode(m.ID)
	s.members = append(s.members, m)
	return m
}

func (s *Store) insertBorrowing(b Borrowing) Borrowing {
	s.lastBorrowingID++
	b.ID = s.lastBorrowingID
	s.borrowings = append(s.borrowings, b)
	return cloneBorrowing(b)
}

func (s *Store) bookIndex(id int64) int {
	for i := range s.books {
		if s.books[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) memberIndex(id int64) int {
	for i := range s.members {
		if s.members[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) borrowingIndex(id int64) int {
	for i := range s.borrowings {
		if s.borrowings[i].ID == id {
			return i
		}
	}
	return -1
}

// mergeBook applies the non-nil fields of p to b.
func mergeBook(b *Book, p BookPatch) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.ISBN != nil {
		b.ISBN = *p.ISBN
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	if p.PublicationYear != nil {
		b.PublicationYear = *p.PublicationYear
	}
	if p.TotalCopies != nil {
		b.AvailableCopies += *p.TotalCopies - b.TotalCopies
		b.TotalCopies = *p.TotalCopies
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
}

// mergeMember applies the non-nil fields of p to m.
func mergeMember(m *Member, p MemberPatch) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Email != nil {
		m.Email = *p.Email
	}
	if p.Phone != nil {
		m.Phone = *p.Phone
	}
	if p.Address != nil {
		m.Address = *p.Address
	}
	if p.MemberType != nil {
		m.MemberType = *p.MemberType
	}
}

func (s *Store) removeBooks(pred func(Book) bool) int {
	var n int
	s.books, n = removeWhere(s.books, pred)
	return n
}

func (s *Store) removeMembers(pred func(Member) bool) int {
	var n int
	s.members, n = removeWhere(s.members, pred)
	return n
}

// removeWhere drops every element matching pred, keeping order, and reports
// how many were dropped.
func removeWhere[T any](items []T, pred func(T) bool) ([]T, int) {
	kept := items[:0]
	for _, it := range items {
		if !pred(it) {
			kept = append(kept, it)
		}
	}
	removed := len(items) - len(kept)
	var zero T
	for i := len(kept); i < len(items); i++ {
		items[i] = zero
	}
	return kept, removed
}

func (s *Store) outstandingFor(match func(Borrowing) bool) int {
	n := 0
	for _, b := range s.borrowings {
		if b.Outstanding() && match(b) {
			n++
		}
	}
	return n
}

func cloneBorrowing(b Borrowing) Borrowing {
	if b.ReturnDate != nil {
		d := *b.ReturnDate
		b.ReturnDate = &d
	}
	return b
}
