// internal/library/domain.go
package library

import (
	"cloud.google.com/go/civil"
)

// MemberType classifies a library member.
type MemberType string

const (
	MemberStudent MemberType = "Student"
	MemberFaculty MemberType = "Faculty"
	MemberStaff   MemberType = "Staff"
	MemberPublic  MemberType = "Public"
)

// Valid reports whether t is one of the known member types.
func (t MemberType) Valid() bool {
	switch t {
	case MemberStudent, MemberFaculty, MemberStaff, MemberPublic:
		return true
	}
	return false
}

// Book represents a catalog title and its copy inventory.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Genre           string `json:"genre"`
	PublicationYear int    `json:"publicationYear"`
	TotalCopies     int    `json:"totalCopies"`
	AvailableCopies int    `json:"availableCopies"`
	Description     string `json:"description"`
}

// Member represents a registered library member.
type Member struct {
	ID         int64      `json:"id"`
	MemberID   string     `json:"memberId"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	MemberType MemberType `json:"memberType"`
	JoinDate   civil.Date `json:"joinDate"`
}

// Borrowing records one copy of a book lent to a member. BookTitle and
// MemberName are captured at borrow time and never updated afterwards.
type Borrowing struct {
	ID         int64       `json:"id"`
	BookID     int64       `json:"bookId"`
	MemberID   int64       `json:"memberId"`
	BookTitle  string      `json:"bookTitle"`
	MemberName string      `json:"memberName"`
	BorrowDate civil.Date  `json:"borrowDate"`
	DueDate    civil.Date  `json:"dueDate"`
	ReturnDate *civil.Date `json:"returnDate"`
}

// Outstanding reports whether the borrowing has not been returned yet.
func (b Borrowing) Outstanding() bool {
	return b.ReturnDate == nil
}

// Overdue reports whether the borrowing is outstanding and its due date lies
// strictly before today.
func (b Borrowing) Overdue(today civil.Date) bool {
	return b.Outstanding() && b.DueDate.Before(today)
}

// BookInput carries the fields accepted when adding a book.
type BookInput struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Genre           string `json:"genre"`
	PublicationYear int    `json:"publicationYear"`
	TotalCopies     *int   `json:"totalCopies"`
	Description     string `json:"description"`
}

// BookPatch is a partial update; nil fields are left unchanged.
type BookPatch struct {
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	ISBN            *string `json:"isbn,omitempty"`
	Genre           *string `json:"genre,omitempty"`
	PublicationYear *int    `json:"publicationYear,omitempty"`
	TotalCopies     *int    `json:"totalCopies,omitempty"`
	Description     *string `json:"description,omitempty"`
}

// MemberInput carries the fields accepted when registering a member.
type MemberInput struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	MemberType MemberType `json:"memberType"`
}

// MemberPatch is a partial update; nil fields are left unchanged.
type MemberPatch struct {
	Name       *string     `json:"name,omitempty"`
	Email      *string     `json:"email,omitempty"`
	Phone      *string     `json:"phone,omitempty"`
	Address    *string     `json:"address,omitempty"`
	MemberType *MemberType `json:"memberType,omitempty"`
}

// BorrowRequest asks for one copy of BookID to be lent to MemberID. A zero
// DueDate selects the default loan period.
type BorrowRequest struct {
	BookID   int64      `json:"bookId"`
	MemberID int64      `json:"memberId"`
	DueDate  civil.Date `json:"dueDate"`
}

// DashboardStats is the aggregate shown on the dashboard.
type DashboardStats struct {
	TotalBooks    int `json:"totalBooks"`
	TotalMembers  int `json:"totalMembers"`
	BooksBorrowed int `json:"booksBorrowed"`
	OverdueBooks  int `json:"overdueBooks"`
}

// MonthlyBorrowings is one point of the borrowing trend chart.
type MonthlyBorrowings struct {
	Month      string `json:"month"`
	Borrowings int    `json:"borrowings"`
}

// GenreShare is one slice of the genre distribution chart.
type GenreShare struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ReportData backs the reports view.
type ReportData struct {
	TotalBooks        int                 `json:"totalBooks"`
	TotalMembers      int                 `json:"totalMembers"`
	ActiveBorrowings  int                 `json:"activeBorrowings"`
	OverdueBooks      int                 `json:"overdueBooks"`
	BorrowingTrends   []MonthlyBorrowings `json:"borrowingTrends"`
	GenreDistribution []GenreShare        `json:"genreDistribution"`
}
