// internal/library/service.go
package library

import (
	"context"

	"libradesk/internal/activity"
)

// Service defines the operations offered to the UI layer.
type Service interface {
	ListBooks(ctx context.Context, search string) ([]Book, error)
	ListAvailableBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	AddBook(ctx context.Context, in BookInput) (*Book, error)
	UpdateBook(ctx context.Context, id int64, patch BookPatch) (*Book, error)
	DeleteBook(ctx context.Context, id int64) error

	ListMembers(ctx context.Context, search string) ([]Member, error)
	GetMember(ctx context.Context, id int64) (*Member, error)
	AddMember(ctx context.Context, in MemberInput) (*Member, error)
	UpdateMember(ctx context.Context, id int64, patch MemberPatch) (*Member, error)
	DeleteMember(ctx context.Context, id int64) error

	ListBorrowings(ctx context.Context, search string) ([]Borrowing, error)
	RecentBorrowings(ctx context.Context, limit int) ([]Borrowing, error)
	BorrowBook(ctx context.Context, req BorrowRequest) (*Borrowing, error)
	ReturnBook(ctx context.Context, borrowingID int64) (*Borrowing, error)

	DashboardStats(ctx context.Context) (DashboardStats, error)
	ReportData(ctx context.Context) (*ReportData, error)
	RecentActivity(ctx context.Context, limit int) ([]activity.Event, error)
}
