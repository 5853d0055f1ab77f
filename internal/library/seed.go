// internal/library/seed.go
package library

import (
	"time"

	"cloud.google.com/go/civil"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

// DefaultSeed is the sample catalog the UI ships with.
func DefaultSeed() SeedData {
	returned := date(2024, 6, 2)
	return SeedData{
		Books: []Book{
			{ID: 1, Title: "Python Programming", Author: "John Doe", ISBN: "978-0123456789", Genre: "Technology", PublicationYear: 2023, TotalCopies: 5, AvailableCopies: 4, Description: "A comprehensive guide to Python programming"},
			{ID: 2, Title: "Data Structures", Author: "Jane Smith", ISBN: "978-0987654321", Genre: "Computer Science", PublicationYear: 2022, TotalCopies: 3, AvailableCopies: 3, Description: "Understanding data structures and algorithms"},
			{ID: 3, Title: "Web Development", Author: "Bob Wilson", ISBN: "978-0456789123", Genre: "Technology", PublicationYear: 2024, TotalCopies: 4, AvailableCopies: 4, Description: "Modern web development techniques"},
		},
		Members: []Member{
			{ID: 1, MemberID: "M001", Name: "Alice Johnson", Email: "alice@university.edu", Phone: "123-456-7890", MemberType: MemberStudent, Address: "123 Campus St", JoinDate: date(2024, 1, 15)},
			{ID: 2, MemberID: "M002", Name: "Dr. Robert Brown", Email: "robert@university.edu", Phone: "098-765-4321", MemberType: MemberFaculty, Address: "456 Faculty Ave", JoinDate: date(2023, 8, 20)},
			{ID: 3, MemberID: "M003", Name: "Carol Davis", Email: "carol@university.edu", Phone: "555-123-4567", MemberType: MemberStaff, Address: "789 Staff Rd", JoinDate: date(2024, 2, 10)},
		},
		Borrowings: []Borrowing{
			{ID: 1, BookID: 1, MemberID: 1, BookTitle: "Python Programming", MemberName: "Alice Johnson", BorrowDate: date(2024, 6, 1), DueDate: date(2024, 6, 15)},
			{ID: 2, BookID: 2, MemberID: 2, BookTitle: "Data Structures", MemberName: "Dr. Robert Brown", BorrowDate: date(2024, 5, 20), DueDate: date(2024, 6, 3), ReturnDate: &returned},
		},
	}
}
