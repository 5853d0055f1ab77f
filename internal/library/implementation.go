// internal/library/implementation.go
package library

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libradesk/internal/activity"
	"libradesk/internal/logger"
)

const (
	defaultLoanDays       = 14
	defaultRecentLimit    = 5
	defaultActivityLimit  = 10
	subjectBook           = "book"
	subjectMember         = "member"
	subjectBorrowing      = "borrowing"
	rejectNoCopies        = "no_copies"
	rejectNotFound        = "not_found"
	rejectInvalidDueDate  = "invalid_due_date"
	instrumentationPrefix = "libradesk/library"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Option configures the service.
type Option func(*service)

// WithJournal records an activity event for every committed change.
func WithJournal(j activity.Journal) Option {
	return func(s *service) { s.journal = j }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *service) { s.log = l }
}

func WithClock(c Clock) Option {
	return func(s *service) { s.clock = c }
}

// WithLoanPeriod sets the number of days used when a borrow request carries
// no due date.
func WithLoanPeriod(days int) Option {
	return func(s *service) {
		if days > 0 {
			s.loanDays = days
		}
	}
}

// WithMeterProvider selects where the borrowing counters are reported.
// The global otel provider is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *service) { s.meters = mp }
}

// WithStrictDeletes refuses to delete books or members that still have
// outstanding borrowings.
func WithStrictDeletes() Option {
	return func(s *service) { s.strictDeletes = true }
}

// service implements the Service interface.
type service struct {
	store         *Store
	journal       activity.Journal
	log           *logger.Logger
	clock         Clock
	loanDays      int
	strictDeletes bool

	meters   metric.MeterProvider
	tracer   trace.Tracer
	borrows  metric.Int64Counter
	returns  metric.Int64Counter
	rejected metric.Int64Counter
}

// NewService creates a service operating on store.
func NewService(store *Store, opts ...Option) Service {
	s := &service{
		store:    store,
		log:      logger.Nop(),
		clock:    ClockFunc(time.Now),
		loanDays: defaultLoanDays,
		meters:   otel.GetMeterProvider(),
		tracer:   otel.Tracer(instrumentationPrefix),
	}
	for _, opt := range opts {
		opt(s)
	}

	// The metric API hands back usable no-op instruments alongside any error.
	meter := s.meters.Meter(instrumentationPrefix)
	var err error
	if s.borrows, err = meter.Int64Counter("library.borrowings.created"); err != nil {
		s.log.Warn("failed to create counter", "name", "library.borrowings.created", "error", err)
	}
	if s.returns, err = meter.Int64Counter("library.borrowings.returned"); err != nil {
		s.log.Warn("failed to create counter", "name", "library.borrowings.returned", "error", err)
	}
	if s.rejected, err = meter.Int64Counter("library.borrowings.rejected"); err != nil {
		s.log.Warn("failed to create counter", "name", "library.borrowings.rejected", "error", err)
	}
	return s
}

func (s *service) today() civil.Date {
	return civil.DateOf(s.clock.Now())
}

func (s *service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "library."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// record appends to the journal after a committed change. The change is
// already visible, so a journal failure is only logged.
func (s *service) record(ctx context.Context, action activity.Action, subject string, id int64, summary string) {
	if s.journal == nil {
		return
	}
	event := activity.NewEvent(action, subject, id, summary, s.clock.Now())
	if err := s.journal.Record(ctx, event); err != nil {
		s.log.Warn("failed to record activity", "action", action, "subject", subject, "id", id, "error", err)
	}
}

func (s *service) ListBooks(ctx context.Context, search string) ([]Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var books []Book
	s.store.read(func() { books = filterBooks(s.store.books, search) })
	return books, nil
}

func (s *service) ListAvailableBooks(ctx context.Context) ([]Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var books []Book
	s.store.read(func() { books = availableBooks(s.store.books) })
	return books, nil
}

func (s *service) GetBook(ctx context.Context, id int64) (*Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		book  Book
		found bool
	)
	s.store.read(func() {
		if i := s.store.bookIndex(id); i >= 0 {
			book, found = s.store.books[i], true
		}
	})
	if !found {
		return nil, notFound(subjectBook, id)
	}
	return &book, nil
}

// AddBook creates a new catalog entry with every copy available.
func (s *service) AddBook(ctx context.Context, in BookInput) (_ *Book, err error) {
	ctx, span := s.start(ctx, "add_book")
	defer func() { finish(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateBookInput(in); err != nil {
		return nil, err
	}

	var book Book
	_ = s.store.write(func() error {
		book = s.store.insertBook(Book{
			Title:           strings.TrimSpace(in.Title),
			Author:          strings.TrimSpace(in.Author),
			ISBN:            strings.TrimSpace(in.ISBN),
			Genre:           strings.TrimSpace(in.Genre),
			PublicationYear: in.PublicationYear,
			TotalCopies:     *in.TotalCopies,
			AvailableCopies: *in.TotalCopies,
			Description:     in.Description,
		})
		return nil
	})

	span.SetAttributes(attribute.Int64("book.id", book.ID))
	s.log.Debug("book added", "book_id", book.ID, "title", book.Title)
	s.record(ctx, activity.BookAdded, subjectBook, book.ID, fmt.Sprintf("%s by %s", book.Title, book.Author))
	return &book, nil
}

// UpdateBook merges patch into the book. A new total shifts the available
// count by the same delta and may not drop below the copies currently out.
func (s *service) UpdateBook(ctx context.Context, id int64, patch BookPatch) (_ *Book, err error) {
	ctx, span := s.start(ctx, "update_book", attribute.Int64("book.id", id))
	defer func() { finish(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateBookPatch(patch); err != nil {
		return nil, err
	}

	var book Book
	err = s.store.write(func() error {
		i := s.store.bookIndex(id)
		if i < 0 {
			return notFound(subjectBook, id)
		}
		book = s.store.books[i]
		if patch.TotalCopies != nil {
			out := book.TotalCopies - book.AvailableCopies
			if *patch.TotalCopies < out {
				return invalid("totalCopies", fmt.Sprintf("cannot be below the %d copies currently borrowed", out))
			}
		}
		mergeBook(&book, trimBookPatch(patch))
		s.store.books[i] = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity.BookUpdated, subjectBook, book.ID, fmt.Sprintf("%s by %s", book.Title, book.Author))
	return &book, nil
}

// DeleteBook removes the book. Borrowings that reference it are left as
// they are unless strict deletes are enabled.
func (s *service) DeleteBook(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "delete_book", attribute.Int64("book.id", id))
	defer func() { finish(span, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	var removed Book
	err = s.store.write(func() error {
		i := s.store.bookIndex(id)
		if i < 0 {
			return notFound(subjectBook, id)
		}
		if s.strictDeletes {
			if n := s.store.outstandingFor(func(b Borrowing) bool { return b.BookID == id }); n > 0 {
				return fmt.Errorf("book %d has %d outstanding borrowings: %w", id, n, ErrConflict)
			}
		}
		removed = s.store.books[i]
		s.store.removeBooks(func(b Book) bool { return b.ID == id })
		return nil
	})
	if err != nil {
		return err
	}

	s.record(ctx, activity.BookDeleted, subjectBook, id, fmt.Sprintf("%s by %s", removed.Title, removed.Author))
	return nil
}

func (s *service) ListMembers(ctx context.Context, search string) ([]Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var members []Member
	s.store.read(func() { members = filterMembers(s.store.members, search) })
	return members, nil
}

func (s *service) GetMember(ctx context.Context, id int64) (*Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		member Member
		found  bool
	)
	s.store.read(func() {
		if i := s.store.memberIndex(id); i >= 0 {
			member, found = s.store.members[i], true
		}
	})
	if !found {
		return nil, notFound(subjectMember, id)
	}
	return &member, nil
}

// AddMember registers a member joining today.
func (s *service) AddMember(ctx context.Context, in MemberInput) (_ *Member, err error) {
	ctx, span := s.start(ctx, "add_member")
	defer func() { finish(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateMemberInput(in); err != nil {
		return nil, err
	}

	joined := s.today()
	var member Member
	_ = s.store.write(func() error {
		member = s.store.insertMember(Member{
			Name:       strings.TrimSpace(in.Name),
			Email:      strings.TrimSpace(in.Email),
			Phone:      strings.TrimSpace(in.Phone),
			Address:    strings.TrimSpace(in.Address),
			MemberType: in.MemberType,
			JoinDate:   joined,
		})
		return nil
	})

	span.SetAttributes(attribute.Int64("member.id", member.ID), attribute.String("member.code", member.MemberID))
	s.record(ctx, activity.MemberRegistered, subjectMember, member.ID, fmt.Sprintf("%s (%s)", member.Name, member.MemberType))
	return &member, nil
}

func (s *service) UpdateMember(ctx context.Context, id int64, patch MemberPatch) (_ *Member, err error) {
	ctx, span := s.start(ctx, "update_member", attribute.Int64("member.id", id))
	defer func() { finish(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateMemberPatch(patch); err != nil {
		return nil, err
	}

	var member Member
	err = s.store.write(func() error {
		i := s.store.memberIndex(id)
		if i < 0 {
			return notFound(subjectMember, id)
		}
		member = s.store.members[i]
		mergeMember(&member, trimMemberPatch(patch))
		s.store.members[i] = member
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity.MemberUpdated, subjectMember, member.ID, fmt.Sprintf("%s (%s)", member.Name, member.MemberType))
	return &member, nil
}

func (s *service) DeleteMember(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "delete_member", attribute.Int64("member.id", id))
	defer func() { finish(span, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	var removed Member
	err = s.store.write(func() error {
		i := s.store.memberIndex(id)
		if i < 0 {
			return notFound(subjectMember, id)
		}
		if s.strictDeletes {
			if n := s.store.outstandingFor(func(b Borrowing) bool { return b.MemberID == id }); n > 0 {
				return fmt.Errorf("member %d has %d outstanding borrowings: %w", id, n, ErrConflict)
			}
		}
		removed = s.store.members[i]
		s.store.removeMembers(func(m Member) bool { return m.ID == id })
		return nil
	})
	if err != nil {
		return err
	}

	s.record(ctx, activity.MemberDeleted, subjectMember, id, fmt.Sprintf("%s (%s)", removed.Name, removed.MemberType))
	return nil
}

func (s *service) ListBorrowings(ctx context.Context, search string) ([]Borrowing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var borrowings []Borrowing
	s.store.read(func() { borrowings = filterBorrowings(s.store.borrowings, search) })
	return borrowings, nil
}

// RecentBorrowings returns the first limit borrowings in store order.
func (s *service) RecentBorrowings(ctx context.Context, limit int) ([]Borrowing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	var borrowings []Borrowing
	s.store.read(func() {
		n := min(limit, len(s.store.borrowings))
		borrowings = make([]Borrowing, 0, n)
		for _, b := range s.store.borrowings[:n] {
			borrowings = append(borrowings, cloneBorrowing(b))
		}
	})
	return borrowings, nil
}

// BorrowBook lends one copy of the book to the member. The availability
// check, the decrement and the new borrowing happen under one lock.
func (s *service) BorrowBook(ctx context.Context, req BorrowRequest) (_ *Borrowing, err error) {
	ctx, span := s.start(ctx, "borrow_book",
		attribute.Int64("book.id", req.BookID),
		attribute.Int64("member.id", req.MemberID),
	)
	defer func() { finish(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	today := s.today()
	due := req.DueDate
	if due == (civil.Date{}) {
		due = today.AddDays(s.loanDays)
	}

	var (
		borrowing Borrowing
		author    string
	)
	err = s.store.write(func() error {
		bi := s.store.bookIndex(req.BookID)
		if bi < 0 {
			return notFound(subjectBook, req.BookID)
		}
		mi := s.store.memberIndex(req.MemberID)
		if mi < 0 {
			return notFound(subjectMember, req.MemberID)
		}
		// A due date in the past is accepted; the loan is simply overdue.
		if !due.IsValid() {
			return invalid("dueDate", "is not a valid date")
		}
		book := &s.store.books[bi]
		if book.AvailableCopies <= 0 {
			return fmt.Errorf("book %d %q: %w", book.ID, book.Title, ErrNoCopiesAvailable)
		}

		book.AvailableCopies--
		author = book.Author
		borrowing = s.store.insertBorrowing(Borrowing{
			BookID:     book.ID,
			MemberID:   req.MemberID,
			BookTitle:  book.Title,
			MemberName: s.store.members[mi].Name,
			BorrowDate: today,
			DueDate:    due,
		})
		return nil
	})
	if err != nil {
		s.reject(ctx, rejectReason(err))
		return nil, err
	}

	s.borrows.Add(ctx, 1)
	span.SetAttributes(attribute.Int64("borrowing.id", borrowing.ID))
	s.log.Debug("book borrowed", "borrowing_id", borrowing.ID, "book_id", borrowing.BookID, "member_id", borrowing.MemberID, "due", borrowing.DueDate.String())
	s.record(ctx, activity.BookBorrowed, subjectBorrowing, borrowing.ID,
		fmt.Sprintf("%s by %s, lent to %s", borrowing.BookTitle, author, borrowing.MemberName))
	return &borrowing, nil
}

// ReturnBook closes the borrowing and puts the copy back. A book deleted in
// the meantime is skipped without error.
func (s *service) ReturnBook(ctx context.Context, borrowingID int64) (_ *Borrowing, err error) {
	ctx, span := s.start(ctx, "return_book", attribute.Int64("borrowing.id", borrowingID))
	defer func() { finish(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	today := s.today()
	var borrowing Borrowing
	err = s.store.write(func() error {
		i := s.store.borrowingIndex(borrowingID)
		if i < 0 {
			return notFound(subjectBorrowing, borrowingID)
		}
		b := &s.store.borrowings[i]
		if b.ReturnDate != nil {
			return fmt.Errorf("borrowing %d returned on %s: %w", borrowingID, b.ReturnDate, ErrAlreadyReturned)
		}

		returned := today
		b.ReturnDate = &returned
		if bi := s.store.bookIndex(b.BookID); bi >= 0 {
			book := &s.store.books[bi]
			if book.AvailableCopies < book.TotalCopies {
				book.AvailableCopies++
			}
		}
		borrowing = cloneBorrowing(*b)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.returns.Add(ctx, 1)
	s.record(ctx, activity.BookReturned, subjectBorrowing, borrowing.ID,
		fmt.Sprintf("%s, returned by %s", borrowing.BookTitle, borrowing.MemberName))
	return &borrowing, nil
}

func rejectReason(err error) string {
	switch {
	case isNoCopies(err):
		return rejectNoCopies
	case errors.Is(err, ErrValidation):
		return rejectInvalidDueDate
	}
	return rejectNotFound
}

func (s *service) reject(ctx context.Context, reason string) {
	s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (s *service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	if err := ctx.Err(); err != nil {
		return DashboardStats{}, err
	}
	today := s.today()
	var stats DashboardStats
	s.store.read(func() {
		stats = DashboardStats{
			TotalBooks:    len(s.store.books),
			TotalMembers:  len(s.store.members),
			BooksBorrowed: countBorrowings(s.store.borrowings, Borrowing.Outstanding),
			OverdueBooks: countBorrowings(s.store.borrowings, func(b Borrowing) bool {
				return b.Overdue(today)
			}),
		}
	})
	return stats, nil
}

func (s *service) ReportData(ctx context.Context) (*ReportData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	today := s.today()
	var report ReportData
	s.store.read(func() { report = buildReport(s.store, today) })
	return &report, nil
}

// RecentActivity lists the newest journal entries; limit <= 0 selects 10.
func (s *service) RecentActivity(ctx context.Context, limit int) ([]activity.Event, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if s.journal == nil {
		return []activity.Event{}, nil
	}
	events, err := s.journal.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}
	return events, nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func validateBookInput(in BookInput) error {
	switch {
	case blank(in.Title):
		return invalid("title", "is required")
	case blank(in.Author):
		return invalid("author", "is required")
	case in.TotalCopies == nil:
		return invalid("totalCopies", "is required")
	case *in.TotalCopies < 0:
		return invalid("totalCopies", "must not be negative")
	}
	return nil
}

func validateBookPatch(p BookPatch) error {
	switch {
	case p.Title != nil && blank(*p.Title):
		return invalid("title", "must not be empty")
	case p.Author != nil && blank(*p.Author):
		return invalid("author", "must not be empty")
	case p.TotalCopies != nil && *p.TotalCopies < 0:
		return invalid("totalCopies", "must not be negative")
	}
	return nil
}

// validateEmail accepts a bare address only; "Name <addr>" forms are
// refused so the stored value is always just the address.
func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return invalid("email", "is not a valid address")
	}
	if addr.Name != "" || addr.Address != email {
		return invalid("email", "must be a bare address without a display name")
	}
	return nil
}

func validateMemberInput(in MemberInput) error {
	switch {
	case blank(in.Name):
		return invalid("name", "is required")
	case blank(in.Email):
		return invalid("email", "is required")
	case in.MemberType == "":
		return invalid("memberType", "is required")
	case !in.MemberType.Valid():
		return invalid("memberType", fmt.Sprintf("unknown member type %q", in.MemberType))
	}
	return validateEmail(in.Email)
}

func validateMemberPatch(p MemberPatch) error {
	switch {
	case p.Name != nil && blank(*p.Name):
		return invalid("name", "must not be empty")
	case p.Email != nil && blank(*p.Email):
		return invalid("email", "must not be empty")
	case p.MemberType != nil && !p.MemberType.Valid():
		return invalid("memberType", fmt.Sprintf("unknown member type %q", *p.MemberType))
	}
	if p.Email != nil {
		return validateEmail(*p.Email)
	}
	return nil
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func trimBookPatch(p BookPatch) BookPatch {
	p.Title = trimPtr(p.Title)
	p.Author = trimPtr(p.Author)
	p.ISBN = trimPtr(p.ISBN)
	p.Genre = trimPtr(p.Genre)
	return p
}

func trimMemberPatch(p MemberPatch) MemberPatch {
	p.Name = trimPtr(p.Name)
	p.Email = trimPtr(p.Email)
	p.Phone = trimPtr(p.Phone)
	p.Address = trimPtr(p.Address)
	return p
}
