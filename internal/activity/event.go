// internal/activity/event.go

// Package activity records what happened in the library: books added,
// members registered, copies lent and returned. It backs the "recent
// activity" feed of the reports view.
package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidLimit = errors.New("limit must be positive")

// Action names one kind of library activity.
type Action string

const (
	BookAdded        Action = "book_added"
	BookUpdated      Action = "book_updated"
	BookDeleted      Action = "book_deleted"
	MemberRegistered Action = "member_registered"
	MemberUpdated    Action = "member_updated"
	MemberDeleted    Action = "member_deleted"
	BookBorrowed     Action = "book_borrowed"
	BookReturned     Action = "book_returned"
)

// Label is the human readable form used by the activity feed.
func (a Action) Label() string {
	switch a {
	case BookAdded:
		return "Book added"
	case BookUpdated:
		return "Book updated"
	case BookDeleted:
		return "Book deleted"
	case MemberRegistered:
		return "New member registered"
	case MemberUpdated:
		return "Member updated"
	case MemberDeleted:
		return "Member deleted"
	case BookBorrowed:
		return "Book borrowed"
	case BookReturned:
		return "Book returned"
	}
	return string(a)
}

// Event is a single journal entry.
type Event struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Action      Action    `json:"action" db:"action"`
	SubjectType string    `json:"subjectType" db:"subject_type"`
	SubjectID   int64     `json:"subjectId" db:"subject_id"`
	Summary     string    `json:"summary" db:"summary"`
	OccurredAt  time.Time `json:"occurredAt" db:"occurred_at"`
}

// NewEvent builds an event with a fresh id.
func NewEvent(action Action, subjectType string, subjectID int64, summary string, at time.Time) Event {
	return Event{
		ID:          uuid.New(),
		Action:      action,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Summary:     summary,
		OccurredAt:  at.UTC(),
	}
}

// Recorder accepts events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Journal is a Recorder that can also list what it recorded, newest first.
//
// Events are recorded after the change they describe has committed, outside
// the store lock. Order in the journal follows commit order for changes made
// one after another; changes committed concurrently may be listed in either
// order.
type Journal interface {
	Recorder
	Recent(ctx context.Context, limit int) ([]Event, error)
}
