// internal/activity/fanout.go
package activity

import (
	"context"
	"errors"
	"fmt"
)

// Fanout records every event in a primary journal and then forwards it to
// secondary recorders. Listing is served by the primary only.
type Fanout struct {
	primary     Journal
	secondaries []Recorder
}

func NewFanout(primary Journal, secondaries ...Recorder) *Fanout {
	return &Fanout{primary: primary, secondaries: secondaries}
}

// Record fails without forwarding when the primary fails. Secondary
// failures are joined into the returned error once every recorder ran.
func (f *Fanout) Record(ctx context.Context, event Event) error {
	if err := f.primary.Record(ctx, event); err != nil {
		return err
	}
	var errs []error
	for i, r := range f.secondaries {
		if err := r.Record(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("secondary recorder %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Recent(ctx context.Context, limit int) ([]Event, error) {
	return f.primary.Recent(ctx, limit)
}
