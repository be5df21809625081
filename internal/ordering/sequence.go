package ordering

import (
	"context"
	"fmt"
	"time"

	"tableside/internal/core"
)

// DateKeyLayout is the calendar-day key of the order sequence counters.
const DateKeyLayout = "2006-01-02"

// SequenceCounter increments the counter stored for a date and returns the
// new value. Implementations must make the increment atomic: concurrent
// callers for the same date never observe the same value.
type SequenceCounter interface {
	IncrementSequence(ctx context.Context, date string) (int, error)
}

// Sequencer hands out human-facing order numbers that restart every day.
type Sequencer struct {
	counter SequenceCounter
	loc     *time.Location
}

// NewSequencer creates a sequencer that derives the calendar day in loc.
func NewSequencer(counter SequenceCounter, loc *time.Location) *Sequencer {
	if loc == nil {
		loc = time.Local
	}
	return &Sequencer{counter: counter, loc: loc}
}

// DateKey returns the counter key for the calendar day of now.
func (s *Sequencer) DateKey(now time.Time) string {
	return now.In(s.loc).Format(DateKeyLayout)
}

// Next returns the next sequence number for the day of now.
func (s *Sequencer) Next(ctx context.Context, now time.Time) (int, error) {
	key := s.DateKey(now)
	n, err := s.counter.IncrementSequence(ctx, key)
	if err != nil {
		return 0, core.Dependency("order sequence", err)
	}
	if n < 1 {
		return 0, core.Dependency("order sequence", fmt.Errorf("counter for %s returned %d", key, n))
	}
	return n, nil
}

// FormatSequence renders a sequence number the way receipts show it.
func FormatSequence(n int) string {
	return fmt.Sprintf("#%03d", n)
}
