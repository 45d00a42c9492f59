package handler

import (
	"fmt"
	"time"

	"github.com/yourusername/vocabot/pkg/utils"
)

// DailyTrigger fires once a day at a fixed wall-clock time.
type DailyTrigger struct {
	hour, minute int
	loc          *time.Location
}

// NewDailyTrigger parses clock in "15:04" form.
func NewDailyTrigger(clock string, loc *time.Location) (*DailyTrigger, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return nil, fmt.Errorf("parse batch time %q: %w", clock, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DailyTrigger{hour: t.Hour(), minute: t.Minute(), loc: loc}, nil
}

func (t *DailyTrigger) Next(after time.Time) time.Time {
	return utils.NextDailyOccurrence(after, t.hour, t.minute, t.loc)
}

func (t *DailyTrigger) String() string {
	return fmt.Sprintf("%02d:%02d %s", t.hour, t.minute, t.loc)
}

// PollState is everything the poll loop carries between cycles.
type PollState struct {
	// Offset is one past the highest update id handled so far.
	Offset int
	// NextRun is when the daily batch is due next.
	NextRun time.Time
	// LastFired is when the daily batch last ran; zero if never.
	LastFired time.Time
}

// due reports whether the batch should run at now. It also guards against
// running twice on the same calendar day.
func (s PollState) due(now time.Time) bool {
	if now.Before(s.NextRun) {
		return false
	}
	return s.LastFired.IsZero() || !utils.DatesEqual(s.LastFired.In(s.NextRun.Location()), now.In(s.NextRun.Location()))
}
