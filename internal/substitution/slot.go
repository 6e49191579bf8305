// Package substitution holds the substitute-teacher matching rules: slot
// comparison, availability and department filters, and workload ranking.
// Every function is pure over its inputs so each stage can be tested alone.
package substitution

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/campusdesk/college-admin-api/internal/models"
)

// DefaultFuzzWindow is the tolerance for treating two start times as the same slot.
const DefaultFuzzWindow = 15 * time.Minute

// Clock is a time of day in minutes after midnight.
type Clock int

// ParseClock parses a 24-hour "HH:MM" value. A trailing ":SS" is accepted and ignored.
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return Clock(hours*60 + minutes), nil
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Slot is a dated time window.
type Slot struct {
	Date  string
	Start Clock
	End   Clock
}

// NewSlot validates and builds a slot; start must be before end.
func NewSlot(date, start, end string) (Slot, error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return Slot{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	s, err := ParseClock(start)
	if err != nil {
		return Slot{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Slot{}, err
	}
	if s >= e {
		return Slot{}, fmt.Errorf("start time %s must be before end time %s", s, e)
	}
	return Slot{Date: date, Start: s, End: e}, nil
}

// SlotOf extracts the slot of a lecture.
func SlotOf(l models.Lecture) (Slot, error) {
	return NewSlot(l.Date, l.StartTime, l.EndTime)
}

// Matcher compares slots using the fuzzy start-time rule.
type Matcher struct {
	FuzzWindow time.Duration
}

// NewMatcher returns a Matcher, falling back to DefaultFuzzWindow when fuzz is not positive.
func NewMatcher(fuzz time.Duration) Matcher {
	if fuzz <= 0 {
		fuzz = DefaultFuzzWindow
	}
	return Matcher{FuzzWindow: fuzz}
}

// SameSlot reports whether two start times fall within the fuzz window of each other.
func (m Matcher) SameSlot(a, b Clock) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return time.Duration(diff)*time.Minute <= m.FuzzWindow
}

// Conflicts reports whether two slots on the same date collide: either the
// windows overlap or the start times are within the fuzz window.
func (m Matcher) Conflicts(a, b Slot) bool {
	if a.Date != b.Date {
		return false
	}
	if a.Start < b.End && b.Start < a.End {
		return true
	}
	return m.SameSlot(a.Start, b.Start)
}
