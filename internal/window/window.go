// Package window resolves the date range a run covers from MM/DD/YYYY
// command line values.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tutorsheet/internal/model"
)

// DefaultSpan is how far past a lone start date the window reaches: two
// weeks, ending the day before the third occurrence of the start weekday.
const DefaultSpan = 13

var (
	Earliest = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	Latest   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// Unbounded covers every date a calendar can reasonably hold.
func Unbounded() Window {
	return Window{Start: Earliest, End: Latest}
}

// Resolve builds a window from optional start and end strings:
//
//   - neither: unbounded
//   - only start: start .. start+DefaultSpan days
//   - only end: Earliest .. end
func Resolve(start, end string) (Window, error) {
	w := Unbounded()
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)

	if start != "" {
		s, err := ParseDate(start)
		if err != nil {
			return Window{}, fmt.Errorf("start date: %w", err)
		}
		w.Start = s
		if end == "" {
			w.End = s.AddDate(0, 0, DefaultSpan)
		}
	}
	if end != "" {
		e, err := ParseDate(end)
		if err != nil {
			return Window{}, fmt.Errorf("end date: %w", err)
		}
		w.End = e
	}
	if w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("end date %s is before start date %s", model.DateString(w.End), model.DateString(w.Start))
	}
	return w, nil
}

// From returns a window starting at t with no end.
func From(t time.Time) Window {
	return Window{Start: model.DateOnly(t), End: Latest}
}

// ParseDate parses MM/DD/YYYY; leading zeros are optional.
func ParseDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date %q must be formatted as MM/DD/YYYY", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q must be formatted as MM/DD/YYYY", s)
		}
		nums[i] = n
	}
	month, dd, year := nums[0], nums[1], nums[2]
	t := time.Date(year, time.Month(month), dd, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values; reject them instead.
	if t.Year() != year || int(t.Month()) != month || t.Day() != dd {
		return time.Time{}, fmt.Errorf("undefined date %q", s)
	}
	return t, nil
}

// Contains reports whether the calendar date of t is inside the window.
func (w Window) Contains(t time.Time) bool {
	d := model.DateOnly(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Label renders the window for file names, e.g. "1_28_to_6_10".
func (w Window) Label() string {
	return fmt.Sprintf("%d_%d_to_%d_%d", w.Start.Month(), w.Start.Day(), w.End.Month(), w.End.Day())
}

func (w Window) String() string {
	return model.DateString(w.Start) + " - " + model.DateString(w.End)
}
