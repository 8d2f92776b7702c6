package model

import (
	"fmt"
	"time"
)

// UnknownTime marks an end time the calendar did not provide.
const UnknownTime = "NaN"

// Occurrence represents a single concrete meeting instance after
// recurrence expansion.
type Occurrence struct {
	// ID is derived from the source event and the occurrence start, so it
	// is stable across runs over the same calendar.
	ID string

	// Date is the calendar date of the meeting at 00:00 UTC.
	Date time.Time

	Student  string
	Activity string
	Course   string

	// StartTime / EndTime are zero-padded HH:MM strings. EndTime may be
	// UnknownTime.
	StartTime string
	EndTime   string

	// OverrideKey is the RECURRENCE-ID of the instance this occurrence
	// replaces. It is cleared once the replacement has been applied.
	OverrideKey *time.Time
}

// Key is the tuple used to match occurrences against each other. The end
// time never participates.
type Key struct {
	Date      string
	Student   string
	Course    string
	Activity  string
	StartTime string
}

func (o Occurrence) Key() Key {
	return Key{
		Date:      DateString(o.Date),
		Student:   o.Student,
		Course:    o.Course,
		Activity:  o.Activity,
		StartTime: o.StartTime,
	}
}

// HasKnownEnd reports whether EndTime is a real time of day.
func (o Occurrence) HasKnownEnd() bool {
	return o.EndTime != "" && o.EndTime != UnknownTime
}

// DateOnly truncates t to its calendar date, dropping any location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateString formats a date as M/D/YYYY without leading zeros.
func DateString(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Month(), t.Day(), t.Year())
}

// ClockString formats the time of day of t as zero-padded HH:MM.
func ClockString(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// SplitDateTime returns the M/D/YYYY date and HH:MM time of t.
func SplitDateTime(t time.Time) (string, string) {
	return DateString(t), ClockString(t)
}
