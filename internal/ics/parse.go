package ics

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	appLog "tutorsheet/internal/log"
	"tutorsheet/internal/model"
)

// RawEvent is one VEVENT as scanned from the calendar export. All times are
// naive: zone suffixes and TZID parameters are discarded and the wall clock
// is stored in UTC.
type RawEvent struct {
	// Line is the 1-based line of the BEGIN:VEVENT marker.
	Line int

	Start   time.Time
	EndTime string // HH:MM or model.UnknownTime

	RRule   string
	ExDates []time.Time

	// Summary is expected as tutor-student-course-activity.
	Summary string

	// RecurrenceID is set when this event replaces one generated occurrence
	// of a recurring event.
	RecurrenceID *time.Time
}

const maxLineBytes = 1 << 20

var summaryUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, ",", `\;`, ";", `\n`, " ", `\N`, " ")

// Parse scans an ICS stream for VEVENT blocks.
//
// The scan is positional, the way calendar exports lay events out:
//
//   - the line after BEGIN:VEVENT must be DTSTART (otherwise the stream is
//     considered unreadable and a *StructuralParseError is returned)
//   - the next line is DTEND; without a time component the end is unknown
//   - an optional RRULE line follows, then any number of EXDATE lines
//   - RECURRENCE-ID and SUMMARY are picked up anywhere before END:VEVENT
//
// A block without SUMMARY still yields a RawEvent with an empty Summary; it
// is rejected during expansion. Recoverable problems are recorded in the
// returned Report.
func Parse(r io.Reader) ([]RawEvent, *Report, error) {
	lr := newLineReader(r)
	report := &Report{}
	events := make([]RawEvent, 0)

	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		if strings.TrimSpace(line) != "BEGIN:VEVENT" {
			continue
		}
		ev, err := parseBlock(lr, report)
		if err != nil {
			return nil, report, err
		}
		events = append(events, ev)
	}
	if err := lr.err(); err != nil {
		return nil, report, fmt.Errorf("ics: read: %w", err)
	}

	appLog.Debug("ics parse completed", "event_count", len(events), "warnings", report.Len())
	return events, report, nil
}

func parseBlock(lr *lineReader, report *Report) (RawEvent, error) {
	ev := RawEvent{Line: lr.line, EndTime: model.UnknownTime}
	// A read failure ends the block early; report it rather than the
	// missing END:VEVENT.
	unterminated := func() error {
		if err := lr.err(); err != nil {
			return fmt.Errorf("ics: read: %w", err)
		}
		return &StructuralParseError{Line: ev.Line, Reason: "unterminated VEVENT block"}
	}

	line, ok := lr.next()
	if !ok {
		return ev, unterminated()
	}
	if propName(line) != "DTSTART" {
		return ev, &StructuralParseError{Line: lr.line, Reason: fmt.Sprintf("expected DTSTART after BEGIN:VEVENT, got %q", line)}
	}
	start, err := parseNaive(propValue(line))
	if err != nil {
		return ev, &StructuralParseError{Line: lr.line, Reason: fmt.Sprintf("bad DTSTART: %v", err)}
	}
	ev.Start = start

	if line, ok = lr.next(); !ok {
		return ev, unterminated()
	}
	endKnown := false
	if propName(line) == "DTEND" {
		if end, found := clockOf(propValue(line)); found {
			ev.EndTime = end
			endKnown = true
		}
		if line, ok = lr.next(); !ok {
			return ev, unterminated()
		}
	}

	if propName(line) == "RRULE" {
		ev.RRule = strings.TrimSpace(strings.ReplaceAll(propValue(line), "Z", ""))
		if line, ok = lr.next(); !ok {
			return ev, unterminated()
		}
	}

	for propName(line) == "EXDATE" {
		for _, part := range strings.Split(propValue(line), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, err := parseNaive(part)
			if err != nil {
				appLog.Debug("ics: skipping unparseable EXDATE", "line", lr.line, "value", part)
				continue
			}
			ev.ExDates = append(ev.ExDates, t)
		}
		if line, ok = lr.next(); !ok {
			return ev, unterminated()
		}
	}

	// Scan the rest of the block. Nested components (VALARM) can carry
	// their own SUMMARY, so they are skipped whole.
	nested := ""
	for {
		name := propName(line)
		switch {
		case nested != "":
			if name == "END" && propValue(line) == nested {
				nested = ""
			}
		case name == "BEGIN":
			nested = propValue(line)
		case name == "END" && propValue(line) == "VEVENT":
			if !endKnown {
				report.Add(Warning{Kind: MissingEndTime, Line: ev.Line, Summary: ev.Summary})
			}
			return ev, nil
		case name == "SUMMARY":
			ev.Summary = strings.TrimSpace(summaryUnescaper.Replace(propValue(line)))
		case name == "RECURRENCE-ID":
			rid, err := parseNaive(propValue(line))
			if err != nil {
				appLog.Debug("ics: skipping unparseable RECURRENCE-ID", "line", lr.line, "value", propValue(line))
				break
			}
			ev.RecurrenceID = &rid
		}
		if line, ok = lr.next(); !ok {
			return ev, unterminated()
		}
	}
}

// propName returns the upper-cased property name of a content line, without
// parameters.
func propName(line string) string {
	end := strings.IndexAny(line, ";:")
	if end < 0 {
		return strings.ToUpper(strings.TrimSpace(line))
	}
	return strings.ToUpper(strings.TrimSpace(line[:end]))
}

// propValue returns everything after the first colon.
func propValue(line string) string {
	_, v, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(v)
}

var naiveLayouts = []string{"20060102T150405", "20060102T1504", "20060102"}

// parseNaive parses an ICS DATE or DATE-TIME, dropping a trailing Z.
func parseNaive(v string) (time.Time, error) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "Z")
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	var lastErr error
	for _, layout := range naiveLayouts {
		t, err := time.ParseInLocation(layout, v, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// clockOf extracts HH:MM from a DATE-TIME value; date-only values have no
// time component.
func clockOf(v string) (string, bool) {
	_, clock, found := strings.Cut(strings.TrimSuffix(strings.TrimSpace(v), "Z"), "T")
	if !found || len(clock) < 4 {
		return "", false
	}
	return clock[0:2] + ":" + clock[2:4], true
}

// lineReader yields unfolded content lines and tracks the physical line
// number where each one starts.
type lineReader struct {
	sc *bufio.Scanner

	phys int // physical lines consumed
	line int // start line of the last logical line returned

	peek     string
	peekLine int
	hasPeek  bool
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineReader{sc: sc}
}

func (lr *lineReader) next() (string, bool) {
	var cur string
	switch {
	case lr.hasPeek:
		cur, lr.line = lr.peek, lr.peekLine
		lr.hasPeek = false
	case lr.sc.Scan():
		lr.phys++
		cur, lr.line = strings.TrimRight(lr.sc.Text(), "\r"), lr.phys
	default:
		return "", false
	}

	for lr.sc.Scan() {
		lr.phys++
		t := strings.TrimRight(lr.sc.Text(), "\r")
		if strings.HasPrefix(t, " ") || strings.HasPrefix(t, "\t") {
			cur += t[1:]
			continue
		}
		lr.peek, lr.peekLine, lr.hasPeek = t, lr.phys, true
		break
	}
	return cur, true
}

func (lr *lineReader) err() error {
	return lr.sc.Err()
}
