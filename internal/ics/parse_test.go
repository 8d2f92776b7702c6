package ics

import (
	"bufio"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorsheet/internal/model"
)

// sampleCalendar is shaped like a Google Calendar export: one weekly
// meeting with an exception and a moved instance, plus an all-day entry with
// a summary that is not a tutoring meeting.
const sampleCalendar = "BEGIN:VCALENDAR\r\n" +
	"PRODID:-//Google Inc//Google Calendar 70.9054//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART;TZID=America/New_York:20230103T140000\r\n" +
	"DTEND;TZID=America/New_York:20230103T150000\r\n" +
	"RRULE:FREQ=WEEKLY;UNTIL=20230131T045959Z;BYDAY=TU\r\n" +
	"EXDATE;TZID=America/New_York:20230117T140000\r\n" +
	"DTSTAMP:20230101T000000Z\r\n" +
	"UID:weekly@example.com\r\n" +
	"SUMMARY:Smith-Jones-Algebra-Tennis\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART;TZID=America/New_York:20230126T160000\r\n" +
	"DTEND;TZID=America/New_York:20230126T170000\r\n" +
	"DTSTAMP:20230101T000000Z\r\n" +
	"UID:weekly@example.com\r\n" +
	"RECURRENCE-ID;TZID=America/New_York:20230124T140000\r\n" +
	"SUMMARY:Smith-Jones-Algebra-Tennis\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART;VALUE=DATE:20230105\r\n" +
	"DTEND;VALUE=DATE:20230106\r\n" +
	"SUMMARY:OnlyTwo-Parts\r\n" +
	"BEGIN:VALARM\r\n" +
	"ACTION:EMAIL\r\n" +
	"SUMMARY:Reminder\r\n" +
	"END:VALARM\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestParseSampleCalendar(t *testing.T) {
	events, report, err := Parse(strings.NewReader(sampleCalendar))
	require.NoError(t, err)
	require.Len(t, events, 3)

	weekly := events[0]
	assert.Equal(t, 3, weekly.Line)
	assert.Equal(t, date(2023, 1, 3, 14, 0), weekly.Start)
	assert.Equal(t, "15:00", weekly.EndTime)
	assert.Equal(t, "FREQ=WEEKLY;UNTIL=20230131T045959;BYDAY=TU", weekly.RRule)
	assert.Equal(t, []time.Time{date(2023, 1, 17, 14, 0)}, weekly.ExDates)
	assert.Equal(t, "Smith-Jones-Algebra-Tennis", weekly.Summary)
	assert.Nil(t, weekly.RecurrenceID)

	moved := events[1]
	require.NotNil(t, moved.RecurrenceID)
	assert.Equal(t, date(2023, 1, 24, 14, 0), *moved.RecurrenceID)
	assert.Equal(t, date(2023, 1, 26, 16, 0), moved.Start)
	assert.Equal(t, "17:00", moved.EndTime)

	allDay := events[2]
	assert.Equal(t, date(2023, 1, 5, 0, 0), allDay.Start)
	assert.Equal(t, model.UnknownTime, allDay.EndTime)
	assert.Equal(t, "OnlyTwo-Parts", allDay.Summary, "VALARM summary must not leak into the event")

	assert.Equal(t, 1, report.Count(MissingEndTime))
	assert.Equal(t, 1, report.Len())
}

func TestParseStructuralErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		line int
	}{
		{
			name: "missing DTSTART",
			in:   "BEGIN:VCALENDAR\nBEGIN:VEVENT\nSUMMARY:A-B-C-D\nEND:VEVENT\n",
			line: 3,
		},
		{
			name: "bad DTSTART",
			in:   "BEGIN:VEVENT\nDTSTART:tomorrow\nEND:VEVENT\n",
			line: 2,
		},
		{
			name: "unterminated block",
			in:   "BEGIN:VCALENDAR\nBEGIN:VEVENT\nDTSTART:20230110T140000\nDTEND:20230110T150000\nSUMMARY:A-B-C-D\n",
			line: 2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, _, err := Parse(strings.NewReader(tc.in))
			require.Error(t, err)
			assert.Nil(t, events)

			var perr *StructuralParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tc.line, perr.Line)
		})
	}
}

func TestParseMissingSummaryYieldsEmptySummary(t *testing.T) {
	in := "BEGIN:VEVENT\nDTSTART:20230110T140000Z\nDTEND:20230110T150000Z\nUID:x\nEND:VEVENT\n"
	events, report, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Summary)
	assert.Equal(t, "15:00", events[0].EndTime)
	assert.Zero(t, report.Len())
}

func TestParseEndLineNotConsumedWhenMissing(t *testing.T) {
	// No DTEND: the RRULE on the second line must still be read.
	in := "BEGIN:VEVENT\nDTSTART:20230110T140000\nRRULE:FREQ=DAILY;COUNT=2\nSUMMARY:A-B-C-D\nEND:VEVENT\n"
	events, report, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "FREQ=DAILY;COUNT=2", events[0].RRule)
	assert.Equal(t, model.UnknownTime, events[0].EndTime)
	require.Equal(t, 1, report.Count(MissingEndTime))
	assert.Equal(t, "A-B-C-D", report.Warnings[0].Summary)
}

func TestParseFoldedAndEscapedSummary(t *testing.T) {
	in := "BEGIN:VEVENT\r\nDTSTART:20230110T140000\r\nDTEND:20230110T150000\r\n" +
		"SUMMARY:Smith-Jones-Alg\r\n ebra-Tennis\\, doubles\r\nEND:VEVENT\r\n"
	events, _, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Smith-Jones-Algebra-Tennis, doubles", events[0].Summary)
}

func TestParseMultipleExDates(t *testing.T) {
	in := "BEGIN:VEVENT\nDTSTART:20230102T090000\nDTEND:20230102T100000\n" +
		"RRULE:FREQ=DAILY;COUNT=5\n" +
		"EXDATE:20230103T090000,20230104T090000\n" +
		"EXDATE:20230105T090000Z\n" +
		"SUMMARY:A-B-C-D\nEND:VEVENT\n"
	events, _, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []time.Time{date(2023, 1, 3, 9, 0), date(2023, 1, 4, 9, 0), date(2023, 1, 5, 9, 0)}, events[0].ExDates)
}

func TestParseEmptyStream(t *testing.T) {
	events, report, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, report.Len())
}

func TestParseOverlongLineIsReadError(t *testing.T) {
	in := "BEGIN:VEVENT\nDTSTART:20230110T140000\nDTEND:20230110T150000\n" +
		"DESCRIPTION:" + strings.Repeat("x", 2*maxLineBytes) + "\n" +
		"SUMMARY:A-B-C-D\nEND:VEVENT\n"
	events, _, err := Parse(strings.NewReader(in))
	require.Error(t, err)
	assert.Nil(t, events)
	assert.True(t, errors.Is(err, bufio.ErrTooLong))

	var perr *StructuralParseError
	assert.False(t, errors.As(err, &perr))
}
