// Package timesheet lays meetings out as printable timesheet pages and
// renders them to HTML or, through headless Chromium, to PDF.
package timesheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tutorsheet/internal/model"
	"tutorsheet/internal/roster"
)

const DefaultRowsPerPage = 10

// Row is one printed meeting.
type Row struct {
	Date     string
	Student  string
	Activity string
	Course   string
	Start    string
	End      string
	Hours    float64
	// UnknownEnd marks rows whose hours could not be computed.
	UnknownEnd bool
}

// HoursText is the hours cell, e.g. "1.5", or "0*" for an unknown end.
func (r Row) HoursText() string {
	s := formatHours(r.Hours)
	if r.UnknownEnd {
		s += "*"
	}
	return s
}

// Page is one sheet of paper worth of rows.
type Page struct {
	Number int
	Rows   []Row
}

// Sheet is a complete timesheet.
type Sheet struct {
	Title  string
	Tutor  string
	Period string
	Pages  []Page

	TotalSessions int
	TotalHours    float64
	// Flagged counts rows with an unknown end time.
	Flagged int
}

// TotalHoursText formats TotalHours the same way as row hours.
func (s Sheet) TotalHoursText() string {
	return formatHours(s.TotalHours)
}

// Options controls Build.
type Options struct {
	Title       string
	Period      string
	RowsPerPage int
	Roster      *roster.Roster
}

// Build pages occurrences in the order given. Student last names are
// resolved to full names through opts.Roster when one is set.
func Build(occs []model.Occurrence, opts Options) Sheet {
	if opts.RowsPerPage <= 0 {
		opts.RowsPerPage = DefaultRowsPerPage
	}
	sheet := Sheet{
		Title:  opts.Title,
		Period: opts.Period,
	}
	if opts.Roster != nil {
		sheet.Tutor = opts.Roster.Tutor.Full()
	}

	for i, o := range occs {
		if i%opts.RowsPerPage == 0 {
			sheet.Pages = append(sheet.Pages, Page{Number: len(sheet.Pages) + 1})
		}
		hours, ok := Hours(o)
		row := Row{
			Date:       fmt.Sprintf("%d/%d", o.Date.Month(), o.Date.Day()),
			Student:    opts.Roster.FullName(o.Student),
			Activity:   o.Activity,
			Course:     o.Course,
			Start:      o.StartTime,
			End:        o.EndTime,
			Hours:      hours,
			UnknownEnd: !ok,
		}
		last := &sheet.Pages[len(sheet.Pages)-1]
		last.Rows = append(last.Rows, row)

		sheet.TotalSessions++
		sheet.TotalHours += hours
		if !ok {
			sheet.Flagged++
		}
	}
	return sheet
}

// Hours returns the length of a meeting in hours. Meetings without a
// usable end time count as zero and report false. An end before the start
// is taken to cross midnight.
func Hours(o model.Occurrence) (float64, bool) {
	if !o.HasKnownEnd() {
		return 0, false
	}
	start, err := time.Parse("15:04", o.StartTime)
	if err != nil {
		return 0, false
	}
	end, err := time.Parse("15:04", o.EndTime)
	if err != nil {
		return 0, false
	}
	d := end.Sub(start)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d.Hours(), true
}

func formatHours(h float64) string {
	s := strconv.FormatFloat(h, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// FileName is the output name for a timesheet: [tutor_]timesheet[_label].ext.
// The tutor's last name is lowercased.
func FileName(tutorLastName, label, ext string) string {
	name := "timesheet"
	if label != "" {
		name += "_" + label
	}
	if tutorLastName != "" {
		name = strings.ToLower(tutorLastName) + "_" + name
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}
