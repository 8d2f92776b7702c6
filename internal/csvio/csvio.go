// Package csvio reads and writes the meetings CSV shared by the timesheet
// and form filler commands.
package csvio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"tutorsheet/internal/model"
	"tutorsheet/internal/window"
)

// Row is one meeting as stored in the CSV.
type Row struct {
	Date      string `csv:"Date"`
	Student   string `csv:"Student"`
	Activity  string `csv:"Activity"`
	Course    string `csv:"Course"`
	StartTime string `csv:"StartTime"`
	EndTime   string `csv:"EndTime"`
}

// FileName is the CSV name for meetings in w, e.g. meetings_1_28_to_6_10.csv.
func FileName(w window.Window) string {
	return "meetings_" + w.Label() + ".csv"
}

// LabelOf recovers the window label from a CSV written under FileName. It
// returns "" for any other name.
func LabelOf(path string) string {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "meetings_") || !strings.HasSuffix(base, ".csv") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(base, "meetings_"), ".csv")
}

func toRow(o model.Occurrence) Row {
	return Row{
		Date:      model.DateString(o.Date),
		Student:   o.Student,
		Activity:  o.Activity,
		Course:    o.Course,
		StartTime: o.StartTime,
		EndTime:   o.EndTime,
	}
}

// Write writes occurrences with a header row.
func Write(w io.Writer, occs []model.Occurrence) error {
	rows := make([]*Row, 0, len(occs))
	for _, o := range occs {
		r := toRow(o)
		rows = append(rows, &r)
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}

// WriteFile writes occurrences to path, replacing any existing file.
func WriteFile(path string, occs []model.Occurrence) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	if err := Write(f, occs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read parses a meetings CSV, with or without its header row. Files
// written with the older "Sport" column name are accepted. Empty input
// yields no meetings.
func Read(r io.Reader) ([]model.Occurrence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	data = bytes.TrimLeft(data, "\ufeff\r\n")
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.Occurrence{}, nil
	}

	rows := make([]*Row, 0)
	firstLine, _, _ := strings.Cut(string(data), "\n")
	if strings.HasPrefix(strings.TrimSpace(firstLine), "Date") {
		header := strings.Replace(firstLine, "Sport", "Activity", 1)
		data = append([]byte(header), data[len(firstLine):]...)
		err = gocsv.UnmarshalBytes(data, &rows)
	} else {
		err = gocsv.UnmarshalWithoutHeaders(bytes.NewReader(data), &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	occs := make([]model.Occurrence, 0, len(rows))
	for i, row := range rows {
		d, err := window.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("csv: row %d: %w", i+1, err)
		}
		occs = append(occs, model.Occurrence{
			Date:      d,
			Student:   strings.TrimSpace(row.Student),
			Activity:  strings.TrimSpace(row.Activity),
			Course:    strings.TrimSpace(row.Course),
			StartTime: strings.TrimSpace(row.StartTime),
			EndTime:   strings.TrimSpace(row.EndTime),
		})
	}
	return occs, nil
}

// ReadFile reads a meetings CSV from path.
func ReadFile(path string) ([]model.Occurrence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	defer f.Close()
	return Read(f)
}
