// Package roster reads the tutor and student names file used to print full
// names on timesheets and in the form filler.
//
// File format:
//
//	tutor:
//	Smith, Anna
//	students:
//	Jones, Bob
//	Brown, Carol
//
// Students are matched by last name only, so two students sharing a last
// name resolve to whichever appears last.
package roster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrFormat is returned when the tutor: or students: header is missing.
var ErrFormat = errors.New("roster: names file must contain 'tutor:' and 'students:' sections")

// Name is a last/first name pair.
type Name struct {
	Last  string
	First string
}

// Full returns "First Last", or just the last name when no first name is known.
func (n Name) Full() string {
	if n.First == "" {
		return n.Last
	}
	return n.First + " " + n.Last
}

// Roster is the parsed names file.
type Roster struct {
	Tutor    Name
	Students []Name
}

// Load reads and parses the names file at path.
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a names file. The tutor is the line after "tutor:"; students
// are the non-empty lines after "students:" up to the end of the file or the
// next blank line.
func Parse(r io.Reader) (*Roster, error) {
	sc := bufio.NewScanner(r)
	var (
		rst                   Roster
		seenTutor, seenStuds  bool
		wantTutor, inStudents bool
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "tutor:":
			seenTutor, wantTutor, inStudents = true, true, false
		case line == "students:":
			seenStuds, wantTutor, inStudents = true, false, true
		case wantTutor:
			if line == "" {
				continue
			}
			rst.Tutor = parseName(line)
			wantTutor = false
		case inStudents:
			if line == "" {
				inStudents = false
				continue
			}
			rst.Students = append(rst.Students, parseName(line))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	if !seenTutor || !seenStuds {
		return nil, ErrFormat
	}
	return &rst, nil
}

func parseName(line string) Name {
	last, first, _ := strings.Cut(line, ",")
	return Name{Last: strings.TrimSpace(last), First: strings.TrimSpace(first)}
}

// FullName resolves a student's last name to "First Last". Unknown names,
// and a nil roster, return lastName unchanged.
func (r *Roster) FullName(lastName string) string {
	if r == nil {
		return lastName
	}
	full := lastName
	for _, s := range r.Students {
		if s.Last == lastName {
			full = s.Full()
		}
	}
	return full
}

// TutorLastName returns the tutor's last name, or "" for a nil roster.
func (r *Roster) TutorLastName() string {
	if r == nil {
		return ""
	}
	return r.Tutor.Last
}
