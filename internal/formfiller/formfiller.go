// Package formfiller generates a userscript that adds student, course and
// start time dropdowns to the tutor report form and fills the form from the
// selection.
package formfiller

import (
	"slices"
	"strings"

	"tutorsheet/internal/model"
	"tutorsheet/internal/roster"
)

// FileName is where the formfiller command writes the userscript.
const FileName = "outputJS.js"

// Student is everything the form needs to offer for one student.
type Student struct {
	LastName   string   `json:"lastName"`
	Sport      string   `json:"sport"`
	ClassNames []string `json:"classNames"`
	StartTimes []string `json:"startTimes"`
}

// Aggregate groups meetings by student last name in order of first
// appearance. A student keeps the activity of their first meeting; courses
// and start times are collected without duplicates.
func Aggregate(occs []model.Occurrence) []Student {
	students := make([]Student, 0)
	index := make(map[string]int)
	for _, o := range occs {
		i, ok := index[o.Student]
		if !ok {
			i = len(students)
			index[o.Student] = i
			students = append(students, Student{
				LastName:   o.Student,
				Sport:      ExpandActivity(o.Activity),
				ClassNames: []string{},
				StartTimes: []string{},
			})
		}
		s := &students[i]
		if !slices.Contains(s.StartTimes, o.StartTime) {
			s.StartTimes = append(s.StartTimes, o.StartTime)
		}
		if !slices.Contains(s.ClassNames, o.Course) {
			s.ClassNames = append(s.ClassNames, o.Course)
		}
	}
	return students
}

// ExpandActivity spells out the "M " and "W " team prefixes the calendar
// uses, e.g. "W Golf" becomes "Women's Golf".
func ExpandActivity(activity string) string {
	switch {
	case strings.HasPrefix(activity, "M "):
		return "Men's " + strings.TrimPrefix(activity, "M ")
	case strings.HasPrefix(activity, "W "):
		return "Women's " + strings.TrimPrefix(activity, "W ")
	}
	return activity
}

// FullNames lists the roster's students as [last, first] pairs for the
// first-name dropdown.
func FullNames(r *roster.Roster) [][2]string {
	names := make([][2]string, 0)
	if r == nil {
		return names
	}
	for _, s := range r.Students {
		names = append(names, [2]string{s.Last, s.First})
	}
	return names
}
