package ics

import (
	"cmp"
	"slices"
	"strings"

	"tutorsheet/internal/model"
)

// Reconcile applies single-instance overrides. An occurrence with an
// OverrideKey replaces the base occurrence whose date, student, course,
// activity and start time match the key's date and time of day. The override
// itself is kept (with OverrideKey cleared) unless an identical tuple is
// already present.
//
// Overrides that match nothing are kept standalone; the returned Report
// carries one UnmatchedOverride notice for each. Base occurrences that share
// a tuple with each other are left as they are.
//
// Reconcile is idempotent.
func Reconcile(occs []model.Occurrence) ([]model.Occurrence, *Report) {
	report := &Report{}

	base := make([]model.Occurrence, 0, len(occs))
	overrides := make([]model.Occurrence, 0)
	for _, o := range occs {
		if o.OverrideKey != nil {
			overrides = append(overrides, o)
		} else {
			base = append(base, o)
		}
	}
	if len(overrides) == 0 {
		return base, report
	}

	replace := make(map[model.Key]bool, len(overrides))
	for _, o := range overrides {
		replace[replacementKey(o)] = true
	}

	matched := make(map[model.Key]bool, len(overrides))
	out := make([]model.Occurrence, 0, len(occs))
	present := make(map[model.Key]bool, len(occs))
	for _, o := range base {
		k := o.Key()
		if replace[k] {
			matched[k] = true
			continue
		}
		out = append(out, o)
		present[k] = true
	}

	for _, o := range overrides {
		rk := replacementKey(o)
		if !matched[rk] {
			report.Add(Warning{
				Kind:    UnmatchedOverride,
				Summary: strings.Join([]string{o.Student, o.Course, o.Activity}, "-"),
				Detail:  "no expanded occurrence at " + rk.Date + " " + rk.StartTime + "; kept standalone",
			})
		}

		o.OverrideKey = nil
		k := o.Key()
		if present[k] {
			continue
		}
		out = append(out, o)
		present[k] = true
	}
	return out, report
}

// replacementKey resolves an override's RECURRENCE-ID into the tuple of the
// occurrence it replaces, formatted the same way expansion formats dates.
func replacementKey(o model.Occurrence) model.Key {
	date, clock := model.SplitDateTime(*o.OverrideKey)
	return model.Key{
		Date:      date,
		Student:   o.Student,
		Course:    o.Course,
		Activity:  o.Activity,
		StartTime: clock,
	}
}

// Order sorts occurrences by calendar date, then by the literal start time
// string. The sort is stable and works in place; the slice is returned for
// convenience.
func Order(occs []model.Occurrence) []model.Occurrence {
	slices.SortStableFunc(occs, func(a, b model.Occurrence) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return occs
}
