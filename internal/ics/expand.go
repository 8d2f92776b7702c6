package ics

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "tutorsheet/internal/log"
	"tutorsheet/internal/model"
	"tutorsheet/internal/window"
)

const (
	defaultMaxOccurrencesPerEvent = 5000

	summaryDelimiter = "-"
	summaryParts     = 4
)

var occurrenceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tutorsheet:occurrence"))

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// WindowStart / WindowEnd are inclusive calendar dates. Zero values
	// leave that side unbounded.
	WindowStart time.Time
	WindowEnd   time.Time

	// MaxOccurrencesPerEvent caps unbounded rules. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int

	// Evaluator expands RRULEs. If nil, RRuleEvaluator is used.
	Evaluator Evaluator
}

// ExpandResult wraps the expanded occurrences and the warnings raised
// while producing them.
type ExpandResult struct {
	Occurrences []model.Occurrence
	Report      *Report
}

// Expand turns parsed events into concrete occurrences within the window.
//
// Events are visited in lexicographic order of their summary so output
// built from the same calendar is always assembled the same way. Events
// whose summary does not split into tutor-student-course-activity are
// dropped with one MalformedSummary warning each.
func Expand(events []RawEvent, cfg ExpandConfig) (ExpandResult, error) {
	result := ExpandResult{Report: &Report{}}

	if cfg.WindowStart.IsZero() {
		cfg.WindowStart = window.Earliest
	}
	if cfg.WindowEnd.IsZero() {
		cfg.WindowEnd = window.Latest
	}
	cfg.WindowStart = model.DateOnly(cfg.WindowStart)
	cfg.WindowEnd = model.DateOnly(cfg.WindowEnd)
	if cfg.WindowEnd.Before(cfg.WindowStart) {
		return result, errors.New("expand: window end is before window start")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = RRuleEvaluator{}
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b RawEvent) int {
		return strings.Compare(a.Summary, b.Summary)
	})

	out := make([]model.Occurrence, 0)
	for _, ev := range sorted {
		times, err := occurrenceTimes(ev, cfg, result.Report)
		if err != nil {
			result.Report.Add(Warning{Kind: InvalidRule, Line: ev.Line, Summary: ev.Summary, Detail: err.Error()})
			appLog.Debug("expand: skipping event with invalid RRULE", "line", ev.Line, "rrule", ev.RRule)
			continue
		}
		if len(times) == 0 {
			continue
		}

		parts := strings.SplitN(ev.Summary, summaryDelimiter, summaryParts)
		if len(parts) < summaryParts {
			result.Report.Add(Warning{
				Kind:    MalformedSummary,
				Line:    ev.Line,
				Summary: ev.Summary,
				Detail:  fmt.Sprintf("%d occurrence(s) dropped; expected tutorLastName-studentLastName-Course-Activity", len(times)),
			})
			continue
		}

		for _, t := range times {
			out = append(out, makeOccurrence(ev, parts, t))
		}
	}

	result.Occurrences = out
	return result, nil
}

// occurrenceTimes returns the start times of ev that fall inside the window.
func occurrenceTimes(ev RawEvent, cfg ExpandConfig, report *Report) ([]time.Time, error) {
	if ev.RRule == "" {
		if inWindow(ev.Start, cfg) {
			return []time.Time{ev.Start}, nil
		}
		return nil, nil
	}

	next, err := cfg.Evaluator.Occurrences(ev.Start, ev.RRule, ev.ExDates)
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, 0)
	for t, ok := next(); ok; t, ok = next() {
		if model.DateOnly(t).After(cfg.WindowEnd) {
			break
		}
		if !inWindow(t, cfg) {
			continue
		}
		if len(times) == cfg.MaxOccurrencesPerEvent {
			report.Add(Warning{
				Kind:    Truncated,
				Line:    ev.Line,
				Summary: ev.Summary,
				Detail:  fmt.Sprintf("stopped after %d occurrences", cfg.MaxOccurrencesPerEvent),
			})
			break
		}
		times = append(times, t)
	}
	return times, nil
}

func inWindow(t time.Time, cfg ExpandConfig) bool {
	d := model.DateOnly(t)
	return !d.Before(cfg.WindowStart) && !d.After(cfg.WindowEnd)
}

// makeOccurrence builds one occurrence from a validated summary split.
func makeOccurrence(ev RawEvent, parts []string, at time.Time) model.Occurrence {
	occ := model.Occurrence{
		Date:      model.DateOnly(at),
		Student:   strings.TrimSpace(parts[1]),
		Course:    strings.TrimSpace(parts[2]),
		Activity:  strings.TrimSpace(parts[3]),
		StartTime: model.ClockString(at),
		EndTime:   ev.EndTime,
	}
	if occ.EndTime == "" {
		occ.EndTime = model.UnknownTime
	}
	if ev.RecurrenceID != nil {
		rid := *ev.RecurrenceID
		occ.OverrideKey = &rid
	}

	seed := ev.Summary + "|" + ev.Start.Format(time.RFC3339) + "|" + at.Format(time.RFC3339)
	occ.ID = uuid.NewSHA1(occurrenceNamespace, []byte(seed)).String()
	return occ
}
