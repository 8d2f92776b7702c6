package ics

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	appLog "tutorsheet/internal/log"
)

// StructuralParseError aborts a parse: the event stream cannot be read past
// Line without misplacing every later field.
type StructuralParseError struct {
	Line   int
	Reason string
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("ics: line %d: %s", e.Line, e.Reason)
}

// WarningKind classifies recoverable problems found during a run.
type WarningKind int

const (
	// MalformedSummary: the summary does not split into four parts. The
	// occurrences of that event are dropped.
	MalformedSummary WarningKind = iota
	// MissingEndTime: the event has no end time; occurrences carry
	// model.UnknownTime.
	MissingEndTime
	// UnmatchedOverride: an override referenced an occurrence that was not
	// expanded, so it is kept standalone.
	UnmatchedOverride
	// InvalidRule: the RRULE could not be parsed and the event was skipped.
	InvalidRule
	// Truncated: expansion hit the per-event cap.
	Truncated
)

func (k WarningKind) String() string {
	switch k {
	case MalformedSummary:
		return "malformed summary"
	case MissingEndTime:
		return "missing end time"
	case UnmatchedOverride:
		return "unmatched override"
	case InvalidRule:
		return "invalid recurrence rule"
	case Truncated:
		return "truncated recurrence"
	default:
		return "unknown"
	}
}

// Warning is a single recoverable problem.
type Warning struct {
	Kind    WarningKind
	Line    int // BEGIN:VEVENT line of the source event, 0 if not known
	Summary string
	Detail  string
}

func (w Warning) Error() string {
	msg := w.Kind.String()
	if w.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", w.Line, msg)
	}
	if w.Summary != "" {
		msg += fmt.Sprintf(" %q", w.Summary)
	}
	if w.Detail != "" {
		msg += ": " + w.Detail
	}
	return msg
}

// Report accumulates warnings over one run. The zero value is ready to use
// and a nil *Report discards everything.
type Report struct {
	Warnings []Warning
}

func (r *Report) Add(w Warning) {
	if r == nil {
		return
	}
	r.Warnings = append(r.Warnings, w)
}

// Merge appends all warnings of other.
func (r *Report) Merge(other *Report) {
	if r == nil || other == nil {
		return
	}
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Count returns the number of warnings of the given kind.
func (r *Report) Count(kind WarningKind) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Warnings)
}

// Err folds all warnings into one error, or nil when there are none.
func (r *Report) Err() error {
	if r.Len() == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, w := range r.Warnings {
		merr = multierror.Append(merr, w)
	}
	return merr.ErrorOrNil()
}

// Log writes every warning once. Unmatched overrides are informational and
// logged at info level.
func (r *Report) Log() {
	if r.Len() == 0 {
		return
	}
	for _, w := range r.Warnings {
		if w.Kind == UnmatchedOverride {
			appLog.Info("ics notice", "kind", w.Kind.String(), "line", w.Line, "summary", w.Summary, "detail", w.Detail)
			continue
		}
		appLog.Warn("ics warning", "kind", w.Kind.String(), "line", w.Line, "summary", w.Summary, "detail", w.Detail)
	}
	appLog.Info("ics warnings reported", "count", r.Len())
}

