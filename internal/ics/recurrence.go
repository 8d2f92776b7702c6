package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Evaluator turns an anchor, a recurrence rule and exception dates into an
// ordered sequence of occurrence start times. The sequence may be infinite;
// callers stop pulling once they pass the end of their window.
type Evaluator interface {
	Occurrences(start time.Time, rule string, exdates []time.Time) (next func() (time.Time, bool), err error)
}

// RRuleEvaluator evaluates RFC 5545 RRULE values with rrule-go.
type RRuleEvaluator struct{}

func (RRuleEvaluator) Occurrences(start time.Time, rule string, exdates []time.Time) (func() (time.Time, bool), error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("parse RRULE %q: %w", rule, err)
	}

	// DTSTART comes from the event, never from the rule text.
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exdates {
		set.ExDate(ex.In(start.Location()))
	}
	return set.Iterator(), nil
}
