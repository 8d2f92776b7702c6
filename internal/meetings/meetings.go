// Package meetings turns a calendar export into the ordered list of tutoring
// meetings inside a date window.
package meetings

import (
	"context"
	"fmt"
	"io"
	"time"

	"tutorsheet/internal/ics"
	appLog "tutorsheet/internal/log"
	"tutorsheet/internal/model"
	"tutorsheet/internal/window"
)

// Opener resolves a calendar location to its contents. *ics.Fetcher
// satisfies it.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Options controls a single Load.
type Options struct {
	Window                 window.Window
	MaxOccurrencesPerEvent int
	// Evaluator overrides the recurrence evaluator, mainly for tests.
	Evaluator ics.Evaluator
}

// Result is the ordered meetings and every warning raised on the way.
type Result struct {
	Occurrences []model.Occurrence
	Report      *ics.Report
}

// Load opens location and runs it through Read.
func Load(ctx context.Context, opener Opener, location string, opts Options) (Result, error) {
	if location == "" {
		return Result{Report: &ics.Report{}}, fmt.Errorf("meetings: no calendar configured")
	}
	rc, err := opener.Open(ctx, location)
	if err != nil {
		return Result{Report: &ics.Report{}}, err
	}
	defer rc.Close()
	return Read(rc, opts)
}

// Read parses a calendar, expands recurrences inside the window, applies
// moved instances and orders the result by date and start time. Only a
// structural parse failure or an invalid window is returned as an error.
func Read(r io.Reader, opts Options) (Result, error) {
	start := time.Now()
	res := Result{Report: &ics.Report{}}

	if opts.Window.Start.IsZero() && opts.Window.End.IsZero() {
		opts.Window = window.Unbounded()
	}

	events, parseReport, err := ics.Parse(r)
	if err != nil {
		return res, err
	}
	res.Report.Merge(parseReport)

	expanded, err := ics.Expand(events, ics.ExpandConfig{
		WindowStart:            opts.Window.Start,
		WindowEnd:              opts.Window.End,
		MaxOccurrencesPerEvent: opts.MaxOccurrencesPerEvent,
		Evaluator:              opts.Evaluator,
	})
	if err != nil {
		return res, err
	}
	res.Report.Merge(expanded.Report)

	reconciled, reconcileReport := ics.Reconcile(expanded.Occurrences)
	res.Report.Merge(reconcileReport)

	res.Occurrences = ics.Order(reconciled)

	appLog.Debug("meetings loaded",
		"window", opts.Window.String(),
		"events", len(events),
		"meetings", len(res.Occurrences),
		"warnings", res.Report.Len(),
		"elapsed", time.Since(start).String(),
	)
	return res, nil
}
