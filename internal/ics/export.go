package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"tutorsheet/internal/model"
)

const exportProductID = "-//tutorsheet//meetings//EN"

var nowFunc = time.Now

// Export writes occurrences as single, non-recurring VEVENTs with floating
// times. Summaries are rebuilt as tutor-student-course-activity, so the
// output parses back into the same occurrences.
func Export(w io.Writer, occs []model.Occurrence, tutorLastName string) error {
	if tutorLastName == "" {
		tutorLastName = "Tutor"
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(exportProductID)

	stamp := nowFunc().UTC()
	for _, o := range occs {
		start, err := floating(o.Date, o.StartTime)
		if err != nil {
			return fmt.Errorf("export %s %s: %w", model.DateString(o.Date), o.Student, err)
		}

		// DTSTART has to be the first property of each block.
		ev := &ical.VEvent{}
		ev.SetProperty(ical.ComponentPropertyDtStart, start)
		if o.HasKnownEnd() {
			end, err := floating(o.Date, o.EndTime)
			if err != nil {
				return fmt.Errorf("export %s %s: %w", model.DateString(o.Date), o.Student, err)
			}
			ev.SetProperty(ical.ComponentPropertyDtEnd, end)
		}
		ev.SetDtStampTime(stamp)
		ev.SetProperty(ical.ComponentPropertyUniqueId, o.ID+"@tutorsheet")
		ev.SetSummary(strings.Join([]string{tutorLastName, o.Student, o.Course, o.Activity}, summaryDelimiter))
		cal.AddVEvent(ev)
	}

	return cal.SerializeTo(w)
}

// floating formats date + HH:MM as a DATE-TIME without zone.
func floating(date time.Time, clock string) (string, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", fmt.Errorf("bad time of day %q", clock)
	}
	return fmt.Sprintf("%sT%02d%02d00", date.Format("20060102"), t.Hour(), t.Minute()), nil
}
