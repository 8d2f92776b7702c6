package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorsheet/internal/model"
)

func TestExportRoundTrip(t *testing.T) {
	nowFunc = func() time.Time { return date(2023, 2, 1, 12, 0) }
	t.Cleanup(func() { nowFunc = time.Now })

	events, _, err := Parse(strings.NewReader(sampleCalendar))
	require.NoError(t, err)
	res, err := Expand(events, ExpandConfig{WindowStart: day(2023, 1, 1), WindowEnd: day(2023, 1, 31)})
	require.NoError(t, err)
	want, _ := Reconcile(res.Occurrences)
	Order(want)
	want = append(want, model.Occurrence{
		ID: "no-end", Date: day(2023, 1, 30), Student: "Brown", Course: "Chem, Intro", Activity: "Golf",
		StartTime: "08:15", EndTime: model.UnknownTime,
	})

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, want, "Smith"))

	// The library parser accepts the output.
	cal, err := ical.ParseCalendar(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, cal.Events(), len(want))
	assert.Equal(t, "Smith-Jones-Algebra-Tennis", cal.Events()[0].GetProperty(ical.ComponentPropertySummary).Value)

	// And so does our own scanner.
	back, report, err := Parse(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(MissingEndTime))
	res, err = Expand(back, ExpandConfig{})
	require.NoError(t, err)
	got := Order(res.Occurrences)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Key(), got[i].Key())
		assert.Equal(t, want[i].EndTime, got[i].EndTime)
	}
}

func TestExportRejectsBadTime(t *testing.T) {
	err := Export(&bytes.Buffer{}, []model.Occurrence{{Date: day(2023, 1, 1), StartTime: "soon", EndTime: "10:00"}}, "")
	assert.Error(t, err)
}
