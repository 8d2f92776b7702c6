package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorsheet/internal/model"
)

func occ(d time.Time, student, start, end string) model.Occurrence {
	return model.Occurrence{Date: d, Student: student, Course: "Algebra", Activity: "Tennis", StartTime: start, EndTime: end}
}

func override(d time.Time, student, start, end string, replaces time.Time) model.Occurrence {
	o := occ(d, student, start, end)
	o.OverrideKey = &replaces
	return o
}

func TestReconcileReplacesMovedInstance(t *testing.T) {
	in := []model.Occurrence{
		occ(day(2023, 1, 17), "Jones", "14:00", "15:00"),
		occ(day(2023, 1, 24), "Jones", "14:00", "15:00"),
		override(day(2023, 1, 24), "Jones", "16:30", "17:30", date(2023, 1, 24, 14, 0)),
	}
	out, report := Reconcile(in)
	assert.Zero(t, report.Len())
	require.Len(t, out, 2)

	onDay := 0
	for _, o := range out {
		assert.Nil(t, o.OverrideKey)
		if o.Date.Equal(day(2023, 1, 24)) {
			onDay++
			assert.Equal(t, "16:30", o.StartTime)
		}
	}
	assert.Equal(t, 1, onDay, "the moved slot must appear exactly once")
}

func TestReconcileOnlyMatchesSameStudent(t *testing.T) {
	in := []model.Occurrence{
		occ(day(2023, 1, 24), "Jones", "14:00", "15:00"),
		occ(day(2023, 1, 24), "Brown", "14:00", "15:00"),
		override(day(2023, 1, 25), "Jones", "14:00", "15:00", date(2023, 1, 24, 14, 0)),
	}
	out, _ := Reconcile(in)
	require.Len(t, out, 2)
	assert.Equal(t, "Brown", out[0].Student)
	assert.Equal(t, day(2023, 1, 25), out[1].Date)
}

func TestReconcileEndTimeOnlyChange(t *testing.T) {
	in := []model.Occurrence{
		occ(day(2023, 1, 24), "Jones", "14:00", "15:00"),
		override(day(2023, 1, 24), "Jones", "14:00", "15:30", date(2023, 1, 24, 14, 0)),
	}
	out, _ := Reconcile(in)
	require.Len(t, out, 1)
	assert.Equal(t, "15:30", out[0].EndTime)
}

func TestReconcileUnmatchedOverrideKept(t *testing.T) {
	in := []model.Occurrence{
		occ(day(2023, 1, 10), "Jones", "14:00", "15:00"),
		override(day(2023, 2, 2), "Jones", "10:00", "11:00", date(2023, 1, 31, 14, 0)),
	}
	out, report := Reconcile(in)
	require.Len(t, out, 2)
	assert.Equal(t, 1, report.Count(UnmatchedOverride))
	assert.Equal(t, day(2023, 2, 2), out[1].Date)
}

func TestReconcileSkipsDuplicateOverride(t *testing.T) {
	in := []model.Occurrence{
		occ(day(2023, 1, 10), "Jones", "14:00", "15:00"),
		occ(day(2023, 1, 12), "Jones", "09:00", "10:00"),
		// Moved onto a slot that already exists.
		override(day(2023, 1, 12), "Jones", "09:00", "10:00", date(2023, 1, 10, 14, 0)),
	}
	out, _ := Reconcile(in)
	require.Len(t, out, 1)
	assert.Equal(t, day(2023, 1, 12), out[0].Date)
}

func TestReconcileLeavesBaseDuplicates(t *testing.T) {
	a := occ(day(2023, 1, 10), "Jones", "14:00", "15:00")
	out, _ := Reconcile([]model.Occurrence{a, a})
	assert.Len(t, out, 2)
}

func TestReconcileIsIdempotent(t *testing.T) {
	in := []model.Occurrence{
		occ(day(2023, 1, 3), "Jones", "14:00", "15:00"),
		occ(day(2023, 1, 10), "Jones", "14:00", "15:00"),
		occ(day(2023, 1, 10), "Brown", "11:00", model.UnknownTime),
		override(day(2023, 1, 11), "Jones", "14:00", "15:00", date(2023, 1, 10, 14, 0)),
		override(day(2023, 3, 1), "Brown", "11:00", "12:00", date(2023, 2, 28, 11, 0)),
	}
	once, _ := Reconcile(in)
	twice, report := Reconcile(once)
	assert.Equal(t, once, twice)
	assert.Zero(t, report.Len())
}

func TestOrder(t *testing.T) {
	in := []model.Occurrence{
		occ(day(2023, 1, 11), "A", "08:00", "09:00"),
		occ(day(2023, 1, 10), "B", "10:00", "11:00"),
		occ(day(2023, 1, 10), "C", "09:00", "10:00"),
		occ(day(2023, 1, 10), "D", model.UnknownTime, "10:00"),
		occ(day(2023, 1, 9), "E", "23:00", "23:30"),
	}
	Order(in)
	got := make([]string, 0, len(in))
	for _, o := range in {
		got = append(got, o.Student)
	}
	// "NaN" sorts after digits by its literal form.
	assert.Equal(t, []string{"E", "C", "B", "D", "A"}, got)
}
