package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorsheet/internal/csvio"
	"tutorsheet/internal/ics"
)

const calendar = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART;TZID=America/New_York:20230103T140000\r\n" +
	"DTEND;TZID=America/New_York:20230103T150000\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=4;BYDAY=TU\r\n" +
	"SUMMARY:Smith-Jones-Algebra-W Golf\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

type testEnv struct {
	dir    string
	config string
	out    *bytes.Buffer
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	calPath := filepath.Join(dir, "cal.ics")
	require.NoError(t, os.WriteFile(calPath, []byte(calendar), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "names.txt"), []byte("tutor:\nSmith, Anna\nstudents:\nJones, Bob\n"), 0o600))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "calendar: " + calPath + "\noutput_dir: " + dir + "\ncache_dir: " + filepath.Join(dir, "cache") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return testEnv{dir: dir, config: cfgPath, out: &bytes.Buffer{}}
}

func (e testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	app := newApp()
	app.Writer = e.out
	return app.RunContext(context.Background(), append([]string{"tutorsheet", "--config", e.config}, args...))
}

func TestMeetingsCommand(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run(t, "meetings", "-s", "01/01/2023"))

	assert.Contains(t, env.out.String(), "Total sessions: 2")
	assert.Contains(t, env.out.String(), "1/10/2023")

	occs, err := csvio.ReadFile(filepath.Join(env.dir, "meetings_1_1_to_1_14.csv"))
	require.NoError(t, err)
	assert.Len(t, occs, 2)
}

func TestMeetingsCommandBadDate(t *testing.T) {
	env := newTestEnv(t)
	assert.Error(t, env.run(t, "meetings", "-s", "2023-01-01"))
}

func TestMeetingsCommandStrict(t *testing.T) {
	env := newTestEnv(t)
	badCal := filepath.Join(env.dir, "bad.ics")
	require.NoError(t, os.WriteFile(badCal, []byte("BEGIN:VCALENDAR\r\n"+
		"BEGIN:VEVENT\r\n"+
		"DTSTART:20230105T100000\r\n"+
		"DTEND:20230105T110000\r\n"+
		"SUMMARY:Smith-Jones\r\n"+
		"END:VEVENT\r\n"+
		"END:VCALENDAR\r\n"), 0o600))

	require.NoError(t, env.run(t, "meetings", "-s", "01/01/2023", "--calendar", badCal))
	assert.Contains(t, env.out.String(), "Total sessions: 0")

	err := env.run(t, "meetings", "-s", "01/01/2023", "--calendar", badCal, "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 error occurred")
	assert.Contains(t, err.Error(), `malformed summary "Smith-Jones"`)

	require.NoError(t, env.run(t, "meetings", "-s", "01/01/2023", "--strict"))
}

func TestTimesheetCommandHTML(t *testing.T) {
	env := newTestEnv(t)
	names := filepath.Join(env.dir, "names.txt")
	require.NoError(t, env.run(t, "timesheet", "-s", "01/01/2023", "-n", names, "-c", "--format", "html"))

	data, err := os.ReadFile(filepath.Join(env.dir, "smith_timesheet_1_1_to_1_14.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Bob Jones")
	assert.FileExists(t, filepath.Join(env.dir, "meetings_1_1_to_1_14.csv"))
	assert.Contains(t, env.out.String(), "total hours: 2")
}

func TestTimesheetCommandFromCSV(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run(t, "meetings", "-s", "01/01/2023"))
	csvPath := filepath.Join(env.dir, "meetings_1_1_to_1_14.csv")

	require.NoError(t, env.run(t, "timesheet", "--from-csv", csvPath, "--format", "html"))
	assert.FileExists(t, filepath.Join(env.dir, "timesheet_1_1_to_1_14.html"))

	assert.Error(t, env.run(t, "timesheet", "--from-csv", csvPath, "--format", "docx"))
}

func TestExportCommand(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run(t, "export", "-s", "01/01/2023", "-e", "01/31/2023"))

	f, err := os.Open(filepath.Join(env.dir, "meetings_1_1_to_1_31.ics"))
	require.NoError(t, err)
	defer f.Close()
	events, _, err := ics.Parse(f)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestFormFillerCommand(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run(t, "formfiller"))
	assert.FileExists(t, filepath.Join(env.dir, "outputJS.js"))
	// All meetings in the fixture are in the past.
	assert.Contains(t, env.out.String(), "0 student(s)")
}

func TestMissingCalendar(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.config, []byte("output_dir: "+env.dir+"\n"), 0o600))
	assert.Error(t, env.run(t, "meetings"))
}
