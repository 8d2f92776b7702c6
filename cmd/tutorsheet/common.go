package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"tutorsheet/internal/config"
	"tutorsheet/internal/ics"
	appLog "tutorsheet/internal/log"
	"tutorsheet/internal/meetings"
	"tutorsheet/internal/model"
	"tutorsheet/internal/roster"
	"tutorsheet/internal/window"
)

const (
	configKey = "config"

	configFlagName   = "config"
	debugFlagName    = "debug"
	startFlagName    = "start"
	endFlagName      = "end"
	calendarFlagName = "calendar"
	namesFlagName    = "names"
	strictFlagName   = "strict"
)

func startFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    startFlagName,
		Aliases: []string{"s"},
		Usage:   "First date of the window, MM/DD/YYYY (alone: a two week window)",
	}
}

func endFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    endFlagName,
		Aliases: []string{"e"},
		Usage:   "Last date of the window, MM/DD/YYYY",
	}
}

func calendarFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  calendarFlagName,
		Usage: "Calendar .ics path or http(s) URL (overrides config)",
	}
}

func namesFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    namesFlagName,
		Aliases: []string{"n"},
		Usage:   "Names file with the tutor and students (overrides config)",
	}
}

func strictFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  strictFlagName,
		Usage: "Fail when the calendar produced any warning",
	}
}

func getConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

func resolveWindow(c *cli.Context) (window.Window, error) {
	return window.Resolve(c.String(startFlagName), c.String(endFlagName))
}

// loadMeetings reads the calendar named by --calendar or the config and
// returns the meetings in win. Warnings are logged before returning; with
// --strict they are also returned as one error.
func loadMeetings(ctx context.Context, c *cli.Context, cfg *config.Config, win window.Window) ([]model.Occurrence, error) {
	source := cfg.Calendar
	if c.String(calendarFlagName) != "" {
		source = c.String(calendarFlagName)
	}
	if source == "" {
		return nil, fmt.Errorf("no calendar given; set calendar in the config or pass --%s", calendarFlagName)
	}

	res, err := meetings.Load(ctx, ics.NewFetcher(cfg.CacheDir), source, meetings.Options{
		Window:                 win,
		MaxOccurrencesPerEvent: cfg.MaxOccurrencesPerEvent,
	})
	if err != nil {
		return nil, err
	}
	res.Report.Log()
	if c.Bool(strictFlagName) {
		if err := res.Report.Err(); err != nil {
			return nil, fmt.Errorf("calendar %s: %w", source, err)
		}
	}
	return res.Occurrences, nil
}

// loadRoster reads the names file from --names or the config. A file in
// the wrong format is ignored with a warning.
func loadRoster(c *cli.Context, cfg *config.Config) *roster.Roster {
	path := cfg.NamesFile
	if c.String(namesFlagName) != "" {
		path = c.String(namesFlagName)
	}
	if path == "" {
		return nil
	}
	r, err := roster.Load(path)
	if err != nil {
		appLog.Warn("the names file can't be used and will be ignored", "path", path, "error", err.Error())
		return nil
	}
	return r
}

func outputPath(cfg *config.Config, name string) string {
	return filepath.Join(cfg.OutputDir, name)
}

func defaultTable(writer io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(writer)
	table.SetRowLine(true)
	return table
}

func printMeetings(w io.Writer, occs []model.Occurrence) {
	table := defaultTable(w)
	table.SetHeader([]string{"Date", "Student", "Activity", "Course", "Start", "End"})
	for _, o := range occs {
		table.Append([]string{model.DateString(o.Date), o.Student, o.Activity, o.Course, o.StartTime, o.EndTime})
	}
	table.Render()
	fmt.Fprintf(w, "Total sessions: %d\n", len(occs))
}
