package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"tutorsheet/internal/csvio"
	"tutorsheet/internal/formfiller"
	"tutorsheet/internal/ics"
	appLog "tutorsheet/internal/log"
	"tutorsheet/internal/model"
	"tutorsheet/internal/timesheet"
	"tutorsheet/internal/web"
	"tutorsheet/internal/window"
)

func meetingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "meetings",
		Usage: "List the meetings in a window and save them as CSV",
		Flags: []cli.Flag{
			startFlag(),
			endFlag(),
			calendarFlag(),
			strictFlag(),
			&cli.BoolFlag{
				Name:  "keep-csv",
				Usage: "Write meetings_M_D_to_M_D.csv to the output directory",
				Value: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg := getConfig(c)
			win, err := resolveWindow(c)
			if err != nil {
				return err
			}
			occs, err := loadMeetings(c.Context, c, cfg, win)
			if err != nil {
				return err
			}

			printMeetings(c.App.Writer, occs)
			if c.Bool("keep-csv") {
				path := outputPath(cfg, csvio.FileName(win))
				if err := csvio.WriteFile(path, occs); err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, "Output file created:", path)
			}
			return nil
		},
	}
}

func timesheetCommand() *cli.Command {
	return &cli.Command{
		Name:  "timesheet",
		Usage: "Render a timesheet from the calendar or a meetings CSV",
		Flags: []cli.Flag{
			startFlag(),
			endFlag(),
			calendarFlag(),
			strictFlag(),
			namesFlag(),
			&cli.BoolFlag{
				Name:    "csv",
				Aliases: []string{"c"},
				Usage:   "Also keep the meetings CSV",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format, pdf or html (overrides config)",
			},
			&cli.StringFlag{
				Name:  "from-csv",
				Usage: "Build the timesheet from a meetings CSV instead of the calendar",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := getConfig(c)

			format := cfg.Timesheet.Format
			if f := strings.ToLower(c.String("format")); f != "" {
				if f != "pdf" && f != "html" {
					return fmt.Errorf("unknown format %q; use pdf or html", f)
				}
				format = f
			}

			var (
				occs   []model.Occurrence
				label  string
				period string
			)
			if from := c.String("from-csv"); from != "" {
				var err error
				if occs, err = csvio.ReadFile(from); err != nil {
					return err
				}
				label = csvio.LabelOf(from)
			} else {
				win, err := resolveWindow(c)
				if err != nil {
					return err
				}
				if occs, err = loadMeetings(c.Context, c, cfg, win); err != nil {
					return err
				}
				label = win.Label()
				if win != window.Unbounded() {
					period = win.String()
				}
				if c.Bool("csv") {
					path := outputPath(cfg, csvio.FileName(win))
					if err := csvio.WriteFile(path, occs); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "Output file created:", path)
				}
			}

			r := loadRoster(c, cfg)
			sheet := timesheet.Build(occs, timesheet.Options{
				Title:       cfg.Timesheet.Title,
				Period:      period,
				RowsPerPage: cfg.Timesheet.RowsPerPage,
				Roster:      r,
			})
			path := outputPath(cfg, timesheet.FileName(r.TutorLastName(), label, format))

			var err error
			if format == "html" {
				err = timesheet.WriteHTML(path, sheet)
			} else {
				err = timesheet.WritePDF(c.Context, path, sheet, timesheet.ChromiumPrinter(cfg.ChromeTimeout()))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Total sessions: %d, total hours: %s\n", sheet.TotalSessions, sheet.TotalHoursText())
			fmt.Fprintln(c.App.Writer, "Output file created:", path)
			return nil
		},
	}
}

func formFillerCommand() *cli.Command {
	return &cli.Command{
		Name:  "formfiller",
		Usage: "Write a report form userscript for meetings from today on",
		Flags: []cli.Flag{
			calendarFlag(),
			strictFlag(),
			namesFlag(),
		},
		Action: func(c *cli.Context) error {
			cfg := getConfig(c)
			occs, err := loadMeetings(c.Context, c, cfg, window.From(time.Now()))
			if err != nil {
				return err
			}

			script := formfiller.New(occs, formfiller.Options{
				Author:    cfg.FormFiller.Author,
				MatchURL:  cfg.FormFiller.MatchURL,
				Signature: cfg.FormFiller.Signature,
				Roster:    loadRoster(c, cfg),
			})
			path := outputPath(cfg, formfiller.FileName)
			if err := formfiller.WriteFile(path, script); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d student(s) in the form filler\n", len(script.Students))
			fmt.Fprintln(c.App.Writer, "Output file created:", path)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the meetings in a window as a flat .ics calendar",
		Flags: []cli.Flag{
			startFlag(),
			endFlag(),
			calendarFlag(),
			strictFlag(),
			namesFlag(),
		},
		Action: func(c *cli.Context) error {
			cfg := getConfig(c)
			win, err := resolveWindow(c)
			if err != nil {
				return err
			}
			occs, err := loadMeetings(c.Context, c, cfg, win)
			if err != nil {
				return err
			}

			path := outputPath(cfg, "meetings_"+win.Label()+".ics")
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := ics.Export(f, occs, loadRoster(c, cfg).TutorLastName()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "Output file created:", path)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve meetings, the timesheet and the userscript over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "HTTP listen address (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := getConfig(c)
			if l := c.String("listen"); l != "" {
				cfg.Serve.Listen = l
			}
			appLog.Info("effective config",
				"listen", cfg.Serve.Listen,
				"refresh", cfg.Serve.RefreshCron,
				"names_file", cfg.NamesFile,
				"basic_auth", cfg.Serve.BasicAuth != nil,
			)

			srv := web.NewServer(cfg, ics.NewFetcher(cfg.CacheDir))
			if err := srv.Refresh(c.Context); err != nil {
				appLog.Error("initial calendar load failed", err)
			}

			refresher := web.NewRefresher(cfg.Serve.RefreshCron, srv.Refresh)
			if err := refresher.Start(c.Context); err != nil {
				return err
			}
			defer refresher.Stop()

			return srv.ListenAndServe(c.Context)
		},
	}
}
