package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"tutorsheet/internal/config"
	appLog "tutorsheet/internal/log"
)

const version = "0.2.0"

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		appLog.Error("tutorsheet failed", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "tutorsheet",
		Usage:   "Turn a tutoring calendar into meeting lists, timesheets and report form helpers",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlagName,
				Usage:   "Path to the YAML or TOML config file (created with defaults if missing)",
				Value:   config.DefaultPath(),
				EnvVars: []string{"TUTORSHEET_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  debugFlagName,
				Usage: "Enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String(configFlagName))
			if err != nil {
				return err
			}
			level := appLog.ParseLevel(cfg.LogLevel)
			if c.Bool(debugFlagName) {
				level = appLog.LevelDebug
			}
			appLog.SetLevel(level)
			c.App.Metadata = map[string]interface{}{configKey: cfg}
			return nil
		},
		Commands: []*cli.Command{
			meetingsCommand(),
			timesheetCommand(),
			formFillerCommand(),
			exportCommand(),
			serveCommand(),
		},
	}
}
