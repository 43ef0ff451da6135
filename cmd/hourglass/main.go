// Package main is the entry point for the Hourglass command-line tracker.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hourglass-app/hourglass/internal/app"
	"github.com/hourglass-app/hourglass/internal/appenv"
	"github.com/hourglass-app/hourglass/internal/config"
	"github.com/hourglass-app/hourglass/internal/errors"
	"github.com/hourglass-app/hourglass/internal/logger"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	settings, err := appenv.Load(".env")
	if err != nil {
		fmt.Fprintf(stderr, "Error: reading environment: %v\n", err)
		return 1
	}

	dirs, err := config.ResolveAppDirs(config.AppName, settings.ConfigDir, settings.DataDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: resolving directories: %v\n", err)
		return 1
	}

	log, err := logger.New(dirs.DataDir, settings.LogLevel, settings.LogTee)
	if err != nil {
		fmt.Fprintf(stderr, "Error: starting logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	if settings.Dotenv != "" {
		log.Debugw("dotenv loaded", "path", settings.Dotenv)
	}

	c := &cli{
		stdout: stdout,
		dirs:   dirs,
		log:    log,
		now:    time.Now,
	}
	if err := c.execute(args); err != nil {
		log.Errorw("command failed", "args", args, "code", errors.GetCode(err), "err", err)
		fmt.Fprintln(stderr, "Error: "+errors.FormatUserMessage(err))
		return 1
	}
	return 0
}

// cli carries what every command needs.
type cli struct {
	stdout  io.Writer
	dirs    config.AppDirs
	log     *zap.SugaredLogger
	now     func() time.Time
	appOpts []app.Option
}

func (c *cli) execute(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}
	switch args[0] {
	case "config":
		return c.runConfig(args[1:])
	case "start":
		return c.runStart(args[1:])
	case "stop":
		return c.runStop()
	case "current":
		return c.runCurrent()
	case "today":
		return c.runToday()
	case "activities":
		return c.runActivities()
	case "version":
		fmt.Fprintf(c.stdout, "hourglass %s (%s)\n", version, commit)
		return nil
	case "help", "--help", "-h":
		return c.usage()
	default:
		return errors.NewBuilder(errors.CodeUnknownCommand, "unknown command").
			WithContext("command", args[0]).
			WithSuggestion("Run 'hourglass help' for usage").
			Build()
	}
}

func (c *cli) usage() error {
	fmt.Fprintln(c.stdout, `Hourglass - personal time tracker

Usage:
  hourglass <command> [subcommand] [options]

Commands:
  start <activity[@category][, description]>  Start tracking an activity
  stop                                        Stop the running activity
  current                                     Show the running activity
  today                                       List today's facts
  activities                                  List recent activities for completion
  config show [--format ini|yaml]             Print the configuration
  config get <key>                            Print one configuration value
  config set <key> <value> [<key> <value>...] Change configuration values
  config keys                                 List configuration keys
  config stores                               List store backends
  config path                                 Print the configuration file location
  config reset                                Restore the default configuration
  config watch                                Follow external edits of the configuration
  version                                     Print version
  help                                        Show this help

Environment:
  HOURGLASS_CONFIG_DIR  Directory of hourglass.conf
  HOURGLASS_DATA_DIR    Directory of the database, tmpfile and logs
  HOURGLASS_LOG_LEVEL   debug, info, warn or error (default info)
  HOURGLASS_LOG_TEE     Also write log lines to stderr`)
	return nil
}

// openApp starts the full application: configuration plus backend.
func (c *cli) openApp() (*app.App, error) {
	return app.New(context.Background(), c.dirs, c.log, c.appOpts...)
}
