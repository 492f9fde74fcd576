package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/saylorsolutions/eventsys/cli"
	"github.com/saylorsolutions/eventsys/event"
	"github.com/saylorsolutions/eventsys/logging"
	"github.com/saylorsolutions/eventsys/signalx"
	flag "github.com/spf13/pflag"
	"io"
	"log/slog"
	"os"
	"syscall"
)

const description = `eventsys exercises the eventsys dispatcher.`

func main() {
	ctx, stop := signalx.NotifyExit(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, &cli.UsageError{}) {
			_, _ = fmt.Fprintf(os.Stderr, "eventsys: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return newCommandSet(stdout, stderr).Exec(ctx, args)
}

// newCommandSet wires each command's results to stdout, while usage and diagnostics go to stderr.
func newCommandSet(stdout, stderr io.Writer) *cli.CommandSet {
	set := cli.NewCommandSet("eventsys", description)
	set.Printer().Redirect(stderr)
	addBenchCommand(set, stdout)
	addReplayCommand(set, stdout)
	return set
}

// commonFlags are shared by every command that creates a dispatcher.
type commonFlags struct {
	config   string
	logLevel string
	logFile  string
	workers  int
}

func (c *commonFlags) bind(fs *flag.FlagSet) {
	fs.StringVarP(&c.config, "config", "c", "", "YAML config file with dispatcher and logging settings")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides config")
	fs.StringVar(&c.logFile, "log-file", "", "Also write JSON logs to this rotating file, overrides config")
	fs.IntVar(&c.workers, "workers", 0, "Async delivery workers, overrides config")
}

// setup resolves configuration as defaults < config file < EVENTSYS_* environment < flags.
func (c *commonFlags) setup(stderr io.Writer, opts ...event.Option) (*event.Dispatcher, *slog.Logger, func() error, error) {
	cfg := event.DefaultConfig()
	if len(c.config) > 0 {
		var err error
		if cfg, err = event.LoadConfig(c.config); err != nil {
			return nil, nil, nil, err
		}
	}
	cfg = event.ConfigFromEnv("EVENTSYS", cfg)
	if len(c.logLevel) > 0 {
		cfg.LogLevel = c.logLevel
	}
	if len(c.logFile) > 0 {
		cfg.LogFile = c.logFile
	}
	if c.workers != 0 {
		cfg.Workers = c.workers
	}

	logCfg := logging.DefaultConfig()
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	logCfg.Level = level
	logCfg.File = cfg.LogFile
	log, closeLog, err := logging.Setup(logCfg, stderr)
	if err != nil {
		return nil, nil, nil, err
	}

	d, err := event.NewE(append([]event.Option{event.FromConfig(cfg), event.WithLogger(log)}, opts...)...)
	if err != nil {
		_ = closeLog()
		return nil, nil, nil, err
	}
	closeAll := func() error {
		d.Close()
		return closeLog()
	}
	return d, log, closeAll, nil
}
