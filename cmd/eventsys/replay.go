package main

import (
	"bufio"
	"context"
	"fmt"
	"github.com/saylorsolutions/eventsys/cli"
	"github.com/saylorsolutions/eventsys/event"
	flag "github.com/spf13/pflag"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

type replayResult struct {
	Posted    int
	Cancelled int
	Skipped   int
	Failures  int64
}

func addReplayCommand(set *cli.CommandSet, stdout io.Writer) {
	var (
		common commonFlags
		async  bool
	)
	cmd := set.AddCommand("replay", "Post events decoded from a JSON lines file to built-in listeners").
		Usage("[FLAGS...] FILE\n\nEach line of FILE is an object with a \"type\" of user.created, user.deleted, or message.\n")
	common.bind(cmd.Flags())
	cmd.Flags().BoolVar(&async, "async", false, "Deliver each event asynchronously, awaiting the result")
	cmd.Does(func(ctx context.Context, flags *flag.FlagSet, printer *cli.Printer) error {
		var path string
		if err := cli.MapArgs(flags.Args(), 1, 1, &path); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open events: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()

		var failures atomic.Int64
		d, log, closeFn, err := common.setup(printer.Writer(), event.WithErrorHandler(func(err error) {
			failures.Add(1)
			printer.Printf("listener error: %v\n", err)
		}))
		if err != nil {
			return err
		}
		defer func() {
			_ = closeFn()
		}()

		d.Register(&moderator{}, &announcer{out: stdout})
		result, err := replay(ctx, d, f, async, func(lineNum int, err error) {
			log.Warn("Skipping line", "line", lineNum, "error", err)
		})
		if err != nil {
			return err
		}
		result.Failures = failures.Load()
		_, _ = fmt.Fprintf(stdout, "posted=%d cancelled=%d skipped=%d failures=%d\n", result.Posted, result.Cancelled, result.Skipped, result.Failures)
		return nil
	})
}

// replay posts each decodable line of in to d until in is exhausted or ctx is done.
// Blank lines are ignored, and undecodable lines are passed to skip.
func replay(ctx context.Context, d *event.Dispatcher, in io.Reader, async bool, skip func(lineNum int, err error)) (replayResult, error) {
	var result replayResult
	scanner := bufio.NewScanner(in)
	lineNum := 0
	for ctx.Err() == nil && scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		evt, err := decodeEvent(line)
		if err != nil {
			result.Skipped++
			if skip != nil {
				skip(lineNum, err)
			}
			continue
		}
		result.Posted++
		if d.PostWith(evt, async, true) {
			result.Cancelled++
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read events: %w", err)
	}
	return result, nil
}
