package main

import (
	"context"
	"fmt"
	"github.com/saylorsolutions/eventsys/cli"
	"github.com/saylorsolutions/eventsys/event"
	"github.com/saylorsolutions/eventsys/syncx"
	flag "github.com/spf13/pflag"
	"io"
	"sync/atomic"
	"time"
)

type benchEvent struct {
	event.Cancellation
	Seq int
}

type benchResult struct {
	Posted      int
	Elapsed     time.Duration
	Invocations int64
	Cancelled   int
	Stats       event.Stats
}

type benchSettings struct {
	listeners int
	events    int
	async     bool
	await     bool
	cancelAt  int
}

func addBenchCommand(set *cli.CommandSet, stdout io.Writer) {
	var (
		common   commonFlags
		settings benchSettings
	)
	cmd := set.AddCommand("bench", "Post synthetic events to many prioritized listeners and report throughput").
		Usage("[FLAGS...]")
	fs := cmd.Flags()
	common.bind(fs)
	fs.IntVarP(&settings.listeners, "listeners", "l", 10, "Number of listeners to register")
	fs.IntVarP(&settings.events, "events", "n", 10000, "Number of events to post")
	fs.BoolVar(&settings.async, "async", false, "Deliver events asynchronously")
	fs.BoolVar(&settings.await, "await", true, "Wait for asynchronous delivery of each event to finish")
	fs.IntVar(&settings.cancelAt, "cancel-at", -1, "Index of the listener (in priority order) that cancels each event, -1 for none")
	cmd.Does(func(ctx context.Context, _ *flag.FlagSet, printer *cli.Printer) error {
		if settings.listeners < 1 || settings.events < 1 {
			return cli.NewUsageError("listeners and events must be >= 1")
		}
		d, log, closeFn, err := common.setup(printer.Writer())
		if err != nil {
			return err
		}
		defer func() {
			_ = closeFn()
		}()

		log.Info("Starting benchmark", "listeners", settings.listeners, "events", settings.events, "async", settings.async, "await", settings.await)
		result := bench(ctx, d, settings)
		if result.Posted < settings.events {
			log.Warn("Benchmark interrupted", "posted", result.Posted)
		}
		_, _ = fmt.Fprintf(stdout, "posted %d events to %d listeners in %s (%.0f events/s)\n",
			result.Posted, settings.listeners, result.Elapsed, float64(result.Posted)/result.Elapsed.Seconds())
		_, _ = fmt.Fprintf(stdout, "invocations=%d cancelled=%d registered=%d failures=%d\n",
			result.Invocations, result.Cancelled, result.Stats.Listeners, result.Stats.Failures)
		return nil
	})
}

// bench registers listeners with descending priorities so that listener i runs i-th during synchronous delivery.
func bench(ctx context.Context, d *event.Dispatcher, settings benchSettings) benchResult {
	var invocations atomic.Int64
	for i := 0; i < settings.listeners; i++ {
		cancels := i == settings.cancelAt
		d.RegisterListener(event.NewListener(func(evt *benchEvent) {
			invocations.Add(1)
			if cancels {
				evt.Cancel()
			}
		}, event.WithPriority(event.Priority(settings.listeners-i)), event.WithName(fmt.Sprintf("bench-%d", i))))
	}

	var (
		result  benchResult
		pending []syncx.Future[bool]
	)
	start := time.Now()
	for seq := 0; seq < settings.events && ctx.Err() == nil; seq++ {
		result.Posted++
		evt := &benchEvent{Seq: seq}
		switch {
		case !settings.async:
			if d.Post(evt) {
				result.Cancelled++
			}
		case settings.await:
			if d.PostWith(evt, true, true) {
				result.Cancelled++
			}
		default:
			pending = append(pending, d.PostAsync(evt))
		}
	}
	for _, f := range pending {
		if f.Await() {
			result.Cancelled++
		}
	}
	result.Elapsed = time.Since(start)
	result.Invocations = invocations.Load()
	result.Stats = d.Stats()
	return result
}
