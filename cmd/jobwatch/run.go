package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	audithook "github.com/xraph/jobwatch/audit_hook"
	"github.com/xraph/jobwatch/client"
	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/middleware"
	"github.com/xraph/jobwatch/observability"
	"github.com/xraph/jobwatch/session"
	"github.com/xraph/jobwatch/stream"
)

func runCommand(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	commonFlags(fs)
	fs.Int("max_poll_failures", 0, "give up after this many consecutive failed status requests (0 = never)")
	fs.Float64("rate_limit.rps", 0, "limit executor calls per second (0 = unlimited)")
	fs.Int("rate_limit.burst", 1, "rate limiter burst")
	ra := runFlags(fs)

	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	logger, err := cfg.logger()
	if err != nil {
		return err
	}
	scfg, err := cfg.sessionConfig()
	if err != nil {
		return err
	}

	req, err := ra.request(job.BoundsFromConfig(scfg))
	if err != nil {
		return err
	}

	c := client.New(cfg.BaseURL,
		client.WithLogger(logger),
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		client.WithMiddleware(middleware.Tracing(), middleware.Metrics()),
	)

	broker := stream.NewBroker(logger)
	sub := broker.Subscribe("cli", stream.TopicJobs)

	s, err := session.New(c,
		session.WithConfig(scfg),
		session.WithLogger(logger),
		session.WithExtension(broker),
		session.WithExtension(observability.NewMetricsExtension()),
		session.WithExtension(audithook.New(audithook.SlogRecorder(logger))),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("session close", slog.String("error", cerr.Error()))
		}
	}()

	if _, err := s.Submit(ctx, req); err != nil {
		return err
	}

	printer := &logPrinter{out: out}
	printer.print(s.Log())

	done := make(chan struct{})
	var (
		res     *job.Result
		waitErr error
	)
	go func() {
		defer close(done)
		res, waitErr = s.Wait(ctx)
	}()

loop:
	for {
		select {
		case <-sub.C():
			printer.print(s.Log())
		case <-done:
			break loop
		}
	}
	printer.print(s.Log())

	if waitErr != nil {
		return waitErr
	}
	_, err = fmt.Fprintf(out, "%s\n", res.Result)
	return err
}

// runArgs holds the raw job request flags of the run command.
type runArgs struct {
	topic, photos, model, chars *string
}

func runFlags(fs *pflag.FlagSet) runArgs {
	return runArgs{
		topic:  fs.String("topic", "", "post topic (required)"),
		photos: fs.String("photos", "0", "number of photos"),
		model:  fs.String("model", "", "LLM model; empty lets the executor choose"),
		chars:  fs.String("target-chars", "1200", "target length in characters"),
	}
}

func (a runArgs) request(b job.Bounds) (job.Request, error) {
	return job.ParseRequest(*a.topic, *a.photos, *a.model, *a.chars, b)
}

// logPrinter writes the progress log as it changes. The step block is
// rebuilt wholesale on every snapshot, so a changed log is printed again
// from the first line that differs.
type logPrinter struct {
	out  io.Writer
	last []string
}

func (p *logPrinter) print(lines []string) {
	i := 0
	for i < len(lines) && i < len(p.last) && lines[i] == p.last[i] {
		i++
	}
	if i == len(lines) && i == len(p.last) {
		return
	}
	if i < len(p.last) {
		fmt.Fprintln(p.out, "--")
	}
	for _, l := range lines[i:] {
		fmt.Fprintln(p.out, l)
	}
	p.last = append(p.last[:0], lines...)
}
