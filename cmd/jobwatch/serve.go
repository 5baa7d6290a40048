package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/jobwatch/api"
	audithook "github.com/xraph/jobwatch/audit_hook"
	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/observability"
	"github.com/xraph/jobwatch/store/memory"
	redisstore "github.com/xraph/jobwatch/store/redis"
	"github.com/xraph/jobwatch/worker"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	commonFlags(fs)
	fs.String("listen", ":8000", "HTTP listen address")
	fs.Int("workers", 4, "concurrent jobs")
	fs.String("store.driver", "memory", "job store: memory or redis")
	fs.String("store.redis.addr", "localhost:6379", "redis address")
	fs.Duration("store.ttl", time.Hour, "how long job records are kept after their last update")
	fs.Duration("step_delay", 1500*time.Millisecond, "delay between demo pipeline steps")

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
	stepDelay, _ := fs.GetDuration("step_delay")

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	pool := worker.NewPool(store, demoPipeline(stepDelay),
		worker.WithConcurrency(cfg.Workers),
		worker.WithLogger(logger),
		worker.WithExtension(observability.NewMetricsExtension()),
		worker.WithExtension(audithook.New(
			audithook.SlogRecorder(logger),
			audithook.WithActions(audithook.ActionExecutorFinished),
		)),
	)
	handler := api.New(store, pool,
		api.WithLogger(logger),
		api.WithBounds(job.BoundsFromConfig(scfg)),
		api.WithPrefix("/posts"),
	).Handler()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := pool.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("executor listening",
			slog.String("addr", cfg.Listen),
			slog.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warn("http shutdown", slog.String("error", err.Error()))
		}
		return pool.Stop(sctx)
	})
	return g.Wait()
}

// openStore builds the configured job store and a func releasing it.
func openStore(ctx context.Context, cfg *appConfig, logger *slog.Logger) (job.Store, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		s := memory.New(
			memory.WithTTL(cfg.Store.TTL),
			memory.WithSweepSchedule(cfg.Store.Sweep),
			memory.WithLogger(logger),
		)
		if err := s.Start(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		s := redisstore.New(client, redisstore.WithTTL(cfg.Store.TTL), redisstore.WithLogger(logger))
		if err := s.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Store.Redis.Addr, err)
		}
		return s, func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("store driver %q: want memory or redis", cfg.Store.Driver)
	}
}
