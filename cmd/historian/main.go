// cmd/historian pops room events from the Redis queue and persists them to
// PostgreSQL in batches.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/taverna/internal/cache"
	"github.com/jason-s-yu/taverna/internal/config"
	"github.com/jason-s-yu/taverna/internal/historian"
	"github.com/jason-s-yu/taverna/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	logger := logrus.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	pool, err := store.Connect(ctx, cfg.Postgres.DSN())
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := store.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	svc := historian.New(rdb, historian.NewPostgresSink(pool), historian.Options{
		Queue:      cfg.Redis.Queue,
		BatchSize:  cfg.Historian.BatchSize,
		FlushDelay: cfg.Historian.FlushDelay(),
	}, logger)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("historian stopped: %v", err)
		return
	}
	logger.Info("historian stopped")
}
