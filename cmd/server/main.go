// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/taverna/internal/assets"
	"github.com/jason-s-yu/taverna/internal/auth"
	"github.com/jason-s-yu/taverna/internal/cache"
	"github.com/jason-s-yu/taverna/internal/config"
	"github.com/jason-s-yu/taverna/internal/handlers"
	"github.com/jason-s-yu/taverna/internal/provider"
	"github.com/jason-s-yu/taverna/internal/room"
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
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var publisher room.EventPublisher
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		publisher = cache.NewEventPublisher(rdb, cfg.Redis.Queue)
		logger.WithField("queue", cfg.Redis.Queue).Info("publishing room events to redis")
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	issuer, err := openIssuer(cfg)
	if err != nil {
		return err
	}

	adapter := provider.NewAdapter(provider.Options{
		MaxTokens:   cfg.Narrator.MaxTokens,
		Temperature: float32(cfg.Narrator.Temperature),
		Timeout:     cfg.Narrator.Timeout,
	}, nil)

	rooms := room.NewService(st, blobs, adapter, publisher, logger, room.Options{
		SettleDelay:     cfg.Narrator.SettleDelay,
		HistoryLimit:    cfg.Narrator.HistoryLimit,
		DefaultProvider: cfg.Narrator.DefaultProvider,
		ServerAPIKey:    cfg.Narrator.APIKey,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handlers.NewRoomServer(rooms, issuer, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s (store=%s)", srv.Addr, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store.Driver != "postgres" {
		return store.NewMemoryStore(), func() {}, nil
	}
	pool, err := store.Connect(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store.NewPostgresStore(pool), pool.Close, nil
}

func openBlobs(ctx context.Context, cfg *config.Config) (assets.BlobStore, error) {
	if cfg.Assets.Bucket == "" {
		return assets.NewMemoryStore(), nil
	}
	return assets.NewS3Store(ctx, assets.S3Config{
		Endpoint:        cfg.Assets.Endpoint,
		Region:          cfg.Assets.Region,
		Bucket:          cfg.Assets.Bucket,
		AccessKeyID:     cfg.Assets.AccessKeyID,
		SecretAccessKey: cfg.Assets.SecretAccessKey,
		UsePathStyle:    cfg.Assets.UsePathStyle,
	})
}

func openIssuer(cfg *config.Config) (*auth.Issuer, error) {
	if cfg.Auth.PrivateKeyPath != "" && cfg.Auth.PublicKeyPath != "" {
		return auth.NewIssuerFromFiles(cfg.Auth.PrivateKeyPath, cfg.Auth.PublicKeyPath, cfg.Auth.TokenExpire)
	}
	return auth.NewIssuer(cfg.Auth.TokenExpire)
}
