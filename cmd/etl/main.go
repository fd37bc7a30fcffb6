package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/coord-kml-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/coord-kml-etl/internal/adapter/kafka"
	"github.com/couchcryptid/coord-kml-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/coord-kml-etl/internal/adapter/natsnotify"
	"github.com/couchcryptid/coord-kml-etl/internal/adapter/rediscache"
	"github.com/couchcryptid/coord-kml-etl/internal/config"
	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	"github.com/couchcryptid/coord-kml-etl/internal/observability"
	"github.com/couchcryptid/coord-kml-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	converter, err := domain.NewConverter(cfg.Settings())
	if err != nil {
		logger.Error("invalid marker configuration", "error", err)
		os.Exit(1)
	}

	geocoder, closeGeocoder := buildGeocoder(cfg, logger, metrics)
	defer closeGeocoder()

	var notifier domain.Notifier
	if cfg.NATSURL != "" {
		n, err := natsnotify.Connect(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Error("nats connect failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := n.Close(); err != nil {
				logger.Error("nats close error", "error", err)
			}
		}()
		notifier = n
		logger.Info("admin notifications enabled", "subject", cfg.NATSSubject)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(converter, geocoder, notifier, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildGeocoder stacks the in-process LRU over the optional Redis cache over
// the Mapbox client. It returns a nil geocoder when Mapbox is disabled.
func buildGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (domain.Geocoder, func()) {
	if !cfg.MapboxEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
		return nil, func() {}
	}
	metrics.GeocodeEnabled.Set(1)

	var geocoder domain.Geocoder = mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
	closeFn := func() {}

	if client := rediscache.Open(cfg.RedisAddr, cfg.RedisPassword); client != nil {
		geocoder = rediscache.NewCachedGeocoder(geocoder, client, cfg.RedisCacheTTL, logger, metrics)
		closeFn = func() {
			if err := client.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}
		logger.Info("redis geocode cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.RedisCacheTTL)
	}

	geocoder = mapbox.NewCachedGeocoder(geocoder, cfg.MapboxCacheSize, metrics)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return geocoder, closeFn
}
