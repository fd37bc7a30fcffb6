package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Marker conversion. Read once at startup.
	ShapeKind      domain.ShapeKind
	MarkerSize     float64
	CircleSegments int
	UTMZone        int
	UTMHemisphere  domain.Hemisphere
	SegmentMode    domain.SegmentMode
	DetectorOrder  []domain.FormatTag
	MapsHost       string
	LabelPrefix    string
	Style          domain.Style

	// Mapbox reverse geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Shared geocode cache; disabled when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisCacheTTL time.Duration

	// Admin notifications; disabled when NATSURL is empty.
	NATSURL     string
	NATSSubject string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	redisTTL, err := parsePositiveDuration("REDIS_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	conv, err := loadConversion()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-messages"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "kml-replies"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "coord-kml-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ShapeKind:      conv.ShapeKind,
		MarkerSize:     conv.MarkerSize,
		CircleSegments: conv.CircleSegments,
		UTMZone:        conv.UTMZone,
		UTMHemisphere:  conv.UTMHemisphere,
		SegmentMode:    conv.SegmentMode,
		DetectorOrder:  conv.DetectorOrder,
		MapsHost:       sharedcfg.EnvOrDefault("MAPS_HOST", domain.DefaultMapsHost),
		LabelPrefix:    sharedcfg.EnvOrDefault("LABEL_PREFIX", domain.DefaultLabelPrefix),
		Style:          conv.Style,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisCacheTTL: redisTTL,

		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: sharedcfg.EnvOrDefault("NATS_SUBJECT", "coordkml.notify"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if _, err := domain.NewConverter(cfg.Settings()); err != nil {
		return nil, fmt.Errorf("invalid marker configuration: %w", err)
	}

	return cfg, nil
}

// Settings returns the domain conversion settings.
func (c *Config) Settings() domain.Settings {
	return domain.Settings{
		Extract: domain.ExtractOptions{
			Mode:  c.SegmentMode,
			Order: c.DetectorOrder,
		},
		Zone:       c.UTMZone,
		Hemisphere: c.UTMHemisphere,
		Shape: domain.ShapeSpec{
			Kind:       c.ShapeKind,
			SizeMeters: c.MarkerSize,
			Segments:   c.CircleSegments,
		},
		Style:       c.Style,
		MapsHost:    c.MapsHost,
		LabelPrefix: c.LabelPrefix,
	}
}

type conversion struct {
	ShapeKind      domain.ShapeKind
	MarkerSize     float64
	CircleSegments int
	UTMZone        int
	UTMHemisphere  domain.Hemisphere
	SegmentMode    domain.SegmentMode
	DetectorOrder  []domain.FormatTag
	Style          domain.Style
}

func loadConversion() (conversion, error) {
	var c conversion
	var err error

	c.ShapeKind = domain.ParseShapeKind(sharedcfg.EnvOrDefault("SHAPE_KIND", string(domain.ShapeDiamond)))

	if c.MarkerSize, err = parsePositiveFloat("MARKER_SIZE_M", "3"); err != nil {
		return c, err
	}
	if c.CircleSegments, err = parseInt("CIRCLE_SEGMENTS", domain.DefaultCircleSegments, 3, 360); err != nil {
		return c, err
	}
	if c.UTMZone, err = parseInt("UTM_ZONE", 36, 1, 60); err != nil {
		return c, err
	}

	hemisphere := sharedcfg.EnvOrDefault("UTM_HEMISPHERE", sharedcfg.EnvOrDefault("UTM_LETTER", "N"))
	if c.UTMHemisphere, err = domain.ParseHemisphere(hemisphere); err != nil {
		return c, fmt.Errorf("invalid UTM_HEMISPHERE: %w", err)
	}

	if c.SegmentMode, err = domain.ParseSegmentMode(os.Getenv("SEGMENT_MODE")); err != nil {
		return c, fmt.Errorf("invalid SEGMENT_MODE: %w", err)
	}
	if c.DetectorOrder, err = parseDetectorOrder(os.Getenv("DETECTOR_ORDER")); err != nil {
		return c, err
	}

	def := domain.DefaultStyle()
	c.Style = domain.Style{
		StrokeColor: sharedcfg.EnvOrDefault("STROKE_COLOR", def.StrokeColor),
		FillColor:   sharedcfg.EnvOrDefault("FILL_COLOR", def.FillColor),
	}
	if c.Style.StrokeWidth, err = parsePositiveFloat("STROKE_WIDTH", formatDefault(def.StrokeWidth)); err != nil {
		return c, err
	}
	if c.Style.FillOpacity, err = parseInt("FILL_OPACITY", def.FillOpacity, 0, 100); err != nil {
		return c, err
	}
	if err := c.Style.Validate(); err != nil {
		return c, fmt.Errorf("invalid marker style: %w", err)
	}

	return c, nil
}

// parseDetectorOrder reads a comma-separated list such as "grid,geodetic,link".
// An empty value keeps the default order.
func parseDetectorOrder(value string) ([]domain.FormatTag, error) {
	if strings.TrimSpace(value) == "" {
		return domain.DefaultDetectorOrder, nil
	}
	var order []domain.FormatTag
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		tag, err := domain.ParseFormatTag(part)
		if err != nil {
			return nil, fmt.Errorf("invalid DETECTOR_ORDER: %w", err)
		}
		order = append(order, tag)
	}
	return order, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveFloat(key, fallback string) (float64, error) {
	f, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, fallback), 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return f, nil
}

func parseInt(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, lo, hi)
	}
	return n, nil
}

func formatDefault(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
