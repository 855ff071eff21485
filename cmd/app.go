package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/UnknownOlympus/capitals/internal/config"
	"github.com/UnknownOlympus/capitals/internal/geocoding"
	"github.com/UnknownOlympus/capitals/internal/metrics"
	"github.com/UnknownOlympus/capitals/internal/pipeline"
	"github.com/UnknownOlympus/capitals/internal/repository"
	"github.com/UnknownOlympus/capitals/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application carries what every sub-command shares. It is filled in by the root command's
// PersistentPreRunE once flags are parsed.
type application struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	paths   pipeline.Paths
}

func (a *application) init(dataDirFlag string) {
	// Load application configuration.
	a.cfg = config.MustLoad()
	if dataDirFlag != "" {
		a.cfg.DataDir = dataDirFlag
	}

	// Set up the logger based on the environment.
	a.log = setupLogger(a.cfg.Env, os.Stderr)

	// Create a separate registry for metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewMetrics(reg)

	a.paths = pipeline.DefaultPaths(a.cfg.DataDir)
}

// pipeline builds the stage runner. The geocoding provider is only created when withGeocoder is set,
// so that offline stages never need provider credentials.
func (a *application) pipeline(ctx context.Context, withGeocoder bool) (*pipeline.Pipeline, error) {
	var geocoder *service.GeocodingService
	if withGeocoder {
		var err error
		if geocoder, err = a.geocoder(ctx); err != nil {
			return nil, err
		}
	}

	return pipeline.New(a.log, repository.NewRepository(a.log), a.metrics, geocoder, a.cfg.Verifier.MinCompleteness)
}

// geocoder creates the provider through the factory and wraps it into the paced service.
func (a *application) geocoder(ctx context.Context) (*service.GeocodingService, error) {
	cfg := a.cfg.Geocoder

	interval := service.EffectiveInterval(cfg.Interval)
	if interval != cfg.Interval {
		a.log.WarnContext(ctx, "Geocoder interval raised to the minimum",
			"configured", cfg.Interval, "effective", interval)
	}

	// Google client pacing in requests per second, derived from the same interval.
	rateLimit := max(1, int(time.Second/interval))

	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Provider),
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
		RateLimit: rateLimit,
		Logger:    a.log,
	})
	if err != nil {
		return nil, err
	}

	a.log.InfoContext(ctx, "Geocoding provider initialized",
		"type", cfg.Provider, "interval", interval, "city_fallback", cfg.CityFallback)

	return service.NewGeocodingService(a.log, provider, cfg.Provider, a.metrics, interval, cfg.CityFallback), nil
}

// flushMetrics writes the metrics textfile when one is configured.
func (a *application) flushMetrics(ctx context.Context) {
	if a.cfg == nil || a.cfg.MetricsFile == "" {
		return
	}

	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.log.ErrorContext(ctx, "Failed to write metrics", "path", a.cfg.MetricsFile, "error", err)
		return
	}
	a.log.DebugContext(ctx, "Metrics written", "path", a.cfg.MetricsFile)
}
