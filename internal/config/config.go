package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration settings for the capitals pipeline.
//
// Fields:
// - Env: The current environment (e.g., local, development, production), drives logging.
// - DataDir: Directory holding the per-stage JSON snapshots and reports.
// - Geocoder: Settings for the external geocoding provider.
// - Verifier: Acceptance thresholds for the final verification.
// - MetricsFile: Optional path of a Prometheus textfile written at the end of a command.
type Config struct {
	Env         string         `mapstructure:"env"`          // Env is the current environment: local, development, production.
	DataDir     string         `mapstructure:"data_dir"`     // DataDir is the directory of the stage files.
	Geocoder    GeocoderConfig `mapstructure:"geocoder"`     // Geocoder holds the provider configuration.
	Verifier    VerifierConfig `mapstructure:"verifier"`     // Verifier holds final verification thresholds.
	MetricsFile string         `mapstructure:"metrics_file"` // MetricsFile is the Prometheus textfile path.
}

// GeocoderConfig holds the settings of the geocoding provider.
type GeocoderConfig struct {
	Provider     string        `mapstructure:"provider"`      // Provider is the provider type: nominatim, census, google.
	APIKey       string        `mapstructure:"api_key"`       // APIKey is required by the Google provider only.
	BaseURL      string        `mapstructure:"base_url"`      // BaseURL overrides the provider endpoint.
	UserAgent    string        `mapstructure:"user_agent"`    // UserAgent is sent to Nominatim per its usage policy.
	Interval     time.Duration `mapstructure:"interval"`      // Interval is the minimum delay between two requests.
	Timeout      time.Duration `mapstructure:"timeout"`       // Timeout bounds a single HTTP request.
	CityFallback bool          `mapstructure:"city_fallback"` // CityFallback retries without the street line on empty results.
}

// VerifierConfig holds the acceptance thresholds of the final verification.
type VerifierConfig struct {
	MinCompleteness float64 `mapstructure:"min_completeness"` // Share of records that must be geocoded.
}

// envPrefix is prepended to every environment variable, e.g. CAPITALS_GEOCODER_INTERVAL.
const envPrefix = "CAPITALS"

// MustLoad reads the configuration from an optional capitals.yaml in the working
// directory and from CAPITALS_* environment variables. It panics on values that
// cannot be parsed.
func MustLoad() *Config {
	v := viper.New()

	v.SetConfigName("capitals")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("data_dir", "data")
	v.SetDefault("geocoder.provider", "nominatim")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("geocoder.base_url", "")
	v.SetDefault("geocoder.user_agent", "StateCapitalsProject/1.0 (https://github.com/UnknownOlympus/capitals)")
	v.SetDefault("geocoder.interval", "1200ms")
	v.SetDefault("geocoder.timeout", "15s")
	v.SetDefault("geocoder.city_fallback", "false")
	v.SetDefault("verifier.min_completeness", "1.0")
	v.SetDefault("metrics_file", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic("failed to read configuration file: " + err.Error())
		}
	}

	interval, err := time.ParseDuration(v.GetString("geocoder.interval"))
	if err != nil {
		panic("failed to parse geocoder interval from configuration")
	}

	timeout, err := time.ParseDuration(v.GetString("geocoder.timeout"))
	if err != nil {
		panic("failed to parse geocoder timeout from configuration")
	}

	fallback, err := strconv.ParseBool(v.GetString("geocoder.city_fallback"))
	if err != nil {
		panic("failed to parse geocoder city fallback from configuration, must be a boolean")
	}

	completeness, err := strconv.ParseFloat(v.GetString("verifier.min_completeness"), 64)
	if err != nil || completeness < 0 || completeness > 1 {
		panic("failed to parse verifier min completeness from configuration, must be between 0 and 1")
	}

	return &Config{
		Env:     v.GetString("env"),
		DataDir: v.GetString("data_dir"),
		Geocoder: GeocoderConfig{
			Provider:     strings.ToLower(v.GetString("geocoder.provider")),
			APIKey:       v.GetString("geocoder.api_key"),
			BaseURL:      v.GetString("geocoder.base_url"),
			UserAgent:    v.GetString("geocoder.user_agent"),
			Interval:     interval,
			Timeout:      timeout,
			CityFallback: fallback,
		},
		Verifier: VerifierConfig{
			MinCompleteness: completeness,
		},
		MetricsFile: v.GetString("metrics_file"),
	}
}
