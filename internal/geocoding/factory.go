package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeCensus represents the US Census Bureau one-line address geocoder.
	ProviderTypeCensus ProviderType = "census"
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
)

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType  // Type of provider to create
	APIKey    string        // API key (used by Google provider)
	BaseURL   string        // Endpoint override, empty for the public endpoint
	UserAgent string        // User-Agent header (required by Nominatim usage policy)
	Timeout   time.Duration // Timeout of a single HTTP request
	RateLimit int           // Requests per second allowed by the Google client
	Logger    *slog.Logger  // Logger for the provider
}

// NewProvider creates a geocoding provider based on the provided configuration.
// It applies the Factory pattern to decouple provider instantiation from business logic.
//
// Supported provider types:
// - "nominatim": OpenStreetMap Nominatim API (free, no API key required)
// - "census": US Census Bureau geocoder (free, no API key required, US addresses only)
// - "google": Google Maps Geocoding API (requires API key)
//
// Returns an error if the provider type is unsupported or if provider creation fails.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeNominatim:
		return newNominatimProvider(config)
	case ProviderTypeCensus:
		return newCensusProvider(config)
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

// newNominatimProvider creates a Nominatim geocoding provider.
func newNominatimProvider(config ProviderConfig) (Provider, error) {
	// Nominatim is free and doesn't require an API key, but it rejects anonymous clients.
	if config.UserAgent == "" {
		return nil, errors.New("user agent is required for Nominatim provider")
	}

	return NewNominatimProvider(NominatimOptions{
		BaseURL:   config.BaseURL,
		UserAgent: config.UserAgent,
		Timeout:   config.Timeout,
	}, config.Logger), nil
}

// newCensusProvider creates a US Census geocoding provider.
func newCensusProvider(config ProviderConfig) (Provider, error) {
	return NewCensusProvider(config.BaseURL, config.Timeout, config.Logger), nil
}

// newGoogleProvider creates a Google Maps geocoding provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	// Create Google Maps client with API key and rate limiting
	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}

	// Apply rate limiting if specified
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	if config.BaseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(config.BaseURL))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}
