package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/capitals/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider resolves capitol addresses through the Google Maps Geocoding API.
// It needs an API key and is the only provider that is not free to use.
type GoogleProvider struct {
	client GoogleAPIClient
	log    *slog.Logger
}

// GoogleAPIClient is the subset of *maps.Client the provider calls.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when Google finds no result for the address.
var ErrEmptyResponse = fmt.Errorf("google maps API returned no results: %w", ErrNoMatch)

// NewGoogleProvider wraps a Maps client. Pacing is configured on the client itself
// (maps.WithRateLimit) and by the geocoding service.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode returns the location of the first result, with the region bias set to "us"
// so that ambiguous city names resolve inside the country.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := maps.GeocodingRequest{Address: address, Region: "us"}
	results, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}
	location := results[0].Geometry.Location

	gp.log.DebugContext(ctx, "Google found result",
		"formatted_address", results[0].FormattedAddress, "lat", location.Lat, "lon", location.Lng)

	return &models.Coordinates{Latitude: location.Lat, Longitude: location.Lng}, nil
}
