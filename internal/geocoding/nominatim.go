package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/capitals/internal/models"
)

// NominatimBaseURL is the public Nominatim search endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient   // HTTP client for making requests
	baseURL string       // Base URL for the Nominatim API
	log     *slog.Logger // Logger for logging operations
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// NominatimOptions configures a NominatimProvider.
type NominatimOptions struct {
	BaseURL   string        // Endpoint, defaults to NominatimBaseURL
	UserAgent string        // User-Agent with contact info
	Timeout   time.Duration // Per request timeout, defaults to 15s
}

// nominatimResponse represents the JSON response from Nominatim API.
type nominatimResponse struct {
	Lat         string `json:"lat"`          // Latitude as string
	Lon         string `json:"lon"`          // Longitude as string
	DisplayName string `json:"display_name"` // Matched place name
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = fmt.Errorf("nominatim API returned empty response: %w", ErrNoMatch)
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

// NewNominatimProvider creates a new Nominatim geocoding provider.
func NewNominatimProvider(opts NominatimOptions, log *slog.Logger) *NominatimProvider {
	timeout := opts.Timeout
	if timeout <= 0 {
		const defaultTimeout = 15 * time.Second
		timeout = defaultTimeout
	}

	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout}, opts, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, opts NominatimOptions, log *slog.Logger) *NominatimProvider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = NominatimBaseURL
	}

	return &NominatimProvider{
		client:    client,
		baseURL:   baseURL,
		log:       log,
		userAgent: opts.UserAgent,
	}
}

// Geocode converts an address to geographic coordinates using the Nominatim API.
// It respects Nominatim's usage policy by including a User-Agent header.
//
// Every call issues exactly one HTTP request. Nominatim allows 1 request/second for fair use;
// pacing and any retry with a coarser query are done by the caller.
func (np *NominatimProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address)

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")         // Only need the top result
	query.Set("countrycodes", "us") // Restrict to US addresses
	query.Set("accept-language", "en")
	reqURL.RawQuery = query.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers per Nominatim usage policy
	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	np.log.DebugContext(ctx, "Nominatim raw response", "body", string(body))

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	np.log.DebugContext(ctx, "Nominatim found result",
		"lat", results[0].Lat, "lon", results[0].Lon, "display_name", results[0].DisplayName)

	lat, err := strconv.ParseFloat(strings.TrimSpace(results[0].Lat), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(results[0].Lon), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, results[0].Lon)
	}

	return &models.Coordinates{
		Latitude:  lat,
		Longitude: lon,
	}, nil
}
