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
	"strings"
	"time"

	"github.com/UnknownOlympus/capitals/internal/models"
)

// CensusBaseURL is the US Census Bureau one-line address geocoding endpoint.
const CensusBaseURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"

// censusBenchmark selects the current address ranges of the TIGER database.
const censusBenchmark = "Public_AR_Current"

// CensusProvider implements geocoding using the US Census Bureau geocoder.
type CensusProvider struct {
	client  HTTPClient   // HTTP client for making requests
	baseURL string       // Base URL for the Census API
	log     *slog.Logger // Logger for logging operations
}

// Common errors for Census provider.
var (
	ErrCensusEmptyResponse = fmt.Errorf("census API returned no address match: %w", ErrNoMatch)
	ErrCensusEmptyAddress  = errors.New("census provider got empty address")
)

// censusResponse is the JSON response of the one-line endpoint (simplified for geocoding use-case).
type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			MatchedAddress string `json:"matchedAddress"`
			Coordinates    struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// NewCensusProvider creates a new Census geocoding provider.
func NewCensusProvider(baseURL string, timeout time.Duration, log *slog.Logger) *CensusProvider {
	if timeout <= 0 {
		const defaultTimeout = 15 * time.Second
		timeout = defaultTimeout
	}

	return NewCensusProviderWithClient(&http.Client{Timeout: timeout}, baseURL, log)
}

// NewCensusProviderWithClient allows injecting custom HTTP client.
func NewCensusProviderWithClient(client HTTPClient, baseURL string, log *slog.Logger) *CensusProvider {
	if baseURL == "" {
		baseURL = CensusBaseURL
	}

	return &CensusProvider{
		client:  client,
		baseURL: baseURL,
		log:     log,
	}
}

// Geocode converts address into geographic coordinates using the Census API.
func (cp *CensusProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	cp.log.DebugContext(ctx, "Geocoding using Census", "address", address)

	if strings.TrimSpace(address) == "" {
		return nil, ErrCensusEmptyAddress
	}

	reqURL, err := url.Parse(cp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("address", address)
	query.Set("benchmark", censusBenchmark)
	query.Set("format", "json")
	reqURL.RawQuery = query.Encode()

	cp.log.DebugContext(ctx, "Census request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		cp.log.ErrorContext(ctx, "Census API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("census API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	cp.log.DebugContext(ctx, "Census raw response", "body", string(body))

	var result censusResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode census response: %w", err)
	}

	matches := result.Result.AddressMatches
	if len(matches) == 0 {
		return nil, ErrCensusEmptyResponse
	}

	match := matches[0]
	cp.log.DebugContext(ctx, "Census found result",
		"address", address, "matched", match.MatchedAddress, "lat", match.Coordinates.Y, "lon", match.Coordinates.X)

	return &models.Coordinates{
		Latitude:  match.Coordinates.Y,
		Longitude: match.Coordinates.X,
	}, nil
}
