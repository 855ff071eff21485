package geocoding_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/UnknownOlympus/capitals/internal/geocoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserAgent = "StateCapitalsProject/1.0 (https://github.com/UnknownOlympus/capitals)"

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestNominatimProvider_Geocode(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	opts := geocoding.NominatimOptions{UserAgent: testUserAgent}

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				// Verify request parameters
				assert.Equal(t, "GET", req.Method)
				assert.Contains(t, req.URL.String(), "nominatim.openstreetmap.org")
				assert.Equal(t, "1315 10TH ST, Sacramento, CA 95814, USA", req.URL.Query().Get("q"))
				assert.Equal(t, "json", req.URL.Query().Get("format"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))
				assert.Equal(t, "us", req.URL.Query().Get("countrycodes"))
				assert.Equal(t, testUserAgent, req.Header.Get("User-Agent"))

				return jsonResponse(http.StatusOK, `[{"lat":"38.5766680","lon":"-121.4936290","display_name":"California State Capitol"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, opts, logger)
		coords, err := provider.Geocode(ctx, "1315 10TH ST, Sacramento, CA 95814, USA")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 38.576668, coords.Latitude, 0.000001)
		assert.InEpsilon(t, -121.493629, coords.Longitude, 0.000001)
	})

	t.Run("empty response from API", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, opts, logger)
		coords, err := provider.Geocode(ctx, "invalid address")

		require.Error(t, err)
		require.Nil(t, coords)
		assert.ErrorIs(t, err, geocoding.ErrNominatimEmptyResponse)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, opts, logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Error(t, err)
		require.Nil(t, coords)
		assert.Contains(t, err.Error(), "nominatim API returned status 429")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `invalid json`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, opts, logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Error(t, err)
		require.Nil(t, coords)
		assert.Contains(t, err.Error(), "failed to decode nominatim response")
	})

	t.Run("invalid latitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"lat":"invalid","lon":"-121.4936290"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, opts, logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.Contains(t, err.Error(), "invalid latitude")
	})

	t.Run("invalid longitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"lat":"38.5766680","lon":"invalid"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, opts, logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.Contains(t, err.Error(), "invalid longitude")
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, opts, logger)
		coords, err := provider.Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute geocoding request")
	})

	t.Run("custom base URL", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, "nominatim.internal", req.URL.Host)
				return jsonResponse(http.StatusOK, `[{"lat":"1","lon":"2"}]`), nil
			},
		}

		custom := geocoding.NominatimOptions{BaseURL: "http://nominatim.internal/search", UserAgent: testUserAgent}
		provider := geocoding.NewNominatimProviderWithClient(mockClient, custom, logger)
		_, err := provider.Geocode(ctx, "some address")

		require.NoError(t, err)
	})
}

func TestNominatimProvider_OneRequestPerCall(t *testing.T) {
	calls := 0
	mockClient := &mockHTTPClient{
		doFunc: func(_ *http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(http.StatusOK, `[]`), nil
		},
	}

	opts := geocoding.NominatimOptions{UserAgent: testUserAgent}
	provider := geocoding.NewNominatimProviderWithClient(mockClient, opts, slog.Default())
	_, err := provider.Geocode(context.Background(), "1315 10TH ST, Sacramento, CA 95814, USA")

	require.ErrorIs(t, err, geocoding.ErrNoMatch)
	assert.Equal(t, 1, calls)
}

func TestNewNominatimProvider(t *testing.T) {
	provider := geocoding.NewNominatimProvider(geocoding.NominatimOptions{
		UserAgent: testUserAgent,
		Timeout:   time.Second,
	}, slog.Default())

	require.NotNil(t, provider)
}
