package geocoding_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/UnknownOlympus/capitals/internal/geocoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const censusMatch = `{
  "result": {
    "input": {"address": {"address": "600 DEXTER AVE, Montgomery, AL 36130, USA"}},
    "addressMatches": [
      {
        "matchedAddress": "600 DEXTER AVE, MONTGOMERY, AL, 36104",
        "coordinates": {"x": -86.300568, "y": 32.377716}
      }
    ]
  }
}`

func TestCensusProvider_Geocode(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Contains(t, req.URL.String(), "geocoding.geo.census.gov")
				assert.Equal(t, "600 DEXTER AVE, Montgomery, AL 36130, USA", req.URL.Query().Get("address"))
				assert.Equal(t, "Public_AR_Current", req.URL.Query().Get("benchmark"))
				assert.Equal(t, "json", req.URL.Query().Get("format"))
				return jsonResponse(http.StatusOK, censusMatch), nil
			},
		}

		provider := geocoding.NewCensusProviderWithClient(mockClient, "", logger)
		coords, err := provider.Geocode(ctx, "600 DEXTER AVE, Montgomery, AL 36130, USA")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 32.377716, coords.Latitude, 0.000001)
		assert.InEpsilon(t, -86.300568, coords.Longitude, 0.000001)
	})

	t.Run("no address match", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"result":{"addressMatches":[]}}`), nil
			},
		}

		provider := geocoding.NewCensusProviderWithClient(mockClient, "", logger)
		coords, err := provider.Geocode(ctx, "nowhere")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrCensusEmptyResponse)
		assert.ErrorIs(t, err, geocoding.ErrNoMatch)
	})

	t.Run("empty address", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("no request expected")
				return nil, errors.New("unreachable")
			},
		}

		provider := geocoding.NewCensusProviderWithClient(mockClient, "", logger)
		_, err := provider.Geocode(ctx, "  ")

		require.ErrorIs(t, err, geocoding.ErrCensusEmptyAddress)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusBadRequest, `{"errors":["Specify Benchmark"]}`), nil
			},
		}

		provider := geocoding.NewCensusProviderWithClient(mockClient, "", logger)
		_, err := provider.Geocode(ctx, "some address")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "census API returned status 400")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `<html>`), nil
			},
		}

		provider := geocoding.NewCensusProviderWithClient(mockClient, "", logger)
		_, err := provider.Geocode(ctx, "some address")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode census response")
	})
}

func TestCensusProvider_HTTPServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoder/locations/onelineaddress", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(censusMatch))
	}))
	defer server.Close()

	provider := geocoding.NewCensusProvider(server.URL+"/geocoder/locations/onelineaddress", time.Second, slog.Default())
	coords, err := provider.Geocode(context.Background(), "600 DEXTER AVE, Montgomery, AL 36130, USA")

	require.NoError(t, err)
	assert.InEpsilon(t, 32.377716, coords.Latitude, 0.000001)
}
