package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/UnknownOlympus/capitals/internal/geocoding"
	"github.com/UnknownOlympus/capitals/internal/metrics"
	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/UnknownOlympus/capitals/internal/standardize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

const (
	stageName = "geocode"

	// coordinatePrecision is the number of decimals kept from provider results (~0.1 m).
	coordinatePrecision = 6

	// MinRequestInterval is the smallest gap allowed between two provider requests, whatever the
	// provider. It matches the fair use limit of the public Nominatim instance.
	MinRequestInterval = time.Second
)

// US service area. Anything outside is a wrong match, usually a homonymous place abroad.
const (
	usMinLatitude  = 18.0
	usMaxLatitude  = 72.0
	usMinLongitude = -180.0
	usMaxLongitude = -66.0
)

var (
	zip4Suffix = regexp.MustCompile(`(\b\d{5})-\d{4}\b`)

	// ErrOutsideServiceArea is returned for a provider result that is not in the United States.
	ErrOutsideServiceArea = errors.New("coordinates outside the US service area")

	errInterrupted = errors.New("geocoding interrupted")
)

// Outcome is what happened to one record during a run.
type Outcome struct {
	Index     int                    `json:"index"`
	Record    string                 `json:"record"`
	Query     string                 `json:"query,omitempty"`
	Fallback  string                 `json:"fallback_query,omitempty"`
	Status    models.GeocodingStatus `json:"status"`
	Latitude  *float64               `json:"latitude"`
	Longitude *float64               `json:"longitude"`
	Error     string                 `json:"error,omitempty"`
}

// FailedAddress lists a record that could not be geocoded.
type FailedAddress struct {
	State   string `json:"state"`
	Address string `json:"address"`
	Error   string `json:"error"`
}

// Report summarizes a geocoding run.
type Report struct {
	RunID           string          `json:"run_id"`
	Service         string          `json:"geocoding_service"`
	Total           int             `json:"total_addresses"`
	Requested       int             `json:"requested"`
	Successful      int             `json:"successful_geocodes"`
	Failed          int             `json:"failed_geocodes"`
	Skipped         int             `json:"skipped"`
	SuccessRate     string          `json:"success_rate"`
	FailedAddresses []FailedAddress `json:"failed_addresses"`
	Outcomes        []Outcome       `json:"outcomes"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     time.Time       `json:"completed_at"`
}

// GeocodingService resolves the standardized addresses of a dataset into coordinates,
// one request at a time with a minimum interval between requests.
type GeocodingService struct {
	log          *slog.Logger       // Logger for logging service activities
	provider     geocoding.Provider // Geocoding provider for external geocoding services
	providerName string             // Name of the provider, stored in records and metric labels
	metrics      *metrics.Metrics   // Metrics for tracking service performance
	limiter      *rate.Limiter      // Paces every request to the provider, retries included
	cityFallback bool               // Retry a no-match address without its street line
	progress     bool               // Render a progress bar on stderr
}

// NewGeocodingService creates a new instance of GeocodingService. The interval is raised to
// MinRequestInterval when it is shorter.
func NewGeocodingService(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	interval time.Duration,
	cityFallback bool,
) *GeocodingService {
	limiter := rate.NewLimiter(rate.Every(EffectiveInterval(interval)), 1)

	return NewGeocodingServiceWithLimiter(log, provider, providerName, metrics, limiter, cityFallback)
}

// NewGeocodingServiceWithLimiter creates a GeocodingService paced by the given limiter as is.
// Useful for tests that cannot wait a second per request.
func NewGeocodingServiceWithLimiter(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	limiter *rate.Limiter,
	cityFallback bool,
) *GeocodingService {
	return &GeocodingService{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
		limiter:      limiter,
		cityFallback: cityFallback,
		progress:     isatty.IsTerminal(os.Stderr.Fd()),
	}
}

// EffectiveInterval raises the interval to MinRequestInterval.
func EffectiveInterval(interval time.Duration) time.Duration {
	return max(interval, MinRequestInterval)
}

// Geocode returns a copy of input with coordinates filled in. Records already geocoded successfully
// are skipped. A failed record never stops the run; only context cancellation does, in which case
// the partial result is discarded and the context error is returned.
func (gs *GeocodingService) Geocode(ctx context.Context, runID string, input *models.Dataset) (*models.Dataset, *Report, error) {
	out := input.Clone()
	report := &Report{
		RunID:           runID,
		Service:         gs.providerName,
		Total:           len(out.States),
		FailedAddresses: []FailedAddress{},
		Outcomes:        make([]Outcome, 0, len(out.States)),
		StartedAt:       time.Now().UTC(),
	}

	gs.log.InfoContext(ctx, "Geocoding started", "run_id", runID, "records", report.Total, "provider", gs.providerName)

	var bar *progressbar.ProgressBar
	if gs.progress {
		bar = progressbar.NewOptions(report.Total,
			progressbar.OptionSetDescription("Geocoding with "+gs.providerName),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for idx := range out.States {
		rec := &out.States[idx]

		outcome, err := gs.geocodeRecord(ctx, idx, rec)
		if err != nil {
			return nil, nil, err
		}
		report.Outcomes = append(report.Outcomes, outcome)

		switch outcome.Status {
		case models.StatusSuccess:
			report.Requested++
			report.Successful++
		case models.StatusFailed:
			report.Requested++
			report.Failed++
			report.FailedAddresses = append(report.FailedAddresses, FailedAddress{
				State:   rec.State,
				Address: outcome.Query,
				Error:   outcome.Error,
			})
		case models.StatusSkipped:
			report.Skipped++
		}
		gs.metrics.RecordsProcessed.WithLabelValues(stageName, string(outcome.Status)).Inc()

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	report.SuccessRate = successRate(report.Successful+report.Skipped, report.Total)
	report.CompletedAt = time.Now().UTC()

	out.SetSection("geocoding", map[string]any{
		"run_id":              runID,
		"geocoding_date":      report.CompletedAt.Format(time.RFC3339),
		"geocoding_service":   gs.providerName,
		"total_addresses":     report.Total,
		"successful_geocodes": report.Successful + report.Skipped,
		"failed_geocodes":     report.Failed,
		"skipped":             report.Skipped,
		"success_rate":        report.SuccessRate,
		"failed_addresses":    report.FailedAddresses,
	})

	gs.log.InfoContext(ctx, "Geocoding finished",
		"run_id", runID,
		"successful", report.Successful,
		"failed", report.Failed,
		"skipped", report.Skipped)

	return out, report, nil
}

// geocodeRecord resolves a single record in place. The returned error is non-nil only on cancellation.
func (gs *GeocodingService) geocodeRecord(ctx context.Context, idx int, rec *models.Record) (Outcome, error) {
	outcome := Outcome{Index: idx, Record: rec.Label()}

	if rec.GeocodingStatus == models.StatusSuccess && rec.Coordinates() != nil {
		gs.log.DebugContext(ctx, "Record already geocoded, skipping", "record", outcome.Record)
		outcome.Status = models.StatusSkipped
		outcome.Latitude, outcome.Longitude = rec.Latitude, rec.Longitude
		return outcome, nil
	}

	outcome.Query = BuildQuery(*rec)

	coords, err := gs.request(ctx, outcome.Query)
	if err != nil && gs.cityFallback && errors.Is(err, geocoding.ErrNoMatch) {
		if fallback, ok := CityLevelQuery(outcome.Query); ok {
			gs.log.DebugContext(ctx, "No match, retrying at city level", "record", outcome.Record, "fallback", fallback)
			outcome.Fallback = fallback
			coords, err = gs.request(ctx, fallback)
		}
	}

	if errors.Is(err, errInterrupted) {
		return outcome, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome, fmt.Errorf("%w: %w", errInterrupted, ctxErr)
	}

	if err == nil && coords == nil {
		err = models.ErrGeocodeFailure
	}
	if err == nil {
		rounded := coords.Rounded(coordinatePrecision)
		coords = &rounded
		if !inServiceArea(rounded) {
			err = fmt.Errorf("%w: %.6f, %.6f", ErrOutsideServiceArea, rounded.Latitude, rounded.Longitude)
		}
	}

	if err != nil {
		gs.log.WarnContext(ctx, "Failed to geocode", "record", outcome.Record, "query", outcome.Query, "error", err)
		gs.metrics.APIErrors.WithLabelValues(gs.providerName).Inc()

		rec.MarkFailed(gs.providerName, err.Error())
		outcome.Status = models.StatusFailed
		outcome.Error = err.Error()
		return outcome, nil
	}

	rec.SetCoordinates(*coords, gs.providerName)
	outcome.Status = models.StatusSuccess
	outcome.Latitude, outcome.Longitude = rec.Latitude, rec.Longitude

	gs.log.DebugContext(ctx, "Record geocoded",
		"record", outcome.Record, "lat", coords.Latitude, "lon", coords.Longitude)

	return outcome, nil
}

// request sends one query to the provider once the limiter allows it.
func (gs *GeocodingService) request(ctx context.Context, query string) (*models.Coordinates, error) {
	if err := gs.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", errInterrupted, err)
	}

	startTime := time.Now()
	coords, err := gs.provider.Geocode(ctx, query)
	gs.metrics.RequestSeconds.WithLabelValues(gs.providerName).Observe(time.Since(startTime).Seconds())

	return coords, err
}

// BuildQuery renders the free-text query sent to the provider: the standardized address without
// its ZIP+4 extension, followed by the country.
func BuildQuery(rec models.Record) string {
	address := rec.StandardizedAddress
	if address == "" {
		rec.ZipCode4 = ""
		address = standardize.FormatAddress(rec)
	}

	return zip4Suffix.ReplaceAllString(address, "$1") + ", USA"
}

// CityLevelQuery drops the street line from a query built by BuildQuery, keeping city, state,
// ZIP and country. It reports false when there is no street line to drop.
func CityLevelQuery(query string) (string, bool) {
	parts := strings.Split(query, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	// street, city, "ST ZIP", country
	const minParts = 4
	if len(parts) < minParts {
		return "", false
	}

	return strings.Join(parts[1:], ", "), true
}

func inServiceArea(coords models.Coordinates) bool {
	return coords.Latitude >= usMinLatitude && coords.Latitude <= usMaxLatitude &&
		coords.Longitude >= usMinLongitude && coords.Longitude <= usMaxLongitude
}

func successRate(part, total int) string {
	if total == 0 {
		return "0.0%"
	}

	const percent = 100
	return fmt.Sprintf("%.1f%%", float64(part)*percent/float64(total))
}
