// Package export renders a geocoded dataset in formats consumed by GIS tools.
package export

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Exporter builds GeoJSON documents.
type Exporter struct {
	log *slog.Logger
}

// NewExporter creates an Exporter that logs the records it leaves out at debug level.
func NewExporter(log *slog.Logger) *Exporter {
	return &Exporter{log: log}
}

// FeatureCollection returns one point feature per successfully geocoded record, keyed by state abbreviation.
// Records without coordinates are left out.
func (e *Exporter) FeatureCollection(ctx context.Context, dataset *models.Dataset) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}

	for _, rec := range dataset.States {
		coords := rec.Coordinates()
		if rec.GeocodingStatus != models.StatusSuccess || coords == nil {
			e.log.DebugContext(ctx, "Record left out of export", "record", rec.Label(), "status", rec.GeocodingStatus)
			continue
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       rec.StateAbbr,
			Geometry: geom.NewPointFlat(geom.XY, []float64{coords.Longitude, coords.Latitude}).SetSRID(4326),
			Properties: map[string]any{
				"state":                rec.State,
				"capital":              rec.Capital,
				"standardized_address": rec.StandardizedAddress,
				"geocoding_service":    rec.GeocodingService,
			},
		})
	}

	e.log.InfoContext(ctx, "GeoJSON export prepared", "features", len(fc.Features), "records", len(dataset.States))

	return fc
}
