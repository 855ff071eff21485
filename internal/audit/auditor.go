// Package audit checks that geocoded coordinates are plausible for a set of US state capitols:
// they must be valid, distinct, inside the US and spread across the country.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/uber/h3-go/v4"
)

// Pass thresholds. Fifty capitols spread from Hawaii to Maine easily exceed them; a provider
// that resolved everything to one city does not.
const (
	MinLatitudeRange   = 20.0
	MinLongitudeRange  = 50.0
	MinLatitudeStdDev  = 3.0
	MinLongitudeStdDev = 10.0
	MinCompleteness    = 90.0

	// nearDuplicateResolution is the H3 resolution used to group near-identical points (~1.2 km edge).
	nearDuplicateResolution = 7

	eastCoastLongitude = -80.0
	westCoastLongitude = -115.0
)

// DuplicateGroup lists records sharing exactly the same coordinates.
type DuplicateGroup struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Records   []string `json:"records"`
}

// NearDuplicateGroup lists records falling into the same H3 cell.
type NearDuplicateGroup struct {
	Cell    string   `json:"h3_cell"`
	Records []string `json:"records"`
}

// Coverage tells whether the outlying parts of the country are represented.
type Coverage struct {
	Alaska    bool `json:"alaska"`
	Hawaii    bool `json:"hawaii"`
	EastCoast bool `json:"east_coast"`
	WestCoast bool `json:"west_coast"`
}

// Extremes names the records at the edges of the dataset.
type Extremes struct {
	Northernmost string `json:"northernmost"`
	Southernmost string `json:"southernmost"`
	Easternmost  string `json:"easternmost"`
	Westernmost  string `json:"westernmost"`
}

// Check is one pass/fail criterion of the audit.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Report is the coordinate audit result.
type Report struct {
	Passed          bool                 `json:"passed"`
	TotalRecords    int                  `json:"total_records"`
	WithCoordinates int                  `json:"with_coordinates"`
	Completeness    float64              `json:"completeness_percent"`
	Latitude        AxisStats            `json:"latitude"`
	Longitude       AxisStats            `json:"longitude"`
	UniquePairs     int                  `json:"unique_coordinate_pairs"`
	Duplicates      []DuplicateGroup     `json:"duplicates"`
	NearDuplicates  []NearDuplicateGroup `json:"near_duplicates"`
	RegionCounts    map[string]int       `json:"region_counts"`
	Coverage        Coverage             `json:"coverage"`
	Extremes        Extremes             `json:"extremes"`
	Checks          []Check              `json:"checks"`
	Issues          []models.Issue       `json:"issues"`
	AuditedAt       time.Time            `json:"audited_at"`
}

// Auditor computes the coordinate audit. It never modifies the dataset.
type Auditor struct {
	log     *slog.Logger
	regions *RegionIndex
}

// NewAuditor creates an Auditor over the US region boxes.
func NewAuditor(log *slog.Logger) (*Auditor, error) {
	regions, err := NewRegionIndex(USRegions)
	if err != nil {
		return nil, fmt.Errorf("failed to build region index: %w", err)
	}

	return &Auditor{log: log, regions: regions}, nil
}

type pair struct{ lat, lon float64 }

// Audit inspects the coordinates of every record.
func (a *Auditor) Audit(ctx context.Context, dataset *models.Dataset) *Report {
	report := &Report{
		TotalRecords:   len(dataset.States),
		Duplicates:     []DuplicateGroup{},
		NearDuplicates: []NearDuplicateGroup{},
		RegionCounts:   map[string]int{},
		Issues:         []models.Issue{},
	}

	var (
		lats, lons []float64
		pairs      = map[pair][]string{}
		pairOrder  []pair
		cells      = map[h3.Cell][]string{}
		cellOrder  []h3.Cell
		north      = -1
		south      = -1
		east       = -1
		west       = -1
	)

	for idx, rec := range dataset.States {
		coords := rec.Coordinates()
		if coords == nil {
			report.Issues = append(report.Issues, models.Issue{
				Kind:    models.KindGeocodeFailure,
				Index:   idx,
				Record:  rec.Label(),
				Message: "record has no coordinates",
			})
			continue
		}

		report.WithCoordinates++

		key := pair{coords.Latitude, coords.Longitude}
		if _, seen := pairs[key]; !seen {
			pairOrder = append(pairOrder, key)
		}
		pairs[key] = append(pairs[key], rec.Label())

		if !coords.InWGS84Range() {
			report.Issues = append(report.Issues, models.Issue{
				Kind:    models.KindOutOfRangeCoordinate,
				Index:   idx,
				Record:  rec.Label(),
				Message: fmt.Sprintf("coordinates %.6f, %.6f are outside the WGS84 range", coords.Latitude, coords.Longitude),
			})
			continue
		}

		// only WGS84-valid points feed the spread statistics
		lats = append(lats, coords.Latitude)
		lons = append(lons, coords.Longitude)

		regions := a.regions.Locate(*coords)
		if len(regions) == 0 {
			report.Issues = append(report.Issues, models.Issue{
				Kind:    models.KindOutOfRangeCoordinate,
				Index:   idx,
				Record:  rec.Label(),
				Message: fmt.Sprintf("coordinates %.6f, %.6f are outside the continental US, Alaska and Hawaii", coords.Latitude, coords.Longitude),
			})
		}
		for _, name := range regions {
			report.RegionCounts[name]++
		}

		cell, err := h3.LatLngToCell(h3.NewLatLng(coords.Latitude, coords.Longitude), nearDuplicateResolution)
		if err != nil {
			a.log.WarnContext(ctx, "Failed to compute H3 cell", "record", rec.Label(), "error", err)
		} else {
			if _, seen := cells[cell]; !seen {
				cellOrder = append(cellOrder, cell)
			}
			cells[cell] = append(cells[cell], rec.Label())
		}

		states := dataset.States
		if north < 0 || coords.Latitude > *states[north].Latitude {
			north = idx
		}
		if south < 0 || coords.Latitude < *states[south].Latitude {
			south = idx
		}
		if east < 0 || coords.Longitude > *states[east].Longitude {
			east = idx
		}
		if west < 0 || coords.Longitude < *states[west].Longitude {
			west = idx
		}
		if coords.Longitude > eastCoastLongitude {
			report.Coverage.EastCoast = true
		}
		if coords.Longitude < westCoastLongitude && slices.Contains(regions, RegionContinental) {
			report.Coverage.WestCoast = true
		}
	}

	report.Latitude = computeStats(lats)
	report.Longitude = computeStats(lons)
	report.UniquePairs = len(pairs)
	report.Coverage.Alaska = report.RegionCounts[RegionAlaska] > 0
	report.Coverage.Hawaii = report.RegionCounts[RegionHawaii] > 0
	report.Extremes = Extremes{
		Northernmost: labelAt(dataset, north),
		Southernmost: labelAt(dataset, south),
		Easternmost:  labelAt(dataset, east),
		Westernmost:  labelAt(dataset, west),
	}
	if report.TotalRecords > 0 {
		const percent = 100
		report.Completeness = float64(report.WithCoordinates) * percent / float64(report.TotalRecords)
	}

	for _, key := range pairOrder {
		if labels := pairs[key]; len(labels) > 1 {
			report.Duplicates = append(report.Duplicates, DuplicateGroup{Latitude: key.lat, Longitude: key.lon, Records: labels})
			report.Issues = append(report.Issues, models.DatasetIssue(models.KindDuplicateRecord,
				"coordinates %.6f, %.6f shared by %v", key.lat, key.lon, labels))
		}
	}
	for _, cell := range cellOrder {
		if labels := cells[cell]; len(labels) > 1 {
			report.NearDuplicates = append(report.NearDuplicates, NearDuplicateGroup{Cell: cell.String(), Records: labels})
		}
	}

	report.Checks = a.checks(report)
	report.Passed = true
	for _, check := range report.Checks {
		report.Passed = report.Passed && check.Passed
	}
	report.AuditedAt = time.Now().UTC()

	a.log.InfoContext(ctx, "Coordinate audit finished",
		"passed", report.Passed,
		"with_coordinates", report.WithCoordinates,
		"issues", len(report.Issues))

	return report
}

func (a *Auditor) checks(report *Report) []Check {
	counts := models.CountByKind(report.Issues)
	outOfRange := counts[models.KindOutOfRangeCoordinate]

	return []Check{
		{
			Name:   "coordinates_in_us",
			Passed: outOfRange == 0,
			Detail: fmt.Sprintf("%d records outside WGS84 range or US regions", outOfRange),
		},
		{
			Name:   "no_duplicates",
			Passed: len(report.Duplicates) == 0,
			Detail: fmt.Sprintf("%d unique pairs for %d records", report.UniquePairs, report.WithCoordinates),
		},
		{
			Name:   "latitude_range",
			Passed: report.Latitude.Range > MinLatitudeRange,
			Detail: fmt.Sprintf("%.2f degrees, need more than %.0f", report.Latitude.Range, MinLatitudeRange),
		},
		{
			Name:   "longitude_range",
			Passed: report.Longitude.Range > MinLongitudeRange,
			Detail: fmt.Sprintf("%.2f degrees, need more than %.0f", report.Longitude.Range, MinLongitudeRange),
		},
		{
			Name:   "latitude_std_dev",
			Passed: report.Latitude.StdDev > MinLatitudeStdDev,
			Detail: fmt.Sprintf("%.2f degrees, need more than %.0f", report.Latitude.StdDev, MinLatitudeStdDev),
		},
		{
			Name:   "longitude_std_dev",
			Passed: report.Longitude.StdDev > MinLongitudeStdDev,
			Detail: fmt.Sprintf("%.2f degrees, need more than %.0f", report.Longitude.StdDev, MinLongitudeStdDev),
		},
		{
			Name:   "completeness",
			Passed: report.Completeness >= MinCompleteness,
			Detail: fmt.Sprintf("%.1f%% of records have coordinates, need %.0f%%", report.Completeness, MinCompleteness),
		},
	}
}

// Flagged returns the indexes of records with at least one record-level issue, sorted.
func (r *Report) Flagged() []int {
	seen := map[int]bool{}
	var out []int
	for _, issue := range r.Issues {
		if issue.Index < 0 || seen[issue.Index] {
			continue
		}
		seen[issue.Index] = true
		out = append(out, issue.Index)
	}
	sort.Ints(out)

	return out
}

func labelAt(dataset *models.Dataset, idx int) string {
	if idx < 0 {
		return ""
	}
	return dataset.States[idx].Label()
}
