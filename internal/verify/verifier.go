// Package verify is the acceptance gate of the pipeline. It re-runs the schema checks on the final
// document and then checks the fields added by the later stages against the reference list.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/UnknownOlympus/capitals/internal/reference"
	"github.com/UnknownOlympus/capitals/internal/schema"
	"github.com/uber/h3-go/v4"
)

// MaxReferenceDistanceKm is the distance from the reference capitol point above which a warning is raised.
const MaxReferenceDistanceKm = 50.0

var zip4Pattern = regexp.MustCompile(`^\d{4}$`)

// FailedRecord is a record that did not geocode.
type FailedRecord struct {
	Index  int    `json:"index"`
	Record string `json:"record"`
	Error  string `json:"error"`
}

// Report is the final verification result.
type Report struct {
	Passed          bool           `json:"passed"`
	SchemaPassed    bool           `json:"schema_passed"`
	TotalRecords    int            `json:"total_records"`
	Successful      int            `json:"successful"`
	Failed          int            `json:"failed"`
	Completeness    float64        `json:"completeness"`
	MinCompleteness float64        `json:"min_completeness"`
	MissingStates   []string       `json:"missing_states"`
	FailedRecords   []FailedRecord `json:"failed_records"`
	Issues          []models.Issue `json:"issues"`
	Warnings        []models.Issue `json:"warnings"`
	VerifiedAt      time.Time      `json:"verified_at"`
}

// Verifier checks final pipeline output.
type Verifier struct {
	log             *slog.Logger
	schema          *schema.Validator
	reference       *reference.List
	minCompleteness float64
}

// NewVerifier creates a Verifier. minCompleteness is the share (0..1) of reference states that must
// be geocoded successfully.
func NewVerifier(log *slog.Logger, list *reference.List, minCompleteness float64) *Verifier {
	return &Verifier{
		log:             log,
		schema:          schema.NewValidator(log),
		reference:       list,
		minCompleteness: minCompleteness,
	}
}

// Verify checks the final document. Only a malformed document returns an error.
func (v *Verifier) Verify(ctx context.Context, data []byte) (*Report, error) {
	schemaReport, err := v.schema.Validate(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("final document: %w", err)
	}

	dataset, err := models.DecodeDataset(data)
	if err != nil {
		return nil, fmt.Errorf("final document: %w", err)
	}

	report := &Report{
		SchemaPassed:    schemaReport.Passed,
		TotalRecords:    len(dataset.States),
		MinCompleteness: v.minCompleteness,
		MissingStates:   []string{},
		FailedRecords:   []FailedRecord{},
		Issues:          append([]models.Issue{}, schemaReport.Issues...),
		Warnings:        []models.Issue{},
	}

	present := make(map[string]bool, len(dataset.States))
	for idx, rec := range dataset.States {
		present[rec.StateAbbr] = true
		v.verifyRecord(idx, rec, report)
	}

	for _, capital := range v.reference.All() {
		if !present[capital.Abbr] {
			report.MissingStates = append(report.MissingStates, capital.State)
		}
	}
	if len(report.MissingStates) > 0 {
		report.Issues = append(report.Issues, models.DatasetIssue(models.KindValidationFailure,
			"missing states: %v", report.MissingStates))
	}

	if expected := v.reference.Len(); expected > 0 {
		report.Completeness = float64(report.Successful) / float64(expected)
	}
	if report.Completeness < v.minCompleteness {
		report.Issues = append(report.Issues, models.DatasetIssue(models.KindValidationFailure,
			"completeness %.1f%% is below the required %.1f%%", report.Completeness*100, v.minCompleteness*100))
	}

	report.Passed = len(report.Issues) == 0
	report.VerifiedAt = time.Now().UTC()

	v.log.InfoContext(ctx, "Final verification finished",
		"passed", report.Passed,
		"successful", report.Successful,
		"failed", report.Failed,
		"missing_states", len(report.MissingStates),
		"issues", len(report.Issues),
		"warnings", len(report.Warnings))

	return report, nil
}

func (v *Verifier) verifyRecord(idx int, rec models.Record, report *Report) {
	add := func(list *[]models.Issue, kind models.IssueKind, field, format string, args ...any) {
		*list = append(*list, models.Issue{
			Kind:    kind,
			Index:   idx,
			Record:  rec.Label(),
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if rec.StandardizedAddress == "" {
		add(&report.Issues, models.KindMissingField, "standardized_address", "record was not standardized")
	}
	if !zip4Pattern.MatchString(rec.ZipCode4) {
		add(&report.Issues, models.KindMissingField, "zip_code_4", "4-digit ZIP+4 extension is missing")
	}

	ref, known := v.reference.ByAbbr(rec.StateAbbr)
	switch {
	case !known:
		add(&report.Issues, models.KindInvalidField, "state_abbr", "unknown state abbreviation %q", rec.StateAbbr)
	case ref.State != rec.State:
		add(&report.Issues, models.KindInvalidField, "state", "expected %q for %s, got %q", ref.State, ref.Abbr, rec.State)
	case ref.Capital != rec.Capital:
		add(&report.Issues, models.KindInvalidField, "capital", "expected %q for %s, got %q", ref.Capital, ref.Abbr, rec.Capital)
	}

	switch rec.GeocodingStatus {
	case models.StatusSuccess:
	case models.StatusFailed:
		report.Failed++
		report.FailedRecords = append(report.FailedRecords, FailedRecord{Index: idx, Record: rec.Label(), Error: rec.GeocodingError})
		return
	case "":
		add(&report.Issues, models.KindMissingField, "geocoding_status", "record was not geocoded")
		return
	default:
		add(&report.Issues, models.KindInvalidField, "geocoding_status", "unexpected status %q", rec.GeocodingStatus)
		return
	}

	coords := rec.Coordinates()
	if coords == nil {
		add(&report.Issues, models.KindMissingField, "latitude", "successful record has no coordinates")
		return
	}
	if !coords.InWGS84Range() {
		add(&report.Issues, models.KindOutOfRangeCoordinate, "latitude",
			"coordinates %.6f, %.6f are outside the WGS84 range", coords.Latitude, coords.Longitude)
		return
	}
	report.Successful++

	if known {
		point := ref.Point()
		distance := h3.GreatCircleDistanceKm(
			h3.NewLatLng(coords.Latitude, coords.Longitude),
			h3.NewLatLng(point.Latitude, point.Longitude),
		)
		if distance > MaxReferenceDistanceKm {
			add(&report.Warnings, models.KindOutOfRangeCoordinate, "latitude",
				"%.1f km from the reference location of %s", distance, ref.Capital)
		}
	}
}
