// Package standardize rewrites capitol addresses into a canonical USPS-like form and
// synthesizes ZIP+4 extensions. It is a mock: no postal service is contacted.
package standardize

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/UnknownOlympus/capitals/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// suffixes maps street suffixes to their USPS abbreviation.
var suffixes = []struct {
	pattern *regexp.Regexp
	abbr    string
}{
	{regexp.MustCompile(`\bSTREET\b`), "ST"},
	{regexp.MustCompile(`\bAVENUE\b`), "AVE"},
	{regexp.MustCompile(`\bBOULEVARD\b`), "BLVD"},
	{regexp.MustCompile(`\bDRIVE\b`), "DR"},
	{regexp.MustCompile(`\bROAD\b`), "RD"},
}

var (
	spaces      = regexp.MustCompile(`\s+`)
	digitsOnly  = regexp.MustCompile(`^\d+$`)
	stateAbbrRe = regexp.MustCompile(`^[A-Z]{2}$`)
)

// Report summarizes a standardization run.
type Report struct {
	RunID       string         `json:"run_id"`
	Total       int            `json:"total_addresses"`
	Successful  int            `json:"successful_validations"`
	Failed      int            `json:"failed_validations"`
	SuccessRate string         `json:"success_rate"`
	Issues      []models.Issue `json:"issues"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Standardizer applies the mock postal standardization to every record.
type Standardizer struct {
	log   *slog.Logger
	title cases.Caser
}

// NewStandardizer creates a new Standardizer.
func NewStandardizer(log *slog.Logger) *Standardizer {
	return &Standardizer{log: log, title: cases.Title(language.AmericanEnglish)}
}

// Standardize returns a new dataset with standardized addresses. The input dataset is not modified.
// Records failing the mock validation keep their original fields and are reported; they never stop the batch.
func (s *Standardizer) Standardize(ctx context.Context, runID string, input *models.Dataset) (*models.Dataset, *Report) {
	out := input.Clone()
	report := &Report{
		RunID:  runID,
		Total:  len(out.States),
		Issues: []models.Issue{},
	}

	for idx := range out.States {
		rec := &out.States[idx]
		validation := s.StandardizeRecord(rec)

		if validation.Valid {
			report.Successful++
			s.log.DebugContext(ctx, "Address standardized", "record", rec.Label(), "address", rec.StandardizedAddress)
			continue
		}

		report.Failed++
		for _, problem := range validation.Errors {
			report.Issues = append(report.Issues, models.Issue{
				Kind:    models.KindInvalidField,
				Index:   idx,
				Record:  rec.Label(),
				Message: problem,
			})
		}
		s.log.WarnContext(ctx, "Address failed mock validation", "record", rec.Label(), "errors", validation.Errors)
	}

	report.SuccessRate = rate(report.Successful, report.Total)
	report.CompletedAt = time.Now().UTC()

	out.SetSection("usps_validation", map[string]any{
		"run_id":                 runID,
		"validation_date":        report.CompletedAt.Format(time.RFC3339),
		"validation_type":        "mock_usps",
		"total_addresses":        report.Total,
		"successful_validations": report.Successful,
		"failed_validations":     report.Failed,
		"success_rate":           report.SuccessRate,
	})

	s.log.InfoContext(ctx, "Standardization finished",
		"total", report.Total, "successful", report.Successful, "failed", report.Failed)

	return out, report
}

// StandardizeRecord validates and rewrites a single record in place and returns the validation outcome.
func (s *Standardizer) StandardizeRecord(rec *models.Record) models.USPSValidation {
	validation := validate(rec)
	rec.USPSValidation = &validation
	if !validation.Valid {
		return validation
	}

	rec.AddressLine1 = StandardizeLine(rec.AddressLine1)
	rec.AddressLine2 = StandardizeLine(rec.AddressLine2)
	rec.City = s.title.String(strings.ToLower(collapse(rec.City)))
	rec.StateAbbr = strings.ToUpper(strings.TrimSpace(rec.StateAbbr))
	rec.ZipCode5 = strings.TrimSpace(rec.ZipCode5)

	if zip4 := strings.TrimSpace(rec.ZipCode4); len(zip4) == 4 && digitsOnly.MatchString(zip4) {
		rec.ZipCode4 = zip4
	} else {
		rec.ZipCode4 = SynthesizeZip4(rec.AddressLine1, rec.City, rec.StateAbbr, rec.ZipCode5)
	}

	rec.StandardizedAddress = FormatAddress(*rec)

	return validation
}

// StandardizeLine upper-cases an address line, collapses whitespace and abbreviates street suffixes.
func StandardizeLine(line string) string {
	out := strings.ToUpper(collapse(line))
	for _, suffix := range suffixes {
		out = suffix.pattern.ReplaceAllString(out, suffix.abbr)
	}

	return out
}

// SynthesizeZip4 derives a mock ZIP+4 extension from the address. The result is deterministic:
// FNV-1a over the upper-cased "LINE1|CITY|STATE|ZIP5" key, modulo 10000, zero padded.
func SynthesizeZip4(line1, city, state, zip5 string) string {
	key := strings.ToUpper(strings.Join([]string{collapse(line1), collapse(city), collapse(state), collapse(zip5)}, "|"))
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(key))

	const modulo = 10000
	return fmt.Sprintf("%04d", hasher.Sum32()%modulo)
}

// FormatAddress renders the single-line address: "LINE1[, LINE2], City, ST ZIP5[-ZIP4]".
func FormatAddress(rec models.Record) string {
	parts := []string{rec.AddressLine1}
	if rec.AddressLine2 != "" {
		parts = append(parts, rec.AddressLine2)
	}
	parts = append(parts, rec.City)

	zip := rec.ZipCode5
	if rec.ZipCode4 != "" {
		zip += "-" + rec.ZipCode4
	}

	return strings.Join(parts, ", ") + ", " + rec.StateAbbr + " " + zip
}

func validate(rec *models.Record) models.USPSValidation {
	var problems []string

	if strings.TrimSpace(rec.AddressLine1) == "" {
		problems = append(problems, "Missing street address")
	}
	if strings.TrimSpace(rec.City) == "" {
		problems = append(problems, "Missing city")
	}
	if !stateAbbrRe.MatchString(strings.ToUpper(strings.TrimSpace(rec.StateAbbr))) {
		problems = append(problems, "Invalid state abbreviation")
	}
	if zip := strings.TrimSpace(rec.ZipCode5); len(zip) != 5 || !digitsOnly.MatchString(zip) {
		problems = append(problems, "Invalid ZIP code")
	}

	return models.USPSValidation{Valid: len(problems) == 0, Errors: problems}
}

func collapse(s string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(s), " ")
}

func rate(part, total int) string {
	if total == 0 {
		return "0.0%"
	}

	const percent = 100
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*percent)
}
