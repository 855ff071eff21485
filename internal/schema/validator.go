// Package schema checks that a capitals document parses and that every record carries the
// required fields with the expected types and formats.
package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/UnknownOlympus/capitals/internal/models"
)

// RequiredFields must be present, string typed and non-blank in every record.
var RequiredFields = []string{"state", "state_abbr", "capital", "address_line_1", "city", "zip_code_5"}

// OptionalFields must be strings (or null) when present.
var OptionalFields = []string{
	"address_line_2", "zip_code_4", "standardized_address", "geocoding_status", "geocoding_service", "geocoding_error",
}

var (
	abbrPattern = regexp.MustCompile(`^[A-Z]{2}$`)
	zip5Pattern = regexp.MustCompile(`^\d{5}$`)
	zip4Pattern = regexp.MustCompile(`^\d{4}$`)
)

// Report is the outcome of a schema validation run.
type Report struct {
	Passed        bool           `json:"passed"`
	RecordCount   int            `json:"record_count"`
	ExpectedCount int            `json:"expected_count"`
	ValidRecords  int            `json:"valid_records"`
	Issues        []models.Issue `json:"issues"`
	CheckedAt     time.Time      `json:"checked_at"`
}

// Structural reports whether an issue concerns the document as a whole rather than one record.
func (r *Report) Structural() bool {
	for _, issue := range r.Issues {
		if issue.Index < 0 {
			return true
		}
	}

	return false
}

// Validator validates raw capitals documents.
type Validator struct {
	log      *slog.Logger
	expected int
}

// NewValidator creates a validator expecting one record per US state.
func NewValidator(log *slog.Logger) *Validator {
	return &Validator{log: log, expected: models.ExpectedRecordCount}
}

// Validate checks the document and collects every record-level violation before returning.
// A document that does not parse, or whose top level is neither a list nor an object with a
// "states" list, yields an error wrapping models.ErrMalformedInput and no report.
func (v *Validator) Validate(ctx context.Context, data []byte) (*Report, error) {
	records, metadataIssue, err := decodeShape(data)
	if err != nil {
		v.log.ErrorContext(ctx, "Document is malformed", "error", err)
		return nil, err
	}

	report := &Report{
		RecordCount:   len(records),
		ExpectedCount: v.expected,
		Issues:        []models.Issue{},
		CheckedAt:     time.Now().UTC(),
	}
	if metadataIssue != nil {
		report.Issues = append(report.Issues, *metadataIssue)
	}

	if len(records) != v.expected {
		report.Issues = append(report.Issues, models.DatasetIssue(
			models.KindValidationFailure, "expected %d records, found %d", v.expected, len(records),
		))
	}

	seenAbbr := make(map[string]int, len(records))
	for idx, raw := range records {
		issues := v.validateRecord(idx, raw, seenAbbr)
		if len(issues) == 0 {
			report.ValidRecords++
		}
		report.Issues = append(report.Issues, issues...)
	}

	report.Passed = len(report.Issues) == 0

	v.log.InfoContext(ctx, "Schema validation finished",
		"records", report.RecordCount,
		"valid_records", report.ValidRecords,
		"issues", len(report.Issues),
		"passed", report.Passed)

	return report, nil
}

// decodeShape unmarshals the top level and returns the raw record values.
func decodeShape(data []byte) ([]json.RawMessage, *models.Issue, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		var probe any
		err := json.Unmarshal(trimmed, &probe)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, nil, fmt.Errorf("%w: %w", models.ErrMalformedInput, err)
	}

	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", models.ErrMalformedInput, err)
		}
		return records, nil, nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", models.ErrMalformedInput, err)
		}
		rawStates, ok := doc["states"]
		if !ok {
			return nil, nil, fmt.Errorf("%w: missing %q list", models.ErrMalformedInput, "states")
		}
		var records []json.RawMessage
		if err := json.Unmarshal(rawStates, &records); err != nil || records == nil {
			return nil, nil, fmt.Errorf("%w: %q must be a list", models.ErrMalformedInput, "states")
		}

		var metadataIssue *models.Issue
		if rawMeta, ok := doc["metadata"]; ok {
			var meta map[string]any
			if err := json.Unmarshal(rawMeta, &meta); err != nil || meta == nil {
				issue := models.DatasetIssue(models.KindInvalidField, "metadata must be an object")
				metadataIssue = &issue
			}
		}
		return records, metadataIssue, nil
	default:
		return nil, nil, fmt.Errorf("%w: top-level value must be an object or a list", models.ErrMalformedInput)
	}
}

func (v *Validator) validateRecord(idx int, raw json.RawMessage, seenAbbr map[string]int) []models.Issue {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return []models.Issue{{
			Kind:    models.KindInvalidField,
			Index:   idx,
			Record:  fmt.Sprintf("record %d", idx+1),
			Message: "record is not an object",
		}}
	}

	label := labelOf(fields)
	var issues []models.Issue
	add := func(kind models.IssueKind, field, format string, args ...any) {
		issues = append(issues, models.Issue{
			Kind:    kind,
			Index:   idx,
			Record:  label,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	values := make(map[string]string, len(RequiredFields))
	for _, field := range RequiredFields {
		value, present := fields[field]
		if !present || value == nil {
			add(models.KindMissingField, field, "required field is missing")
			continue
		}
		str, isString := value.(string)
		if !isString {
			add(models.KindInvalidField, field, "must be a string, got %T", value)
			continue
		}
		if strings.TrimSpace(str) == "" {
			add(models.KindMissingField, field, "required field is empty")
			continue
		}
		values[field] = str
	}

	for _, field := range OptionalFields {
		value, present := fields[field]
		if !present || value == nil {
			continue
		}
		if _, isString := value.(string); !isString {
			add(models.KindInvalidField, field, "must be a string, got %T", value)
		}
	}

	if abbr, ok := values["state_abbr"]; ok {
		if !abbrPattern.MatchString(abbr) {
			add(models.KindInvalidField, "state_abbr", "must be two upper-case letters, got %q", abbr)
		} else if first, dup := seenAbbr[abbr]; dup {
			add(models.KindDuplicateRecord, "state_abbr", "abbreviation %q already used by record %d", abbr, first+1)
		} else {
			seenAbbr[abbr] = idx
		}
	}

	if zip, ok := values["zip_code_5"]; ok && !zip5Pattern.MatchString(zip) {
		add(models.KindInvalidField, "zip_code_5", "must be 5 digits, got %q", zip)
	}

	if zip4, ok := fields["zip_code_4"].(string); ok && zip4 != "" && !zip4Pattern.MatchString(zip4) {
		add(models.KindInvalidField, "zip_code_4", "must be 4 digits, got %q", zip4)
	}

	return issues
}

// labelOf names a record from whatever identifying fields it has.
func labelOf(fields map[string]any) string {
	rec := models.Record{}
	rec.State, _ = fields["state"].(string)
	rec.StateAbbr, _ = fields["state_abbr"].(string)
	rec.Capital, _ = fields["capital"].(string)

	return rec.Label()
}
