package models

import (
	"errors"
	"fmt"
)

// IssueKind classifies a problem found by one of the pipeline stages.
type IssueKind string

const (
	KindMalformedInput       IssueKind = "MalformedInput"
	KindMissingField         IssueKind = "MissingField"
	KindInvalidField         IssueKind = "InvalidField"
	KindDuplicateRecord      IssueKind = "DuplicateRecord"
	KindGeocodeFailure       IssueKind = "GeocodeFailure"
	KindOutOfRangeCoordinate IssueKind = "OutOfRangeCoordinate"
	KindValidationFailure    IssueKind = "ValidationFailure"
)

// Sentinel errors matching the issue kinds.
var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrMissingField         = errors.New("missing field")
	ErrInvalidField         = errors.New("invalid field")
	ErrDuplicateRecord      = errors.New("duplicate record")
	ErrGeocodeFailure       = errors.New("geocode failure")
	ErrOutOfRangeCoordinate = errors.New("coordinate out of range")
	ErrValidationFailure    = errors.New("validation failure")
)

// Err returns the sentinel error of the kind. Unknown kinds map to ErrValidationFailure.
func (k IssueKind) Err() error {
	switch k {
	case KindMalformedInput:
		return ErrMalformedInput
	case KindMissingField:
		return ErrMissingField
	case KindInvalidField:
		return ErrInvalidField
	case KindDuplicateRecord:
		return ErrDuplicateRecord
	case KindGeocodeFailure:
		return ErrGeocodeFailure
	case KindOutOfRangeCoordinate:
		return ErrOutOfRangeCoordinate
	default:
		return ErrValidationFailure
	}
}

// Issue is a single finding. Index is the zero-based record position, or -1 for dataset-level issues.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Index   int       `json:"index"`
	Record  string    `json:"record,omitempty"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (i Issue) String() string {
	if i.Index < 0 {
		return fmt.Sprintf("[%s] %s", i.Kind, i.Message)
	}
	if i.Field != "" {
		return fmt.Sprintf("[%s] record %d %s, field %q: %s", i.Kind, i.Index+1, i.Record, i.Field, i.Message)
	}

	return fmt.Sprintf("[%s] record %d %s: %s", i.Kind, i.Index+1, i.Record, i.Message)
}

// DatasetIssue builds an issue that is not tied to a single record.
func DatasetIssue(kind IssueKind, format string, args ...any) Issue {
	return Issue{Kind: kind, Index: -1, Message: fmt.Sprintf(format, args...)}
}

// CountByKind tallies issues per kind.
func CountByKind(issues []Issue) map[IssueKind]int {
	counts := make(map[IssueKind]int)
	for _, issue := range issues {
		counts[issue.Kind]++
	}

	return counts
}

// KindsError joins the sentinel errors of the distinct kinds in issues, in order of first
// appearance, so that callers can test a stage failure with errors.Is. It returns nil for no issues.
func KindsError(issues []Issue) error {
	seen := make(map[IssueKind]bool, len(issues))
	errs := make([]error, 0, len(issues))
	for _, issue := range issues {
		if seen[issue.Kind] {
			continue
		}
		seen[issue.Kind] = true
		errs = append(errs, issue.Kind.Err())
	}

	return errors.Join(errs...)
}
