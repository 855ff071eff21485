package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExpectedRecordCount is the number of US states, one capitol record each.
const ExpectedRecordCount = 50

// Dataset is the document exchanged between pipeline stages.
// Metadata is kept free-form so that sections added by earlier stages survive later ones.
type Dataset struct {
	Metadata map[string]any `json:"metadata"`
	States   []Record       `json:"states"`
}

// NewDataset wraps records into a dataset with empty metadata.
func NewDataset(records []Record) *Dataset {
	return &Dataset{Metadata: map[string]any{}, States: records}
}

// Clone returns a deep copy so that a stage never mutates its input snapshot.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Metadata: make(map[string]any, len(d.Metadata)),
		States:   make([]Record, len(d.States)),
	}
	for k, v := range d.Metadata {
		out.Metadata[k] = v
	}

	for i, rec := range d.States {
		if rec.Latitude != nil {
			lat := *rec.Latitude
			rec.Latitude = &lat
		}
		if rec.Longitude != nil {
			lon := *rec.Longitude
			rec.Longitude = &lon
		}
		if rec.USPSValidation != nil {
			v := *rec.USPSValidation
			v.Errors = append([]string(nil), v.Errors...)
			rec.USPSValidation = &v
		}
		out.States[i] = rec
	}

	return out
}

// SetSection stores a stage's metadata section, creating the metadata map if needed.
func (d *Dataset) SetSection(name string, section any) {
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	d.Metadata[name] = section
}

// DecodeDataset parses a stage document. Both the object form and a bare list of records are accepted.
func DecodeDataset(data []byte) (*Dataset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedInput)
	}

	switch trimmed[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		return NewDataset(records), nil
	case '{':
		var ds Dataset
		if err := json.Unmarshal(trimmed, &ds); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		if ds.States == nil {
			return nil, fmt.Errorf("%w: missing %q list", ErrMalformedInput, "states")
		}
		if ds.Metadata == nil {
			ds.Metadata = map[string]any{}
		}
		return &ds, nil
	default:
		return nil, fmt.Errorf("%w: top-level value must be an object or a list", ErrMalformedInput)
	}
}
