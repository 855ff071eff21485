package models

import (
	"encoding/json"
	"fmt"
)

// GeocodingStatus is the outcome of geocoding a single record.
type GeocodingStatus string

const (
	StatusSuccess GeocodingStatus = "success"
	StatusFailed  GeocodingStatus = "failed"
	// StatusSkipped marks a record that was not requested during a run because it was already geocoded.
	StatusSkipped GeocodingStatus = "skipped"
)

// USPSValidation holds the outcome of the mock postal validation.
type USPSValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Record is a single state capitol address, enriched field by field as it moves through the pipeline.
type Record struct {
	State               string          `json:"state"`
	StateAbbr           string          `json:"state_abbr"`
	Capital             string          `json:"capital"`
	AddressLine1        string          `json:"address_line_1"`
	AddressLine2        string          `json:"address_line_2"`
	City                string          `json:"city"`
	ZipCode5            string          `json:"zip_code_5"`
	ZipCode4            string          `json:"zip_code_4,omitempty"`
	StandardizedAddress string          `json:"standardized_address,omitempty"`
	USPSValidation      *USPSValidation `json:"usps_validation,omitempty"`
	Latitude            *float64        `json:"latitude,omitempty"`
	Longitude           *float64        `json:"longitude,omitempty"`
	GeocodingStatus     GeocodingStatus `json:"geocoding_status,omitempty"`
	GeocodingService    string          `json:"geocoding_service,omitempty"`
	GeocodingError      string          `json:"geocoding_error,omitempty"`
}

// Label returns a short human readable identifier used in reports and logs.
func (r Record) Label() string {
	switch {
	case r.State != "" && r.StateAbbr != "":
		return fmt.Sprintf("%s (%s)", r.State, r.StateAbbr)
	case r.State != "":
		return r.State
	case r.StateAbbr != "":
		return r.StateAbbr
	case r.Capital != "":
		return r.Capital
	default:
		return "unnamed record"
	}
}

// Coordinates returns the record's point, or nil when either axis is missing.
func (r Record) Coordinates() *Coordinates {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}

	return &Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

// SetCoordinates marks the record as successfully geocoded by the given service.
func (r *Record) SetCoordinates(coords Coordinates, service string) {
	lat, lon := coords.Latitude, coords.Longitude
	r.Latitude = &lat
	r.Longitude = &lon
	r.GeocodingStatus = StatusSuccess
	r.GeocodingService = service
	r.GeocodingError = ""
}

// MarkFailed clears the coordinates and records why geocoding failed.
func (r *Record) MarkFailed(service string, reason string) {
	r.Latitude = nil
	r.Longitude = nil
	r.GeocodingStatus = StatusFailed
	r.GeocodingService = service
	r.GeocodingError = reason
}

// MarshalJSON writes explicit null coordinates once a record has been through geocoding,
// and omits them before that.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	if r.GeocodingStatus == "" {
		return json.Marshal(plain(r))
	}

	return json.Marshal(struct {
		plain
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}{plain: plain(r), Latitude: r.Latitude, Longitude: r.Longitude})
}
