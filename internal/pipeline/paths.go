package pipeline

import "path/filepath"

// Paths are the stage files of a run.
type Paths struct {
	Input                 string
	SchemaReport          string
	Validated             string
	StandardizationReport string
	Geocoded              string
	GeocodingReport       string
	AuditReport           string
	VerificationReport    string
	GeoJSON               string
}

// DefaultPaths lays the stage files out in dataDir.
func DefaultPaths(dataDir string) Paths {
	return Paths{
		Input:                 filepath.Join(dataDir, "state_capitals.json"),
		SchemaReport:          filepath.Join(dataDir, "schema_validation_report.json"),
		Validated:             filepath.Join(dataDir, "state_capitals_validated.json"),
		StandardizationReport: filepath.Join(dataDir, "standardization_report.json"),
		Geocoded:              filepath.Join(dataDir, "state_capitals_with_coords.json"),
		GeocodingReport:       filepath.Join(dataDir, "geocoding_report.json"),
		AuditReport:           filepath.Join(dataDir, "coordinate_audit_report.json"),
		VerificationReport:    filepath.Join(dataDir, "final_verification_report.json"),
		GeoJSON:               filepath.Join(dataDir, "state_capitals.geojson"),
	}
}
