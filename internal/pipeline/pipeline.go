// Package pipeline wires the stages together. Every stage reads the file written by the previous
// one and writes its own output and report, so stages can be run one by one or all at once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/capitals/internal/audit"
	"github.com/UnknownOlympus/capitals/internal/export"
	"github.com/UnknownOlympus/capitals/internal/metrics"
	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/UnknownOlympus/capitals/internal/reference"
	"github.com/UnknownOlympus/capitals/internal/repository"
	"github.com/UnknownOlympus/capitals/internal/schema"
	"github.com/UnknownOlympus/capitals/internal/service"
	"github.com/UnknownOlympus/capitals/internal/standardize"
	"github.com/UnknownOlympus/capitals/internal/verify"
	"github.com/google/uuid"
)

// Stage names used in logs and metric labels.
const (
	StageSchema      = "schema"
	StageStandardize = "standardize"
	StageGeocode     = "geocode"
	StageAudit       = "audit"
	StageVerify      = "verify"
	StageExport      = "export"
)

// ErrNoGeocoder is returned when the geocoding stage runs without a configured provider.
var ErrNoGeocoder = errors.New("geocoding service is not configured")

// Summary collects the reports of a full run.
type Summary struct {
	RunID           string
	Schema          *schema.Report
	Standardization *standardize.Report
	Geocoding       *service.Report
	Audit           *audit.Report
	Verification    *verify.Report
	Exported        int
}

// Pipeline runs the stages against files described by Paths.
type Pipeline struct {
	log          *slog.Logger
	repo         repository.Interface
	metrics      *metrics.Metrics
	validator    *schema.Validator
	standardizer *standardize.Standardizer
	geocoder     *service.GeocodingService
	auditor      *audit.Auditor
	verifier     *verify.Verifier
	exporter     *export.Exporter
	newRunID     func() string
}

// New creates a Pipeline. geocoder may be nil for runs that do not reach the geocoding stage.
func New(
	log *slog.Logger,
	repo repository.Interface,
	metrics *metrics.Metrics,
	geocoder *service.GeocodingService,
	minCompleteness float64,
) (*Pipeline, error) {
	auditor, err := audit.NewAuditor(log)
	if err != nil {
		return nil, err
	}

	list, err := reference.Capitals()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference list: %w", err)
	}

	return &Pipeline{
		log:          log,
		repo:         repo,
		metrics:      metrics,
		validator:    schema.NewValidator(log),
		standardizer: standardize.NewStandardizer(log),
		geocoder:     geocoder,
		auditor:      auditor,
		verifier:     verify.NewVerifier(log, list, minCompleteness),
		exporter:     export.NewExporter(log),
		newRunID:     uuid.NewString,
	}, nil
}

// Seed writes the canonical input dataset.
func (p *Pipeline) Seed(ctx context.Context, output string) error {
	dataset, err := reference.CanonicalDataset()
	if err != nil {
		return fmt.Errorf("failed to load canonical dataset: %w", err)
	}

	return p.repo.SaveDataset(ctx, output, dataset)
}

// Validate runs the schema checks on input. A report that did not pass is returned together with
// an error wrapping models.ErrValidationFailure and the sentinel of every issue kind found.
func (p *Pipeline) Validate(ctx context.Context, input, reportPath string) (*schema.Report, error) {
	defer p.observe(StageSchema, time.Now())

	data, err := p.repo.ReadRaw(ctx, input)
	if err != nil {
		return nil, err
	}

	report, err := p.validator.Validate(ctx, data)
	if err != nil {
		p.metrics.Issues.WithLabelValues(StageSchema, string(models.KindMalformedInput)).Inc()
		p.metrics.SetPassed(StageSchema, false)
		return nil, err
	}
	p.recordIssues(StageSchema, report.Issues)
	p.metrics.RecordsProcessed.WithLabelValues(StageSchema, "valid").Add(float64(report.ValidRecords))
	p.metrics.RecordsProcessed.WithLabelValues(StageSchema, "invalid").Add(float64(report.RecordCount - report.ValidRecords))
	p.metrics.SetPassed(StageSchema, report.Passed)

	if err = p.repo.SaveReport(ctx, reportPath, report); err != nil {
		return report, err
	}

	if !report.Passed {
		return report, fmt.Errorf("%w: schema validation found %d issues: %w",
			models.ErrValidationFailure, len(report.Issues), models.KindsError(report.Issues))
	}

	return report, nil
}

// Standardize rewrites the addresses of input into output. Records failing the mock postal
// validation are reported but do not fail the stage.
func (p *Pipeline) Standardize(ctx context.Context, input, output, reportPath string) (*standardize.Report, error) {
	defer p.observe(StageStandardize, time.Now())

	dataset, err := p.repo.LoadDataset(ctx, input)
	if err != nil {
		p.metrics.SetPassed(StageStandardize, false)
		return nil, err
	}

	out, report := p.standardizer.Standardize(ctx, p.newRunID(), dataset)
	p.recordIssues(StageStandardize, report.Issues)
	p.metrics.RecordsProcessed.WithLabelValues(StageStandardize, "valid").Add(float64(report.Successful))
	p.metrics.RecordsProcessed.WithLabelValues(StageStandardize, "invalid").Add(float64(report.Failed))
	p.metrics.SetPassed(StageStandardize, report.Failed == 0)

	if err = p.repo.SaveDataset(ctx, output, out); err != nil {
		return report, err
	}
	if err = p.repo.SaveReport(ctx, reportPath, report); err != nil {
		return report, err
	}

	return report, nil
}

// Geocode resolves coordinates for input into output. Per record failures are part of the report.
func (p *Pipeline) Geocode(ctx context.Context, input, output, reportPath string) (*service.Report, error) {
	if p.geocoder == nil {
		return nil, ErrNoGeocoder
	}
	defer p.observe(StageGeocode, time.Now())

	dataset, err := p.repo.LoadDataset(ctx, input)
	if err != nil {
		return nil, err
	}

	out, report, err := p.geocoder.Geocode(ctx, p.newRunID(), dataset)
	if err != nil {
		return nil, err
	}
	p.metrics.SetPassed(StageGeocode, report.Failed == 0)

	if err = p.repo.SaveDataset(ctx, output, out); err != nil {
		return report, err
	}
	if err = p.repo.SaveReport(ctx, reportPath, report); err != nil {
		return report, err
	}

	return report, nil
}

// Audit checks the coordinate distribution of input.
func (p *Pipeline) Audit(ctx context.Context, input, reportPath string) (*audit.Report, error) {
	defer p.observe(StageAudit, time.Now())

	dataset, err := p.repo.LoadDataset(ctx, input)
	if err != nil {
		return nil, err
	}

	report := p.auditor.Audit(ctx, dataset)
	p.recordIssues(StageAudit, report.Issues)
	p.metrics.RecordsProcessed.WithLabelValues(StageAudit, "flagged").Add(float64(len(report.Flagged())))
	p.metrics.SetPassed(StageAudit, report.Passed)

	if err = p.repo.SaveReport(ctx, reportPath, report); err != nil {
		return report, err
	}

	if !report.Passed {
		return report, fmt.Errorf("%w: coordinate audit did not pass: %w",
			models.ErrValidationFailure, models.KindsError(report.Issues))
	}

	return report, nil
}

// Verify is the acceptance gate on the final file.
func (p *Pipeline) Verify(ctx context.Context, input, reportPath string) (*verify.Report, error) {
	defer p.observe(StageVerify, time.Now())

	data, err := p.repo.ReadRaw(ctx, input)
	if err != nil {
		return nil, err
	}

	report, err := p.verifier.Verify(ctx, data)
	if err != nil {
		p.metrics.SetPassed(StageVerify, false)
		return nil, err
	}
	p.recordIssues(StageVerify, report.Issues)
	p.metrics.RecordsProcessed.WithLabelValues(StageVerify, "success").Add(float64(report.Successful))
	p.metrics.RecordsProcessed.WithLabelValues(StageVerify, "failed").Add(float64(report.Failed))
	p.metrics.SetPassed(StageVerify, report.Passed)

	if err = p.repo.SaveReport(ctx, reportPath, report); err != nil {
		return report, err
	}

	if !report.Passed {
		return report, fmt.Errorf("%w: final verification found %d issues: %w",
			models.ErrValidationFailure, len(report.Issues), models.KindsError(report.Issues))
	}

	return report, nil
}

// Export writes the geocoded records of input as GeoJSON and returns the number of features.
func (p *Pipeline) Export(ctx context.Context, input, output string) (int, error) {
	defer p.observe(StageExport, time.Now())

	dataset, err := p.repo.LoadDataset(ctx, input)
	if err != nil {
		return 0, err
	}

	fc := p.exporter.FeatureCollection(ctx, dataset)
	if err = p.repo.SaveReport(ctx, output, fc); err != nil {
		return 0, err
	}

	return len(fc.Features), nil
}

// Run executes every stage in order. It stops when the input is malformed, when schema
// validation finds a document-level issue (wrong record count, bad metadata) or when a stage
// cannot read or write its files. Issues confined to single records, like geocoding failures and
// audit flags, do not stop the run: those records are carried through and the final verification
// rejects them, which decides the returned error.
func (p *Pipeline) Run(ctx context.Context, paths Paths) (*Summary, error) {
	summary := &Summary{RunID: p.newRunID()}
	log := p.log.With("run_id", summary.RunID)
	log.InfoContext(ctx, "Pipeline started", "input", paths.Input)

	var err error
	summary.Schema, err = p.Validate(ctx, paths.Input, paths.SchemaReport)
	if err != nil && (!errors.Is(err, models.ErrValidationFailure) || summary.Schema.Structural()) {
		log.ErrorContext(ctx, "Halting: input failed schema validation", "error", err)
		return summary, err
	}
	if err != nil {
		log.WarnContext(ctx, "Schema issues in single records, continuing", "error", err)
	}

	if summary.Standardization, err = p.Standardize(ctx, paths.Input, paths.Validated, paths.StandardizationReport); err != nil {
		log.ErrorContext(ctx, "Halting: standardization failed", "error", err)
		return summary, err
	}

	if summary.Geocoding, err = p.Geocode(ctx, paths.Validated, paths.Geocoded, paths.GeocodingReport); err != nil {
		log.ErrorContext(ctx, "Halting: geocoding stage failed", "error", err)
		return summary, err
	}

	summary.Audit, err = p.Audit(ctx, paths.Geocoded, paths.AuditReport)
	if err != nil && !errors.Is(err, models.ErrValidationFailure) {
		return summary, err
	}
	if err != nil {
		log.WarnContext(ctx, "Coordinate audit raised flags, continuing", "error", err)
	}

	summary.Verification, err = p.Verify(ctx, paths.Geocoded, paths.VerificationReport)
	if err != nil {
		log.ErrorContext(ctx, "Final verification failed", "error", err)
		return summary, err
	}

	if summary.Exported, err = p.Export(ctx, paths.Geocoded, paths.GeoJSON); err != nil {
		return summary, err
	}

	log.InfoContext(ctx, "Pipeline finished", "exported", summary.Exported)

	return summary, nil
}

func (p *Pipeline) observe(stage string, start time.Time) {
	p.metrics.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (p *Pipeline) recordIssues(stage string, issues []models.Issue) {
	for kind, count := range models.CountByKind(issues) {
		p.metrics.Issues.WithLabelValues(stage, string(kind)).Add(float64(count))
	}
}
