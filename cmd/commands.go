package main

import (
	"fmt"
	"io"

	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/UnknownOlympus/capitals/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRootCmd(app *application) *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:   "capitals",
		Short: "Geocode and verify the capitol addresses of the 50 US states",
		Long: `
capitals validates a dataset of US state capitol addresses, standardizes them,
geocodes them through an external provider, audits the resulting coordinates
and verifies the final file. Every stage reads and writes JSON files in the
data directory, so stages can be run one by one or all at once with "run".
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			app.init(dataDir)
		},
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory of the stage files (default from CAPITALS_DATA_DIR or \"data\")")

	root.AddCommand(
		newSeedCmd(app),
		newValidateCmd(app),
		newStandardizeCmd(app),
		newGeocodeCmd(app),
		newAuditCmd(app),
		newVerifyCmd(app),
		newExportCmd(app),
		newRunCmd(app),
	)

	return root
}

// pick returns the flag value when set, the default path otherwise.
func pick(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}

func newSeedCmd(app *application) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Writes the built-in 50 state capitol dataset as the pipeline input",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.pipeline(cmd.Context(), false)
			if err != nil {
				return err
			}

			output = pick(output, app.paths.Input)
			if err = p.Seed(cmd.Context(), output); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seed dataset written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")

	return cmd
}

func newValidateCmd(app *application) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Checks the input file against the record schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.pipeline(cmd.Context(), false)
			if err != nil {
				return err
			}

			report, err := p.Validate(cmd.Context(), pick(input, app.paths.Input), app.paths.SchemaReport)
			if report != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Schema validation: %d/%d records valid, %d issues\n",
					report.ValidRecords, report.RecordCount, len(report.Issues))
				printIssues(out, report.Issues)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file")

	return cmd
}

func newStandardizeCmd(app *application) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "standardize",
		Short: "Standardizes addresses and adds ZIP+4 codes (mock USPS validation)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.pipeline(cmd.Context(), false)
			if err != nil {
				return err
			}

			report, err := p.Standardize(cmd.Context(),
				pick(input, app.paths.Input), pick(output, app.paths.Validated), app.paths.StandardizationReport)
			if report != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Standardization: %d/%d addresses valid (%s)\n",
					report.Successful, report.Total, report.SuccessRate)
				printIssues(out, report.Issues)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")

	return cmd
}

func newGeocodeCmd(app *application) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Resolves coordinates for every standardized address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.pipeline(cmd.Context(), true)
			if err != nil {
				return err
			}

			report, err := p.Geocode(cmd.Context(),
				pick(input, app.paths.Validated), pick(output, app.paths.Geocoded), app.paths.GeocodingReport)
			if report != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Geocoding with %s: %d succeeded, %d failed, %d skipped (%s)\n",
					report.Service, report.Successful, report.Failed, report.Skipped, report.SuccessRate)
				for _, failed := range report.FailedAddresses {
					fmt.Fprintf(out, "  %s: %s (%s)\n", failed.State, failed.Address, failed.Error)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")

	return cmd
}

func newAuditCmd(app *application) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Checks that the coordinates are valid, distinct and spread across the US",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.pipeline(cmd.Context(), false)
			if err != nil {
				return err
			}

			report, err := p.Audit(cmd.Context(), pick(input, app.paths.Geocoded), app.paths.AuditReport)
			if report != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Coordinate audit: %d/%d records with coordinates, %d unique pairs\n",
					report.WithCoordinates, report.TotalRecords, report.UniquePairs)
				fmt.Fprintf(out, "  latitude  %.4f..%.4f (range %.2f, std dev %.2f)\n",
					report.Latitude.Min, report.Latitude.Max, report.Latitude.Range, report.Latitude.StdDev)
				fmt.Fprintf(out, "  longitude %.4f..%.4f (range %.2f, std dev %.2f)\n",
					report.Longitude.Min, report.Longitude.Max, report.Longitude.Range, report.Longitude.StdDev)
				for _, check := range report.Checks {
					fmt.Fprintf(out, "  [%s] %s: %s\n", passLabel(check.Passed), check.Name, check.Detail)
				}
				printIssues(out, report.Issues)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file")

	return cmd
}

func newVerifyCmd(app *application) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Final acceptance check of the geocoded file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.pipeline(cmd.Context(), false)
			if err != nil {
				return err
			}

			report, err := p.Verify(cmd.Context(), pick(input, app.paths.Geocoded), app.paths.VerificationReport)
			if report != nil {
				printVerification(cmd.OutOrStdout(), report.Passed, report.Successful, report.TotalRecords,
					report.MissingStates, len(report.Warnings))
				printIssues(cmd.OutOrStdout(), report.Issues)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file")

	return cmd
}

func newExportCmd(app *application) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Writes the geocoded records as a GeoJSON FeatureCollection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.pipeline(cmd.Context(), false)
			if err != nil {
				return err
			}

			output = pick(output, app.paths.GeoJSON)
			count, err := p.Export(cmd.Context(), pick(input, app.paths.Geocoded), output)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d features to %s\n", count, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")

	return cmd
}

func newRunCmd(app *application) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs every stage in order, from schema validation to GeoJSON export",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.pipeline(cmd.Context(), true)
			if err != nil {
				return err
			}

			paths := app.paths
			paths.Input = pick(input, paths.Input)

			summary, err := p.Run(cmd.Context(), paths)
			printSummary(cmd.OutOrStdout(), summary)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file")

	return cmd
}

func printSummary(out io.Writer, summary *pipeline.Summary) {
	if summary == nil {
		return
	}

	fmt.Fprintf(out, "Run %s\n", summary.RunID)
	if r := summary.Schema; r != nil {
		fmt.Fprintf(out, "  [%s] schema: %d/%d records valid\n", passLabel(r.Passed), r.ValidRecords, r.RecordCount)
	}
	if r := summary.Standardization; r != nil {
		fmt.Fprintf(out, "  [%s] standardize: %d/%d addresses valid\n", passLabel(r.Failed == 0), r.Successful, r.Total)
	}
	if r := summary.Geocoding; r != nil {
		fmt.Fprintf(out, "  [%s] geocode: %d succeeded, %d failed, %d skipped\n",
			passLabel(r.Failed == 0), r.Successful, r.Failed, r.Skipped)
	}
	if r := summary.Audit; r != nil {
		fmt.Fprintf(out, "  [%s] audit: %d issues\n", passLabel(r.Passed), len(r.Issues))
	}
	if r := summary.Verification; r != nil {
		fmt.Fprintf(out, "  [%s] verify: %d/%d geocoded, %d issues, %d warnings\n",
			passLabel(r.Passed), r.Successful, r.TotalRecords, len(r.Issues), len(r.Warnings))
	}
	if summary.Exported > 0 {
		fmt.Fprintf(out, "  exported %d features\n", summary.Exported)
	}
}

func printVerification(out io.Writer, passed bool, successful, total int, missing []string, warnings int) {
	fmt.Fprintf(out, "Final verification [%s]: %d/%d records geocoded, %d warnings\n",
		passLabel(passed), successful, total, warnings)
	if len(missing) > 0 {
		fmt.Fprintf(out, "  missing states: %v\n", missing)
	}
}

func printIssues(out io.Writer, issues []models.Issue) {
	for _, issue := range issues {
		fmt.Fprintf(out, "  %s\n", issue)
	}
}

func passLabel(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
