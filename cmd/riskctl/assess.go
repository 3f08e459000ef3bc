// ABOUTME: The assess subcommand: scores a profile file and prints the portfolio report.
// ABOUTME: Renders rows as a pterm table or JSON and fails when profiles are invalid or risk is too high.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jfeddern/VendorRisk/internal/cache"
	"github.com/jfeddern/VendorRisk/internal/engine"
	"github.com/jfeddern/VendorRisk/internal/providers"
	"github.com/jfeddern/VendorRisk/internal/providers/local"
	"github.com/jfeddern/VendorRisk/internal/report"
	"github.com/jfeddern/VendorRisk/internal/repository"
	"github.com/jfeddern/VendorRisk/internal/scorer"
	"github.com/jfeddern/VendorRisk/internal/types"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type assessOptions struct {
	file     string
	output   string
	minRisk  string
	failOn   string
	findings bool
	vendors  []string
}

// assessResult is the JSON document written by --output json
type assessResult struct {
	Run     engine.RunStats                 `json:"run"`
	Vendors []report.Row                    `json:"vendors"`
	Details map[string]types.RiskAssessment `json:"details,omitempty"`
	Cache   *cache.Stats                    `json:"cache,omitempty"`
}

func newAssessCmd(newLogger func() (*logrus.Logger, error)) *cobra.Command {
	opts := &assessOptions{}

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Score every vendor in a profile file",
		Example: `  riskctl assess --file vendors.yaml
  riskctl assess --file vendors.json --output json --min-risk high
  riskctl assess --file vendors.yaml --fail-on critical
  riskctl assess --file vendors.yaml --vendor acme --vendor globex`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			return runAssess(cmd.Context(), cmd.OutOrStdout(), opts, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Path to a JSON or YAML profile file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table or json")
	cmd.Flags().StringVar(&opts.minRisk, "min-risk", "", "Only report vendors at this risk level or worse")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "", "Exit non-zero when any vendor is at this risk level or worse")
	cmd.Flags().BoolVar(&opts.findings, "findings", false, "Include the findings of every reported vendor")
	cmd.Flags().StringSliceVar(&opts.vendors, "vendor", nil, "Assess only these vendor ids (repeatable)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func parseLevelFlag(name, value string) (types.RiskLevel, error) {
	if value == "" {
		return "", nil
	}
	level, ok := types.ParseRiskLevel(value)
	if !ok {
		return "", fmt.Errorf("invalid --%s %q: must be one of LOW, MEDIUM, HIGH, CRITICAL", name, value)
	}
	return level, nil
}

func runAssess(ctx context.Context, out io.Writer, opts *assessOptions, logger *logrus.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.output != outputTable && opts.output != outputJSON {
		return fmt.Errorf("invalid --output %q: must be table or json", opts.output)
	}
	minRisk, err := parseLevelFlag("min-risk", opts.minRisk)
	if err != nil {
		return err
	}
	failOn, err := parseLevelFlag("fail-on", opts.failOn)
	if err != nil {
		return err
	}

	repo := repository.NewMemoryRepository(logger)
	config := &engine.Config{Mode: providers.ModeLocal, ProfileFile: opts.file, CacheTTL: cache.DefaultTTL}
	assessments := engine.NewEngine(local.NewLocalSource(opts.file, logger), scorer.NewScorer(), repo, config, logger)
	defer assessments.Close()

	var stats engine.RunStats
	var cacheStats *cache.Stats
	if len(opts.vendors) > 0 {
		stats, err = assessVendors(ctx, assessments, opts.vendors)
		if err != nil {
			return err
		}
		if usage, ok := assessments.CacheStats(); ok {
			cacheStats = &usage
			logger.WithFields(logrus.Fields{
				"hits":   usage.Hits,
				"misses": usage.Misses,
			}).Debug("Profile cache usage")
		}
	} else {
		stats, err = assessments.RunOnce(ctx)
		if err != nil {
			return err
		}
	}

	rows, err := report.Summarize(ctx, repo)
	if err != nil {
		return err
	}
	if minRisk != "" {
		rows = report.FilterAtLeast(rows, minRisk)
	}

	var details map[string]types.RiskAssessment
	if opts.findings {
		details = make(map[string]types.RiskAssessment, len(rows))
		for _, row := range rows {
			assessment, err := repo.Latest(ctx, row.VendorID)
			if err != nil {
				return err
			}
			details[row.VendorID] = assessment
		}
	}

	switch opts.output {
	case outputJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(assessResult{Run: stats, Vendors: rows, Details: details, Cache: cacheStats}); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	default:
		if err := renderTable(out, stats, rows, details); err != nil {
			return err
		}
	}

	var problems []error
	if stats.Invalid > 0 {
		problems = append(problems, fmt.Errorf("%d invalid vendor profile(s): %s", stats.Invalid, strings.Join(stats.InvalidVendors, ", ")))
	}
	if failOn != "" {
		if failing := report.FilterAtLeast(rows, failOn); len(failing) > 0 {
			problems = append(problems, fmt.Errorf("%d vendor(s) at %s or worse", len(failing), failOn.Label()))
		}
	}
	return errors.Join(problems...)
}

// assessVendors re-assesses the named vendors on demand. The first lookup
// lists the profile file; the rest are served from the engine's profile cache.
func assessVendors(ctx context.Context, assessments *engine.Engine, vendorIDs []string) (engine.RunStats, error) {
	stats := engine.RunStats{StartedAt: time.Now(), Source: assessments.SourceName()}

	seen := make(map[string]bool, len(vendorIDs))
	for _, vendorID := range vendorIDs {
		vendorID = strings.TrimSpace(vendorID)
		if vendorID == "" || seen[vendorID] {
			continue
		}
		seen[vendorID] = true
		stats.Discovered++

		_, err := assessments.AssessVendor(ctx, vendorID)
		switch {
		case err == nil:
			stats.Assessed++
		case errors.Is(err, types.ErrInvalidProfile):
			stats.Invalid++
			stats.InvalidVendors = append(stats.InvalidVendors, vendorID)
		case errors.Is(err, repository.ErrVendorNotFound):
			return stats, fmt.Errorf("vendor %q is not in the profile file", vendorID)
		default:
			return stats, err
		}
	}

	sort.Strings(stats.InvalidVendors)
	stats.Duration = time.Since(stats.StartedAt)
	return stats, nil
}

func riskStyle(level types.RiskLevel) string {
	switch level {
	case types.RiskCritical:
		return pterm.FgRed.Sprint(level.Label())
	case types.RiskHigh:
		return pterm.FgLightRed.Sprint(level.Label())
	case types.RiskMedium:
		return pterm.FgYellow.Sprint(level.Label())
	default:
		return pterm.FgGreen.Sprint(level.Label())
	}
}

func renderTable(out io.Writer, stats engine.RunStats, rows []report.Row, details map[string]types.RiskAssessment) error {
	if stats.Invalid > 0 {
		fmt.Fprint(out, pterm.Warning.Sprintfln("%d vendor profile(s) were invalid and skipped: %s", stats.Invalid, strings.Join(stats.InvalidVendors, ", ")))
	}

	if len(rows) == 0 {
		fmt.Fprint(out, pterm.Info.Sprintln("No vendors to report."))
		return nil
	}

	data := [][]string{
		{"Vendor", "Score", "Risk", "Security", "Privacy", "Compliance", "Reliability", "Residency", "Override", "Recommendation"},
	}
	for _, row := range rows {
		override := "-"
		if row.RequiresOverride {
			override = pterm.FgRed.Sprint("REQUIRED")
		}
		data = append(data, []string{
			pterm.FgCyan.Sprint(row.VendorID),
			strconv.FormatFloat(row.OverallScore, 'f', 1, 64),
			riskStyle(row.RiskLevel),
			strconv.Itoa(row.Scores.Security),
			strconv.Itoa(row.Scores.Privacy),
			strconv.Itoa(row.Scores.Compliance),
			strconv.Itoa(row.Scores.Reliability),
			strconv.Itoa(row.Scores.DataResidency),
			override,
			row.Recommendation,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render report table: %w", err)
	}
	fmt.Fprintln(out, table)

	for _, row := range rows {
		assessment, ok := details[row.VendorID]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "\n%s\n", pterm.Bold.Sprint(row.VendorID))
		for _, finding := range assessment.Findings {
			fmt.Fprintf(out, "  [%s] %s: %s\n", finding.Severity, finding.Category, finding.Message)
		}
		for _, violation := range assessment.PolicyViolations {
			fmt.Fprintf(out, "  [GATE] %s: %s\n", violation.Gate, violation.Message)
		}
	}
	return nil
}
