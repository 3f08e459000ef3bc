// ABOUTME: Report generation over the assessment repository.
// ABOUTME: Produces the sorted portfolio summary and per-vendor score trends.

package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jfeddern/VendorRisk/internal/repository"
	"github.com/jfeddern/VendorRisk/internal/types"
)

// Row is one vendor's line in the portfolio summary, taken from its latest assessment
type Row struct {
	VendorID         string               `json:"vendor_id"`
	OverallScore     float64              `json:"overall_score"`
	RiskLevel        types.RiskLevel      `json:"risk_level"`
	Scores           types.CategoryScores `json:"scores"`
	Recommendation   string               `json:"recommendation"`
	RequiresOverride bool                 `json:"requires_override"`
	AssessedAt       time.Time            `json:"assessed_at"`
}

// TrendPoint is one assessment in a vendor's score history
type TrendPoint struct {
	AssessmentID string          `json:"assessment_id"`
	AssessedAt   time.Time       `json:"assessed_at"`
	OverallScore float64         `json:"overall_score"`
	RiskLevel    types.RiskLevel `json:"risk_level"`
	// Delta is the change from the previous assessment; nil for the first one
	Delta        *float64 `json:"delta,omitempty"`
	LevelChanged bool     `json:"level_changed"`
}

// NewRow projects an assessment onto a summary row
func NewRow(assessment types.RiskAssessment) Row {
	return Row{
		VendorID:         assessment.VendorID,
		OverallScore:     assessment.OverallScore,
		RiskLevel:        assessment.RiskLevel,
		Scores:           assessment.Scores,
		Recommendation:   assessment.Recommendation,
		RequiresOverride: assessment.RequiresOverride,
		AssessedAt:       assessment.AssessedAt,
	}
}

// Summarize returns one row per vendor sorted by overall score descending,
// ties broken by vendor id ascending. An empty repository yields an empty slice.
func Summarize(ctx context.Context, repo repository.Repository) ([]Row, error) {
	latest, err := repo.AllLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest assessments: %w", err)
	}

	rows := make([]Row, 0, len(latest))
	for _, assessment := range latest {
		rows = append(rows, NewRow(assessment))
	}
	SortRows(rows)
	return rows, nil
}

// SortRows orders rows by overall score descending, then vendor id ascending
func SortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OverallScore != rows[j].OverallScore {
			return rows[i].OverallScore > rows[j].OverallScore
		}
		return rows[i].VendorID < rows[j].VendorID
	})
}

// FilterByLevel keeps rows at exactly the given risk level
func FilterByLevel(rows []Row, level types.RiskLevel) []Row {
	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row.RiskLevel == level {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// FilterAtLeast keeps rows whose risk level is minLevel or worse
func FilterAtLeast(rows []Row, minLevel types.RiskLevel) []Row {
	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row.RiskLevel.Rank() >= minLevel.Rank() {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// Trend returns a vendor's assessments oldest first with the score change between consecutive runs
func Trend(ctx context.Context, repo repository.Repository, vendorID string) ([]TrendPoint, error) {
	history, err := repo.History(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, len(history))
	for i, assessment := range history {
		point := TrendPoint{
			AssessmentID: assessment.ID,
			AssessedAt:   assessment.AssessedAt,
			OverallScore: assessment.OverallScore,
			RiskLevel:    assessment.RiskLevel,
		}
		if i > 0 {
			previous := history[i-1]
			delta := math.Round((assessment.OverallScore-previous.OverallScore)*10) / 10
			point.Delta = &delta
			point.LevelChanged = assessment.RiskLevel != previous.RiskLevel
		}
		points = append(points, point)
	}
	return points, nil
}
