// ABOUTME: Risk scorer converting a vendor profile into a risk assessment.
// ABOUTME: Scores five categories, weights them, classifies the result and applies policy gates.

package scorer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jfeddern/VendorRisk/internal/types"
)

// Category weights in percent. They must sum to 100.
var weightPercents = map[types.Category]int{
	types.CategorySecurity:      30,
	types.CategoryPrivacy:       25,
	types.CategoryCompliance:    20,
	types.CategoryReliability:   15,
	types.CategoryDataResidency: 10,
}

// Weight returns the fractional weight of a category in the overall score
func Weight(category types.Category) float64 {
	return float64(weightPercents[category]) / 100
}

// Weights returns a copy of all category weights
func Weights() map[types.Category]float64 {
	weights := make(map[types.Category]float64, len(weightPercents))
	for category := range weightPercents {
		weights[category] = Weight(category)
	}
	return weights
}

// Scorer evaluates vendor profiles. It performs no I/O; the clock is the only
// external input and is used for recency tiers and the assessment timestamp.
type Scorer struct {
	now   func() time.Time
	newID func() string
}

// NewScorer creates a scorer using the wall clock
func NewScorer() *Scorer {
	return NewScorerWithClock(time.Now)
}

// NewScorerWithClock creates a scorer with an injected clock
func NewScorerWithClock(now func() time.Time) *Scorer {
	return &Scorer{
		now:   now,
		newID: uuid.NewString,
	}
}

// Assess scores a profile and returns a fully populated assessment.
// It fails only when the vendor id is empty or the profile carries an invalid value.
func (s *Scorer) Assess(vendorID string, profile types.VendorProfile) (types.RiskAssessment, error) {
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		return types.RiskAssessment{}, &types.InvalidProfileError{
			Field:  "vendor_id",
			Value:  vendorID,
			Reason: "must not be empty",
		}
	}

	if err := profile.Validate(); err != nil {
		return types.RiskAssessment{}, err
	}
	profile = profile.WithDefaults()

	// Postgres keeps microseconds; truncate so every backend round-trips the same instant
	assessedAt := s.now().UTC().Truncate(time.Microsecond)

	security := scoreSecurity(profile.Security, assessedAt)
	privacy := scorePrivacy(profile.Privacy)
	compliance := scoreCompliance(profile.Compliance, assessedAt)
	reliability := scoreReliability(profile.Reliability)
	residency := scoreDataResidency(profile.DataResidency)

	scores := types.CategoryScores{
		Security:      security.score,
		Privacy:       privacy.score,
		Compliance:    compliance.score,
		Reliability:   reliability.score,
		DataResidency: residency.score,
	}

	var findings []types.Finding
	for _, result := range []categoryResult{security, privacy, compliance, reliability, residency} {
		findings = append(findings, result.findings...)
	}

	overall := OverallScore(scores)
	level, recommendation := Classify(overall)
	violations := evaluatePolicyGates(profile)
	requiresOverride := len(violations) > 0
	if requiresOverride {
		recommendation = gatedRecommendation(level, recommendation, violations)
	}

	return types.RiskAssessment{
		ID:               s.newID(),
		VendorID:         vendorID,
		AssessedAt:       assessedAt,
		Scores:           scores,
		Findings:         findings,
		OverallScore:     overall,
		RiskLevel:        level,
		Recommendation:   recommendation,
		PolicyViolations: violations,
		RequiresOverride: requiresOverride,
	}, nil
}

// OverallScore is the weighted sum of the category scores rounded to one decimal
func OverallScore(scores types.CategoryScores) float64 {
	weighted := 0
	for _, category := range types.Categories {
		weighted += scores.Get(category) * weightPercents[category]
	}
	return math.Round(float64(weighted)/10) / 10
}

// Classify maps an overall score onto a risk level and its base recommendation
func Classify(overall float64) (types.RiskLevel, string) {
	switch {
	case overall >= 90:
		return types.RiskLow, "Approved"
	case overall >= 70:
		return types.RiskMedium, "Approved with conditions"
	case overall >= 50:
		return types.RiskHigh, "Additional controls required before approval"
	default:
		return types.RiskCritical, "Rejected; seek alternative vendor"
	}
}

func gatedRecommendation(level types.RiskLevel, base string, violations []types.PolicyViolation) string {
	gates := make([]string, 0, len(violations))
	for _, violation := range violations {
		gates = append(gates, string(violation.Gate))
	}
	reason := strings.Join(gates, ", ")

	switch level {
	case types.RiskLow, types.RiskMedium:
		return fmt.Sprintf("Do not approve without explicit override (policy gates: %s)", reason)
	default:
		return fmt.Sprintf("%s; policy gates active: %s", base, reason)
	}
}
