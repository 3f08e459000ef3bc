// ABOUTME: Risk assessment records produced by the scorer and kept by the repository.
// ABOUTME: Defines categories, findings, risk levels and the immutable assessment record.

package types

import (
	"strings"
	"time"
)

// Category identifies one of the five scored risk categories
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryPrivacy       Category = "privacy"
	CategoryCompliance    Category = "compliance"
	CategoryReliability   Category = "reliability"
	CategoryDataResidency Category = "data_residency"
)

// Categories lists the scored categories in reporting order
var Categories = []Category{
	CategorySecurity,
	CategoryPrivacy,
	CategoryCompliance,
	CategoryReliability,
	CategoryDataResidency,
}

// Severity is the marker attached to a finding
type Severity string

const (
	SeverityOK       Severity = "OK"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
	SeverityBlocking Severity = "BLOCKING"
)

// RiskLevel is the four-tier classification derived from the overall score
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Label returns the display form, e.g. "LOW RISK"
func (r RiskLevel) Label() string {
	return string(r) + " RISK"
}

// Rank orders risk levels from LOW (1) to CRITICAL (4); unknown levels rank 0
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// ParseRiskLevel accepts "LOW", "low" or "LOW RISK" style input
func ParseRiskLevel(value string) (RiskLevel, bool) {
	level := RiskLevel(normalizeLevel(value))
	if level.Rank() == 0 {
		return "", false
	}
	return level, true
}

func normalizeLevel(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	return strings.TrimSpace(strings.TrimSuffix(value, "RISK"))
}

// Finding is a single observation made while scoring a category
type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// PolicyGate names a hard constraint that overrides the numeric score
type PolicyGate string

const (
	GateGDPRAbsent         PolicyGate = "gdpr_absent"
	GateRepeatedBreaches   PolicyGate = "repeated_breaches"
	GateRepeatedViolations PolicyGate = "repeated_violations"
)

// PolicyViolation is an active hard-constraint gate on an assessment
type PolicyViolation struct {
	Gate     PolicyGate `json:"gate"`
	Category Category   `json:"category"`
	Message  string     `json:"message"`
}

// CategoryScores holds the five sub-scores, each in [0, 100]
type CategoryScores struct {
	Security      int `json:"security"`
	Privacy       int `json:"privacy"`
	Compliance    int `json:"compliance"`
	Reliability   int `json:"reliability"`
	DataResidency int `json:"data_residency"`
}

// Get returns the score for a category
func (s CategoryScores) Get(category Category) int {
	switch category {
	case CategorySecurity:
		return s.Security
	case CategoryPrivacy:
		return s.Privacy
	case CategoryCompliance:
		return s.Compliance
	case CategoryReliability:
		return s.Reliability
	case CategoryDataResidency:
		return s.DataResidency
	default:
		return 0
	}
}

// RiskAssessment is an immutable, point-in-time result for one vendor.
// A re-assessment produces a new record; records are never edited.
type RiskAssessment struct {
	ID               string            `json:"id"`
	VendorID         string            `json:"vendor_id"`
	AssessedAt       time.Time         `json:"assessed_at"`
	Scores           CategoryScores    `json:"scores"`
	Findings         []Finding         `json:"findings"`
	OverallScore     float64           `json:"overall_score"`
	RiskLevel        RiskLevel         `json:"risk_level"`
	Recommendation   string            `json:"recommendation"`
	PolicyViolations []PolicyViolation `json:"policy_violations"`
	RequiresOverride bool              `json:"requires_override"`
}

// Clone returns a deep copy so callers cannot mutate stored records
func (a RiskAssessment) Clone() RiskAssessment {
	clone := a
	if a.Findings != nil {
		clone.Findings = make([]Finding, len(a.Findings))
		copy(clone.Findings, a.Findings)
	}
	if a.PolicyViolations != nil {
		clone.PolicyViolations = make([]PolicyViolation, len(a.PolicyViolations))
		copy(clone.PolicyViolations, a.PolicyViolations)
	}
	return clone
}

// FindingsFor returns the findings recorded for one category
func (a RiskAssessment) FindingsFor(category Category) []Finding {
	var findings []Finding
	for _, finding := range a.Findings {
		if finding.Category == category {
			findings = append(findings, finding)
		}
	}
	return findings
}

// HasBlockingFinding reports whether any finding carries the BLOCKING marker
func (a RiskAssessment) HasBlockingFinding() bool {
	for _, finding := range a.Findings {
		if finding.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}

// SeverityCounts tallies findings by severity marker
func (a RiskAssessment) SeverityCounts() map[Severity]int {
	counts := make(map[Severity]int)
	for _, finding := range a.Findings {
		counts[finding.Severity]++
	}
	return counts
}
