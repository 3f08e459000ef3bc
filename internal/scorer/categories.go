// ABOUTME: Rule-based point allocation for each of the five risk categories.
// ABOUTME: Each rule contributes points and a finding; category totals are clamped to [0, 100].

package scorer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jfeddern/VendorRisk/internal/types"
)

// hoursPerYearPercent converts one SLA percentage point into hours per year
const hoursPerYearPercent = 87.6

// uptimeTolerance guards SLA comparisons against float representation error
const uptimeTolerance = 1e-9

// certificationPoints awards points per held certification, capped at maxCertificationPoints
var certificationPoints = map[types.Certification]int{
	types.CertHIPAABAA: 15,
	types.CertPCIDSS:   15,
	types.CertFedRAMP:  10,
	types.CertISO27701: 10,
	types.CertHITRUST:  10,
	types.CertISO27017: 5,
	types.CertISO27018: 5,
	types.CertCSASTAR:  5,
}

const maxCertificationPoints = 40

type categoryResult struct {
	category types.Category
	points   int
	score    int
	findings []types.Finding
}

func newResult(category types.Category) *categoryResult {
	return &categoryResult{category: category}
}

func (r *categoryResult) add(points int, severity types.Severity, format string, args ...any) {
	r.points += points
	r.findings = append(r.findings, types.Finding{
		Category: r.category,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *categoryResult) finish() categoryResult {
	r.score = clamp(r.points)
	return *r
}

func clamp(points int) int {
	if points < 0 {
		return 0
	}
	if points > 100 {
		return 100
	}
	return points
}

// withinMonths reports whether date is no older than the given number of months at now
func withinMonths(date *time.Time, now time.Time, months int) bool {
	if date == nil {
		return false
	}
	return !date.AddDate(0, months, 0).Before(now)
}

func scoreSecurity(p types.SecurityProfile, now time.Time) categoryResult {
	r := newResult(types.CategorySecurity)

	switch {
	case withinMonths(p.SOC2ReportDate, now, 12):
		r.add(30, types.SeverityOK, "SOC 2 Type II report is current (within 12 months)")
	case withinMonths(p.SOC2ReportDate, now, 24):
		r.add(15, types.SeverityWarning, "SOC 2 report is 12-24 months old; request an updated report")
	case p.SOC2ReportDate == nil:
		r.add(0, types.SeverityCritical, "No SOC 2 report available")
	default:
		r.add(0, types.SeverityCritical, "SOC 2 report is older than 24 months")
	}

	if p.ISO27001Certified {
		r.add(20, types.SeverityOK, "ISO 27001 certified")
	} else {
		r.add(0, types.SeverityWarning, "Not ISO 27001 certified")
	}

	switch {
	case withinMonths(p.PenTestDate, now, 12):
		r.add(20, types.SeverityOK, "Penetration test performed within 12 months")
	case withinMonths(p.PenTestDate, now, 24):
		r.add(10, types.SeverityWarning, "Last penetration test is 12-24 months old")
	case p.PenTestDate == nil:
		r.add(0, types.SeverityCritical, "No penetration test on record")
	default:
		r.add(0, types.SeverityCritical, "Last penetration test is older than 24 months")
	}

	if p.BreachesLast3Years == 0 {
		r.add(30, types.SeverityOK, "No security breaches in the last 3 years")
	} else {
		penalty := 10 * p.BreachesLast3Years
		r.add(-penalty, types.SeverityCritical,
			"%d security breach(es) in the last 3 years (-%d points); a major breach should usually be escalated to rejection regardless of score",
			p.BreachesLast3Years, penalty)
	}

	return r.finish()
}

func scorePrivacy(p types.PrivacyProfile) categoryResult {
	r := newResult(types.CategoryPrivacy)

	switch {
	case p.GDPRCompliant && p.DPAAvailable:
		r.add(40, types.SeverityOK, "GDPR compliant with a Data Processing Agreement available")
	case p.GDPRCompliant:
		r.add(20, types.SeverityCritical, "GDPR compliant but no Data Processing Agreement available; urgent contractual gap")
	case p.EUPersonalDataInScope():
		r.add(0, types.SeverityBlocking, "Not GDPR compliant; vendor cannot be used for EU personal data")
	default:
		r.add(0, types.SeverityWarning, "Not GDPR compliant (EU personal data declared out of scope)")
	}

	switch {
	case p.DataHandlingMaturity >= 2:
		r.add(30, types.SeverityOK, "Mature data handling policy (level %d of 3)", p.DataHandlingMaturity)
	case p.DataHandlingMaturity == 1:
		r.add(15, types.SeverityWarning, "Basic data handling policy (level 1 of 3)")
	default:
		r.add(0, types.SeverityCritical, "No documented data handling policy")
	}

	switch p.DeletionProcess {
	case types.DeletionAutomatedVerified:
		r.add(20, types.SeverityOK, "Automated data deletion with verification")
	case types.DeletionManual:
		r.add(10, types.SeverityWarning, "Manual data deletion process")
	default:
		r.add(0, types.SeverityCritical, "No data deletion process")
	}

	switch p.AccessControls {
	case types.AccessStrong:
		r.add(10, types.SeverityOK, "Strong access controls")
	case types.AccessBasic:
		r.add(5, types.SeverityWarning, "Basic access controls")
	default:
		r.add(0, types.SeverityCritical, "Weak access controls")
	}

	return r.finish()
}

func scoreCompliance(p types.ComplianceProfile, now time.Time) categoryResult {
	r := newResult(types.CategoryCompliance)

	held := make(map[types.Certification]bool)
	for _, cert := range p.Certifications {
		held[cert] = true
	}
	if len(held) == 0 {
		r.add(0, types.SeverityWarning, "No industry certifications")
	} else {
		names := make([]string, 0, len(held))
		total := 0
		for cert := range held {
			names = append(names, string(cert))
			total += certificationPoints[cert]
		}
		sort.Strings(names)

		points := total
		if points > maxCertificationPoints {
			points = maxCertificationPoints
		}
		r.add(points, types.SeverityOK, "Certifications held: %s (+%d points, capped at %d)",
			strings.Join(names, ", "), points, maxCertificationPoints)
	}

	switch {
	case withinMonths(p.LastAuditReportDate, now, 6):
		r.add(30, types.SeverityOK, "Audit report is current (within 6 months)")
	case withinMonths(p.LastAuditReportDate, now, 12):
		r.add(15, types.SeverityWarning, "Audit report is 6-12 months old")
	case p.LastAuditReportDate == nil:
		r.add(0, types.SeverityCritical, "No audit report available")
	default:
		r.add(0, types.SeverityCritical, "Audit report is older than 12 months")
	}

	switch p.NotificationProcess {
	case types.NotificationProactive:
		r.add(20, types.SeverityOK, "Proactive compliance notifications")
	case types.NotificationOnRequest:
		r.add(10, types.SeverityWarning, "Compliance information only on request")
	default:
		r.add(0, types.SeverityWarning, "Reactive compliance notifications only")
	}

	if p.ViolationsLast5Years == 0 {
		r.add(10, types.SeverityOK, "No regulatory violations in the last 5 years")
	} else {
		penalty := 10 * p.ViolationsLast5Years
		r.add(-penalty, types.SeverityCritical, "MAJOR RED FLAG: %d regulatory violation(s) in the last 5 years (-%d points)",
			p.ViolationsLast5Years, penalty)
	}

	return r.finish()
}

func scoreReliability(p types.ReliabilityProfile) categoryResult {
	r := newResult(types.CategoryReliability)
	sla := p.SLAPercentage

	switch {
	case sla >= 99.9:
		r.add(40, types.SeverityOK, "SLA of %.2f%% meets the 99.9%% target", sla)
	case sla >= 99.5:
		r.add(20, types.SeverityWarning, "SLA of %.2f%% is below the 99.9%% target", sla)
	case sla == 0:
		r.add(0, types.SeverityCritical, "No SLA committed")
	default:
		r.add(0, types.SeverityCritical, "SLA of %.2f%% is below 99.5%%", sla)
	}
	r.add(0, types.SeverityInfo, "SLA allows up to %.1f hours of downtime per year", (100-sla)*hoursPerYearPercent)

	actual := p.ActualUptime12Months
	switch {
	case sla == 0 || actual == 0:
		r.add(0, types.SeverityWarning, "Uptime cannot be verified against the SLA")
	case actual+uptimeTolerance >= sla:
		r.add(30, types.SeverityOK, "Actual uptime %.2f%% meets the committed SLA", actual)
	case actual+uptimeTolerance >= sla-0.5:
		r.add(15, types.SeverityWarning, "Actual uptime %.2f%% is slightly below the committed SLA", actual)
	default:
		r.add(0, types.SeverityCritical, "Actual uptime %.2f%% is well below the committed SLA", actual)
	}

	switch p.SupportResponseTime {
	case types.SupportUnderOneHour:
		r.add(20, types.SeverityOK, "Support responds within 1 hour")
	case types.SupportUnderFourHours:
		r.add(10, types.SeverityWarning, "Support responds within 4 hours")
	default:
		r.add(0, types.SeverityWarning, "Support response time exceeds 4 hours or is not committed")
	}

	switch p.DisasterRecoveryPlan {
	case types.DRTestedAnnually:
		r.add(10, types.SeverityOK, "Disaster recovery plan tested annually")
	case types.DRDocumented:
		r.add(5, types.SeverityWarning, "Disaster recovery plan documented but not tested")
	default:
		r.add(0, types.SeverityCritical, "No disaster recovery plan")
	}

	return r.finish()
}

func scoreDataResidency(p types.DataResidencyProfile) categoryResult {
	r := newResult(types.CategoryDataResidency)
	regions := len(p.DataCenterRegions)

	switch {
	case p.DataCenterSelectable && regions >= 3:
		r.add(40, types.SeverityOK, "Customer-selectable data centers across %d regions", regions)
	case hasEURegion(p.DataCenterRegions):
		r.add(20, types.SeverityWarning, "Fixed data center locations including an EU region")
	case regions == 0:
		r.add(0, types.SeverityCritical, "Data center locations unknown; residency cannot be verified")
	default:
		r.add(0, types.SeverityWarning, "No EU data center region among %s", strings.Join(p.DataCenterRegions, ", "))
	}

	if len(p.SubprocessorRegions) > 0 {
		r.add(30, types.SeverityOK, "Subprocessor locations disclosed: %s", strings.Join(p.SubprocessorRegions, ", "))
	} else {
		r.add(0, types.SeverityCritical, "Subprocessor locations undisclosed; compliance risk")
	}

	if p.SCCAvailable {
		r.add(20, types.SeverityOK, "Standard Contractual Clauses available")
	} else {
		r.add(0, types.SeverityCritical, "No Standard Contractual Clauses; GDPR transfer risk")
	}

	switch p.LocalizationSupport {
	case types.LocalizationFull:
		r.add(10, types.SeverityOK, "Full data localization support")
	case types.LocalizationPartial:
		r.add(5, types.SeverityWarning, "Partial data localization support")
	default:
		r.add(0, types.SeverityWarning, "No data localization support")
	}

	return r.finish()
}

var euRegionMarkers = []string{
	"europe", "germany", "france", "sweden", "italy", "spain", "poland",
	"ireland", "netherlands", "belgium", "austria", "finland", "denmark",
}

// hasEURegion matches cloud-style region names such as eu-west-1, westeurope or germanywestcentral
func hasEURegion(regions []string) bool {
	for _, region := range regions {
		name := strings.ToLower(strings.TrimSpace(region))
		if name == "eu" || strings.HasPrefix(name, "eu-") {
			return true
		}
		for _, marker := range euRegionMarkers {
			if strings.Contains(name, marker) {
				return true
			}
		}
	}
	return false
}
