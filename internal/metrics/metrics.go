// ABOUTME: Prometheus metrics exposition for vendor risk assessments.
// ABOUTME: Builds per-vendor score, risk level and findings gauges for the /metrics endpoint.

package metrics

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jfeddern/VendorRisk/internal/engine"
	"github.com/jfeddern/VendorRisk/internal/repository"
	"github.com/jfeddern/VendorRisk/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type VendorDataProvider interface {
	Repository() repository.Repository
	LastRun() engine.RunStats
}

type MetricsHandler struct {
	provider VendorDataProvider
	logger   *logrus.Logger
}

// vendorMetrics holds one scrape's gauges; a fresh set is built per request
type vendorMetrics struct {
	overallScore     *prometheus.GaugeVec
	categoryScore    *prometheus.GaugeVec
	riskLevel        *prometheus.GaugeVec
	requiresOverride *prometheus.GaugeVec
	findings         *prometheus.GaugeVec
	policyViolation  *prometheus.GaugeVec
	lastAssessment   *prometheus.GaugeVec
	collectionInfo   *prometheus.GaugeVec
}

func newVendorMetrics() *vendorMetrics {
	return &vendorMetrics{
		overallScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vendorrisk_vendor_overall_score",
				Help: "Weighted overall risk score of the latest vendor assessment (0-100, higher is safer)",
			},
			[]string{"vendor_id"},
		),

		categoryScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vendorrisk_vendor_category_score",
				Help: "Category sub-score of the latest vendor assessment (0-100)",
			},
			[]string{"vendor_id", "category"},
		),

		riskLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vendorrisk_vendor_risk_level",
				Help: "Risk level of the latest vendor assessment (1=LOW, 2=MEDIUM, 3=HIGH, 4=CRITICAL)",
			},
			[]string{"vendor_id", "risk_level"},
		),

		requiresOverride: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vendorrisk_vendor_requires_override",
				Help: "Whether a policy gate blocks approval without explicit override (1=yes, 0=no)",
			},
			[]string{"vendor_id"},
		),

		findings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vendorrisk_vendor_findings",
				Help: "Number of findings in the latest vendor assessment by category and severity",
			},
			[]string{"vendor_id", "category", "severity"},
		),

		policyViolation: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vendorrisk_vendor_policy_violation",
				Help: "Active policy gates on the latest vendor assessment (always 1 when present)",
			},
			[]string{"vendor_id", "gate", "category"},
		),

		lastAssessment: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vendorrisk_vendor_last_assessment_timestamp",
				Help: "Timestamp of the latest vendor assessment",
			},
			[]string{"vendor_id"},
		),

		collectionInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vendorrisk_assessment_run_info",
				Help: "Information about the most recent assessment run",
			},
			[]string{"info_type"},
		),
	}
}

func (v *vendorMetrics) register(registry *prometheus.Registry) {
	registry.MustRegister(
		v.overallScore,
		v.categoryScore,
		v.riskLevel,
		v.requiresOverride,
		v.findings,
		v.policyViolation,
		v.lastAssessment,
		v.collectionInfo,
	)
}

func (v *vendorMetrics) observe(assessment types.RiskAssessment) {
	vendorID := sanitizeLabelValue(assessment.VendorID)

	v.overallScore.WithLabelValues(vendorID).Set(assessment.OverallScore)
	for _, category := range types.Categories {
		v.categoryScore.WithLabelValues(vendorID, string(category)).Set(float64(assessment.Scores.Get(category)))
	}
	v.riskLevel.WithLabelValues(vendorID, string(assessment.RiskLevel)).Set(float64(assessment.RiskLevel.Rank()))
	v.lastAssessment.WithLabelValues(vendorID).Set(float64(assessment.AssessedAt.Unix()))

	override := float64(0)
	if assessment.RequiresOverride {
		override = 1
	}
	v.requiresOverride.WithLabelValues(vendorID).Set(override)

	for _, finding := range assessment.Findings {
		v.findings.WithLabelValues(vendorID, string(finding.Category), string(finding.Severity)).Inc()
	}
	for _, violation := range assessment.PolicyViolations {
		v.policyViolation.WithLabelValues(vendorID, string(violation.Gate), string(violation.Category)).Set(1)
	}
}

func NewMetricsHandler(provider VendorDataProvider, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		provider: provider,
		logger:   logger,
	}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Create a new registry for this request to avoid conflicts
	registry := prometheus.NewRegistry()
	gauges := newVendorMetrics()
	gauges.register(registry)

	latest, err := m.provider.Repository().AllLatest(r.Context())
	if err != nil {
		m.logger.WithError(err).Error("Failed to load assessments for metrics")
		http.Error(w, "Failed to load assessments", http.StatusInternalServerError)
		return
	}

	for _, assessment := range latest {
		gauges.observe(assessment)
	}

	lastRun := m.provider.LastRun()
	gauges.collectionInfo.WithLabelValues("vendors_monitored").Set(float64(len(latest)))
	if !lastRun.StartedAt.IsZero() {
		gauges.collectionInfo.WithLabelValues("last_run_timestamp").Set(float64(lastRun.StartedAt.Unix()))
		gauges.collectionInfo.WithLabelValues("last_run_duration_seconds").Set(lastRun.Duration.Seconds())
		gauges.collectionInfo.WithLabelValues("last_run_discovered").Set(float64(lastRun.Discovered))
		gauges.collectionInfo.WithLabelValues("last_run_assessed").Set(float64(lastRun.Assessed))
		gauges.collectionInfo.WithLabelValues("last_run_invalid").Set(float64(lastRun.Invalid))
		gauges.collectionInfo.WithLabelValues("last_run_duplicates").Set(float64(lastRun.Duplicates))
		gauges.collectionInfo.WithLabelValues("last_run_failed").Set(float64(lastRun.Failed))
	}

	// Serve metrics
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	handler.ServeHTTP(w, r)
}

const maxLabelValueBytes = 200

// sanitizeLabelValue cleans strings for use as Prometheus labels
func sanitizeLabelValue(value string) string {
	if value == "" {
		return "unknown"
	}

	// Prometheus rejects label values that are not valid UTF-8
	value = strings.ToValidUTF8(value, "\uFFFD")

	// Remove newlines and carriage returns
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")

	// Limit length to prevent excessive label sizes
	if len(value) > maxLabelValueBytes {
		cut := maxLabelValueBytes
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		value = value[:cut] + "..."
	}

	return strings.TrimSpace(value)
}

// CreateMetricsHandler creates a standard HTTP handler that can be used with http.ServeMux
func CreateMetricsHandler(dataProvider VendorDataProvider, logger *logrus.Logger) http.HandlerFunc {
	metricsHandler := NewMetricsHandler(dataProvider, logger)
	return metricsHandler.ServeHTTP
}
