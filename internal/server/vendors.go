// ABOUTME: HTTP handlers for the vendor risk endpoints.
// ABOUTME: Serves the portfolio summary, latest assessment, history and score trend as JSON.

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jfeddern/VendorRisk/internal/engine"
	"github.com/jfeddern/VendorRisk/internal/report"
	"github.com/jfeddern/VendorRisk/internal/repository"
	"github.com/jfeddern/VendorRisk/internal/types"

	"github.com/sirupsen/logrus"
)

const (
	maxLimit        = 10000
	maxVendorIDSize = 200
)

type VendorDataProvider interface {
	Repository() repository.Repository
	LastRun() engine.RunStats
}

type VendorsHandler struct {
	provider VendorDataProvider
	logger   *logrus.Logger
}

type VendorsResponse struct {
	Vendors     []report.Row  `json:"vendors"`
	Summary     VendorSummary `json:"summary"`
	LastUpdated string        `json:"last_updated"`
}

type VendorSummary struct {
	TotalVendors      int            `json:"total_vendors"`
	RiskBreakdown     map[string]int `json:"risk_breakdown"`
	RequiringOverride int            `json:"requiring_override"`
}

type HistoryResponse struct {
	VendorID    string                 `json:"vendor_id"`
	Assessments []types.RiskAssessment `json:"assessments"`
}

type TrendResponse struct {
	VendorID string              `json:"vendor_id"`
	Points   []report.TrendPoint `json:"points"`
}

func NewVendorsHandler(provider VendorDataProvider, logger *logrus.Logger) *VendorsHandler {
	return &VendorsHandler{
		provider: provider,
		logger:   logger,
	}
}

// Register mounts the vendor endpoints on mux, each wrapped by middleware
func (v *VendorsHandler) Register(mux *http.ServeMux, middleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/vendors", middleware(v.ServeSummary))
	mux.HandleFunc("/vendors/{id}", middleware(v.ServeLatest))
	mux.HandleFunc("/vendors/{id}/history", middleware(v.ServeHistory))
	mux.HandleFunc("/vendors/{id}/trend", middleware(v.ServeTrend))
}

func (v *VendorsHandler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	logger := v.logger.WithField("endpoint", "/vendors")

	levelParam := strings.TrimSpace(r.URL.Query().Get("risk_level"))
	limitParam := strings.TrimSpace(r.URL.Query().Get("limit"))

	var levelFilter types.RiskLevel
	if levelParam != "" {
		level, ok := types.ParseRiskLevel(levelParam)
		if !ok {
			http.Error(w, "Invalid risk_level filter. Must be one of: LOW, MEDIUM, HIGH, CRITICAL", http.StatusBadRequest)
			return
		}
		levelFilter = level
	}

	limit := 0 // No limit by default
	if limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit parameter. Must be a positive integer", http.StatusBadRequest)
			return
		}
		if parsed > maxLimit {
			http.Error(w, "Limit parameter too large. Maximum allowed is 10000", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	rows, err := report.Summarize(r.Context(), v.provider.Repository())
	if err != nil {
		logger.WithError(err).Error("Failed to build vendor summary")
		http.Error(w, "Failed to load assessments", http.StatusInternalServerError)
		return
	}

	logger.WithFields(logrus.Fields{
		"risk_level_filter": levelFilter,
		"limit":             limit,
		"total_vendors":     len(rows),
	}).Debug("Processing vendors request")

	summary := VendorSummary{
		TotalVendors:  len(rows),
		RiskBreakdown: make(map[string]int),
	}
	for _, row := range rows {
		summary.RiskBreakdown[string(row.RiskLevel)]++
		if row.RequiresOverride {
			summary.RequiringOverride++
		}
	}

	if levelFilter != "" {
		rows = report.FilterByLevel(rows, levelFilter)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	response := VendorsResponse{
		Vendors: rows,
		Summary: summary,
	}
	if lastRun := v.provider.LastRun(); !lastRun.StartedAt.IsZero() {
		response.LastUpdated = lastRun.StartedAt.UTC().Format(time.RFC3339)
	}

	v.writeJSON(w, r, logger, response)
}

func (v *VendorsHandler) ServeLatest(w http.ResponseWriter, r *http.Request) {
	logger := v.logger.WithField("endpoint", "/vendors/{id}")

	vendorID, ok := vendorIDFromPath(w, r)
	if !ok {
		return
	}

	assessment, err := v.provider.Repository().Latest(r.Context(), vendorID)
	if err != nil {
		v.writeLookupError(w, logger.WithField("vendor_id", vendorID), err)
		return
	}

	v.writeJSON(w, r, logger, assessment)
}

func (v *VendorsHandler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	logger := v.logger.WithField("endpoint", "/vendors/{id}/history")

	vendorID, ok := vendorIDFromPath(w, r)
	if !ok {
		return
	}

	history, err := v.provider.Repository().History(r.Context(), vendorID)
	if err != nil {
		v.writeLookupError(w, logger.WithField("vendor_id", vendorID), err)
		return
	}

	v.writeJSON(w, r, logger, HistoryResponse{VendorID: vendorID, Assessments: history})
}

func (v *VendorsHandler) ServeTrend(w http.ResponseWriter, r *http.Request) {
	logger := v.logger.WithField("endpoint", "/vendors/{id}/trend")

	vendorID, ok := vendorIDFromPath(w, r)
	if !ok {
		return
	}

	points, err := report.Trend(r.Context(), v.provider.Repository(), vendorID)
	if err != nil {
		v.writeLookupError(w, logger.WithField("vendor_id", vendorID), err)
		return
	}

	v.writeJSON(w, r, logger, TrendResponse{VendorID: vendorID, Points: points})
}

func vendorIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	vendorID := strings.TrimSpace(r.PathValue("id"))
	if vendorID == "" {
		http.Error(w, "Vendor id is required", http.StatusBadRequest)
		return "", false
	}
	// Bound the id length to keep lookups and log lines small
	if len(vendorID) > maxVendorIDSize {
		http.Error(w, "Vendor id too long. Maximum allowed is 200 characters", http.StatusBadRequest)
		return "", false
	}
	return vendorID, true
}

func (v *VendorsHandler) writeLookupError(w http.ResponseWriter, logger *logrus.Entry, err error) {
	if errors.Is(err, repository.ErrVendorNotFound) {
		http.Error(w, "Vendor not found", http.StatusNotFound)
		return
	}
	logger.WithError(err).Error("Failed to load assessments")
	http.Error(w, "Failed to load assessments", http.StatusInternalServerError)
}

func (v *VendorsHandler) writeJSON(w http.ResponseWriter, r *http.Request, logger *logrus.Entry, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	if r.URL.Query().Get("pretty") != "" {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(payload); err != nil {
		logger.WithError(err).Error("Failed to encode response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
