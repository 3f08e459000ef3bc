// ABOUTME: Main assessment engine that orchestrates profile sources, the scorer and the repository.
// ABOUTME: Periodically fetches vendor profiles, assesses them concurrently and records the results.

package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jfeddern/VendorRisk/internal/cache"
	"github.com/jfeddern/VendorRisk/internal/repository"
	"github.com/jfeddern/VendorRisk/internal/types"
	"github.com/sirupsen/logrus"
)

const defaultMaxConcurrency = 10

// ProfileSource abstracts where vendor profile snapshots come from (file, cluster, object storage)
type ProfileSource interface {
	Name() string
	ListProfiles(ctx context.Context) ([]types.VendorRecord, error)
}

// Assessor turns a profile into an assessment
type Assessor interface {
	Assess(vendorID string, profile types.VendorProfile) (types.RiskAssessment, error)
}

// Config holds configuration for the assessment engine and the service around it
type Config struct {
	Mode           string
	Port           int
	ProfileFile    string
	Namespace      string
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	AssessInterval time.Duration
	Store          string
	DatabaseDSN    string
	CacheTTL       time.Duration // Enables the profile cache for on-demand assessment when positive
	MaxConcurrency int
	MockMode       bool // Enable the mock profile source for local testing
}

// RunStats summarises one assessment run
type RunStats struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Source     string        `json:"source"`
	Discovered int           `json:"discovered"`
	Assessed   int           `json:"assessed"`
	Invalid    int           `json:"invalid"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	// InvalidVendors lists the vendors whose profiles failed validation, sorted
	InvalidVendors []string `json:"invalid_vendors,omitempty"`
}

// Engine orchestrates vendor assessment using a pluggable profile source
type Engine struct {
	source     ProfileSource
	assessor   Assessor
	repository repository.Repository
	cache      *cache.ProfileCache // nil unless Config.CacheTTL is set
	config     *Config
	logger     *logrus.Logger

	mutex   sync.RWMutex
	lastRun RunStats
}

// NewEngine creates a new assessment engine
func NewEngine(source ProfileSource, assessor Assessor, repo repository.Repository, config *Config, logger *logrus.Logger) *Engine {
	engine := &Engine{
		source:     source,
		assessor:   assessor,
		repository: repo,
		config:     config,
		logger:     logger,
	}
	if config.CacheTTL > 0 {
		engine.cache = cache.NewProfileCache(config.CacheTTL, logger)
	}
	return engine
}

// Start runs an assessment immediately and then on every interval until ctx is cancelled
func (e *Engine) Start(ctx context.Context) {
	logger := e.logger.WithField("component", "assessment_engine")

	if _, err := e.RunOnce(ctx); err != nil {
		logger.WithError(err).Error("Initial vendor assessment failed")
	}

	ticker := time.NewTicker(e.config.AssessInterval)
	defer ticker.Stop()

	logger.WithField("interval", e.config.AssessInterval).Info("Starting periodic vendor assessment")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Assessment engine stopping")
			e.Close()
			return
		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				logger.WithError(err).Error("Vendor assessment failed")
			}
		}
	}
}

// RunOnce lists every profile from the source, assesses each one and records the results.
// Invalid profiles and duplicate records are logged and counted, never fatal.
func (e *Engine) RunOnce(ctx context.Context) (RunStats, error) {
	logger := e.logger.WithFields(logrus.Fields{
		"operation": "assess_vendors",
		"source":    e.source.Name(),
	})
	stats := RunStats{StartedAt: time.Now(), Source: e.source.Name()}

	logger.Info("Starting vendor assessment run")

	records, err := e.source.ListProfiles(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list profiles from %s: %w", e.source.Name(), err)
	}
	stats.Discovered = len(records)
	if e.cache != nil {
		e.cache.Replace(e.source.Name(), records)
	}

	logger.WithField("vendor_count", len(records)).Info("Discovered vendor profiles")

	limit := e.config.MaxConcurrency
	if limit <= 0 {
		limit = defaultMaxConcurrency
	}
	semaphore := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, record := range records {
		wg.Add(1)
		go func(record types.VendorRecord) {
			defer wg.Done()

			semaphore <- struct{}{}        // Acquire semaphore
			defer func() { <-semaphore }() // Release semaphore

			_, err := e.assessAndRecord(ctx, record)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				stats.Assessed++
			case errors.Is(err, types.ErrInvalidProfile):
				stats.Invalid++
				stats.InvalidVendors = append(stats.InvalidVendors, record.VendorID)
			case errors.Is(err, repository.ErrDuplicateAssessment):
				stats.Duplicates++
			default:
				stats.Failed++
			}
		}(record)
	}

	wg.Wait()

	sort.Strings(stats.InvalidVendors)
	stats.Duration = time.Since(stats.StartedAt)

	e.mutex.Lock()
	e.lastRun = stats
	e.mutex.Unlock()

	logger.WithFields(logrus.Fields{
		"duration":   stats.Duration,
		"discovered": stats.Discovered,
		"assessed":   stats.Assessed,
		"invalid":    stats.Invalid,
		"duplicates": stats.Duplicates,
		"failed":     stats.Failed,
	}).Info("Vendor assessment run completed")

	return stats, nil
}

func (e *Engine) assessAndRecord(ctx context.Context, record types.VendorRecord) (types.RiskAssessment, error) {
	logger := e.logger.WithField("vendor_id", record.VendorID)

	assessment, err := e.assessor.Assess(record.VendorID, record.Profile)
	if err != nil {
		logger.WithError(err).Warn("Skipping vendor with invalid profile")
		return types.RiskAssessment{}, err
	}

	if err := e.repository.Record(ctx, assessment); err != nil {
		if errors.Is(err, repository.ErrDuplicateAssessment) {
			logger.WithError(err).Warn("Assessment already recorded")
		} else {
			logger.WithError(err).Error("Failed to record assessment")
		}
		return types.RiskAssessment{}, err
	}

	logger.WithFields(logrus.Fields{
		"overall_score":     assessment.OverallScore,
		"risk_level":        assessment.RiskLevel,
		"requires_override": assessment.RequiresOverride,
	}).Debug("Vendor assessed")

	return assessment, nil
}

// AssessVendor re-assesses one vendor on demand. A cached profile snapshot is
// used when still fresh; otherwise the source is listed again.
func (e *Engine) AssessVendor(ctx context.Context, vendorID string) (types.RiskAssessment, error) {
	record, err := e.profileFor(ctx, vendorID)
	if err != nil {
		return types.RiskAssessment{}, err
	}
	return e.assessAndRecord(ctx, record)
}

func (e *Engine) profileFor(ctx context.Context, vendorID string) (types.VendorRecord, error) {
	if e.cache != nil {
		if snapshot, ok := e.cache.Lookup(vendorID); ok {
			return types.VendorRecord{VendorID: vendorID, Profile: snapshot.Profile}, nil
		}
	}

	records, err := e.source.ListProfiles(ctx)
	if err != nil {
		return types.VendorRecord{}, fmt.Errorf("failed to list profiles from %s: %w", e.source.Name(), err)
	}
	if e.cache != nil {
		e.cache.Replace(e.source.Name(), records)
	}

	for _, record := range records {
		if record.VendorID == vendorID {
			return record, nil
		}
	}
	return types.VendorRecord{}, &repository.VendorNotFoundError{VendorID: vendorID}
}

// CacheStats reports profile cache usage; ok is false when caching is disabled
func (e *Engine) CacheStats() (stats cache.Stats, ok bool) {
	if e.cache == nil {
		return cache.Stats{}, false
	}
	return e.cache.Stats(), true
}

// Repository exposes the assessment store to the HTTP and metrics layers
func (e *Engine) Repository() repository.Repository {
	return e.repository
}

// LastRun returns the statistics of the most recent completed run
func (e *Engine) LastRun() RunStats {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.lastRun
}

// SourceName returns the configured profile source name
func (e *Engine) SourceName() string {
	return e.source.Name()
}

// Close releases background resources
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}
