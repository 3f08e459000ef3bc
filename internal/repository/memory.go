// ABOUTME: In-memory repository backend guarded by read/write and per-vendor locks.
// ABOUTME: Records for different vendors never contend; same-vendor records are totally ordered.

package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jfeddern/VendorRisk/internal/types"
	"github.com/sirupsen/logrus"
)

type vendorHistory struct {
	mutex       sync.RWMutex
	assessments []types.RiskAssessment
	recorded    map[int64]struct{}
}

// MemoryRepository keeps every vendor's history in process memory
type MemoryRepository struct {
	vendors map[string]*vendorHistory
	mutex   sync.RWMutex
	logger  *logrus.Logger
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository(logger *logrus.Logger) *MemoryRepository {
	return &MemoryRepository{
		vendors: make(map[string]*vendorHistory),
		logger:  logger,
	}
}

// normalize stores instants in UTC at the precision every backend keeps
func normalize(assessment types.RiskAssessment) types.RiskAssessment {
	stored := assessment.Clone()
	stored.AssessedAt = assessment.AssessedAt.UTC().Truncate(time.Microsecond)
	return stored
}

// Record appends an assessment, rejecting a second record at the same instant for the vendor
func (r *MemoryRepository) Record(ctx context.Context, assessment types.RiskAssessment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(assessment); err != nil {
		return err
	}

	stored := normalize(assessment)
	history := r.historyFor(stored.VendorID)

	history.mutex.Lock()
	defer history.mutex.Unlock()

	key := stored.AssessedAt.UnixNano()
	if _, exists := history.recorded[key]; exists {
		return &DuplicateAssessmentError{VendorID: stored.VendorID, AssessedAt: stored.AssessedAt}
	}
	history.recorded[key] = struct{}{}
	history.assessments = append(history.assessments, stored)

	r.logger.WithFields(logrus.Fields{
		"vendor_id":  stored.VendorID,
		"risk_level": stored.RiskLevel,
		"history":    len(history.assessments),
	}).Debug("Recorded assessment")

	return nil
}

// historyFor returns the vendor's history, creating it on first use
func (r *MemoryRepository) historyFor(vendorID string) *vendorHistory {
	r.mutex.RLock()
	history, exists := r.vendors[vendorID]
	r.mutex.RUnlock()
	if exists {
		return history
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Another writer may have created it between the two locks
	if history, exists = r.vendors[vendorID]; exists {
		return history
	}
	history = &vendorHistory{recorded: make(map[int64]struct{})}
	r.vendors[vendorID] = history
	return history
}

func (r *MemoryRepository) lookup(vendorID string) (*vendorHistory, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	history, exists := r.vendors[vendorID]
	return history, exists
}

// Latest returns the last assessment recorded for a vendor
func (r *MemoryRepository) Latest(ctx context.Context, vendorID string) (types.RiskAssessment, error) {
	if err := ctx.Err(); err != nil {
		return types.RiskAssessment{}, err
	}

	history, exists := r.lookup(vendorID)
	if !exists {
		return types.RiskAssessment{}, &VendorNotFoundError{VendorID: vendorID}
	}

	history.mutex.RLock()
	defer history.mutex.RUnlock()

	if len(history.assessments) == 0 {
		return types.RiskAssessment{}, &VendorNotFoundError{VendorID: vendorID}
	}
	return history.assessments[len(history.assessments)-1].Clone(), nil
}

// History returns a copy of a vendor's assessments in recording order
func (r *MemoryRepository) History(ctx context.Context, vendorID string) ([]types.RiskAssessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history, exists := r.lookup(vendorID)
	if !exists {
		return nil, &VendorNotFoundError{VendorID: vendorID}
	}

	history.mutex.RLock()
	defer history.mutex.RUnlock()

	if len(history.assessments) == 0 {
		return nil, &VendorNotFoundError{VendorID: vendorID}
	}

	result := make([]types.RiskAssessment, 0, len(history.assessments))
	for _, assessment := range history.assessments {
		result = append(result, assessment.Clone())
	}
	return result, nil
}

// AllLatest returns the most recent assessment of every vendor
func (r *MemoryRepository) AllLatest(ctx context.Context) (map[string]types.RiskAssessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	snapshot := make(map[string]*vendorHistory, len(r.vendors))
	for vendorID, history := range r.vendors {
		snapshot[vendorID] = history
	}
	r.mutex.RUnlock()

	result := make(map[string]types.RiskAssessment, len(snapshot))
	for vendorID, history := range snapshot {
		history.mutex.RLock()
		if n := len(history.assessments); n > 0 {
			result[vendorID] = history.assessments[n-1].Clone()
		}
		history.mutex.RUnlock()
	}
	return result, nil
}
