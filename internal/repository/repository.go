// ABOUTME: Append-only store of risk assessments keyed by vendor.
// ABOUTME: Defines the Repository contract and the errors shared by every backend.

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jfeddern/VendorRisk/internal/types"
)

var (
	// ErrDuplicateAssessment is matched by every DuplicateAssessmentError
	ErrDuplicateAssessment = errors.New("duplicate assessment")
	// ErrVendorNotFound is matched by every VendorNotFoundError
	ErrVendorNotFound = errors.New("vendor not found")
)

// DuplicateAssessmentError reports a second record for the same vendor and instant
type DuplicateAssessmentError struct {
	VendorID   string
	AssessedAt time.Time
}

func (e *DuplicateAssessmentError) Error() string {
	return fmt.Sprintf("assessment for vendor %s at %s already recorded",
		e.VendorID, e.AssessedAt.UTC().Format(time.RFC3339Nano))
}

func (e *DuplicateAssessmentError) Unwrap() error {
	return ErrDuplicateAssessment
}

// VendorNotFoundError reports a vendor that has never been assessed
type VendorNotFoundError struct {
	VendorID string
}

func (e *VendorNotFoundError) Error() string {
	return fmt.Sprintf("no assessments recorded for vendor %s", e.VendorID)
}

func (e *VendorNotFoundError) Unwrap() error {
	return ErrVendorNotFound
}

// Repository keeps the assessment history of every vendor. History is
// append-only: there is no update or delete. Returned assessments are
// copies; mutating them never changes what is stored.
type Repository interface {
	// Record appends an assessment to its vendor's history
	Record(ctx context.Context, assessment types.RiskAssessment) error
	// Latest returns the most recently recorded assessment of a vendor
	Latest(ctx context.Context, vendorID string) (types.RiskAssessment, error)
	// History returns every assessment of a vendor, oldest first
	History(ctx context.Context, vendorID string) ([]types.RiskAssessment, error)
	// AllLatest returns the latest assessment of every known vendor
	AllLatest(ctx context.Context) (map[string]types.RiskAssessment, error)
}

func validateRecord(assessment types.RiskAssessment) error {
	if assessment.VendorID == "" {
		return &types.InvalidProfileError{Field: "vendor_id", Reason: "must not be empty"}
	}
	if assessment.AssessedAt.IsZero() {
		return &types.InvalidProfileError{Field: "assessed_at", Reason: "must be set"}
	}
	return nil
}
