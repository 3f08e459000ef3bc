// ABOUTME: Behavioural tests run against every repository backend.
// ABOUTME: Covers append order, duplicates, not-found handling and copy semantics.

package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jfeddern/VendorRisk/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newAssessment(vendorID string, offset time.Duration, overall float64, level types.RiskLevel) types.RiskAssessment {
	return types.RiskAssessment{
		ID:         fmt.Sprintf("%s-%d", vendorID, offset/time.Hour),
		VendorID:   vendorID,
		AssessedAt: baseTime.Add(offset),
		Scores: types.CategoryScores{
			Security:      80,
			Privacy:       70,
			Compliance:    60,
			Reliability:   50,
			DataResidency: 40,
		},
		Findings: []types.Finding{
			{Category: types.CategorySecurity, Severity: types.SeverityOK, Message: "ISO 27001 certified"},
			{Category: types.CategoryPrivacy, Severity: types.SeverityBlocking, Message: "Not GDPR compliant"},
		},
		OverallScore:     overall,
		RiskLevel:        level,
		Recommendation:   "Approved with conditions",
		PolicyViolations: []types.PolicyViolation{},
	}
}

type backendFactory func(t *testing.T) Repository

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"memory": func(t *testing.T) Repository {
			return NewMemoryRepository(testLogger())
		},
		"sqlite": func(t *testing.T) Repository {
			repo, err := OpenDatabase(DialectSQLite, filepath.Join(t.TempDir(), "assessments.db"), testLogger())
			require.NoError(t, err)
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		},
	}
}

func forEachBackend(t *testing.T, test func(t *testing.T, repo Repository)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			test(t, factory(t))
		})
	}
}

func TestRecordAndLatest(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		first := newAssessment("acme", 0, 72.5, types.RiskMedium)
		second := newAssessment("acme", 24*time.Hour, 91.0, types.RiskLow)

		require.NoError(t, repo.Record(ctx, first))
		require.NoError(t, repo.Record(ctx, second))

		latest, err := repo.Latest(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, second, latest)
	})
}

func TestHistoryIsOldestFirst(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		expected := []types.RiskAssessment{
			newAssessment("acme", 0, 40.0, types.RiskCritical),
			newAssessment("acme", time.Hour, 55.5, types.RiskHigh),
			newAssessment("acme", 2*time.Hour, 71.2, types.RiskMedium),
		}
		for _, assessment := range expected {
			require.NoError(t, repo.Record(ctx, assessment))
		}
		require.NoError(t, repo.Record(ctx, newAssessment("other", 0, 99.0, types.RiskLow)))

		history, err := repo.History(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, expected, history)
	})
}

func TestInsertionOrderDefinesLatest(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		later := newAssessment("acme", 48*time.Hour, 90.0, types.RiskLow)
		backfilled := newAssessment("acme", time.Hour, 60.0, types.RiskHigh)

		require.NoError(t, repo.Record(ctx, later))
		require.NoError(t, repo.Record(ctx, backfilled))

		latest, err := repo.Latest(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, backfilled.ID, latest.ID)
	})
}

func TestDuplicateAssessmentRejected(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		original := newAssessment("acme", 0, 80.0, types.RiskMedium)
		require.NoError(t, repo.Record(ctx, original))

		duplicate := newAssessment("acme", 0, 10.0, types.RiskCritical)
		duplicate.ID = "another-id"
		err := repo.Record(ctx, duplicate)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicateAssessment))

		var dupErr *DuplicateAssessmentError
		require.True(t, errors.As(err, &dupErr))
		assert.Equal(t, "acme", dupErr.VendorID)
		assert.True(t, baseTime.Equal(dupErr.AssessedAt))

		history, err := repo.History(ctx, "acme")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, original.ID, history[0].ID)

		// Same instant for a different vendor is not a duplicate
		assert.NoError(t, repo.Record(ctx, newAssessment("globex", 0, 80.0, types.RiskMedium)))
	})
}

func TestUnknownVendor(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		_, err := repo.Latest(ctx, "ghost")
		assert.True(t, errors.Is(err, ErrVendorNotFound))
		var notFound *VendorNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "ghost", notFound.VendorID)

		history, err := repo.History(ctx, "ghost")
		assert.True(t, errors.Is(err, ErrVendorNotFound))
		assert.Nil(t, history)

		all, err := repo.AllLatest(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestAllLatest(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		require.NoError(t, repo.Record(ctx, newAssessment("acme", 0, 50.0, types.RiskHigh)))
		require.NoError(t, repo.Record(ctx, newAssessment("acme", time.Hour, 75.0, types.RiskMedium)))
		require.NoError(t, repo.Record(ctx, newAssessment("globex", 0, 30.0, types.RiskCritical)))
		require.NoError(t, repo.Record(ctx, newAssessment("initech", 2*time.Hour, 95.0, types.RiskLow)))

		all, err := repo.AllLatest(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, 75.0, all["acme"].OverallScore)
		assert.Equal(t, types.RiskCritical, all["globex"].RiskLevel)
		assert.Equal(t, "initech", all["initech"].VendorID)
	})
}

func TestReturnedAssessmentsAreCopies(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		original := newAssessment("acme", 0, 80.0, types.RiskMedium)
		require.NoError(t, repo.Record(ctx, original))

		// Mutating the caller's value after Record must not leak into storage
		original.Findings[0].Message = "tampered"

		latest, err := repo.Latest(ctx, "acme")
		require.NoError(t, err)
		latest.Findings[0].Message = "tampered again"
		latest.OverallScore = 0

		again, err := repo.Latest(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "ISO 27001 certified", again.Findings[0].Message)
		assert.Equal(t, 80.0, again.OverallScore)
	})
}

func TestRecordNormalizesTimestamp(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		assessment := newAssessment("acme", 0, 80.0, types.RiskMedium)
		assessment.AssessedAt = time.Date(2025, 3, 1, 11, 30, 0, 123456789, time.FixedZone("CET", 3600))

		require.NoError(t, repo.Record(ctx, assessment))

		latest, err := repo.Latest(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, time.UTC, latest.AssessedAt.Location())
		assert.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 123456000, time.UTC), latest.AssessedAt)
	})
}

func TestRecordRejectsIncompleteAssessment(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		missingVendor := newAssessment("", 0, 80.0, types.RiskMedium)
		assert.True(t, errors.Is(repo.Record(ctx, missingVendor), types.ErrInvalidProfile))

		missingTime := newAssessment("acme", 0, 80.0, types.RiskMedium)
		missingTime.AssessedAt = time.Time{}
		assert.True(t, errors.Is(repo.Record(ctx, missingTime), types.ErrInvalidProfile))
	})
}

func TestConcurrentRecords(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		vendors := []string{"acme", "globex", "initech", "umbrella"}
		const perVendor = 10

		var wg sync.WaitGroup
		for _, vendor := range vendors {
			for i := 0; i < perVendor; i++ {
				wg.Add(1)
				go func(vendor string, i int) {
					defer wg.Done()
					assessment := newAssessment(vendor, time.Duration(i)*time.Minute, float64(i), types.RiskCritical)
					assessment.ID = fmt.Sprintf("%s-%d", vendor, i)
					assert.NoError(t, repo.Record(ctx, assessment))
				}(vendor, i)
			}
		}
		wg.Wait()

		for _, vendor := range vendors {
			history, err := repo.History(ctx, vendor)
			require.NoError(t, err)
			assert.Len(t, history, perVendor)
		}

		all, err := repo.AllLatest(ctx)
		require.NoError(t, err)
		assert.Len(t, all, len(vendors))
	})
}
