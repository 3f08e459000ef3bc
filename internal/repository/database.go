// ABOUTME: GORM-backed repository persisting assessments to SQLite or PostgreSQL.
// ABOUTME: Insertion order comes from an auto-increment id; (vendor_id, assessed_at) is unique.

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfeddern/VendorRisk/internal/types"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// assessmentRecord is the row layout of the risk_assessments table
type assessmentRecord struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement"`
	AssessmentID       string    `gorm:"size:36;not null;index"`
	VendorID           string    `gorm:"size:255;not null;uniqueIndex:idx_vendor_assessed_at"`
	AssessedAt         time.Time `gorm:"not null;uniqueIndex:idx_vendor_assessed_at"`
	SecurityScore      int       `gorm:"not null"`
	PrivacyScore       int       `gorm:"not null"`
	ComplianceScore    int       `gorm:"not null"`
	ReliabilityScore   int       `gorm:"not null"`
	DataResidencyScore int       `gorm:"not null"`
	OverallScore       float64   `gorm:"not null"`
	RiskLevel          string    `gorm:"size:16;not null"`
	Recommendation     string    `gorm:"type:text"`
	Findings           string    `gorm:"type:text"`
	PolicyViolations   string    `gorm:"type:text"`
	RequiresOverride   bool      `gorm:"not null"`
}

func (assessmentRecord) TableName() string {
	return "risk_assessments"
}

// DatabaseRepository stores assessments through GORM
type DatabaseRepository struct {
	db      *gorm.DB
	dialect string
	logger  *logrus.Logger
}

// OpenDatabase connects to the given dialect, migrates the schema and returns the repository
func OpenDatabase(dialect, dsn string, log *logrus.Logger) (*DatabaseRepository, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite:
		if dsn == "" {
			dsn = "vendorrisk.db"
		}
		if err := ensureDirectoryExists(dsn); err != nil {
			return nil, fmt.Errorf("failed to create directory for SQLite database: %w", err)
		}
		dialector = sqlite.Open(dsn)
	case DialectPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("database DSN is required for %s", dialect)
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(NewLogrusAdapter(log), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(log),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if dialect == DialectSQLite {
		// SQLite serialises writers; one connection avoids "database is locked"
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	if err := db.AutoMigrate(&assessmentRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate assessment schema: %w", err)
	}

	log.WithFields(logrus.Fields{
		"component": "repository",
		"dialect":   dialect,
	}).Info("Assessment database ready")

	return &DatabaseRepository{db: db, dialect: dialect, logger: log}, nil
}

func ensureDirectoryExists(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Close releases the underlying connection pool
func (r *DatabaseRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	return sqlDB.Close()
}

// Record inserts an assessment row inside a transaction
func (r *DatabaseRepository) Record(ctx context.Context, assessment types.RiskAssessment) error {
	if err := validateRecord(assessment); err != nil {
		return err
	}

	stored := normalize(assessment)
	record, err := toRecord(stored)
	if err != nil {
		return err
	}

	duplicate := &DuplicateAssessmentError{VendorID: stored.VendorID, AssessedAt: stored.AssessedAt}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&assessmentRecord{}).
			Where("vendor_id = ? AND assessed_at = ?", record.VendorID, record.AssessedAt).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check for existing assessment: %w", err)
		}
		if count > 0 {
			return duplicate
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicate
			}
			return fmt.Errorf("failed to insert assessment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"vendor_id":  stored.VendorID,
		"risk_level": stored.RiskLevel,
		"row_id":     record.ID,
	}).Debug("Recorded assessment")

	return nil
}

func (r *DatabaseRepository) Latest(ctx context.Context, vendorID string) (types.RiskAssessment, error) {
	var record assessmentRecord
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.RiskAssessment{}, &VendorNotFoundError{VendorID: vendorID}
		}
		return types.RiskAssessment{}, fmt.Errorf("failed to load latest assessment: %w", err)
	}
	return record.toAssessment()
}

func (r *DatabaseRepository) History(ctx context.Context, vendorID string) ([]types.RiskAssessment, error) {
	var records []assessmentRecord
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assessment history: %w", err)
	}
	if len(records) == 0 {
		return nil, &VendorNotFoundError{VendorID: vendorID}
	}

	history := make([]types.RiskAssessment, 0, len(records))
	for _, record := range records {
		assessment, err := record.toAssessment()
		if err != nil {
			return nil, err
		}
		history = append(history, assessment)
	}
	return history, nil
}

// AllLatest returns the newest row of every vendor
func (r *DatabaseRepository) AllLatest(ctx context.Context) (map[string]types.RiskAssessment, error) {
	db := r.db.WithContext(ctx)
	latestIDs := db.Model(&assessmentRecord{}).Select("MAX(id)").Group("vendor_id")

	var records []assessmentRecord
	if err := db.Where("id IN (?)", latestIDs).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load latest assessments: %w", err)
	}

	result := make(map[string]types.RiskAssessment, len(records))
	for _, record := range records {
		assessment, err := record.toAssessment()
		if err != nil {
			return nil, err
		}
		result[assessment.VendorID] = assessment
	}
	return result, nil
}

func toRecord(a types.RiskAssessment) (assessmentRecord, error) {
	findings, err := json.Marshal(a.Findings)
	if err != nil {
		return assessmentRecord{}, fmt.Errorf("failed to encode findings: %w", err)
	}
	violations, err := json.Marshal(a.PolicyViolations)
	if err != nil {
		return assessmentRecord{}, fmt.Errorf("failed to encode policy violations: %w", err)
	}

	return assessmentRecord{
		AssessmentID:       a.ID,
		VendorID:           a.VendorID,
		AssessedAt:         a.AssessedAt,
		SecurityScore:      a.Scores.Security,
		PrivacyScore:       a.Scores.Privacy,
		ComplianceScore:    a.Scores.Compliance,
		ReliabilityScore:   a.Scores.Reliability,
		DataResidencyScore: a.Scores.DataResidency,
		OverallScore:       a.OverallScore,
		RiskLevel:          string(a.RiskLevel),
		Recommendation:     a.Recommendation,
		Findings:           string(findings),
		PolicyViolations:   string(violations),
		RequiresOverride:   a.RequiresOverride,
	}, nil
}

func (rec assessmentRecord) toAssessment() (types.RiskAssessment, error) {
	assessment := types.RiskAssessment{
		ID:         rec.AssessmentID,
		VendorID:   rec.VendorID,
		AssessedAt: rec.AssessedAt.UTC(),
		Scores: types.CategoryScores{
			Security:      rec.SecurityScore,
			Privacy:       rec.PrivacyScore,
			Compliance:    rec.ComplianceScore,
			Reliability:   rec.ReliabilityScore,
			DataResidency: rec.DataResidencyScore,
		},
		OverallScore:     rec.OverallScore,
		RiskLevel:        types.RiskLevel(rec.RiskLevel),
		Recommendation:   rec.Recommendation,
		RequiresOverride: rec.RequiresOverride,
	}

	if err := json.Unmarshal([]byte(rec.Findings), &assessment.Findings); err != nil {
		return types.RiskAssessment{}, fmt.Errorf("failed to decode findings of assessment %s: %w", rec.AssessmentID, err)
	}
	if err := json.Unmarshal([]byte(rec.PolicyViolations), &assessment.PolicyViolations); err != nil {
		return types.RiskAssessment{}, fmt.Errorf("failed to decode policy violations of assessment %s: %w", rec.AssessmentID, err)
	}
	return assessment, nil
}

// LogrusAdapter adapts a *logrus.Logger to GORM's logger.Writer interface
type LogrusAdapter struct {
	logger *logrus.Logger
}

func NewLogrusAdapter(log *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{logger: log}
}

// Printf logs at debug; GORM's own level filtering decides what reaches here
func (l *LogrusAdapter) Printf(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.WithField("component", "gorm").Debugf(format, args...)
}

func gormLogLevel(log *logrus.Logger) logger.LogLevel {
	if log == nil {
		return logger.Silent
	}
	switch log.GetLevel() {
	case logrus.DebugLevel, logrus.TraceLevel:
		return logger.Info
	case logrus.InfoLevel, logrus.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}
