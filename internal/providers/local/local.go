// ABOUTME: Local file-based profile source for development and offline assessment.
// ABOUTME: Reads vendor profiles from a JSON or YAML file without any cloud API dependency.

package local

import (
	"context"
	"fmt"
	"os"

	"github.com/jfeddern/VendorRisk/internal/types"
	"github.com/sirupsen/logrus"
)

// LocalSource implements ProfileSource for a single profile file
type LocalSource struct {
	profileFile string
	logger      *logrus.Logger
}

// NewLocalSource creates a new local file-based source
func NewLocalSource(profileFile string, logger *logrus.Logger) *LocalSource {
	return &LocalSource{
		profileFile: profileFile,
		logger:      logger,
	}
}

// Name returns the source name
func (l *LocalSource) Name() string {
	return "local"
}

// ListProfiles reads every vendor profile from the file. The file holds either
// a mapping of vendor id to profile or a list of {vendor_id, profile} records.
func (l *LocalSource) ListProfiles(ctx context.Context) ([]types.VendorRecord, error) {
	logger := l.logger.WithFields(logrus.Fields{
		"operation": "list_profiles_local",
		"file":      l.profileFile,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, ok := types.FormatFromPath(l.profileFile)
	if !ok {
		return nil, fmt.Errorf("unsupported profile file extension '%s': expected .json, .yaml or .yml", l.profileFile)
	}

	data, err := os.ReadFile(l.profileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file '%s': %w", l.profileFile, err)
	}

	records, err := types.DecodeProfileSet(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode profile file '%s': %w", l.profileFile, err)
	}

	logger.WithField("vendor_count", len(records)).Info("Read vendor profiles from file")
	return records, nil
}
