// ABOUTME: Factory for creating vendor profile sources.
// ABOUTME: Centralizes source instantiation and configuration logic.

package providers

import (
	"context"
	"fmt"

	"github.com/jfeddern/VendorRisk/internal/engine"
	"github.com/jfeddern/VendorRisk/internal/providers/aws"
	"github.com/jfeddern/VendorRisk/internal/providers/cluster"
	"github.com/jfeddern/VendorRisk/internal/providers/local"
	"github.com/jfeddern/VendorRisk/internal/providers/mock"
	"github.com/sirupsen/logrus"
)

// ProviderConfig holds configuration for creating profile sources
type ProviderConfig struct {
	Mode        string
	ProfileFile string
	Namespace   string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	MockMode    bool // Enable the mock source for local testing
}

// CreateProfileSource creates a profile source based on configuration
func CreateProfileSource(ctx context.Context, config *ProviderConfig, logger *logrus.Logger) (engine.ProfileSource, error) {
	// Check for mock mode first
	if config.MockMode {
		logger.Info("Using mock profile source for testing")
		return mock.NewMockSource(logger), nil
	}

	switch config.Mode {
	case ModeLocal:
		if config.ProfileFile == "" {
			return nil, fmt.Errorf("profile file is required for %s mode", ModeLocal)
		}
		return local.NewLocalSource(config.ProfileFile, logger), nil
	case ModeCluster:
		source, err := cluster.NewConfigMapSource(config.Namespace, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create configmap source: %w", err)
		}
		return source, nil
	case ModeS3:
		source, err := aws.NewS3Source(ctx, config.S3Bucket, config.S3Prefix, config.S3Region, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 source: %w", err)
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported mode: %s", config.Mode)
	}
}
