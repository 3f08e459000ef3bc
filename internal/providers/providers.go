// ABOUTME: Profile source modes and compile-time checks for the source implementations.
// ABOUTME: Every source package satisfies engine.ProfileSource so the factory can return any of them.

package providers

import (
	"github.com/jfeddern/VendorRisk/internal/engine"
	"github.com/jfeddern/VendorRisk/internal/providers/aws"
	"github.com/jfeddern/VendorRisk/internal/providers/cluster"
	"github.com/jfeddern/VendorRisk/internal/providers/local"
	"github.com/jfeddern/VendorRisk/internal/providers/mock"
)

// Supported source modes
const (
	ModeLocal   = "local"
	ModeCluster = "cluster"
	ModeS3      = "s3"
)

var (
	_ engine.ProfileSource = (*local.LocalSource)(nil)
	_ engine.ProfileSource = (*cluster.ConfigMapSource)(nil)
	_ engine.ProfileSource = (*aws.S3Source)(nil)
	_ engine.ProfileSource = (*mock.MockSource)(nil)
)
