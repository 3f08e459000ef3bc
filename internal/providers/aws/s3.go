// ABOUTME: AWS S3 profile source reading one vendor profile document per object.
// ABOUTME: Handles authentication, optional role assumption and paginated object listing.

package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/jfeddern/VendorRisk/internal/types"
	"github.com/sirupsen/logrus"
)

// maxProfileSize bounds how much of a single object is read
const maxProfileSize = 1 << 20

// s3API is the subset of the S3 client used by the source
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source implements ProfileSource for objects under a bucket prefix
type S3Source struct {
	client s3API
	bucket string
	prefix string
	logger *logrus.Logger
}

// NewS3Source creates a new S3 profile source
func NewS3Source(ctx context.Context, bucket, prefix, region string, logger *logrus.Logger) (*S3Source, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Cross-account buckets are read through an assumed role
	if assumeRoleARN := os.Getenv("AWS_IAM_ASSUME_ROLE_ARN"); assumeRoleARN != "" {
		logger.WithField("role_arn", assumeRoleARN).Info("Assuming role from AWS_IAM_ASSUME_ROLE_ARN environment variable")

		stsClient := sts.NewFromConfig(cfg.Copy())
		cfg.Credentials = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(stsClient, assumeRoleARN))
	}

	stsClient := sts.NewFromConfig(cfg.Copy())
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		logger.WithError(err).Warn("Could not get caller identity, proceeding with configured credentials")
	} else {
		logger.WithFields(logrus.Fields{
			"account": aws.ToString(identity.Account),
			"arn":     aws.ToString(identity.Arn),
		}).Info("AWS identity information")
	}

	return NewS3SourceWithClient(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// NewS3SourceWithClient uses an existing client
func NewS3SourceWithClient(client s3API, bucket, prefix string, logger *logrus.Logger) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// Name returns the source name
func (s *S3Source) Name() string {
	return "aws-s3"
}

// VendorIDFromKey derives the vendor id from an object key, e.g. profiles/acme.yaml -> acme
func VendorIDFromKey(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

// ListProfiles fetches and decodes every .json, .yaml or .yml object under the prefix.
// Objects that fail to decode are logged and skipped; transport errors fail the listing.
func (s *S3Source) ListProfiles(ctx context.Context) ([]types.VendorRecord, error) {
	logger := s.logger.WithFields(logrus.Fields{
		"operation": "list_profiles_s3",
		"bucket":    s.bucket,
		"prefix":    s.prefix,
	})

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if _, ok := types.FormatFromPath(key); ok {
				keys = append(keys, key)
			}
		}
	}

	logger.WithField("object_count", len(keys)).Info("Processing profile objects")

	seen := make(map[string]string)
	var records []types.VendorRecord
	for _, key := range keys {
		vendorID := VendorIDFromKey(key)
		if vendorID == "" {
			continue
		}
		if previous, exists := seen[vendorID]; exists {
			logger.WithFields(logrus.Fields{
				"vendor_id": vendorID,
				"key":       key,
				"kept":      previous,
			}).Warn("Skipping object with duplicate vendor id")
			continue
		}

		profile, err := s.fetchProfile(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var decodeErr *decodeError
			if errors.As(err, &decodeErr) {
				logger.WithError(err).WithField("key", key).Warn("Skipping object with unreadable profile")
				continue
			}
			return nil, err
		}

		seen[vendorID] = key
		records = append(records, types.VendorRecord{VendorID: vendorID, Profile: profile})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].VendorID < records[j].VendorID
	})

	logger.WithField("vendor_count", len(records)).Info("Profile discovery completed")
	return records, nil
}

type decodeError struct {
	key string
	err error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("failed to decode profile object %s: %v", e.key, e.err)
}

func (e *decodeError) Unwrap() error {
	return e.err
}

func (s *S3Source) fetchProfile(ctx context.Context, key string) (types.VendorProfile, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return types.VendorProfile{}, fmt.Errorf("failed to get object s3://%s/%s: %w", s.bucket, key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(io.LimitReader(output.Body, maxProfileSize+1))
	if err != nil {
		return types.VendorProfile{}, fmt.Errorf("failed to read object s3://%s/%s: %w", s.bucket, key, err)
	}
	if len(data) > maxProfileSize {
		return types.VendorProfile{}, &decodeError{key: key, err: fmt.Errorf("object exceeds %d bytes", maxProfileSize)}
	}

	format, _ := types.FormatFromPath(key)
	profile, err := types.DecodeProfile(data, format)
	if err != nil {
		return types.VendorProfile{}, &decodeError{key: key, err: err}
	}
	return profile, nil
}
