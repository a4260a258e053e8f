// Package storage archives generated report files in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/crm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ReportArchiver stores exported report files.
type ReportArchiver interface {
	// Archive uploads data under key and returns the object's location.
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// DownloadURL returns a time-limited link to an archived object.
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

// NewReportArchiver returns an S3 archiver when storage is enabled and a
// no-op one otherwise.
func NewReportArchiver(cfg config.StorageConfig, logger *zap.Logger) (ReportArchiver, error) {
	if !cfg.Enabled {
		return NoopArchiver{}, nil
	}
	return NewS3Archiver(cfg, WithLogger(logger))
}

// S3Archiver writes reports to an S3-compatible bucket (AWS S3, MinIO, ...).
type S3Archiver struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	prefix        string
	logger        *zap.Logger
}

// S3ArchiverOption is a functional option for configuring S3Archiver
type S3ArchiverOption func(*S3Archiver)

// WithLogger sets a custom logger for S3Archiver
func WithLogger(logger *zap.Logger) S3ArchiverOption {
	return func(s *S3Archiver) {
		s.logger = logger
	}
}

// NewS3Archiver builds the S3 client. Static credentials are used when both
// keys are configured; otherwise the default AWS credential chain applies.
func NewS3Archiver(cfg config.StorageConfig, opts ...S3ArchiverOption) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("storage access key and secret key must be set together")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		// MinIO and older S3-compatible stores reject aws-chunked uploads.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	a := &S3Archiver{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *S3Archiver) objectKey(key string) string {
	if a.prefix == "" {
		return key
	}
	return path.Join(a.prefix, key)
}

func (a *S3Archiver) Archive(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	objectKey := a.objectKey(key)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	a.logger.Info("report archived",
		zap.String("bucket", a.bucket),
		zap.String("key", objectKey),
		zap.Int("bytes", len(data)),
	)
	return "s3://" + a.bucket + "/" + objectKey, nil
}

func (a *S3Archiver) DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	req, err := a.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(key)),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (a *S3Archiver) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("creating report bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	var alreadyOwned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &alreadyOwned) {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (a *S3Archiver) Bucket() string {
	return a.bucket
}

// NoopArchiver discards reports. It is used when storage is disabled.
type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, string, []byte, string) (string, error) {
	return "", ErrArchiveDisabled
}

func (NoopArchiver) DownloadURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrArchiveDisabled
}

// ErrArchiveDisabled is returned by NoopArchiver.
var ErrArchiveDisabled = errors.New("report archive is disabled")

var (
	_ ReportArchiver = (*S3Archiver)(nil)
	_ ReportArchiver = NoopArchiver{}
)
