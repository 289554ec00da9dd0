// Package s3 implements types.ObjectStorage on AWS S3 (or any S3-compatible
// endpoint such as LocalStack or MinIO).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"reportfetch/internal/config"
	obstypes "reportfetch/internal/observability/types"
	"reportfetch/internal/storage/types"
)

const opPut = "mirror_s3_put"

// API is the subset of *s3.Client used by Client.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Client implements types.ObjectStorage for one bucket.
type Client struct {
	api     API
	bucket  string
	region  string
	logger  obstypes.Logger
	metrics obstypes.Metrics
}

// NewClient builds an S3 client from configuration and makes sure the
// bucket exists, creating it when missing.
func NewClient(ctx context.Context, cfg *config.Config, logger obstypes.Logger, metrics obstypes.Metrics) (*Client, error) {
	if cfg.Mirror.BucketOrPath == "" {
		return nil, fmt.Errorf("invalid S3 configuration: bucket is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
			o.UsePathStyle = true
		}
	})

	client := NewWithAPI(api, cfg.Mirror.BucketOrPath, cfg.AWS.Region, logger, metrics)

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.ensureBucketExists(checkCtx); err != nil {
		return nil, fmt.Errorf("failed to verify bucket existence: %w", err)
	}

	return client, nil
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API, bucket, region string, logger obstypes.Logger, metrics obstypes.Metrics) *Client {
	return &Client{
		api:     api,
		bucket:  bucket,
		region:  region,
		logger:  logger,
		metrics: metrics,
	}
}

// Location returns s3://bucket.
func (c *Client) Location() string {
	return "s3://" + c.bucket
}

// Put stores an object in the bucket. Seekable readers (files) are streamed;
// anything else is buffered first so the SDK can compute the length.
func (c *Client) Put(ctx context.Context, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	start := time.Now()
	defer func() {
		c.metrics.RecordDuration(opPut, time.Since(start).Seconds())
	}()

	body, size, err := seekableBody(reader, metadata.ContentLength)
	if err != nil {
		c.metrics.RecordError(opPut, "read")
		c.logger.Error(ctx, "failed to read content", err, obstypes.Fields{
			"bucket": c.bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to read content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if len(metadata.UserMetadata) > 0 {
		input.Metadata = metadata.UserMetadata
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		c.metrics.RecordError(opPut, "put_object")
		c.logger.Error(ctx, "failed to put object", err, obstypes.Fields{
			"bucket": c.bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to put object: %w", err)
	}

	c.metrics.RecordSuccess(opPut)
	c.logger.Debug(ctx, "object stored successfully", obstypes.Fields{
		"bucket": c.bucket,
		"key":    key,
		"size":   size,
	})
	return nil
}

// Exists checks if an object exists in the bucket
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// ensureBucketExists checks the configured bucket, creating it when absent.
func (c *Client) ensureBucketExists(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}

	var nf *s3types.NotFound
	if !errors.As(err, &nf) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	c.logger.Info(ctx, "bucket does not exist, attempting to create", obstypes.Fields{"bucket": c.bucket})

	input := &s3.CreateBucketInput{Bucket: aws.String(c.bucket)}
	// us-east-1 rejects an explicit location constraint
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.api.CreateBucket(ctx, input); err != nil {
		var bae *s3types.BucketAlreadyExists
		var baoyb *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &bae) || errors.As(err, &baoyb) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	c.logger.Info(ctx, "bucket created successfully", obstypes.Fields{"bucket": c.bucket})
	return nil
}

func seekableBody(reader io.Reader, declared int64) (io.Reader, int64, error) {
	if rs, ok := reader.(io.ReadSeeker); ok && declared > 0 {
		return rs, declared, nil
	}
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, reader); err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(buf.Bytes()), int64(buf.Len()), nil
}

// buildAWSConfig loads the default AWS chain, overridden by explicit region
// and static credentials when configured.
func buildAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

// isNotFoundError checks if an error is a not found error
func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
