package source

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/config"
)

func init() {
	Register("s3", newS3Store)
}

// s3Store fetches objects with the AWS SDK. The client is held as
// s3iface.S3API so tests can substitute a fake without network access.
type s3Store struct {
	client s3iface.S3API
}

func newS3Store(cfg config.Source) (Store, error) {
	if cfg.S3 == nil {
		return nil, fmt.Errorf("source: s3 settings are required for kind=s3")
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.S3.Region)
	if cfg.S3.Endpoint != "" {
		// Non-AWS endpoints (minio etc) need path-style addressing.
		awsCfg = awsCfg.WithEndpoint(cfg.S3.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.S3.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(
			credentials.NewStaticCredentials(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("source: s3 session: %w", err)
	}
	return &s3Store{client: s3.New(sess)}, nil
}

func (s *s3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(bucket, key, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("source: read s3://%s/%s: %w", bucket, key, err)
	}
	return buf.Bytes(), nil
}

// classifyS3Error maps SDK error codes onto the source error taxonomy.
// Codes not listed stay wrapped as-is, which callers treat as transient.
func classifyS3Error(bucket, key string, err error) error {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey:
			return fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrNotFound)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrAccessDenied)
		}
	}
	return fmt.Errorf("source: fetch s3://%s/%s: %w", bucket, key, err)
}
