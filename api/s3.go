package api

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Options selects the S3-compatible store for s3:// sources. Leave
// Endpoint empty for AWS; set it for DigitalOcean Spaces, MinIO and the
// like. Credentials come from the SDK's default chain.
type S3Options struct {
	Endpoint  string
	Region    string
	PathStyle bool
	// Client overrides the SDK client, mainly for tests.
	Client s3iface.S3API
}

type s3Source struct {
	opts S3Options

	once   sync.Once
	client s3iface.S3API
	err    error
}

func (s *s3Source) getClient() (s3iface.S3API, error) {
	s.once.Do(func() {
		if s.opts.Client != nil {
			s.client = s.opts.Client
			return
		}
		cfg := aws.NewConfig().WithS3ForcePathStyle(s.opts.PathStyle)
		region := s.opts.Region
		if region == "" {
			region = "us-east-1"
		}
		cfg = cfg.WithRegion(region)
		if s.opts.Endpoint != "" {
			cfg = cfg.WithEndpoint(s.opts.Endpoint)
		}
		sess, err := session.NewSession(cfg)
		if err != nil {
			s.err = fmt.Errorf("failed to create S3 session: %w", err)
			return
		}
		s.client = s3.New(sess)
	})
	return s.client, s.err
}

// parseS3URL splits s3://bucket/key.
func parseS3URL(u *url.URL) (bucket, key string, err error) {
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: s3 source needs s3://bucket/key, got %q", ErrUnsupportedSource, u.String())
	}
	return bucket, key, nil
}

func (s *s3Source) open(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	bucket, key, err := parseS3URL(u)
	if err != nil {
		return nil, 0, err
	}
	client, err := s.getClient()
	if err != nil {
		return nil, 0, err
	}
	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, aws.Int64Value(out.ContentLength), nil
}
