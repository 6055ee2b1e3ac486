// Package s3x deploys artifacts to an S3-compatible object store.
package s3x

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/castship/castship/internal/deploy"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
)

// objectAPI is the slice of the S3 client the backend actually uses.
type objectAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Backend struct {
	cfg destinations.S3Config
	log logging.Logger
}

func New(cfg destinations.S3Config, log logging.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// newClient is a seam for tests.
var newClient = func(ctx context.Context, cfg destinations.S3Config) (objectAPI, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func (b *Backend) TestAccess(ctx context.Context) error {
	client, err := newClient(ctx, b.cfg)
	if err != nil {
		return err
	}
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.cfg.Bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", b.cfg.Bucket, err)
	}
	return nil
}

func (b *Backend) Deploy(ctx context.Context, in *deploy.Input) (*deploy.Result, error) {
	client, err := newClient(ctx, b.cfg)
	if err != nil {
		return nil, err
	}
	fs := &objectFS{client: client, bucket: b.cfg.Bucket}
	return deploy.Run(ctx, fs, b.cfg.Prefix, in, b.log), nil
}

// objectFS maps sync paths onto bucket keys. The keyspace is flat, so
// directories need no provisioning.
type objectFS struct {
	client objectAPI
	bucket string
}

func objectKey(p string) string {
	return strings.TrimPrefix(p, "/")
}

func (f *objectFS) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(objectKey(p)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (f *objectFS) WriteBytes(ctx context.Context, p string, data []byte) error {
	_, err := f.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(objectKey(p)),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (f *objectFS) EnsureDir(ctx context.Context, p string) error {
	return nil
}
