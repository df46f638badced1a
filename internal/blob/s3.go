// Package blob stores uploaded document files in S3-compatible object
// storage.
package blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/felipesantoos/read-it-later-backend/internal/config"
)

// Store writes and removes document blobs in a single bucket.
type Store struct {
	client *s3.Client
	bucket string
}

// NewStore builds an S3 client from service configuration. A custom
// endpoint switches the client to path-style addressing for MinIO and
// other S3-compatible stores.
func NewStore(ctx context.Context, cfg config.Config) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.UploadRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.UploadAccessKey, cfg.UploadSecretKey, "")),
	}

	if cfg.UploadEndpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.UploadEndpoint,
				HostnameImmutable: true,
			}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("configure s3 client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UploadEndpoint != ""
	})
	return &Store{client: client, bucket: cfg.UploadBucket}, nil
}

// Put uploads a document buffer under the given key.
func (s *Store) Put(ctx context.Context, key, contentType string, buf []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	return nil
}

// Delete removes a stored blob. Used to compensate when ingestion fails
// after the upload succeeded.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}
