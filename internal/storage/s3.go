package storage

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

// S3Storage targets any S3-compatible object store, including non-AWS ones
// reached through a custom endpoint in path-style addressing mode.
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
	log    logger.Logger
}

func NewS3Storage(ctx context.Context, region, bucket, prefix, accessKey, secretKey, endpoint string, log logger.Logger) (*S3Storage, error) {
	var cfg aws.Config
	var err error

	if accessKey != "" && secretKey != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	if err != nil {
		return nil, err
	}

	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, opts...)
	log.Infof("s3 storage initialized bucket=%s prefix=%s endpoint=%s", bucket, prefix, endpoint)

	return &S3Storage{client: client, bucket: bucket, prefix: prefix, log: log}, nil
}

func (s *S3Storage) Download(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	key := s.key(remotePath)
	s.log.Debugf("downloading from s3 bucket=%s key=%s", s.bucket, key)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.log.Errorf("s3 download failed bucket=%s key=%s: %v", s.bucket, key, err)
		return nil, err
	}

	s.log.Infof("downloaded from s3 bucket=%s key=%s", s.bucket, key)
	return out.Body, nil
}

func (s *S3Storage) Upload(ctx context.Context, remotePath string, data io.Reader) error {
	key := s.key(remotePath)
	s.log.Infof("uploading to s3 bucket=%s key=%s", s.bucket, key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		s.log.Errorf("s3 upload failed bucket=%s key=%s: %v", s.bucket, key, err)
		return err
	}
	return nil
}

func (s *S3Storage) key(remotePath string) string {
	remotePath = strings.TrimPrefix(remotePath, "/")
	if s.prefix == "" {
		return remotePath
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + remotePath
}
