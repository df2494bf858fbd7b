package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Store keeps artifacts in an S3 bucket. References are absolute URLs
// under publicURL.
type S3Store struct {
	client    s3iface.S3API
	bucket    string
	publicURL string
}

// S3Options configures NewS3Store. Empty credentials fall back to the SDK's
// default chain (environment, shared config, instance role).
type S3Options struct {
	Bucket    string
	Region    string
	PublicURL string
	AccessKey string
	SecretKey string
}

// NewS3Store opens an AWS session for the bucket's region.
func NewS3Store(o S3Options) (*S3Store, error) {
	cfg := &aws.Config{Region: aws.String(o.Region)}
	if o.AccessKey != "" && o.SecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(o.AccessKey, o.SecretKey, "")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	public := o.PublicURL
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", o.Bucket, o.Region)
	}
	return NewS3StoreWithClient(s3.New(sess), o.Bucket, public), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client s3iface.S3API, bucket, publicURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObjectWithContext(ctx, in); err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", k, err)
	}
	return s.publicURL + "/" + k, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	k, err := cleanKey(strings.TrimPrefix(strings.TrimPrefix(ref, s.publicURL), "/"))
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		return fmt.Errorf("delete %s from s3: %w", k, err)
	}
	return nil
}
