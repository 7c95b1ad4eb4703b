// Package storage archives uploaded file bytes in an S3-compatible bucket.
// Records only ever keep the returned key and URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotConfigured means the S3 variables are missing; callers keep metadata only.
var ErrNotConfigured = errors.New("object storage not configured")

// Object prefixes.
const (
	PrefixDatasets    = "datasets"
	PrefixLegislation = "legislation"
)

// Archiver stores uploaded bytes. *Archive satisfies it; a nil Archiver means
// uploads are kept as metadata only.
type Archiver interface {
	Upload(ctx context.Context, prefix string, body io.Reader, contentType, ext string) (Object, error)
	Delete(ctx context.Context, key string) error
}

type Archive struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// Object is an archived upload.
type Object struct {
	Key string
	URL string
}

func New() (*Archive, error) {
	endpoint := os.Getenv("AWS_ENDPOINT_URL_S3")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	bucket := os.Getenv("BUCKET_NAME")

	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, ErrNotConfigured
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &Archive{client: client, bucket: bucket, endpoint: strings.TrimRight(endpoint, "/")}, nil
}

// ObjectKey builds "<prefix>/<uuid><ext>".
func ObjectKey(prefix, ext string) string {
	return fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), strings.ToLower(ext))
}

// Upload stores body under a fresh key below prefix.
func (a *Archive) Upload(ctx context.Context, prefix string, body io.Reader, contentType, ext string) (Object, error) {
	key := ObjectKey(prefix, ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("put %s: %w", key, err)
	}

	return Object{Key: key, URL: a.URL(key)}, nil
}

// URL is the path-style public address of key.
func (a *Archive) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", a.endpoint, a.bucket, key)
}

// Delete removes an archived object.
func (a *Archive) Delete(ctx context.Context, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	return err
}
