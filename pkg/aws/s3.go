package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the blob storage used for payment proof images.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
}

type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	baseURL   string
}

// NewS3Store builds a store for bucket. publicBaseURL is the prefix under
// which uploaded objects are readable; it defaults to the virtual-host URL.
func NewS3Store(cfg sdkaws.Config, bucket, publicBaseURL string) *S3Store {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = Endpoint() != ""
	})
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
	}
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		baseURL:   strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// PresignPut returns a URL the client can PUT the object body to directly.
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      sdkaws.String(s.bucket),
		Key:         sdkaws.String(key),
		ContentType: sdkaws.String(contentType),
	}
	req, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign put object: %w", err)
	}
	return req.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: sdkaws.String(s.bucket),
		Key:    sdkaws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

// KeyFromURL reverses PublicURL. It reports false for URLs outside the bucket.
func (s *S3Store) KeyFromURL(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}
