package imagestore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxImageSize is the largest upload accepted for a card photo.
const MaxImageSize = 5 << 20

// ImageStore keeps uploaded card images out of band and returns a URL the
// card page can load them from.
type ImageStore interface {
	Put(ctx context.Context, contentType string, body io.Reader, size int64) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Options struct {
	Bucket        string
	Region        string
	BaseEndpoint  string // MinIO or other S3 compatible endpoint
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

type S3Store struct {
	client        putObjectAPI
	bucket        string
	publicBaseURL string
	now           func() time.Time
}

func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, opts.Bucket, opts.PublicBaseURL), nil
}

func newS3Store(client putObjectAPI, bucket, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

func (s *S3Store) Put(ctx context.Context, contentType string, body io.Reader, size int64) (string, error) {
	key := s.storageKey(contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("put image %s: %w", key, err)
	}

	return s.publicBaseURL + "/" + key, nil
}

func (s *S3Store) storageKey(contentType string) string {
	d := s.now()
	ext := ""
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("cards/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}
