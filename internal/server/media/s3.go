// Package media issues presigned S3 URLs for post cover images. Objects are
// uploaded and downloaded by clients directly; the server only stores keys.
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophblog/internal/server/config"
	"github.com/google/uuid"
)

// PresignExpiry is how long a presigned URL stays valid.
const PresignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	now = time.Now
)

// Presigner hands out time-limited URLs for a storage key.
type Presigner interface {
	PresignPut(ctx context.Context, key string) (url string, expiresAt time.Time, err error)
	PresignGet(ctx context.Context, key string) (url string, expiresAt time.Time, err error)
}

// S3Presigner presigns against an S3-compatible endpoint with static
// credentials.
type S3Presigner struct {
	client *s3.PresignClient
	bucket string
}

// NewS3Presigner builds the AWS config once; presigning itself is offline.
func NewS3Presigner(ctx context.Context, cfg config.S3Config) (*S3Presigner, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser,
			cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		// MinIO serves buckets under the path, not as subdomains.
		o.UsePathStyle = true
	})

	return &S3Presigner{client: s3.NewPresignClient(client), bucket: cfg.Bucket}, nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, key string) (string, time.Time, error) {
	expiresAt := now().Add(PresignExpiry)
	req, err := presignPutObject(p.client, ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, expiresAt, nil
}

func (p *S3Presigner) PresignGet(ctx context.Context, key string) (string, time.Time, error) {
	expiresAt := now().Add(PresignExpiry)
	req, err := presignGetObject(p.client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, expiresAt, nil
}

// NewCoverKey returns a fresh object key for a cover of the given post.
func NewCoverKey(postID int64) string {
	d := now().UTC()
	return fmt.Sprintf("covers/%d/%d/%02d/%v", postID, d.Year(), d.Month(), uuid.New())
}
