// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/neweracoin/wfdropbackend/config"
)

// ObjectPutter is the part of the S3 client the publisher needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Publisher uploads leaderboard snapshots to a Cloudflare R2 bucket.
type R2Publisher struct {
	client     ObjectPutter
	bucket     string
	cdnBaseURL string
}

func r2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

// NewR2Publisher builds an S3 client pointed at the account's R2 endpoint.
func NewR2Publisher(ctx context.Context, cfg config.R2Config) (*R2Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(r2Endpoint(cfg.AccountID))
	})
	return NewR2PublisherWithClient(client, cfg), nil
}

// NewR2PublisherWithClient wires an existing client.
func NewR2PublisherWithClient(client ObjectPutter, cfg config.R2Config) *R2Publisher {
	cdn := cfg.CDNBaseURL
	if cdn == "" {
		cdn = r2Endpoint(cfg.AccountID)
	}
	return &R2Publisher{client: client, bucket: cfg.Bucket, cdnBaseURL: cdn}
}

// Publish stores body as a JSON object under key.
func (p *R2Publisher) Publish(ctx context.Context, key string, body []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("public, max-age=300"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	log.Printf("✅ [R2] published %s", p.URL(key))
	return nil
}

// URL returns the public CDN address of key.
func (p *R2Publisher) URL(key string) string {
	return fmt.Sprintf("%s/%s", p.cdnBaseURL, key)
}
