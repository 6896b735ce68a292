package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Publisher uploads a finished episode somewhere listeners can reach it
type Publisher interface {
	Publish(ctx context.Context, files ...string) error
}

// ObjectPutter is the part of the S3 client the publisher needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher copies episode files into a bucket under a key prefix
type S3Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Publisher creates a publisher using the default AWS configuration
// chain with optional region/profile overrides
func NewS3Publisher(ctx context.Context, settings S3Settings) (*S3Publisher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if settings.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(settings.Region))
	}
	if settings.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(settings.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = settings.UsePathStyle
	})
	return &S3Publisher{client: client, bucket: settings.Bucket, prefix: settings.Prefix}, nil
}

// Publish uploads each file under prefix + base name
func (p *S3Publisher) Publish(ctx context.Context, files ...string) error {
	for _, file := range files {
		if err := p.put(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func (p *S3Publisher) put(ctx context.Context, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	key := objectKey(p.prefix, file)
	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if contentType := contentTypeFor(file); contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := p.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("uploading %s to s3://%s/%s: %w", file, p.bucket, key, err)
	}
	logger.Info("✓ Published", zap.String("url", fmt.Sprintf("s3://%s/%s", p.bucket, key)))
	return nil
}

func objectKey(prefix, file string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return filepath.Base(file)
	}
	return path.Join(prefix, filepath.Base(file))
}

func contentTypeFor(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".mp3":
		return "audio/mpeg"
	}
	return mime.TypeByExtension(filepath.Ext(file))
}
