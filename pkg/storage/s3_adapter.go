package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Adapter is the durable off-box Adapter for operators who want evidence
// storage outside the local box, grounded on the teacher's content-hash
// keyed S3Store, adapted here to the four-method Save/Load/Keys/Delete
// shape and keyed by the core's reserved keys rather than content hash.
type S3Adapter struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3AdapterConfig configures an S3Adapter.
type S3AdapterConfig struct {
	Bucket   string
	Region   string
	Endpoint string // optional custom endpoint, e.g. for MinIO
	Prefix   string
}

// NewS3Adapter constructs an S3-backed Adapter.
func NewS3Adapter(ctx context.Context, cfg S3AdapterConfig) (*S3Adapter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Adapter{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (a *S3Adapter) objectKey(key string) string {
	return a.prefix + key + ".json"
}

// Save implements Adapter.
func (a *S3Adapter) Save(ctx context.Context, key string, value []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("storage: s3 put %s: %w", key, err)
	}
	return nil
}

// Load implements Adapter.
func (a *S3Adapter) Load(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage: s3 get %s: %w", key, err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, fmt.Errorf("storage: s3 read body %s: %w", key, err)
	}
	return data, true, nil
}

// Keys implements Adapter.
func (a *S3Adapter) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix + prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			k := strings.TrimPrefix(aws.ToString(obj.Key), a.prefix)
			k = strings.TrimSuffix(k, ".json")
			out = append(out, k)
		}
	}
	return out, nil
}

// Delete implements Adapter.
func (a *S3Adapter) Delete(ctx context.Context, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("storage: s3 delete %s: %w", key, err)
	}
	return nil
}
