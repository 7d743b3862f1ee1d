package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	types "AssetForge/pkg"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// deleteBatchSize is the S3 DeleteObjects limit per request.
const deleteBatchSize = 1000

type S3Provider struct {
	client *s3.Client
	bucket string
}

var _ Provider = (*S3Provider)(nil)

func NewS3Provider(cfg types.S3Config) (*S3Provider, error) {
	awsConfig, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return &S3Provider{
		client: s3.NewFromConfig(awsConfig),
		bucket: cfg.Bucket,
	}, nil
}

func (s *S3Provider) Upload(ctx context.Context, p string, body io.Reader) error {
	key := normalizeKey(p)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *S3Provider) GetFileStream(ctx context.Context, p string) (io.ReadCloser, error) {
	key := normalizeKey(p)
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return output.Body, nil
}

func (s *S3Provider) Exists(ctx context.Context, p string) (bool, error) {
	key := normalizeKey(p)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head %s: %w", key, err)
	}
	return true, nil
}

func (s *S3Provider) Delete(ctx context.Context, p string) error {
	key := normalizeKey(p)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeleteDirectory removes every object under the prefix, batching deletes at
// the API limit of 1000 keys per call.
func (s *S3Provider) DeleteDirectory(ctx context.Context, p string) error {
	prefix := normalizeKey(p) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &prefix,
	})

	var batch []s3types.ObjectIdentifier
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: &s.bucket,
			Delete: &s3types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		batch = batch[:0]
		return err
	}

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			batch = append(batch, s3types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatchSize {
				if err := flush(); err != nil {
					return fmt.Errorf("failed to delete batch under %s: %w", prefix, err)
				}
			}
		}
	}
	if err := flush(); err != nil {
		return fmt.Errorf("failed to delete batch under %s: %w", prefix, err)
	}
	return nil
}

func (s *S3Provider) GetPathStats(ctx context.Context, p string) (*PathStats, error) {
	key := normalizeKey(p)
	output, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to head %s: %w", key, err)
	}
	stats := &PathStats{Size: aws.ToInt64(output.ContentLength)}
	if output.LastModified != nil {
		stats.ModTime = *output.LastModified
	}
	return stats, nil
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
