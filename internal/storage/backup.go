package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bjarke-xyz/fmh/internal/config"
)

const backupKey = "fmh/db-backup.db"

var ErrBackupShrunk = errors.New("backup is smaller than the stored one")

type objectStore interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Backup uploads database snapshots to an S3 compatible bucket.
type Backup struct {
	store  objectStore
	bucket string
}

func NewBackupFromConfig(ctx context.Context, cfg *config.Config) (*Backup, error) {
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.S3BackupUrl,
		}, nil
	})
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3BackupAccessKeyId, cfg.S3BackupSecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}
	return &Backup{
		store:  s3.NewFromConfig(awsCfg),
		bucket: cfg.S3BackupBucket,
	}, nil
}

// Upload stores the snapshot at path. It refuses to replace a stored backup
// with a smaller file.
func (b *Backup) Upload(ctx context.Context, path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat backup file: %w", err)
	}
	size := stat.Size()

	objects, err := b.store.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(backupKey),
	})
	if err != nil {
		return size, fmt.Errorf("failed to list objects: %w", err)
	}
	for _, obj := range objects.Contents {
		if obj.Key != nil && *obj.Key == backupKey && obj.Size != nil && *obj.Size > size {
			return size, fmt.Errorf("%w: stored %v bytes, local %v bytes", ErrBackupShrunk, *obj.Size, size)
		}
	}

	_, err = b.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(backupKey),
		Body:          file,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return size, fmt.Errorf("failed to upload backup: %w", err)
	}
	log.Printf("uploaded %v bytes to %v/%v", size, b.bucket, backupKey)
	return size, nil
}
