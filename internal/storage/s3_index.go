package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/vectorindex"
)

const snapshotContentType = "application/octet-stream"

// ObjectAPI is the subset of the S3 client the index store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store keeps one snapshot object per scope at <prefix>/<scope>/index.bin.
// A single PutObject replaces the object atomically.
type S3Store struct {
	api    ObjectAPI
	bucket string
	prefix string
}

func NewS3Store(api ObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{api: api, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(scope domain.Scope) string {
	return path.Join(s.prefix, string(scope), snapshotFile)
}

// Save uploads the encoded snapshot.
func (s *S3Store) Save(ctx context.Context, snap *domain.IndexSnapshot) error {
	if err := snap.Scope.Validate(); err != nil {
		return err
	}
	data, err := vectorindex.EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(snap.Scope)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(snapshotContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put index object: %w", err)
	}
	return nil
}

// Load downloads and decodes the scope's snapshot.
func (s *S3Store) Load(ctx context.Context, scope domain.Scope) (*domain.IndexSnapshot, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(scope)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.IndexMissing(scope)
		}
		return nil, fmt.Errorf("failed to get index object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read index object: %w", err)
	}
	return decodeFor(scope, data)
}

// Exists checks for the scope's object with HeadObject.
func (s *S3Store) Exists(ctx context.Context, scope domain.Scope) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(scope)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head index object: %w", err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
