package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/biorag/internal/domain"
)

type fakeObjects struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3Store_SaveLoad(t *testing.T) {
	ctx := context.Background()
	api := &fakeObjects{objects: map[string][]byte{}}
	store := NewS3Store(api, "bucket", "indices")

	require.NoError(t, store.Save(ctx, sampleSnapshot(domain.GlobalScope, 2)))
	assert.Contains(t, api.objects, "bucket/indices/global/index.bin")

	got, err := store.Load(ctx, domain.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(domain.GlobalScope, 2), got)

	ok, err := store.Exists(ctx, domain.GlobalScope)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestS3Store_Missing(t *testing.T) {
	store := NewS3Store(&fakeObjects{objects: map[string][]byte{}}, "bucket", "indices")

	_, err := store.Load(context.Background(), "p9")
	assert.ErrorIs(t, err, domain.ErrIndexMissing)

	ok, err := store.Exists(context.Background(), "p9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Store_PutError(t *testing.T) {
	api := &fakeObjects{objects: map[string][]byte{}, putErr: errors.New("503 slow down")}
	store := NewS3Store(api, "bucket", "")

	err := store.Save(context.Background(), sampleSnapshot("p1", 1))
	assert.ErrorContains(t, err, "503 slow down")
	assert.Empty(t, api.objects)
}
