package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"envdiff/core/storage"
	"envdiff/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		ref     string
		bucket  string
		key     string
		wantErr bool
	}{
		{ref: "s3://dumps/prod.json", bucket: "dumps", key: "prod.json"},
		{ref: "s3://dumps/nightly/prod.yaml", bucket: "dumps", key: "nightly/prod.yaml"},
		{ref: "s3://dumps", wantErr: true},
		{ref: "s3:///prod.json", wantErr: true},
		{ref: "prod.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			bucket, key, err := storage.ParseURL(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}

	assert.True(t, storage.IsURL("s3://a/b"))
	assert.False(t, storage.IsURL("./a/b"))
}

func TestFormatURL(t *testing.T) {
	ref := storage.FormatURL("envdiff", "dumps/prod.json")
	assert.Equal(t, "s3://envdiff/dumps/prod.json", ref)

	bucket, key, err := storage.ParseURL(ref)
	require.NoError(t, err)
	assert.Equal(t, "envdiff", bucket)
	assert.Equal(t, "dumps/prod.json", key)

	assert.Equal(t, "s3://envdiff/prod.json", storage.FormatURL("envdiff", "/prod.json"))
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates Missing Bucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "dumps").Return(false, nil)
		client.On("MakeBucket", ctx, "dumps", minio.MakeBucketOptions{}).Return(nil)
		client.On("PutObject", ctx, "dumps", "prod.json", mock.Anything, int64(2), minio.PutObjectOptions{ContentType: "application/json"}).
			Return(minio.UploadInfo{}, nil)

		err := storage.Upload(ctx, client, "dumps", "prod.json", []byte("{}"), "application/json")
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("Existing Bucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "dumps").Return(true, nil)
		client.On("PutObject", ctx, "dumps", "prod.json", mock.Anything, int64(2), mock.Anything).
			Return(minio.UploadInfo{}, nil)

		err := storage.Upload(ctx, client, "dumps", "prod.json", []byte("{}"), "application/json")
		require.NoError(t, err)
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Put Failure", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "dumps").Return(true, nil)
		client.On("PutObject", ctx, "dumps", "prod.json", mock.Anything, int64(2), mock.Anything).
			Return(minio.UploadInfo{}, errors.New("denied"))

		err := storage.Upload(ctx, client, "dumps", "prod.json", []byte("{}"), "application/json")
		assert.ErrorContains(t, err, "denied")
	})
}

func TestDownload(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	client.On("GetObject", ctx, "dumps", "prod.json", minio.GetObjectOptions{}).
		Return(io.NopCloser(strings.NewReader(`{"name":"prod"}`)), nil)
	client.On("GetObject", ctx, "dumps", "missing.json", minio.GetObjectOptions{}).
		Return(nil, errors.New("not found"))

	data, err := storage.Download(ctx, client, "dumps", "prod.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"prod"}`, string(data))

	_, err = storage.Download(ctx, client, "dumps", "missing.json")
	assert.ErrorContains(t, err, "not found")
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("Sorted Without Folders", func(t *testing.T) {
		client := new(mocks.Client)
		ch := make(chan minio.ObjectInfo, 3)
		ch <- minio.ObjectInfo{Key: "dumps/prod.json"}
		ch <- minio.ObjectInfo{Key: "dumps/nightly/"}
		ch <- minio.ObjectInfo{Key: "dumps/dev.yaml"}
		close(ch)
		client.On("ListObjects", ctx, "bucket", minio.ListObjectsOptions{Prefix: "dumps/", Recursive: true}).
			Return((<-chan minio.ObjectInfo)(ch))

		keys, err := storage.List(ctx, client, "bucket", "dumps/")
		require.NoError(t, err)
		assert.Equal(t, []string{"dumps/dev.yaml", "dumps/prod.json"}, keys)
	})

	t.Run("Listing Error", func(t *testing.T) {
		client := new(mocks.Client)
		ch := make(chan minio.ObjectInfo, 1)
		ch <- minio.ObjectInfo{Err: errors.New("access denied")}
		close(ch)
		client.On("ListObjects", ctx, "bucket", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

		_, err := storage.List(ctx, client, "bucket", "dumps/")
		assert.ErrorContains(t, err, "access denied")
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	client.On("RemoveObject", ctx, "bucket", "dumps/prod.json", minio.RemoveObjectOptions{}).Return(nil)

	require.NoError(t, storage.Remove(ctx, client, "bucket", "dumps/prod.json"))
	client.AssertExpectations(t)
}
