package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
)

// URLScheme prefixes snapshot references stored in a bucket.
const URLScheme = "s3://"

// IsURL reports whether ref addresses an object in a bucket.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, URLScheme)
}

// ParseURL splits s3://bucket/key into its bucket and key.
func ParseURL(ref string) (bucket, key string, err error) {
	if !IsURL(ref) {
		return "", "", fmt.Errorf("%q is not a %s url", ref, URLScheme)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(ref, URLScheme), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%q must name a bucket and an object key", ref)
	}
	return bucket, key, nil
}

// FormatURL builds the s3://bucket/key reference ParseURL accepts.
func FormatURL(bucket, key string) string {
	return URLScheme + bucket + "/" + strings.TrimPrefix(key, "/")
}

// Upload stores data under key, creating the bucket when it is missing.
func Upload(ctx context.Context, client Client, bucket, key string, data []byte, contentType string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	_, err = client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Download reads the whole object stored under key.
func Download(ctx context.Context, client Client, bucket, key string) ([]byte, error) {
	reader, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s/%s: %w", bucket, key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// List returns the sorted keys under prefix.
func List(ctx context.Context, client Client, bucket, prefix string) ([]string, error) {
	var keys []string
	for object := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list %s/%s: %w", bucket, prefix, object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		keys = append(keys, object.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Remove deletes the object stored under key.
func Remove(ctx context.Context, client Client, bucket, key string) error {
	if err := client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", bucket, key, err)
	}
	return nil
}
