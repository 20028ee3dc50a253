// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind a small interface so snapshot dumps can
// be written to and read from AWS S3 or a self-hosted MinIO instance, and so
// tests can swap in the mock from core/storage/mocks.
//
// # Dumps
//
// A dump stored in a bucket is addressed as s3://bucket/key. Upload creates
// the bucket on first use; Download, List and Remove cover the rest of the
// lifecycle.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	bucket, key, err := storage.ParseURL("s3://dumps/prod.json")
//	data, err := storage.Download(ctx, client, bucket, key)
package storage
