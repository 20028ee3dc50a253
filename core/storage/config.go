package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// Config holds configuration for the object storage holding snapshot dumps.
type Config struct {
	// Endpoint is the host of the storage service. An http:// or https://
	// scheme overrides UseSSL.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the bucket the dumps API stores into.
	Bucket string `mapstructure:"bucket" default:"envdiff"`
	// Prefix is prepended to object keys stored and listed by the dumps API.
	Prefix string `mapstructure:"prefix" default:"dumps/"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// PathStyle addresses buckets as host/bucket instead of bucket.host.
	// Self-hosted MinIO needs it; AWS S3 works either way.
	PathStyle bool `mapstructure:"path_style" default:"true"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Timeout returns the connection timeout, 30 seconds when unset.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// endpoint returns the host minio connects to and whether TLS is used.
func (c Config) endpoint() (host string, secure bool, err error) {
	host = strings.TrimSpace(c.Endpoint)
	secure = c.UseSSL

	switch {
	case strings.HasPrefix(host, "https://"):
		host, secure = strings.TrimPrefix(host, "https://"), true
	case strings.HasPrefix(host, "http://"):
		host, secure = strings.TrimPrefix(host, "http://"), false
	}
	host = strings.TrimSuffix(host, "/")

	if host == "" {
		return "", false, errors.New("storage endpoint is not configured")
	}
	if strings.Contains(host, "/") {
		return "", false, fmt.Errorf("storage endpoint %q must not contain a path, buckets are addressed by s3:// urls", c.Endpoint)
	}
	return host, secure, nil
}

func (c Config) bucketLookup() minio.BucketLookupType {
	if c.PathStyle {
		return minio.BucketLookupPath
	}
	return minio.BucketLookupAuto
}
