package storage

import "context"

// ObjectStorage defines the minimal object storage operations the test data
// cache needs. It is intentionally small so MinIO/S3 implementations can be
// swapped without touching the cache logic.
type ObjectStorage interface {
	// GetObject opens a reader for an object. Caller must close the
	// returned reader.
	GetObject(ctx context.Context, bucket, objectKey string) (ObjectReader, error)

	// PutObject uploads an object from a reader of known size.
	PutObject(ctx context.Context, bucket, objectKey string, reader ObjectReader, sizeBytes int64, contentType string) error

	// StatObject returns size and ETag for an object.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)
}

// ObjectReader is a streaming reader for object data.
type ObjectReader interface {
	Read(p []byte) (int, error)
	Close() error
}

// ObjectStat contains object metadata used for validation.
type ObjectStat struct {
	SizeBytes   int64
	ETag        string
	ContentType string
}
