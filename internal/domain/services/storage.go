package services

import "context"

// ObjectStore downloads objects from bucket storage
type ObjectStore interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}
