package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/textsumlab/sumpipe/pkg/errors"
)

// ObjectContent is an object body plus the metadata a backend needs to
// store it.
type ObjectContent struct {
	Body          io.Reader
	ContentType   string
	ContentLength int64
}

type ObjectMeta struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Backend is the storage interface the backup fan-out writes through.
// Keys are slash-separated object keys.
type Backend interface {
	Put(ctx context.Context, key string, content ObjectContent) error
	Get(ctx context.Context, key string) (*ObjectContent, error)
	Exists(ctx context.Context, key string) (bool, error)
	Stat(ctx context.Context, key string) (ObjectMeta, error)
	List(ctx context.Context, prefix string, recursive bool) ([]ObjectMeta, error)
	Remove(ctx context.Context, key string) error
	// URI renders the canonical URI of an object, e.g. s3://bucket/key.
	URI(key string) string
}

// ParseS3URI splits an s3://bucket/key URI.
func ParseS3URI(uri string) (bucket string, key string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return "", "", errors.NewValueInvalidError("uri", fmt.Sprintf("not an s3 uri: %s", uri))
	}
	parts := strings.SplitN(uri[len(scheme):], "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.NewValueInvalidError("uri", fmt.Sprintf("not an s3 uri: %s", uri))
	}
	return parts[0], parts[1], nil
}
