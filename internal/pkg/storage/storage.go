// Package storage reads attachment objects from S3, MinIO or Google Cloud Storage.
//
// Attachments reference objects as "storage://<bucket>/<key>".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Scheme prefixes object references in attachment paths.
const Scheme = "storage://"

var (
	// ErrInvalidRef indicates a reference without bucket or key.
	ErrInvalidRef = errors.New("storage: invalid object reference")
	// ErrObjectNotFound indicates a missing bucket or object.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrObjectTooLarge indicates an object above the read limit.
	ErrObjectTooLarge = errors.New("storage: object exceeds size limit")
)

// Storage is the read side of an object store.
type Storage interface {
	io.Closer

	// GetObject streams the object; the caller closes the reader.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
}

// ObjectInfo describes object metadata.
type ObjectInfo struct {
	Bucket      string
	Key         string
	Size        int64
	ETag        string
	ContentType string
	UpdatedAt   time.Time
}

// IsRef reports whether path uses the storage scheme.
func IsRef(path string) bool {
	return strings.HasPrefix(path, Scheme)
}

// ParseRef splits "storage://bucket/some/key" into bucket and key.
func ParseRef(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	return bucket, key, nil
}

// ReadAll fetches the whole object. maxBytes <= 0 means no limit.
func ReadAll(ctx context.Context, s Storage, bucket, key string, maxBytes int64) ([]byte, ObjectInfo, error) {
	rc, info, err := s.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	defer func() {
		//nolint:errcheck // read-only stream
		_ = rc.Close()
	}()

	if maxBytes > 0 && info.Size > maxBytes {
		return nil, info, fmt.Errorf("%w: %s/%s is %d bytes", ErrObjectTooLarge, bucket, key, info.Size)
	}

	var r io.Reader = rc
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, info, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, info, fmt.Errorf("%w: %s/%s", ErrObjectTooLarge, bucket, key)
	}

	return data, info, nil
}
