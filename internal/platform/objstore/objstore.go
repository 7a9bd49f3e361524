// Package objstore stores uploaded report artifacts. It defines the Store
// interface, an in-memory implementation suitable for testing and
// development, and a client for a Supabase-storage-compatible HTTP API.
//
// Keys are generated, never caller-supplied, and a key is never reused.
package objstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"time"
)

var (
	// ErrBucketAccessDenied indicates the storage backend rejected a bucket
	// operation for lack of permissions. This needs administrator action,
	// not a retry.
	ErrBucketAccessDenied = errors.New("insufficient storage permissions")

	ErrObjectNotFound = errors.New("object not found")
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
)

// Store is the contract the report pipeline has with object storage.
type Store interface {
	// EnsureBucket makes sure the logical bucket exists. It is idempotent
	// and tolerates concurrent callers both attempting creation.
	EnsureBucket(ctx context.Context) error

	// Upload stores content under a freshly generated key derived from
	// fileName's extension and returns that key.
	Upload(ctx context.Context, fileName string, content io.Reader) (string, error)

	// Open returns a reader over a previously uploaded object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// AccessURL returns a URL for the object that is currently valid: a
	// permanent public URL when the bucket is public, otherwise a signed
	// URL that expires after ttl. Callers must not cache it beyond the
	// bucket's access policy.
	AccessURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ObjectKey builds a collision-resistant storage key from the current time,
// a random token and the original file extension:
// {epochMillis}-{token}{.ext}.
func ObjectKey(fileName string) string {
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), randomToken(), path.Ext(fileName))
}

func randomToken() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived token rather than panicking mid-upload.
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// readCapped reads content up to maxBytes, failing with ErrFileTooLarge when
// exceeded. maxBytes <= 0 means unlimited.
func readCapped(content io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(content)
		if err != nil {
			return nil, fmt.Errorf("reading content: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(content, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
