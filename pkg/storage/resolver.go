package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// ErrRemoteNotConfigured is returned for s3:// references without object storage.
var ErrRemoteNotConfigured = errors.New("object storage is not configured")

// Cover is an opened cover image ready for upload.
type Cover struct {
	Name string
	Body io.ReadCloser
}

// Resolver turns a cover reference into a readable file. References are
// either local paths or s3://bucket/key.
type Resolver struct {
	Local  *FileStore
	Remote ObjectReader
}

// NewResolver builds a resolver; remote may be nil.
func NewResolver(local *FileStore, remote ObjectReader) *Resolver {
	if local == nil {
		local = NewFileStore("")
	}
	return &Resolver{Local: local, Remote: remote}
}

// Open resolves ref. The caller closes Cover.Body.
func (r *Resolver) Open(ctx context.Context, ref string) (Cover, error) {
	ref = strings.TrimSpace(ref)
	if bucket, key, ok := ParseObjectRef(ref); ok {
		if r.Remote == nil {
			return Cover{}, ErrRemoteNotConfigured
		}
		body, err := r.Remote.Open(ctx, bucket, key)
		if err != nil {
			return Cover{}, err
		}
		return Cover{Name: path.Base(key), Body: body}, nil
	}
	body, err := r.Local.Open(ref)
	if err != nil {
		return Cover{}, err
	}
	return Cover{Name: filepath.Base(ref), Body: body}, nil
}

// ParseObjectRef splits s3://bucket/key.
func ParseObjectRef(ref string) (bucket, key string, ok bool) {
	const scheme = "s3://"
	if !strings.HasPrefix(ref, scheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(ref, scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
