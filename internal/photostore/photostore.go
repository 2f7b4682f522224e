package photostore

import (
	"context"
	"io"
	"strings"
)

// RefPrefix is the URL path under which stored photos are served; an image
// reference is RefPrefix followed by the storage key.
const RefPrefix = "/photos/"

type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

// Ref returns the image reference for a storage key.
func Ref(storageKey string) string {
	return RefPrefix + storageKey
}

// KeyFromRef extracts the storage key from an image reference.
func KeyFromRef(ref string) (string, bool) {
	key, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}
