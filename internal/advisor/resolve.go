package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/photostore"
)

// PhotoResolver resolves data URIs directly and stored-photo references
// through the photo store.
type PhotoResolver struct {
	photos photostore.PhotoStore
}

func NewPhotoResolver(photos photostore.PhotoStore) *PhotoResolver {
	return &PhotoResolver{photos: photos}
}

func (r *PhotoResolver) Resolve(ctx context.Context, ref string) (capture.Image, error) {
	if strings.HasPrefix(ref, "data:") {
		return capture.FromDataURI(ref)
	}

	key, ok := photostore.KeyFromRef(ref)
	if !ok {
		return capture.Image{}, fmt.Errorf("unrecognised image reference")
	}
	if r.photos == nil {
		return capture.Image{}, fmt.Errorf("photo store not configured")
	}

	rc, _, err := r.photos.Get(ctx, key)
	if err != nil {
		return capture.Image{}, fmt.Errorf("failed to load photo: %w", err)
	}
	defer func() { _ = rc.Close() }()

	return capture.FromReader(rc, capture.MaxImageSize)
}
