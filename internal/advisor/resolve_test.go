package advisor

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPhotoStore struct {
	data map[string][]byte
	gets []string
}

func (s *stubPhotoStore) Save(context.Context, string, string, io.Reader) (string, error) {
	return "", nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.gets = append(s.gets, key)
	data, ok := s.data[key]
	if !ok {
		return nil, "", io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (s *stubPhotoStore) Delete(context.Context, string) error { return nil }

func TestPhotoResolverDataURI(t *testing.T) {
	r := NewPhotoResolver(nil)

	img, err := r.Resolve(context.Background(), testImage.DataURI())
	require.NoError(t, err)
	assert.Equal(t, testImage, img)
}

func TestPhotoResolverStoredPhoto(t *testing.T) {
	store := &stubPhotoStore{data: map[string][]byte{"scan_1.jpg": testImage.Data}}
	r := NewPhotoResolver(store)

	img, err := r.Resolve(context.Background(), "/photos/scan_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, testImage, img)
	assert.Equal(t, []string{"scan_1.jpg"}, store.gets)
}

func TestPhotoResolverErrors(t *testing.T) {
	store := &stubPhotoStore{data: map[string][]byte{}}
	r := NewPhotoResolver(store)

	_, err := r.Resolve(context.Background(), "/photos/missing.jpg")
	assert.Error(t, err)

	_, err = r.Resolve(context.Background(), "https://example.com/a.jpg")
	assert.Error(t, err)

	_, err = r.Resolve(context.Background(), "/photos/../etc/passwd")
	assert.Error(t, err)
	assert.Len(t, store.gets, 1)
}
