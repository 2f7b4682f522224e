package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
)

// SnapshotCamera is a network camera reachable over HTTP. The endpoint may
// serve a single JPEG snapshot or an MJPEG multipart/x-mixed-replace stream.
type SnapshotCamera struct {
	url    string
	client *http.Client
}

func NewSnapshotCamera(url string) *SnapshotCamera {
	return &SnapshotCamera{url: url, client: &http.Client{}}
}

// Open connects to the camera. The stream outlives ctx; only Stop closes it.
func (c *SnapshotCamera) Open(ctx context.Context) (Stream, error) {
	if c.url == "" {
		return nil, ErrNoCamera
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create camera request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_ = resp.Body.Close()
		cancel()
		return nil, ErrPermissionDenied
	case resp.StatusCode != http.StatusOK:
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: camera returned status %d", ErrCameraUnavailable, resp.StatusCode)
	}

	s := &httpStream{body: resp.Body, cancel: cancel}
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		s.parts = multipart.NewReader(resp.Body, params["boundary"])
	}
	return s, nil
}

type httpStream struct {
	body   io.ReadCloser
	parts  *multipart.Reader
	cancel context.CancelFunc

	stopOnce sync.Once
	stopErr  error
}

// Frame reads the next frame. Cancelling ctx stops the stream, which unblocks
// a read from a camera that has stalled.
func (s *httpStream) Frame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Stop() })
	defer stop()

	var r io.Reader = s.body
	if s.parts != nil {
		part, err := s.parts.NextPart()
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			return nil, fmt.Errorf("failed to read mjpeg part: %w", err)
		}
		r = part
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("failed to read camera frame: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

// Stop cancels the request first so a read blocked on the connection returns.
func (s *httpStream) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		if err := s.body.Close(); err != nil && !errors.Is(err, context.Canceled) {
			s.stopErr = err
		}
	})
	return s.stopErr
}
