package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, G: 150, B: 120, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeStream struct {
	frame   []byte
	err     error
	stopped int
}

func (s *fakeStream) Frame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.frame, s.err
}

func (s *fakeStream) Stop() error {
	s.stopped++
	return nil
}

func TestCaptureReleasesStreamOnSuccess(t *testing.T) {
	s := &fakeStream{frame: pngFrame(t)}

	img, err := CaptureFrom(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MimeType)
	mime, ok := SniffMIME(img.Data)
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, 1, s.stopped)
}

func TestCaptureReleasesStreamOnFailure(t *testing.T) {
	s := &fakeStream{err: errors.New("device busy")}

	_, err := CaptureFrom(context.Background(), s)
	assert.Error(t, err)
	assert.Equal(t, 1, s.stopped)
}

func TestCaptureReleasesStreamOnCancel(t *testing.T) {
	s := &fakeStream{frame: pngFrame(t)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CaptureFrom(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.stopped)
}

func TestCaptureUndecodableFrame(t *testing.T) {
	s := &fakeStream{frame: []byte("not an image")}

	_, err := CaptureFrom(context.Background(), s)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Equal(t, 1, s.stopped)
}

func TestCaptureKeepsWebPFrame(t *testing.T) {
	frame := []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
	s := &fakeStream{frame: frame}

	img, err := CaptureFrom(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", img.MimeType)
	assert.Equal(t, frame, img.Data)
	assert.Equal(t, 1, s.stopped)
}

func TestSnapshotCameraSingleFrame(t *testing.T) {
	frame := pngFrame(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(frame)
	}))
	defer server.Close()

	s, err := NewSnapshotCamera(server.URL).Open(context.Background())
	require.NoError(t, err)

	img, err := CaptureFrom(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MimeType)
}

func TestSnapshotCameraMJPEG(t *testing.T) {
	frame := pngFrame(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", mw.Boundary()))
		for i := 0; i < 2; i++ {
			part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"image/png"}})
			if err != nil {
				return
			}
			_, _ = part.Write(frame)
		}
		_ = mw.Close()
	}))
	defer server.Close()

	s, err := NewSnapshotCamera(server.URL).Open(context.Background())
	require.NoError(t, err)

	img, err := CaptureFrom(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MimeType)
	assert.NoError(t, s.Stop(), "stop is idempotent")
}

func TestSnapshotCameraPermissionDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewSnapshotCamera(server.URL).Open(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSnapshotCameraUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewSnapshotCamera(server.URL).Open(context.Background())
	assert.ErrorIs(t, err, ErrCameraUnavailable)

	_, err = NewSnapshotCamera("").Open(context.Background())
	assert.ErrorIs(t, err, ErrNoCamera)
}

func TestSnapshotCameraStalledFrameHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	s, err := NewSnapshotCamera(server.URL).Open(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := CaptureFrom(ctx, s)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not return after its context expired")
	}
}

func TestSnapshotCameraStopUnblocksFrame(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	s, err := NewSnapshotCamera(server.URL).Open(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Frame(context.Background())
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("frame read did not return after stop")
	}
}
