package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
)

var (
	ErrNoCamera          = errors.New("no camera available")
	ErrPermissionDenied  = errors.New("camera permission denied")
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Camera opens a live stream from a capture device.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open camera handle. Stop releases the device and is safe to
// call more than once.
type Stream interface {
	Frame(ctx context.Context) ([]byte, error)
	Stop() error
}

// jpegQuality matches what browsers use for canvas.toDataURL("image/jpeg").
const jpegQuality = 92

// CaptureFrom grabs one frame from an already open stream, encodes it as JPEG
// and stops the stream whether or not the capture succeeded. WebP frames are
// returned as they are since there is no WebP decoder to re-encode them with.
func CaptureFrom(ctx context.Context, s Stream) (Image, error) {
	defer func() {
		if err := s.Stop(); err != nil {
			slog.Error("failed to stop camera stream", "error", err)
		}
	}()

	frame, err := s.Frame(ctx)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read frame: %w", err)
	}
	if mimeType, ok := SniffMIME(frame); ok && mimeType == "image/webp" {
		return Image{Data: frame, MimeType: mimeType}, nil
	}
	return encodeJPEG(frame)
}

func encodeJPEG(frame []byte) (Image, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	return Image{Data: buf.Bytes(), MimeType: "image/jpeg"}, nil
}
