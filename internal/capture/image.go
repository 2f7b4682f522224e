package capture

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vincent-petithory/dataurl"
)

// MaxImageSize bounds every image accepted from a file picker, data URI or
// camera frame.
const MaxImageSize = 20 * 1024 * 1024 // 20 MB

var (
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrImageTooLarge    = errors.New("image too large")
	ErrInvalidDataURI   = errors.New("invalid data uri")
)

// Image is the buffer representation shared by the upload and camera paths.
type Image struct {
	Data     []byte
	MimeType string
}

// DataURI renders the image as a base64 data URI.
func (img Image) DataURI() string {
	return dataurl.New(img.Data, img.MimeType).String()
}

// allowedImageTypes is the set of MIME types accepted for photos.
// http.DetectContentType handles JPEG, PNG, and GIF via magic-byte sniffing.
// WebP is detected separately because the stdlib sniffer has no WebP
// signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a RIFF container with "WEBP" at offset 8.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// SniffMIME returns the detected MIME type and true if data is an accepted
// image format.
func SniffMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// FromDataURI decodes a browser data URI (e.g. a canvas snapshot). The MIME
// type is taken from the bytes, not from the declared header.
func FromDataURI(s string) (Image, error) {
	du, err := dataurl.DecodeString(s)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(du.Data) > MaxImageSize {
		return Image{}, ErrImageTooLarge
	}
	mime, ok := SniffMIME(du.Data)
	if !ok {
		return Image{}, ErrUnsupportedImage
	}
	return Image{Data: du.Data, MimeType: mime}, nil
}

// FromReader reads an uploaded file of at most limit bytes.
func FromReader(r io.Reader, limit int64) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > limit {
		return Image{}, ErrImageTooLarge
	}
	mime, ok := SniffMIME(data)
	if !ok {
		return Image{}, ErrUnsupportedImage
	}
	return Image{Data: data, MimeType: mime}, nil
}
