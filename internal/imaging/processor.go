// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging normalises uploaded profile photos: EXIF orientation is
// applied, metadata is dropped and the image is cropped to a square.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Defaults for profile photos.
const (
	DefaultPhotoSize = 512
	DefaultMaxBytes  = 5 << 20
	jpegQuality      = 88
)

// Supported MIME types.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

var (
	// ErrUnsupportedFormat is returned for anything but JPEG, PNG, GIF and WebP.
	ErrUnsupportedFormat = errors.New("imaging: unsupported image format")
	// ErrTooLarge is returned when the upload exceeds the byte limit.
	ErrTooLarge = errors.New("imaging: image too large")
)

// Photo is a normalised image ready to store.
type Photo struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Processor normalises profile photos.
type Processor struct {
	size     int
	maxBytes int64
}

// NewProcessor creates a Processor producing size x size images from inputs
// of at most maxBytes. Zero values use the defaults.
func NewProcessor(size int, maxBytes int64) *Processor {
	if size <= 0 {
		size = DefaultPhotoSize
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Processor{size: size, maxBytes: maxBytes}
}

// MaxBytes returns the upload size limit.
func (p *Processor) MaxBytes() int64 {
	return p.maxBytes
}

// NormalizePhoto decodes r, applies its EXIF orientation, center-crops it to
// a square and re-encodes it. PNG and GIF become PNG; everything else
// becomes JPEG.
func (p *Processor) NormalizePhoto(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}

	format := DetectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	bounds := img.Bounds()
	side := min(bounds.Dx(), bounds.Dy(), p.size)
	img = imaging.Fill(img, side, side, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	photo := &Photo{Width: side, Height: side}
	switch format {
	case "png", "gif":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
		photo.ContentType, photo.Ext = MimeTypePNG, ".png"
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
		photo.ContentType, photo.Ext = MimeTypeJPEG, ".jpg"
	}
	photo.Data = buf.Bytes()
	return photo, nil
}

// readExifOrientation returns the EXIF orientation tag, or 1 when absent.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation undoes the camera rotation recorded in EXIF values 2-8.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// DetectFormat sniffs the image format. TIFF is refused because of
// CVE-2023-36308 in disintegration/imaging.
func DetectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	switch {
	case strings.Contains(contentType, "tiff"):
		return ""
	case contentType == MimeTypeJPEG:
		return "jpeg"
	case contentType == MimeTypePNG:
		return "png"
	case contentType == MimeTypeGIF:
		return "gif"
	case contentType == MimeTypeWebP:
		return "webp"
	}
	return ""
}
