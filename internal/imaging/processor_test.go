// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizePhotoJPEG(t *testing.T) {
	p := NewProcessor(128, 0)
	photo, err := p.NormalizePhoto(bytes.NewReader(encodeJPEG(t, testImage(400, 200))))
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	if photo.ContentType != MimeTypeJPEG || photo.Ext != ".jpg" {
		t.Errorf("ContentType/Ext = %s %s", photo.ContentType, photo.Ext)
	}
	if photo.Width != 128 || photo.Height != 128 {
		t.Errorf("size = %dx%d, want 128x128", photo.Width, photo.Height)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 128 || b.Dy() != 128 {
		t.Errorf("decoded size = %dx%d", b.Dx(), b.Dy())
	}
}

func TestNormalizePhotoSmallImageNotUpscaled(t *testing.T) {
	p := NewProcessor(512, 0)
	photo, err := p.NormalizePhoto(bytes.NewReader(encodePNG(t, testImage(60, 90))))
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	if photo.Width != 60 || photo.Height != 60 {
		t.Errorf("size = %dx%d, want 60x60", photo.Width, photo.Height)
	}
	if photo.ContentType != MimeTypePNG {
		t.Errorf("ContentType = %s, want png", photo.ContentType)
	}
}

func TestNormalizePhotoGIFBecomesPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testImage(40, 40), nil); err != nil {
		t.Fatalf("gif.Encode: %v", err)
	}
	photo, err := NewProcessor(0, 0).NormalizePhoto(&buf)
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	if photo.Ext != ".png" {
		t.Errorf("Ext = %s, want .png", photo.Ext)
	}
}

func TestNormalizePhotoRejects(t *testing.T) {
	p := NewProcessor(64, 1024)

	if _, err := p.NormalizePhoto(bytes.NewReader([]byte("definitely not an image"))); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("text input error = %v, want ErrUnsupportedFormat", err)
	}

	big := encodePNG(t, testImage(300, 300))
	if _, err := p.NormalizePhoto(bytes.NewReader(big)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized input error = %v, want ErrTooLarge", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
		{"gif", []byte("GIF89a......"), "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP"), "webp"},
		{"tiff", []byte{'I', 'I', 0x2A, 0x00, 0, 0, 0, 0}, ""},
		{"text", []byte("hello"), ""},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.data); got != tt.want {
			t.Errorf("DetectFormat(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestApplyOrientation(t *testing.T) {
	img := testImage(40, 20)
	for o := 1; o <= 8; o++ {
		out := applyOrientation(img, o)
		b := out.Bounds()
		rotated := o >= 5
		if rotated && (b.Dx() != 20 || b.Dy() != 40) {
			t.Errorf("orientation %d: size %dx%d, want 20x40", o, b.Dx(), b.Dy())
		}
		if !rotated && (b.Dx() != 40 || b.Dy() != 20) {
			t.Errorf("orientation %d: size %dx%d, want 40x20", o, b.Dx(), b.Dy())
		}
	}
}
