// Package basemap loads the equirectangular world texture the viewer shades.
package basemap

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Map is a decoded base map. Image has its origin at (0, 0) and is opaque.
// It is shared read-only between refreshes and must not be modified.
type Map struct {
	Path   string
	Format string
	Image  *image.RGBA
}

// Width returns the map width in pixels
func (m *Map) Width() int {
	return m.Image.Bounds().Dx()
}

// Height returns the map height in pixels
func (m *Map) Height() int {
	return m.Image.Bounds().Dy()
}

// Load reads and decodes a base map from disk
func Load(path string) (*Map, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open base map %s: %w", path, err)
	}
	defer file.Close()

	m, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load base map %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Decode decodes a base map in any registered format: JPEG, PNG, GIF, BMP,
// TIFF or WebP.
func Decode(r io.Reader) (*Map, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("image has no pixels")
	}

	return &Map{Format: format, Image: toOpaqueRGBA(img)}, nil
}

// toOpaqueRGBA copies img into a zero-origin RGBA buffer with every alpha
// byte set to 255
func toOpaqueRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
