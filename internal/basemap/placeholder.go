package basemap

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
)

// GraticuleStep is the spacing of placeholder grid lines in degrees
const GraticuleStep = 30

// ColorPalette defines the placeholder map colors
var ColorPalette = struct {
	Ocean     color.RGBA
	DeepOcean color.RGBA
	Ice       color.RGBA
	Grid      color.RGBA
	Equator   color.RGBA
	Meridian  color.RGBA
}{
	Ocean:     color.RGBA{40, 90, 160, 255},  // Shallow blue
	DeepOcean: color.RGBA{20, 45, 100, 255},  // Deep blue near the poles
	Ice:       color.RGBA{225, 235, 245, 255}, // Polar caps
	Grid:      color.RGBA{150, 180, 210, 255}, // Graticule
	Equator:   color.RGBA{255, 215, 0, 255},   // Gold
	Meridian:  color.RGBA{255, 140, 0, 255},   // Orange
}

// Placeholder creates a synthetic equirectangular texture of w×h pixels:
// ocean shading by latitude, polar caps and a graticule with the equator
// and prime meridian highlighted.
func Placeholder(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if w <= 0 || h <= 0 {
		return img
	}

	for y := 0; y < h; y++ {
		lat := 90 - (float64(y)/float64(h))*180
		abs := lat
		if abs < 0 {
			abs = -abs
		}
		var c color.RGBA
		if abs >= 75 {
			c = ColorPalette.Ice
		} else {
			c = blend(ColorPalette.Ocean, ColorPalette.DeepOcean, abs/75)
		}
		draw.Draw(img, image.Rect(0, y, w, y+1), &image.Uniform{c}, image.Point{}, draw.Src)
	}

	// Graticule lines, one pixel wide, at multiples of GraticuleStep.
	for deg := -180; deg < 180; deg += GraticuleStep {
		x := (deg + 180) * w / 360
		c := ColorPalette.Grid
		if deg == 0 {
			c = ColorPalette.Meridian
		}
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	for deg := 90 - GraticuleStep; deg > -90; deg -= GraticuleStep {
		y := (90 - deg) * h / 180
		c := ColorPalette.Grid
		if deg == 0 {
			c = ColorPalette.Equator
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	return img
}

// GenerateAndSave writes a placeholder texture of w×h pixels to path
func GenerateAndSave(path string, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid placeholder size: %dx%d", w, h)
	}
	if err := SavePNG(Placeholder(w, h), path); err != nil {
		return fmt.Errorf("failed to save placeholder %s: %w", path, err)
	}
	return nil
}

// SavePNG saves an image to a PNG file
func SavePNG(img image.Image, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// blend mixes a toward b by t in [0, 1]
func blend(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}
