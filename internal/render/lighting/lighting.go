// Package lighting shades an equirectangular map by solar illumination.
//
// Every pixel is mapped to a latitude/longitude, the cosine of the solar
// zenith angle is evaluated for it, and a black overlay is composited on top:
// none in daylight, a linear ramp across the twilight band, and a fixed
// half-dark veil at night.
package lighting

import (
	"image"
	"image/draw"
	"math"
	"runtime"
	"sync"

	"chosenoffset.com/daynight/internal/solar"
)

const (
	// TwilightBand is the depth below the horizon, in cos(zenith), over
	// which the overlay ramps from clear to full night.
	TwilightBand = 0.1
	// NightAlpha is the overlay alpha (0-255 scale) applied at night.
	NightAlpha = 128
)

// Illumination classifies a pixel by the sun's zenith angle.
type Illumination int

const (
	Day Illumination = iota
	Twilight
	Night
)

func (i Illumination) String() string {
	switch i {
	case Day:
		return "day"
	case Twilight:
		return "twilight"
	case Night:
		return "night"
	default:
		return "unknown"
	}
}

// Classify uses strict inequalities: exactly 0 is twilight and exactly
// -TwilightBand is night.
func Classify(cosZenith float64) Illumination {
	if cosZenith > 0 {
		return Day
	}
	if cosZenith > -TwilightBand {
		return Twilight
	}
	return Night
}

// OverlayAlpha returns the alpha of the black overlay for a given
// cos(zenith).
func OverlayAlpha(cosZenith float64) uint8 {
	switch Classify(cosZenith) {
	case Day:
		return 0
	case Twilight:
		return uint8(math.Round(NightAlpha * (1 - (cosZenith+TwilightBand)/TwilightBand)))
	default:
		return NightAlpha
	}
}

// CosZenith returns the cosine of the solar zenith angle at (lat, lon),
// both in degrees. Shade evaluates the same expression with the per-row and
// per-column factors hoisted and must round identically.
func CosZenith(lat, lon float64, pos solar.Position) float64 {
	latR := radians(lat)
	decR := radians(pos.Declination)
	return zenith(math.Sin(latR)*math.Sin(decR), math.Cos(latR)*math.Cos(decR), math.Cos(radians(lon-pos.Longitude)))
}

// zenith combines sin(lat)sin(dec), cos(lat)cos(dec) and cos(hour angle).
// The explicit conversion keeps the compiler from fusing the multiply-add.
func zenith(a, c, cosHour float64) float64 {
	return a + float64(c*cosHour)
}

// PixelLatLon maps pixel (x, y) of a w×h equirectangular image to degrees.
func PixelLatLon(x, y, w, h int) (lat, lon float64) {
	lon = float64(float64(x)/float64(w)*360) - 180
	lat = 90 - float64(float64(y)/float64(h)*180)
	return lat, lon
}

// Shader shades base maps. The zero value uses one worker per CPU.
type Shader struct {
	// Workers bounds the number of row bands shaded concurrently.
	Workers int
}

// NewShader creates a shader with the given worker count; values below 1
// mean runtime.NumCPU().
func NewShader(workers int) *Shader {
	return &Shader{Workers: workers}
}

// Shade returns a new opaque image with the same size as base, shaded for
// the given sun position. base is never modified.
func (s *Shader) Shade(base image.Image, pos solar.Position) *image.RGBA {
	b := base.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), base, b.Min, draw.Src)
	if w == 0 || h == 0 {
		return dst
	}

	// cos(lon - sunLon) only depends on the column.
	cosHour := make([]float64, w)
	for x := range cosHour {
		_, lon := PixelLatLon(x, 0, w, h)
		cosHour[x] = math.Cos(radians(lon - pos.Longitude))
	}
	decR := radians(pos.Declination)
	sinDec, cosDec := math.Sin(decR), math.Cos(decR)

	shadeRows := func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			lat, _ := PixelLatLon(0, y, w, h)
			latR := radians(lat)
			a := math.Sin(latR) * sinDec
			c := math.Cos(latR) * cosDec
			row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
			for x := 0; x < w; x++ {
				px := row[x*4 : x*4+4 : x*4+4]
				px[3] = 0xff
				alpha := OverlayAlpha(zenith(a, c, cosHour[x]))
				if alpha == 0 {
					continue
				}
				px[0] = darken(px[0], alpha)
				px[1] = darken(px[1], alpha)
				px[2] = darken(px[2], alpha)
			}
		}
	}

	workers := s.workers()
	if workers > h {
		workers = h
	}
	if workers == 1 {
		shadeRows(0, h)
		return dst
	}

	// At most workers bands; each goroutine owns its rows.
	band := (h + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < h; y0 += band {
		y1 := min(y0+band, h)
		wg.Add(1)
		go func() {
			defer wg.Done()
			shadeRows(y0, y1)
		}()
	}
	wg.Wait()
	return dst
}

func (s *Shader) workers() int {
	if s == nil || s.Workers < 1 {
		return runtime.NumCPU()
	}
	return s.Workers
}

// darken composites black at alpha over an opaque channel value.
func darken(c, alpha uint8) uint8 {
	return uint8((uint32(c)*(255-uint32(alpha)) + 127) / 255)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
