// Package frame holds the shaded frame handed from the map view to its
// outputs.
package frame

import (
	"image"
	"time"

	"chosenoffset.com/daynight/internal/solar"
)

// Frame is one shaded map together with the sun position it was shaded for.
// The image must not be modified after it is published.
type Frame struct {
	Image      *image.RGBA
	Sun        solar.Position
	RenderedAt time.Time
}

// Sink receives every shaded frame. Publish must not block.
type Sink interface {
	Publish(f Frame)
}
