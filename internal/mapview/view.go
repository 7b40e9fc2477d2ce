// Package mapview drives the refresh loop: on each engine tick it checks the
// clock and, once the refresh interval has elapsed, computes the sun
// position, shades a fresh copy of the base map, uploads it and hands it to
// any registered sinks.
package mapview

import (
	"time"

	"chosenoffset.com/daynight/internal/basemap"
	"chosenoffset.com/daynight/internal/frame"
	"chosenoffset.com/daynight/internal/metrics"
	"chosenoffset.com/daynight/internal/render"
	"chosenoffset.com/daynight/internal/render/lighting"
	"chosenoffset.com/daynight/internal/solar"
)

// View holds the map view state. It implements render.Game.
type View struct {
	Renderer render.Renderer
	Base     *basemap.Map
	Shader   *lighting.Shader
	Interval time.Duration

	// Last refresh
	Sun         solar.Position
	LastRefresh time.Time
	Frame       render.Image
	FrameCount  int

	now       func() time.Time
	sinks     []frame.Sink
	onRefresh func(solar.Position)
}

// NewView creates a map view over base that refreshes every interval.
func NewView(r render.Renderer, base *basemap.Map, shader *lighting.Shader, interval time.Duration) *View {
	return &View{
		Renderer: r,
		Base:     base,
		Shader:   shader,
		Interval: interval,
		now:      time.Now,
	}
}

// SetClock replaces the wall clock.
func (v *View) SetClock(now func() time.Time) {
	v.now = now
}

// AddSink registers a frame sink.
func (v *View) AddSink(s frame.Sink) {
	v.sinks = append(v.sinks, s)
}

// SetOnRefresh sets a callback run after every refresh.
func (v *View) SetOnRefresh(fn func(solar.Position)) {
	v.onRefresh = fn
}

// Update refreshes the frame when the interval has elapsed. Missed
// intervals are not caught up: a late tick produces a single refresh.
func (v *View) Update() error {
	now := v.now()
	if v.Frame != nil && !now.Before(v.LastRefresh) && now.Sub(v.LastRefresh) < v.Interval {
		return nil
	}
	v.Refresh(now)
	return nil
}

// Refresh shades the base map for the given instant and publishes it.
func (v *View) Refresh(now time.Time) {
	pos := solar.At(now)

	start := time.Now()
	shaded := v.Shader.Shade(v.Base.Image, pos)
	elapsed := time.Since(start)

	if v.Frame == nil {
		v.Frame = v.Renderer.NewImage(v.Base.Width(), v.Base.Height())
	}
	v.Frame.WritePixels(shaded.Pix)

	v.Sun = pos
	v.LastRefresh = now
	v.FrameCount++
	metrics.ObserveFrame(elapsed, pos.NormalizedLongitude(), pos.Declination)

	f := frame.Frame{Image: shaded, Sun: pos, RenderedAt: now}
	for _, s := range v.sinks {
		s.Publish(f)
	}
	if v.onRefresh != nil {
		v.onRefresh(pos)
	}
}

// Layout uses the window size as the logical screen; Draw scales the map
// to fill it.
func (v *View) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
