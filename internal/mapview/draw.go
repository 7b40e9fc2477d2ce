package mapview

import (
	"chosenoffset.com/daynight/internal/render"
)

// Draw renders the latest frame scaled to the screen.
func (v *View) Draw(screen render.Image) {
	if v.Frame == nil {
		return
	}

	sw, sh := screen.Size()
	fw, fh := v.Frame.Size()
	if fw == 0 || fh == 0 {
		return
	}

	opts := &render.DrawImageOptions{Filter: render.FilterLinear}
	opts.GeoM = render.NewGeoM()
	opts.GeoM.Scale(float64(sw)/float64(fw), float64(sh)/float64(fh))
	screen.DrawImage(v.Frame, opts)
}
