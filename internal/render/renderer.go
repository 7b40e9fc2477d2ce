package render

// Renderer is the main rendering interface that abstracts the underlying
// graphics engine. This allows swapping rendering backends without changing
// the map view.
type Renderer interface {
	// NewImage creates a blank image of the given size.
	NewImage(width, height int) Image
}

// Image represents a renderable image surface that can be drawn to or drawn from.
// It abstracts the underlying image implementation.
type Image interface {
	// Properties
	Size() (width, height int)

	// WritePixels replaces the whole image with RGBA bytes; len(pix) must
	// be 4*width*height.
	WritePixels(pix []byte)

	// Drawing operations
	DrawImage(src Image, opts *DrawImageOptions)
}

// Filter selects how an image is sampled when scaled.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

// DrawImageOptions contains options for drawing an image.
type DrawImageOptions struct {
	GeoM   GeoM
	Filter Filter
}

// GeoM represents a geometric transformation matrix.
type GeoM interface {
	// Scale scales the image by (sx, sy).
	Scale(sx, sy float64)
}

// NewGeoM creates a new geometric transformation matrix.
// This is implemented by the specific renderer backend.
var NewGeoM func() GeoM

// Game is the interface the engine drives. The map view implements it.
type Game interface {
	// Update is called every engine tick (typically 60 times per second).
	Update() error

	// Draw draws the current frame to the screen.
	Draw(screen Image)

	// Layout accepts the outside size (e.g., window size) and returns the logical screen size.
	Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int)
}

// Engine represents the engine that manages the main loop and window.
type Engine interface {
	// SetWindowSize sets the window size in pixels.
	SetWindowSize(width, height int)

	// SetWindowTitle sets the window title.
	SetWindowTitle(title string)

	// SetWindowResizable enables or disables window resizing.
	SetWindowResizable(resizable bool)

	// SetTPS sets how many times per second Game.Update is called.
	SetTPS(tps int)

	// RunGame runs the main loop with the provided game.
	// This is a blocking call that runs until the window is closed.
	RunGame(game Game) error
}
