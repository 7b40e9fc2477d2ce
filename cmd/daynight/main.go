package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"chosenoffset.com/daynight/internal/basemap"
	"chosenoffset.com/daynight/internal/config"
	"chosenoffset.com/daynight/internal/frameserver"
	"chosenoffset.com/daynight/internal/mapview"
	ebitenrender "chosenoffset.com/daynight/internal/render/ebiten"
	"chosenoffset.com/daynight/internal/render/lighting"
	"chosenoffset.com/daynight/internal/solar"
	"chosenoffset.com/daynight/web"
)

// ticksPerSecond is how often the engine polls the clock; the map itself
// refreshes at the configured interval.
const ticksPerSecond = 10

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load the base map once; every frame is shaded from this copy
	log.Printf("Loading base map: %s", cfg.BaseMap)
	base, err := basemap.Load(cfg.BaseMap)
	if err != nil {
		log.Fatalf("Failed to load base map: %v", err)
	}
	log.Printf("Loaded base map: %s (%dx%d)", base.Format, base.Width(), base.Height())

	// Initialize the renderer backend (ebiten)
	renderer := ebitenrender.NewRenderer()
	engine := ebitenrender.NewEngine()

	shader := lighting.NewShader(cfg.ShadingWorkers())
	view := mapview.NewView(renderer, base, shader, cfg.RefreshInterval())
	view.SetOnRefresh(func(pos solar.Position) {
		engine.SetWindowTitle(fmt.Sprintf("%s - sun %s", cfg.Window.Title, pos))
	})

	// Optional HTTP frame server
	server := frameserver.New(cfg.FrameServer.Addr, web.Content)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start frame server: %v", err)
	}
	if server != nil {
		view.AddSink(server)
	}

	// Set up the window
	engine.SetWindowSize(cfg.WindowSize(base.Width(), base.Height()))
	engine.SetWindowTitle(cfg.Window.Title)
	engine.SetWindowResizable(true)
	engine.SetTPS(ticksPerSecond)

	log.Printf("Starting viewer (refresh every %v, %d shading workers)", cfg.RefreshInterval(), cfg.ShadingWorkers())
	runErr := engine.RunGame(view)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("Frame server shutdown error: %v", err)
	}

	if runErr != nil {
		log.Fatal(runErr)
	}
	log.Printf("Viewer closed after %d frames", view.FrameCount)
}
