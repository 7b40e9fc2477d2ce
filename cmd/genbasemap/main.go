package main

import (
	"flag"
	"fmt"
	"os"

	"chosenoffset.com/daynight/internal/basemap"
)

func main() {
	out := flag.String("o", "placeholder_earth.png", "Output PNG path")
	width := flag.Int("width", 720, "Texture width in pixels")
	height := flag.Int("height", 360, "Texture height in pixels")
	flag.Parse()

	fmt.Println("Day and Night Map Placeholder Texture Generator")
	fmt.Println("===============================================")
	fmt.Println()

	if err := basemap.GenerateAndSave(*out, *width, *height); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %dx%d equirectangular placeholder to %s\n", *width, *height, *out)
	fmt.Println("Point \"base_map\" in daynight.json at it to use it.")
}
