package web

import "embed"

// Content holds the embedded viewer page served by the frame server.
//
//go:embed index.html
var Content embed.FS
