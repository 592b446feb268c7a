// Command easel opens the infinite-canvas desktop app against a running
// easel-server instance.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phanxgames/easel"
)

func main() {
	serverURL := flag.String("server", "http://localhost:3002", "Base URL of the easel-server instance")
	width := flag.Int("width", 1024, "Initial window width")
	height := flag.Int("height", 768, "Initial window height")
	title := flag.String("title", "easel", "Window title")
	importPath := flag.String("import", "", "Document JSON file to import on startup instead of loading from the server")
	flag.Parse()

	canvas := easel.NewCanvas(float64(*width), float64(*height))
	canvas.SetNotify(func(err error) {
		logrus.WithError(err).Warn("non-fatal error")
	})

	syncer := easel.NewSyncer(canvas, easel.NewHTTPPersister(*serverURL))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if *importPath != "" {
		if err := importFile(ctx, syncer, *importPath); err != nil {
			logrus.WithError(err).Fatal("import failed")
		}
	} else if err := syncer.Load(ctx); err != nil {
		// Non-fatal: start with an empty canvas and let saves retry.
		logrus.WithError(err).Warn("could not load document from server")
	}
	cancel()

	err := easel.Run(canvas, easel.RunConfig{
		Title:     *title,
		Width:     *width,
		Height:    *height,
		Generator: easel.NewHTTPGenerator(*serverURL),
	})
	if err != nil {
		logrus.Fatal(err)
	}

	// Persist whatever the debounce was still holding.
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := syncer.Flush(ctx); err != nil {
		logrus.WithError(err).Warn("final save failed")
	}
}
