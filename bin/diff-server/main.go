package main

import (
	"context"
	"flag"
	"log"
	"pixeldiff/internal/codec"
	"pixeldiff/internal/env"
	"pixeldiff/internal/routes"
	"pixeldiff/internal/runnable"
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}

	var options routes.DiffOptions
	flag.StringVar(&options.Mode, "mode", env.OrDefault("MODE", "alpha"), "Default diff mode (alpha or opaque)")
	flag.StringVar(&options.Format, "format", env.OrDefault("FORMAT", "png"), "Default output format (png, jpeg, bmp or tiff)")
	flag.StringVar(&options.Highlight, "highlight", env.OrDefault("HIGHLIGHT", ""), "Default highlight color (#RRGGBB or #RRGGBBAA)")
	flag.IntVar(&options.Workers, "workers", env.OrDefault("WORKERS", 0), "Rows are split across this many goroutines, GOMAXPROCS when 0")
	flag.Int64Var(&options.MaxMemory, "max-memory", env.OrDefault("MAX_MEMORY", int64(32<<20)), "Bytes of a multipart request kept in memory")
	flag.Int64Var(&options.MaxPixels, "max-pixels", env.OrDefault("MAX_PIXELS", int64(codec.DefaultMaxPixels)), "Inputs with more pixels are rejected")
	flag.BoolVar(&runnable.Debug, "debug", env.OrDefault("DEBUG", false), "Text logs and pprof endpoints")

	flag.Parse()

	server := runnable.NewServer(options)
	if err := server.Start(context.Background()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
