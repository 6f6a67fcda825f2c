package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"pixeldiff/internal/codec"
	"pixeldiff/internal/diff"
	diffimage "pixeldiff/internal/diff/image"
	"pixeldiff/internal/env"
	"pixeldiff/internal/retry"
	"pixeldiff/internal/storage"
	"time"
)

const (
	exitIdentical = 0
	exitDifferent = 1
	exitError     = 2
)

type DiffOutput struct {
	DiffPath        string  `json:"diffPath"`
	DiffAmount      float64 `json:"diffAmount"`
	Identical       bool    `json:"identical"`
	DifferingPixels int     `json:"differingPixels"`
}

func fatalf(format string, v ...any) {
	log.Printf(format, v...)
	os.Exit(exitError)
}

func main() {
	if err := env.Load(); err != nil {
		fatalf("Failed to load environment: %v", err)
	}

	var directory string
	var storageBackend string
	var bucket string
	var endpointURL string
	var mode string
	var format string
	var quality int
	var highlight string
	var workers int
	var maxPixels int64
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&bucket, "bucket", env.OrDefault("S3_BUCKET", ""), "S3 bucket used by the s3 backend")
	flag.StringVar(&endpointURL, "endpoint-url", env.OrDefault("S3_ENDPOINT_URL", ""), "S3 endpoint override (e.g., http://localhost:9000)")
	flag.StringVar(&mode, "mode", env.OrDefault("MODE", "alpha"), "Diff mode (alpha or opaque)")
	flag.StringVar(&format, "format", env.OrDefault("FORMAT", "png"), "Output format (png, jpeg, bmp or tiff)")
	flag.IntVar(&quality, "quality", env.OrDefault("QUALITY", 90), "JPEG quality")
	flag.StringVar(&highlight, "highlight", env.OrDefault("HIGHLIGHT", ""), "Highlight color (#RRGGBB or #RRGGBBAA)")
	flag.IntVar(&workers, "workers", env.OrDefault("WORKERS", 0), "Rows are split across this many goroutines, GOMAXPROCS when 0")
	flag.Int64Var(&maxPixels, "max-pixels", env.OrDefault("MAX_PIXELS", int64(codec.DefaultMaxPixels)), "Inputs with more pixels are rejected")

	retryPolicy := retry.DefaultPolicy()
	flag.StringVar(&retryPolicy.On, "retry-on", env.OrDefault("RETRY_ON", ""), "Retry conditions for HTTP requests (e.g., 5xx,gateway-error,connect-failure,retriable-4xx,429)")
	flag.UintVar(&retryPolicy.MaxRetryCount, "max-retries", env.OrDefault("MAX_RETRIES", retryPolicy.MaxRetryCount), "Maximum number of HTTP retries")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fatalf("baseline, target not specified")
	}

	highlightColor, err := diff.ParseHighlight(highlight)
	if err != nil {
		fatalf("Failed to parse highlight: %v", err)
	}
	config, err := diff.Config(mode, highlightColor, workers)
	if err != nil {
		fatalf("Failed to configure diff: %v", err)
	}

	ctx := context.Background()
	retryTransport, err := retryPolicy.Transport(nil)
	if err != nil {
		fatalf("Failed to configure retries: %v", err)
	}
	s, err := storage.New(ctx, storage.Config{
		Backend:     storageBackend,
		Directory:   directory,
		Bucket:      bucket,
		EndpointURL: endpointURL,
		HTTP: storage.HTTPConfig{
			RetryStrategy: retryTransport.RetryStrategy,
			RetryOn:       retryTransport.RetryOn,
		},
	})
	if err != nil {
		fatalf("Failed to create storage backend: %v", err)
	}

	baselinePath := args[0]
	targetPath := args[1]

	baseline, err := s.Get(ctx, baselinePath)
	if err != nil {
		fatalf("Failed to load baseline image: %v", err)
	}
	target, err := s.Get(ctx, targetPath)
	if err != nil {
		fatalf("Failed to load target image: %v", err)
	}

	job := &diff.Job{
		Engine:    diffimage.NewEngine(config),
		Format:    format,
		Quality:   quality,
		MaxPixels: maxPixels,
	}
	output, err := job.Run(ctx, baselinePath, baseline, targetPath, target)
	if err != nil {
		fatalf("Failed to calculate diff: %v", err)
	}

	diffPath, err := s.Put(ctx, diff.Key(baselinePath, targetPath, output.Extension, time.Now()), output.Data)
	if err != nil {
		fatalf("Failed to save diff image: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(DiffOutput{
		DiffPath:        diffPath,
		DiffAmount:      output.DiffAmount,
		Identical:       output.Identical,
		DifferingPixels: output.DifferingPixels,
	}); err != nil {
		fatalf("Failed to encode result: %v", err)
	}

	if !output.Identical {
		os.Exit(exitDifferent)
	}
	os.Exit(exitIdentical)
}
