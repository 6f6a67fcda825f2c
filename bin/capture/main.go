package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"pixeldiff/internal/capture"
	"pixeldiff/internal/env"
	"pixeldiff/internal/storage"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type CaptureOutput struct {
	URL            string `json:"url"`
	ScreenshotPath string `json:"screenshotPath"`
}

type headers []string

func (h *headers) String() string {
	return strings.Join(*h, ", ")
}

func (h *headers) Set(value string) error {
	*h = append(*h, value)
	return nil
}

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	var directory string
	var storageBackend string
	var bucket string
	var maskSelectors string
	var delay time.Duration
	var viewportWidth int
	var viewportHeight int
	var chromeDevtoolsProtocolURL string
	var headers headers
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&bucket, "bucket", env.OrDefault("S3_BUCKET", ""), "S3 bucket used by the s3 backend")
	flag.StringVar(&maskSelectors, "mask-selectors", env.OrDefault("MASK_SELECTORS", ""), "Comma-separated list of CSS selectors to mask during capture")
	flag.DurationVar(&delay, "delay", env.OrDefault("DELAY", 3*time.Second), "Delay before capturing")
	flag.IntVar(&viewportWidth, "viewport-width", env.OrDefault("VIEWPORT_WIDTH", 1920), "Viewport width in pixels")
	flag.IntVar(&viewportHeight, "viewport-height", env.OrDefault("VIEWPORT_HEIGHT", 1080), "Viewport height in pixels")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", env.OrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.Var(&headers, "H", "Add HTTP header (can be used multiple times, e.g., -H 'Accept: text/html' -H 'Authorization: Bearer token')")

	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		log.Fatalf("url not specified")
	}

	ctx := context.Background()

	s, err := storage.New(ctx, storage.Config{
		Backend:   storageBackend,
		Directory: directory,
		Bucket:    bucket,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	config := capture.DefaultPlaywrightConfig()
	if delay > 0 {
		config.Delay = delay
	}
	if chromeDevtoolsProtocolURL != "" {
		config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	}
	if display := os.Getenv("DISPLAY"); display != "" {
		config.Headless = false
	}
	if viewportWidth > 0 {
		config.ViewportWidth = viewportWidth
	}
	if viewportHeight > 0 {
		config.ViewportHeight = viewportHeight
	}

	capturer, err := capture.NewPlaywrightCapturer(ctx, config)
	if err != nil {
		log.Fatalf("Failed to create capturer: %v", err)
	}

	captureOptions := capture.Options{}
	if maskSelectors != "" {
		captureOptions.MaskSelectors = strings.Split(maskSelectors, ",")
		for i := range captureOptions.MaskSelectors {
			captureOptions.MaskSelectors[i] = strings.TrimSpace(captureOptions.MaskSelectors[i])
		}
	}
	if len(headers) > 0 {
		captureOptions.Headers = make(map[string]string)
		for _, header := range headers {
			if key, value, ok := strings.Cut(header, ":"); ok {
				captureOptions.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
	}

	now := time.Now()
	outputs := make([]CaptureOutput, len(urls))
	{
		eg, ctx := errgroup.WithContext(ctx)

		for i, url := range urls {
			eg.Go(func() error {
				screenshot, err := capturer.Capture(ctx, url, captureOptions)
				if err != nil {
					return err
				}
				path, err := s.Put(ctx, capture.Key(url, now), screenshot)
				if err != nil {
					return err
				}
				outputs[i] = CaptureOutput{URL: url, ScreenshotPath: path}
				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			log.Fatalf("Failed to capture: %v", err)
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	for _, output := range outputs {
		if err := encoder.Encode(output); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
	}
}
