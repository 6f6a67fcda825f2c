package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"pixeldiff/internal/capture"
	"pixeldiff/internal/diff"
	diffimage "pixeldiff/internal/diff/image"
	"pixeldiff/internal/env"
	"pixeldiff/internal/retry"
	"pixeldiff/internal/storage"
	"pixeldiff/internal/worker"
	"strings"
	"syscall"
	"time"

	"github.com/playwright-community/playwright-go"
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}

	var source string
	var chromeDevtoolsProtocolURL string
	var maskSelectors string
	var storageBackend string
	var directory string
	var bucket string
	var mode string
	var format string
	var highlight string
	var workers int
	var schedule string
	var callbackURL string
	flag.StringVar(&source, "source", env.OrDefault("SOURCE", "storage"), "Where inputs come from (storage or capture)")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", env.OrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.StringVar(&maskSelectors, "mask-selectors", env.OrDefault("MASK_SELECTORS", ""), "Comma separated selectors masked before capture")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory")
	flag.StringVar(&bucket, "bucket", env.OrDefault("S3_BUCKET", ""), "S3 bucket used by the s3 backend")
	flag.StringVar(&mode, "mode", env.OrDefault("MODE", "alpha"), "Diff mode (alpha or opaque)")
	flag.StringVar(&format, "format", env.OrDefault("FORMAT", "png"), "Output format (png, jpeg, bmp or tiff)")
	flag.StringVar(&highlight, "highlight", env.OrDefault("HIGHLIGHT", ""), "Highlight color (#RRGGBB or #RRGGBBAA)")
	flag.IntVar(&workers, "workers", env.OrDefault("WORKERS", 0), "Rows are split across this many goroutines, GOMAXPROCS when 0")
	flag.StringVar(&schedule, "schedule", env.OrDefault("SCHEDULE", ""), "Cron schedule (e.g., */5 * * * *), runs once when empty")
	flag.StringVar(&callbackURL, "callback-url", env.OrDefault("CALLBACK_URL", ""), "Callback URL to send results to")

	retryPolicy := retry.DefaultPolicy()
	flag.StringVar(&retryPolicy.On, "retry-on", env.OrDefault("RETRY_ON", ""), "Retry conditions for HTTP requests (e.g., 5xx,gateway-error,connect-failure,retriable-4xx,429)")
	flag.UintVar(&retryPolicy.MaxRetryCount, "max-retries", env.OrDefault("MAX_RETRIES", retryPolicy.MaxRetryCount), "Maximum number of HTTP retries")

	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		log.Fatalf("baseline, target not specified")
	}
	baseline := args[0]
	target := args[1]

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		// https://opentelemetry.io/docs/specs/otel/logs/data-model/
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severitytext"
			case slog.MessageKey:
				a.Key = "body"
			}
			return a
		},
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	highlightColor, err := diff.ParseHighlight(highlight)
	if err != nil {
		log.Fatalf("failed to parse highlight: %v", err)
	}
	config, err := diff.Config(mode, highlightColor, workers)
	if err != nil {
		log.Fatalf("failed to configure diff: %v", err)
	}

	retryTransport, err := retryPolicy.Transport(nil)
	if err != nil {
		log.Fatalf("failed to configure retries: %v", err)
	}
	s, err := storage.New(ctx, storage.Config{
		Backend:   storageBackend,
		Directory: directory,
		Bucket:    bucket,
		HTTP: storage.HTTPConfig{
			RetryStrategy: retryTransport.RetryStrategy,
			RetryOn:       retryTransport.RetryOn,
		},
	})
	if err != nil {
		log.Fatalf("failed to create storage backend: %v", err)
	}

	w := &worker.Worker{
		Storage: s,
		Job: &diff.Job{
			Engine: diffimage.NewEngine(config),
			Format: format,
		},
	}

	switch source {
	case "storage":
	case "capture":
		if chromeDevtoolsProtocolURL == "" {
			if err := playwright.Install(&playwright.RunOptions{
				Browsers: []string{"chromium"},
			}); err != nil {
				log.Fatalf("failed to install playwright browsers: %v", err)
			}
		}

		captureConfig := capture.DefaultPlaywrightConfig()
		captureConfig.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
		capturer, err := capture.NewPlaywrightCapturer(ctx, captureConfig)
		if err != nil {
			log.Fatalf("failed to initialize capturer: %v", err)
		}
		w.Capturer = capturer
		if maskSelectors != "" {
			w.CaptureOptions.MaskSelectors = strings.Split(maskSelectors, ",")
		}
	default:
		log.Fatalf("unknown source: %s", source)
	}

	callbackClient, err := worker.NewCallbackClient(retryPolicy)
	if err != nil {
		log.Fatalf("failed to create callback client: %v", err)
	}
	run := func(ctx context.Context) error {
		output, err := w.Run(ctx, baseline, target)
		if err != nil {
			return err
		}

		if callbackURL == "" {
			j, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(j))
			return nil
		}
		return worker.Callback(ctx, callbackClient, callbackURL, output)
	}

	if schedule == "" {
		if err := run(ctx); err != nil {
			log.Fatalf("failed to process diff: %v", err)
		}
		return
	}

	parsed, err := worker.ParseSchedule(schedule)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger.Info("scheduled", "schedule", schedule, "next", parsed.Next(time.Now()))
	if err := worker.Repeat(ctx, parsed, logger, run); err != nil {
		log.Fatalf("failed to repeat diff: %v", err)
	}
}
