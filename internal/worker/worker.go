package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"pixeldiff/internal/capture"
	"pixeldiff/internal/diff"
	"pixeldiff/internal/retry"
	"pixeldiff/internal/storage"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type Output struct {
	BaselineURL     string  `json:"baselineURL"`
	TargetURL       string  `json:"targetURL"`
	DiffURL         string  `json:"diffURL"`
	DiffAmount      float64 `json:"diffAmount"`
	Identical       bool    `json:"identical"`
	DifferingPixels int     `json:"differingPixels"`
}

type Worker struct {
	Storage storage.Storage
	// Capturer, when set, treats inputs as page URLs to screenshot. Otherwise
	// inputs are storage URLs.
	Capturer       capture.Capturer
	CaptureOptions capture.Options
	Job            *diff.Job
	Now            func() time.Time
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Run fetches baseline and target in parallel, diffs them and uploads the
// diff together with any captured screenshots.
func (w *Worker) Run(ctx context.Context, baseline string, target string) (*Output, error) {
	var baselineData []byte
	var targetData []byte

	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			data, err := w.fetch(ctx, baseline)
			if err != nil {
				return xerrors.Errorf("failed to fetch baseline: %w", err)
			}
			baselineData = data
			return nil
		})

		eg.Go(func() error {
			data, err := w.fetch(ctx, target)
			if err != nil {
				return xerrors.Errorf("failed to fetch target: %w", err)
			}
			targetData = data
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	result, err := w.Job.Run(ctx, baseline, baselineData, target, targetData)
	if err != nil {
		return nil, xerrors.Errorf("failed to generate diff: %w", err)
	}

	output := &Output{
		BaselineURL:     baseline,
		TargetURL:       target,
		DiffAmount:      result.DiffAmount,
		Identical:       result.Identical,
		DifferingPixels: result.DifferingPixels,
	}
	now := w.now()

	{
		eg, ctx := errgroup.WithContext(ctx)

		if w.Capturer != nil {
			eg.Go(func() error {
				url, err := w.Storage.Put(ctx, capture.Key(baseline, now), baselineData)
				if err != nil {
					return xerrors.Errorf("failed to upload baseline screenshot: %w", err)
				}
				output.BaselineURL = url
				return nil
			})

			eg.Go(func() error {
				url, err := w.Storage.Put(ctx, capture.Key(target, now), targetData)
				if err != nil {
					return xerrors.Errorf("failed to upload target screenshot: %w", err)
				}
				output.TargetURL = url
				return nil
			})
		}

		eg.Go(func() error {
			url, err := w.Storage.Put(ctx, diff.Key(baseline, target, result.Extension, now), result.Data)
			if err != nil {
				return xerrors.Errorf("failed to upload diff image: %w", err)
			}
			output.DiffURL = url
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	return output, nil
}

func (w *Worker) fetch(ctx context.Context, url string) ([]byte, error) {
	if w.Capturer != nil {
		return w.Capturer.Capture(ctx, url, w.CaptureOptions)
	}
	return w.Storage.Get(ctx, url)
}

func NewCallbackClient(policy retry.Policy) (*http.Client, error) {
	transport, err := policy.Transport(http.DefaultTransport)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Timeout:   1 * time.Second, // retry.Transport does not have perTryTimeout
		Transport: transport,
	}, nil
}

// Callback PATCHes output as JSON to callbackURL.
func Callback(ctx context.Context, client *http.Client, callbackURL string, output *Output) error {
	data, err := json.Marshal(output)
	if err != nil {
		return xerrors.Errorf("failed to marshal output: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, callbackURL, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		return xerrors.Errorf("callback responded %s", response.Status)
	}
	return nil
}
