package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"pixeldiff/internal/retry"
	"time"
)

type httpStorage struct {
	client   *http.Client
	maxBytes int64
}

type HTTPConfig struct {
	Timeout       time.Duration
	RetryStrategy retry.Strategy
	RetryOn       *retry.On
	// MaxBytes caps the size of a downloaded object, 64MiB when zero.
	MaxBytes int64
	Base     http.RoundTripper
}

// NewHTTPStorage creates a read-only backend for http:// and https:// URLs.
func NewHTTPStorage(ctx context.Context, h HTTPConfig) (Storage, error) {
	if h.RetryOn == nil {
		h.RetryOn = retry.NewDefaultRetryOn()
	}
	if h.RetryStrategy == nil {
		h.RetryStrategy = retry.NewExponentialBackOff(10*time.Millisecond, 1*time.Second, 3, nil)
	}

	return &httpStorage{
		client: &http.Client{
			Timeout: h.Timeout,
			Transport: &retry.Transport{
				Base:          h.Base,
				RetryStrategy: h.RetryStrategy,
				RetryOn:       h.RetryOn,
			},
		},
		maxBytes: h.MaxBytes,
	}, nil
}

func (h *httpStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	return "", ErrReadOnly
}

func (h *httpStorage) Get(ctx context.Context, url string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	response, err := h.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: unexpected status %d", url, response.StatusCode)
	}

	maxBytes := h.maxBytes
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	data, err := io.ReadAll(io.LimitReader(response.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("failed to download %s: object exceeds %d bytes", url, maxBytes)
	}

	return data, nil
}
