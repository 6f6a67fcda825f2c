package capture

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

type Options struct {
	Headers map[string]string
	// MaskSelectors are painted over before the screenshot is taken.
	MaskSelectors []string
}

// Capturer renders a page and returns an encoded screenshot.
type Capturer interface {
	Capture(ctx context.Context, url string, options Options) ([]byte, error)
}

// Key returns the storage key of a screenshot of url taken at now.
func Key(url string, now time.Time) string {
	h := sha256.New()
	h.Write([]byte(url))
	urlHash := fmt.Sprintf("%x", h.Sum(nil))[:16]

	return fmt.Sprintf("Capture/%s/%s.png", urlHash, now.Format("20060102150405"))
}
