package diff

import (
	"context"
	"crypto/sha256"
	"fmt"
	"image/color"
	"pixeldiff/internal/codec"
	diffimage "pixeldiff/internal/diff/image"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

const (
	ModeAlpha  = "alpha"
	ModeOpaque = "opaque"
)

// Config builds the engine configuration for mode. A zero highlight keeps the
// mode's default color.
func Config(mode string, highlight color.NRGBA, workers int) (diffimage.Config, error) {
	var config diffimage.Config
	switch strings.ToLower(mode) {
	case ModeAlpha, "":
		config = diffimage.DefaultConfig()
	case ModeOpaque:
		config = diffimage.OpaqueConfig()
	default:
		return diffimage.Config{}, xerrors.Errorf("unknown diff mode: %s", mode)
	}

	if highlight != (color.NRGBA{}) {
		config.Highlight = highlight
	}
	config.Workers = workers
	return config, nil
}

// ParseHighlight parses a #RRGGBB or #RRGGBBAA color.
func ParseHighlight(s string) (color.NRGBA, error) {
	if s == "" {
		return color.NRGBA{}, nil
	}

	hex := strings.TrimPrefix(s, "#")
	c := color.NRGBA{A: 255}
	var err error
	switch len(hex) {
	case 6:
		_, err = fmt.Sscanf(hex, "%02x%02x%02x", &c.R, &c.G, &c.B)
	case 8:
		_, err = fmt.Sscanf(hex, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		err = xerrors.New("expected 6 or 8 hex digits")
	}
	if err != nil {
		return color.NRGBA{}, xerrors.Errorf("invalid highlight color %q: %w", s, err)
	}
	return c, nil
}

type Job struct {
	Engine  *diffimage.Engine
	Format  string
	Quality int
	// MaxPixels caps each decoded input, codec.DefaultMaxPixels when zero.
	MaxPixels int64
}

type Output struct {
	Identical       bool
	DiffAmount      float64
	DifferingPixels int
	Width           int
	Height          int
	Data            []byte
	ContentType     string
	Extension       string
}

// Run decodes both inputs, compares them and encodes the result. Decode
// failures are returned before the comparison starts. When ctx is done the
// comparison is abandoned and ctx.Err() is returned.
func (j *Job) Run(ctx context.Context, baselineName string, baseline []byte, targetName string, target []byte) (*Output, error) {
	reference, _, err := codec.DecodeLimit(baselineName, baseline, j.MaxPixels)
	if err != nil {
		return nil, err
	}

	current, _, err := codec.DecodeLimit(targetName, target, j.MaxPixels)
	if err != nil {
		return nil, err
	}

	result, err := j.compare(ctx, reference, current)
	if err != nil {
		return nil, err
	}

	data, err := codec.EncodeBytes(result.Image, j.Format, &codec.Options{Quality: j.Quality})
	if err != nil {
		return nil, err
	}

	return &Output{
		Identical:       result.Identical(),
		DiffAmount:      result.DiffAmount,
		DifferingPixels: result.Differences.Len(),
		Width:           result.Image.Width(),
		Height:          result.Image.Height(),
		Data:            data,
		ContentType:     codec.ContentType(j.Format),
		Extension:       codec.Extension(j.Format),
	}, nil
}

func (j *Job) compare(ctx context.Context, reference *diffimage.Canvas, current *diffimage.Canvas) (*diffimage.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan *diffimage.Result, 1)
	go func() {
		done <- j.Engine.Compare(reference, current)
	}()

	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Key returns the storage key of a diff between baseline and target.
func Key(baseline string, target string, extension string, now time.Time) string {
	h := sha256.New()
	h.Write([]byte(baseline + target))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]

	return fmt.Sprintf("Diff/%s/%s%s", hash, now.Format("20060102150405"), extension)
}
