package diff

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"pixeldiff/internal/codec"
	diffimage "pixeldiff/internal/diff/image"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func encodePNG(t *testing.T, width int, height int, c color.Color) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatal(err)
	}
	return buffer.Bytes()
}

func TestJob_Run(t *testing.T) {
	ctx := context.Background()
	config, err := Config(ModeOpaque, color.NRGBA{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	job := &Job{Engine: diffimage.NewEngine(config), Format: "png"}

	t.Run("Identical", func(t *testing.T) {
		white := encodePNG(t, 4, 4, color.White)

		output, err := job.Run(ctx, "baseline.png", white, "target.png", white)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !output.Identical || output.DiffAmount != 0.0 || output.DifferingPixels != 0 {
			t.Errorf("Expected identical output, got %+v", output)
		}
	})

	t.Run("DifferentSize", func(t *testing.T) {
		output, err := job.Run(ctx, "baseline.png", encodePNG(t, 2, 2, color.White), "target.png", encodePNG(t, 4, 2, color.White))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if output.Identical || output.Width != 4 || output.Height != 2 || output.DifferingPixels != 4 {
			t.Errorf("Expected the extended columns to differ, got %+v", output)
		}
		if output.DiffAmount != 0.5 {
			t.Errorf("Expected DiffAmount to be 0.5, got %f", output.DiffAmount)
		}

		decoded, _, err := codec.Decode("diff.png", output.Data)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got := decoded.NRGBAAt(3, 1); got != diffimage.OpaqueHighlight {
			t.Errorf("Expected the highlight at (3,1), got %v", got)
		}
		if diff := cmp.Diff("image/png", output.ContentType); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("DecodeError", func(t *testing.T) {
		_, err := job.Run(ctx, "baseline.png", []byte("nope"), "target.png", encodePNG(t, 1, 1, color.White))

		var decodeError *codec.DecodeError
		if !errors.As(err, &decodeError) || decodeError.Name != "baseline.png" {
			t.Errorf("Expected a decode error for baseline.png, got %v", err)
		}
	})

	t.Run("EncodeError", func(t *testing.T) {
		job := &Job{Engine: diffimage.NewEngine(config), Format: "heic"}
		_, err := job.Run(ctx, "baseline.png", encodePNG(t, 1, 1, color.White), "target.png", encodePNG(t, 1, 1, color.Black))

		var encodeError *codec.EncodeError
		if !errors.As(err, &encodeError) {
			t.Errorf("Expected an encode error, got %v", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := job.Run(ctx, "baseline.png", encodePNG(t, 1, 1, color.White), "target.png", encodePNG(t, 1, 1, color.Black))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestConfig(t *testing.T) {
	config, err := Config("", color.NRGBA{}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(diffimage.Config{Highlight: diffimage.AlphaHighlight, AlphaAware: true, Workers: 3}, config); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	highlight := color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	config, err = Config("OPAQUE", highlight, 0)
	if err != nil {
		t.Fatal(err)
	}
	if config.AlphaAware || config.Highlight != highlight {
		t.Errorf("Expected opaque magenta, got %+v", config)
	}

	if _, err := Config("fuzzy", color.NRGBA{}, 0); err == nil {
		t.Errorf("Expected an error for an unknown mode")
	}
}

func TestParseHighlight(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"", color.NRGBA{}, false},
		{"#ff0000", color.NRGBA{R: 255, A: 255}, false},
		{"ff000037", color.NRGBA{R: 255, A: 55}, false},
		{"#fff", color.NRGBA{}, true},
		{"#gg0000", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		got, err := ParseHighlight(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Expected error=%v for %q, got %v", tt.wantErr, tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Expected %v for %q, got %v", tt.want, tt.in, got)
		}
	}
}

func TestKey(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	key := Key("a.png", "b.png", ".png", now)

	if !strings.HasPrefix(key, "Diff/") || !strings.HasSuffix(key, "/20261019120000.png") {
		t.Errorf("Unexpected key %s", key)
	}
	if key == Key("b.png", "a.png", ".png", now) {
		t.Errorf("Expected the key to depend on the order of inputs")
	}
}
