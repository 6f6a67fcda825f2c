package image

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	red         = color.NRGBA{R: 255, A: 255}
	green       = color.NRGBA{G: 255, A: 255}
	blue        = color.NRGBA{B: 255, A: 255}
	transparent = color.NRGBA{}

	redOverGreen = color.NRGBA{R: 55, G: 200, A: 255}
	redOverBlue  = color.NRGBA{R: 55, B: 200, A: 255}
	redOverEmpty = color.NRGBA{R: 255, A: 55}
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// genBase cycles through red, green and blue in row-major order.
func genBase(width int, height int) *Canvas {
	pattern := []color.NRGBA{red, green, blue}
	canvas := NewCanvas(width, height)
	for i := range canvas.pix {
		canvas.pix[i] = pattern[i%len(pattern)]
	}
	return canvas
}

func genImg(rows ...[]color.NRGBA) *Canvas {
	height := len(rows)
	width := 0
	if height > 0 {
		width = len(rows[0])
	}
	canvas := NewCanvas(width, height)
	for y, row := range rows {
		copy(canvas.pix[y*width:(y+1)*width], row)
	}
	return canvas
}

func TestEngine_Compare_Opaque(t *testing.T) {
	engine := NewEngine(OpaqueConfig())
	R, G, B := red, green, blue

	tests := []struct {
		name      string
		reference *Canvas
		current   *Canvas
		want      *Canvas
	}{
		{"AreEqual", genBase(3, 1), genBase(3, 1), genImg([]color.NRGBA{R, G, B})},
		{"JustOnePixel", genBase(3, 1), genImg([]color.NRGBA{G, G, B}), genImg([]color.NRGBA{R, G, B})},
		{"LastTwoPixels", genBase(3, 1), genImg([]color.NRGBA{R, G, G}), genImg([]color.NRGBA{R, G, R})},
		{"CurrentWider", genBase(3, 1), genImg([]color.NRGBA{R, G, B, B}), genImg([]color.NRGBA{R, G, B, R})},
		{"CurrentTaller", genBase(3, 1), genImg([]color.NRGBA{R, G, B}, []color.NRGBA{R, G, B}), genImg([]color.NRGBA{R, G, B}, []color.NRGBA{R, R, R})},
		{"CurrentWiderAndTaller", genBase(3, 1), genImg([]color.NRGBA{R, G, B, B}, []color.NRGBA{R, G, B, B}), genImg([]color.NRGBA{R, G, B, R}, []color.NRGBA{R, R, R, R})},
		{"ReferenceWider", genBase(4, 1), genImg([]color.NRGBA{R, G, B}), genImg([]color.NRGBA{R, G, B, R})},
		{"ReferenceWiderAndDifferentContent", genBase(4, 1), genImg([]color.NRGBA{R, B, B}), genImg([]color.NRGBA{R, R, B, R})},
		{"ReferenceTaller", genBase(3, 2), genImg([]color.NRGBA{R, G, B}), genImg([]color.NRGBA{R, G, B}, []color.NRGBA{R, R, R})},
		{"ReferenceTallerAndDifferentContent", genBase(3, 2), genImg([]color.NRGBA{R, B, B}), genImg([]color.NRGBA{R, R, B}, []color.NRGBA{R, R, R})},
		{"ReferenceWiderAndTaller", genBase(4, 2), genImg([]color.NRGBA{R, G, B}), genImg([]color.NRGBA{R, G, B, R}, []color.NRGBA{R, R, R, R})},
		{
			"DifferentSizeAndContent",
			genBase(6, 6),
			genImg([]color.NRGBA{B, G}, []color.NRGBA{R, G}),
			genImg(
				[]color.NRGBA{R, G, R, R, R, R},
				[]color.NRGBA{R, G, R, R, R, R},
				[]color.NRGBA{R, R, R, R, R, R},
				[]color.NRGBA{R, R, R, R, R, R},
				[]color.NRGBA{R, R, R, R, R, R},
				[]color.NRGBA{R, R, R, R, R, R},
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Compare(tt.reference, tt.current)

			if result.Image.Size() != tt.want.Size() {
				t.Fatalf("Expected size %v, got %v", tt.want.Size(), result.Image.Size())
			}
			if diff := cmp.Diff(tt.want.Pixels(), result.Image.Pixels()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestEngine_Compare_AlphaAware(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	R, G, B := red, green, blue

	t.Run("ScenarioA", func(t *testing.T) {
		result := engine.Compare(genBase(3, 1), genImg([]color.NRGBA{G, G, B}))

		if result.Outcome != Different {
			t.Fatalf("Expected Different, got %s", result.Outcome)
		}
		if diff := cmp.Diff([]image.Point{{0, 0}}, result.Differences.Points()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]color.NRGBA{R, G, B}, result.Image.Pixels()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("BlendsOverBase", func(t *testing.T) {
		result := engine.Compare(genBase(3, 1), genImg([]color.NRGBA{B, R, R}))

		want := []color.NRGBA{R, redOverGreen, redOverBlue}
		if diff := cmp.Diff(want, result.Image.Pixels()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("ScenarioB", func(t *testing.T) {
		result := engine.Compare(genBase(3, 1), genImg([]color.NRGBA{R, G, B, B}))

		if diff := cmp.Diff([]image.Point{{3, 0}}, result.Differences.Points()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]color.NRGBA{R, G, B, redOverEmpty}, result.Image.Pixels()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("ReferenceWider", func(t *testing.T) {
		result := engine.Compare(genBase(4, 1), genImg([]color.NRGBA{R, G, B}))

		if diff := cmp.Diff([]image.Point{{3, 0}}, result.Differences.Points()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		// The reference keeps its own pixel under the highlight.
		if diff := cmp.Diff([]color.NRGBA{R, G, B, R}, result.Image.Pixels()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("ScenarioC", func(t *testing.T) {
		result := engine.Compare(genBase(6, 6), genImg([]color.NRGBA{B, G}, []color.NRGBA{R, G}))

		if result.Image.Size() != image.Pt(6, 6) {
			t.Fatalf("Expected 6x6, got %v", result.Image.Size())
		}
		for y := 0; y < 6; y++ {
			for x := 0; x < 6; x++ {
				p := image.Pt(x, y)
				want := x >= 2 || y >= 2 || p == image.Pt(0, 0)
				if got := result.Differences.Contains(p); got != want {
					t.Errorf("Expected %v differing=%v, got %v", p, want, got)
				}
			}
		}
		if result.Differences.Len() != 33 {
			t.Errorf("Expected 33 differing pixels, got %d", result.Differences.Len())
		}
	})

	t.Run("AlphaOnlyDifference", func(t *testing.T) {
		faded := color.NRGBA{R: 255, A: 10}
		result := engine.Compare(genImg([]color.NRGBA{R}), genImg([]color.NRGBA{faded}))

		if result.Outcome != Different || result.Differences.Len() != 1 {
			t.Errorf("Expected one differing pixel, got %d", result.Differences.Len())
		}
	})
}

func TestEngine_Compare_Identity(t *testing.T) {
	for name, config := range map[string]Config{"Opaque": OpaqueConfig(), "AlphaAware": DefaultConfig()} {
		engine := NewEngine(config)

		t.Run(name, func(t *testing.T) {
			for _, canvas := range []*Canvas{NewCanvas(0, 0), NewCanvas(0, 5), genBase(1, 1), genBase(17, 9)} {
				result := engine.Compare(canvas, canvas.Clone())

				if result.Outcome != Identical {
					t.Errorf("Expected Identical for %v, got %s", canvas.Size(), result.Outcome)
				}
				if result.Image != canvas {
					t.Errorf("Expected the reference canvas itself for %v", canvas.Size())
				}
				if result.DiffAmount != 0.0 || result.Differences.Len() != 0 {
					t.Errorf("Expected no differences for %v", canvas.Size())
				}
			}
		})
	}

	t.Run("OpaqueIgnoresAlpha", func(t *testing.T) {
		reference := genImg([]color.NRGBA{red})
		result := NewEngine(OpaqueConfig()).Compare(reference, genImg([]color.NRGBA{{R: 255, A: 10}}))

		if result.Outcome != Identical {
			t.Errorf("Expected Identical, got %s", result.Outcome)
		}
	})
}

func TestEngine_Compare_Symmetry(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	x := genBase(5, 4)
	y := genBase(5, 4)
	y.SetNRGBA(1, 1, blue)
	y.SetNRGBA(4, 3, transparent)

	forward := engine.Compare(x, y)
	backward := engine.Compare(y, x)

	if !forward.Differences.Equal(backward.Differences) {
		t.Errorf("Expected equal difference sets, got %v and %v", forward.Differences.Points(), backward.Differences.Points())
	}
	if forward.Image.Equal(backward.Image) {
		t.Errorf("Expected composited images to differ since the base differs")
	}
}

func TestEngine_Compare_PaddingMonotonicity(t *testing.T) {
	for name, config := range map[string]Config{"Opaque": OpaqueConfig(), "AlphaAware": DefaultConfig()} {
		engine := NewEngine(config)

		t.Run(name, func(t *testing.T) {
			y := genBase(3, 2)
			extended := NewUniformCanvas(5, 4, transparent)
			if name == "Opaque" {
				extended = NewUniformCanvas(5, 4, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
			for py := 0; py < 2; py++ {
				for px := 0; px < 3; px++ {
					extended.SetNRGBA(px, py, y.NRGBAAt(px, py))
				}
			}

			result := engine.Compare(y, extended)

			for py := 0; py < 4; py++ {
				for px := 0; px < 5; px++ {
					p := image.Pt(px, py)
					outside := px >= 3 || py >= 2
					if outside && !result.Differences.Contains(p) {
						t.Errorf("Expected %v outside the original bounds to differ", p)
					}
					if !outside && result.Differences.Contains(p) {
						t.Errorf("Expected %v inside the original bounds to match", p)
					}
				}
			}
		})
	}
}

func TestEngine_Compare_PaddedAreaMatchingFill(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("TransparentExtension", func(t *testing.T) {
		reference := genBase(3, 1)
		extended := genImg([]color.NRGBA{red, green, blue, transparent})

		result := engine.Compare(reference, extended)

		if diff := cmp.Diff([]image.Point{{3, 0}}, result.Differences.Points()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if result.DiffAmount != 0.25 {
			t.Errorf("Expected DiffAmount to be 0.25, got %f", result.DiffAmount)
		}
		if got := result.Image.NRGBAAt(3, 0); got != redOverEmpty {
			t.Errorf("Expected the highlight over the padding, got %v", got)
		}
	})

	t.Run("TransparentReference", func(t *testing.T) {
		result := engine.Compare(NewCanvas(1, 1), NewCanvas(2, 1))

		if diff := cmp.Diff([]image.Point{{1, 0}}, result.Differences.Points()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("DisjointZeroArea", func(t *testing.T) {
		result := engine.Compare(NewCanvas(0, 3), NewCanvas(3, 0))

		if result.Outcome != Different {
			t.Fatalf("Expected Different, got %s", result.Outcome)
		}
		if result.Image.Size() != image.Pt(3, 3) || result.Differences.Len() != 9 {
			t.Errorf("Expected the whole 3x3 box to differ, got %d of %v", result.Differences.Len(), result.Image.Size())
		}
		if result.DiffAmount != 1 {
			t.Errorf("Expected DiffAmount to be 1, got %f", result.DiffAmount)
		}
	})
}

func TestEngine_Compare_NoFalseNegatives(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	base := genBase(16, 16)

	for channel := 0; channel < 4; channel++ {
		current := base.Clone()
		p := current.NRGBAAt(7, 9)
		switch channel {
		case 0:
			p.R ^= 1
		case 1:
			p.G ^= 1
		case 2:
			p.B ^= 1
		case 3:
			p.A ^= 1
		}
		current.SetNRGBA(7, 9, p)

		result := engine.Compare(base, current)
		if !result.Differences.Contains(image.Pt(7, 9)) || result.Differences.Len() != 1 {
			t.Errorf("Expected only (7,9) to differ for channel %d, got %v", channel, result.Differences.Points())
		}
	}
}

func TestEngine_Compare_WorkerIndependence(t *testing.T) {
	reference := genBase(37, 23)
	current := genBase(41, 19)
	for i := 0; i < 19; i++ {
		current.SetNRGBA(i*2%41, i, color.NRGBA{R: uint8(i), G: 10, B: 20, A: 255})
	}

	for _, config := range []Config{OpaqueConfig(), DefaultConfig()} {
		var baseline *Result
		for _, workers := range []int{1, 2, 7, 64} {
			config.Workers = workers
			result := NewEngine(config).Compare(reference, current)
			if baseline == nil {
				baseline = result
				continue
			}
			if !baseline.Differences.Equal(result.Differences) {
				t.Errorf("Expected equal difference sets with %d workers", workers)
			}
			if !baseline.Image.Equal(result.Image) {
				t.Errorf("Expected equal images with %d workers", workers)
			}
		}
	}
}

func TestEngine_Calculate(t *testing.T) {
	engine := NewEngine(OpaqueConfig())

	img1 := createTestImage(100, 100, color.White)
	img2 := createTestImage(100, 100, color.White)
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			img2.Set(x, y, color.Black)
		}
	}

	result := engine.Calculate(img1, img2)

	if result.DiffAmount != 0.5 {
		t.Errorf("Expected DiffAmount to be 0.5, got %f", result.DiffAmount)
	}
	if result.Differences.Len() != 5000 {
		t.Errorf("Expected 5000 differing pixels, got %d", result.Differences.Len())
	}
}

func BenchmarkEngine_Compare_Small(b *testing.B) {
	engine := NewEngine(DefaultConfig())
	img1 := NewUniformCanvas(1920, 1080, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img2 := NewUniformCanvas(1920, 1080, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img2.SetNRGBA(1919, 1079, red)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Compare(img1, img2)
	}
}

func BenchmarkEngine_Compare_Large(b *testing.B) {
	engine := NewEngine(DefaultConfig())
	img1 := NewUniformCanvas(3840, 2160, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img2 := NewUniformCanvas(3840, 2160, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img2.SetNRGBA(0, 0, red)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Compare(img1, img2)
	}
}
