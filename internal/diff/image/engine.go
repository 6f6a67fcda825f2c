package image

import (
	"image"
	"image/color"
)

var (
	OpaqueHighlight = color.NRGBA{R: 255, A: 255}
	AlphaHighlight  = color.NRGBA{R: 255, A: 55}
)

type Config struct {
	Highlight color.NRGBA
	// AlphaAware blends a translucent highlight and pads with transparency.
	// Otherwise the highlight replaces pixels, padding is opaque white and
	// alpha is ignored. Padded coordinates count as different in both modes.
	AlphaAware bool
	// Workers is the number of row partitions, GOMAXPROCS when zero.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		Highlight:  AlphaHighlight,
		AlphaAware: true,
	}
}

func OpaqueConfig() Config {
	return Config{
		Highlight:  OpaqueHighlight,
		AlphaAware: false,
	}
}

type Engine struct {
	config     Config
	fill       color.NRGBA
	comparator *PixelComparator
	compositor *OverlayCompositor
}

func NewEngine(config Config) *Engine {
	e := &Engine{
		config: config,
		comparator: &PixelComparator{
			IgnoreAlpha: !config.AlphaAware,
			Workers:     config.Workers,
		},
		compositor: &OverlayCompositor{
			Opaque:  !config.AlphaAware,
			Workers: config.Workers,
		},
	}

	if config.AlphaAware {
		e.fill = transparentFill
		e.compositor.Highlighter = Blend{Color: config.Highlight}
	} else {
		e.fill = opaqueFill
		e.compositor.Highlighter = Replace{Color: config.Highlight}
	}

	return e
}

func (e *Engine) Config() Config {
	return e.config
}

// Compare diffs current against reference. When both are equal the result
// carries reference itself, otherwise a new canvas with the differing pixels
// highlighted over the (extended) reference.
func (e *Engine) Compare(reference *Canvas, current *Canvas) *Result {
	if e.equal(reference, current) {
		return &Result{
			Outcome:     Identical,
			Image:       reference,
			Differences: &DifferenceSet{width: reference.width, height: reference.height},
		}
	}

	reconciled := Reconciled{
		Reference: reference,
		Current:   current,
		Overlap:   reference.Bounds(),
	}
	if reference.Size() != current.Size() {
		reconciled = Reconcile(reference, current, e.fill)
	}

	diffs := e.comparator.Compare(reconciled.Reference, reconciled.Current, reconciled.Overlap)
	img := e.compositor.Composite(reconciled.Reference, diffs)

	diffAmount := 0.0
	if total := img.width * img.height; total > 0 {
		diffAmount = float64(diffs.Len()) / float64(total)
	}

	return &Result{
		Outcome:     Different,
		Image:       img,
		Differences: diffs,
		DiffAmount:  diffAmount,
	}
}

var _ Differ = (*Engine)(nil)

// Calculate implements Differ for arbitrary images.
func (e *Engine) Calculate(baseline image.Image, target image.Image) *Result {
	reference, ok := baseline.(*Canvas)
	if !ok {
		reference = FromImage(baseline)
	}
	current, ok := target.(*Canvas)
	if !ok {
		current = FromImage(target)
	}
	return e.Compare(reference, current)
}

func (e *Engine) equal(reference *Canvas, current *Canvas) bool {
	if e.config.AlphaAware {
		return reference.Equal(current)
	}
	return reference.equalFunc(current, rgbEqual)
}
