package image

import "image"

type Outcome int

const (
	Identical Outcome = iota
	Different
)

func (o Outcome) String() string {
	switch o {
	case Identical:
		return "identical"
	case Different:
		return "different"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome Outcome
	// Image is the reference canvas itself when Outcome is Identical.
	Image       *Canvas
	Differences *DifferenceSet
	DiffAmount  float64
}

func (r *Result) Identical() bool {
	return r.Outcome == Identical
}

type Differ interface {
	Calculate(baseline image.Image, target image.Image) *Result
}
