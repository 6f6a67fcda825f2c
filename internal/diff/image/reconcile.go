package image

import (
	"image"
	"image/color"
)

var (
	transparentFill = color.NRGBA{}
	opaqueFill      = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// Reconciled holds two canvases extended to a common size.
type Reconciled struct {
	Reference *Canvas
	Current   *Canvas
	// Overlap is the area covered by both canvases before extension.
	Overlap image.Rectangle
}

// Reconcile extends reference and current to the element-wise maximum of their
// sizes. Added area is painted with fill and the original pixels stay anchored
// at the top left. A canvas that already has the target size is returned as-is.
func Reconcile(reference *Canvas, current *Canvas, fill color.NRGBA) Reconciled {
	width := max(reference.width, current.width)
	height := max(reference.height, current.height)

	return Reconciled{
		Reference: extend(reference, width, height, fill),
		Current:   extend(current, width, height, fill),
		Overlap:   reference.Bounds().Intersect(current.Bounds()),
	}
}

func extend(c *Canvas, width int, height int, fill color.NRGBA) *Canvas {
	if c.width == width && c.height == height {
		return c
	}

	extended := NewUniformCanvas(width, height, fill)
	for y := 0; y < c.height; y++ {
		copy(extended.pix[y*width:y*width+c.width], c.pix[y*c.width:(y+1)*c.width])
	}
	return extended
}
