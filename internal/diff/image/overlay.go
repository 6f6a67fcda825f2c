package image

import (
	"image"
	"image/color"
)

// Highlighter decides how a differing pixel is painted.
type Highlighter interface {
	Paint(base color.NRGBA) color.NRGBA
}

// Replace paints the highlight color over the pixel, discarding the base.
type Replace struct {
	Color color.NRGBA
}

func (r Replace) Paint(color.NRGBA) color.NRGBA {
	return r.Color
}

// Blend composites the highlight color over the pixel (source-over).
type Blend struct {
	Color color.NRGBA
}

func (b Blend) Paint(base color.NRGBA) color.NRGBA {
	sa := uint32(b.Color.A)
	da := uint32(base.A)

	// Alpha of the result, scaled by 255.
	outA := sa*255 + da*(255-sa)
	if outA == 0 {
		return color.NRGBA{}
	}

	channel := func(s uint8, d uint8) uint8 {
		num := uint32(s)*sa*255 + uint32(d)*da*(255-sa)
		return uint8((num + outA/2) / outA)
	}

	return color.NRGBA{
		R: channel(b.Color.R, base.R),
		G: channel(b.Color.G, base.G),
		B: channel(b.Color.B, base.B),
		A: uint8((outA + 127) / 255),
	}
}

type OverlayCompositor struct {
	Highlighter Highlighter
	// Opaque forces every output pixel to full alpha.
	Opaque  bool
	Workers int
}

// Composite returns a copy of base with every coordinate in diffs painted by
// the highlighter. base is left untouched.
func (o *OverlayCompositor) Composite(base *Canvas, diffs *DifferenceSet) *Canvas {
	result := base.Clone()
	width := result.width

	partitionRows(result.height, o.Workers, func(startY int, endY int) {
		for y := startY; y < endY; y++ {
			row := result.pix[y*width : (y+1)*width]
			for x := range row {
				if diffs.Contains(image.Point{X: x, Y: y}) {
					row[x] = o.Highlighter.Paint(row[x])
				}
				if o.Opaque {
					row[x].A = 255
				}
			}
		}
	})

	return result
}
