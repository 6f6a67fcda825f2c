package image

import (
	"image"
)

// DifferenceSet is the set of coordinates where two aligned canvases disagree.
// It is immutable once returned by a PixelComparator.
type DifferenceSet struct {
	width  int
	height int
	mask   []bool
	count  int
}

func (d *DifferenceSet) Len() int {
	if d == nil {
		return 0
	}
	return d.count
}

func (d *DifferenceSet) Bounds() image.Rectangle {
	if d == nil {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, d.width, d.height)
}

func (d *DifferenceSet) Contains(p image.Point) bool {
	if d == nil || p.X < 0 || p.X >= d.width || p.Y < 0 || p.Y >= d.height {
		return false
	}
	return d.mask[p.Y*d.width+p.X]
}

// Points returns the coordinates in row-major order.
func (d *DifferenceSet) Points() []image.Point {
	if d.Len() == 0 {
		return nil
	}
	points := make([]image.Point, 0, d.count)
	for i, differs := range d.mask {
		if differs {
			points = append(points, image.Point{X: i % d.width, Y: i / d.width})
		}
	}
	return points
}

func (d *DifferenceSet) Equal(other *DifferenceSet) bool {
	if d.Len() != other.Len() {
		return false
	}
	if d.Len() == 0 {
		return true
	}
	if d.width != other.width || d.height != other.height {
		return false
	}
	for i := range d.mask {
		if d.mask[i] != other.mask[i] {
			return false
		}
	}
	return true
}
