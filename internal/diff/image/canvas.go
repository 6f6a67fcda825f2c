package image

import (
	"errors"
	"image"
	"image/color"
)

var ErrPixelCount = errors.New("pixel count does not match canvas dimensions")

// Canvas is a width x height grid of non-premultiplied RGBA pixels stored in
// row-major order. Its bounds always start at the origin.
type Canvas struct {
	width  int
	height int
	pix    []color.NRGBA
}

func NewCanvas(width int, height int) *Canvas {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Canvas{
		width:  width,
		height: height,
		pix:    make([]color.NRGBA, width*height),
	}
}

func NewUniformCanvas(width int, height int, c color.NRGBA) *Canvas {
	canvas := NewCanvas(width, height)
	for i := range canvas.pix {
		canvas.pix[i] = c
	}
	return canvas
}

// NewCanvasFromPixels takes ownership of pix.
func NewCanvasFromPixels(width int, height int, pix []color.NRGBA) (*Canvas, error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, ErrPixelCount
	}
	return &Canvas{
		width:  width,
		height: height,
		pix:    pix,
	}, nil
}

// FromImage copies img into a new canvas, translating its bounds to the origin.
func FromImage(img image.Image) *Canvas {
	if c, ok := img.(*Canvas); ok {
		return c.Clone()
	}

	bounds := img.Bounds()
	canvas := NewCanvas(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < canvas.height; y++ {
			offset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := canvas.pix[y*canvas.width : (y+1)*canvas.width]
			for x := range row {
				s := src.Pix[offset+x*4 : offset+x*4+4 : offset+x*4+4]
				row[x] = color.NRGBA{R: s[0], G: s[1], B: s[2], A: s[3]}
			}
		}
	case *image.RGBA:
		for y := 0; y < canvas.height; y++ {
			offset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := canvas.pix[y*canvas.width : (y+1)*canvas.width]
			for x := range row {
				s := src.Pix[offset+x*4 : offset+x*4+4 : offset+x*4+4]
				row[x] = color.NRGBAModel.Convert(color.RGBA{R: s[0], G: s[1], B: s[2], A: s[3]}).(color.NRGBA)
			}
		}
	default:
		for y := 0; y < canvas.height; y++ {
			for x := 0; x < canvas.width; x++ {
				canvas.pix[y*canvas.width+x] = color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			}
		}
	}

	return canvas
}

func (c *Canvas) Width() int {
	return c.width
}

func (c *Canvas) Height() int {
	return c.height
}

func (c *Canvas) Size() image.Point {
	return image.Point{X: c.width, Y: c.height}
}

func (c *Canvas) ColorModel() color.Model {
	return color.NRGBAModel
}

func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.width, c.height)
}

func (c *Canvas) At(x int, y int) color.Color {
	return c.NRGBAAt(x, y)
}

// NRGBAAt returns the zero color outside the canvas.
func (c *Canvas) NRGBAAt(x int, y int) color.NRGBA {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return color.NRGBA{}
	}
	return c.pix[y*c.width+x]
}

// SetNRGBA ignores coordinates outside the canvas.
func (c *Canvas) SetNRGBA(x int, y int, v color.NRGBA) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.pix[y*c.width+x] = v
}

// Pixels returns a copy of the pixel storage in row-major order.
func (c *Canvas) Pixels() []color.NRGBA {
	pix := make([]color.NRGBA, len(c.pix))
	copy(pix, c.pix)
	return pix
}

func (c *Canvas) Clone() *Canvas {
	return &Canvas{
		width:  c.width,
		height: c.height,
		pix:    c.Pixels(),
	}
}

// Equal reports whether both canvases have the same dimensions and identical
// pixels, alpha included.
func (c *Canvas) Equal(other *Canvas) bool {
	return c.equalFunc(other, rgbaEqual)
}

func (c *Canvas) equalFunc(other *Canvas, eq func(color.NRGBA, color.NRGBA) bool) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	if c.width != other.width || c.height != other.height {
		return false
	}
	for i := range c.pix {
		if !eq(c.pix[i], other.pix[i]) {
			return false
		}
	}
	return true
}

// NRGBA converts the canvas into a standard library image for encoders.
func (c *Canvas) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(c.Bounds())
	for i, p := range c.pix {
		img.Pix[i*4] = p.R
		img.Pix[i*4+1] = p.G
		img.Pix[i*4+2] = p.B
		img.Pix[i*4+3] = p.A
	}
	return img
}

func rgbaEqual(c1 color.NRGBA, c2 color.NRGBA) bool {
	return c1 == c2
}

func rgbEqual(c1 color.NRGBA, c2 color.NRGBA) bool {
	return c1.R == c2.R && c1.G == c2.G && c1.B == c2.B
}
