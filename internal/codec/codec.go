package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	diffimage "pixeldiff/internal/diff/image"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image exceeds pixel limit")
)

// DefaultMaxPixels bounds a decoded canvas to 256MiB of NRGBA pixels.
const DefaultMaxPixels = 64 << 20

type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %s", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s: %s", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Decode decodes any registered image format into a canvas. name only labels
// errors.
func Decode(name string, data []byte) (*diffimage.Canvas, string, error) {
	return DecodeLimit(name, data, DefaultMaxPixels)
}

// DecodeLimit is Decode with the header checked against maxPixels before any
// pixel data is allocated. A non-positive maxPixels means DefaultMaxPixels.
func DecodeLimit(name string, data []byte, maxPixels int64) (*diffimage.Canvas, string, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Name: name, Err: decodeCause(err)}
	}
	if config.Width < 0 || config.Height < 0 || int64(config.Width)*int64(config.Height) > maxPixels {
		return nil, "", &DecodeError{
			Name: name,
			Err:  xerrors.Errorf("%dx%d over %d pixels: %w", config.Width, config.Height, maxPixels, ErrTooLarge),
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Name: name, Err: decodeCause(err)}
	}
	return diffimage.FromImage(img), format, nil
}

func decodeCause(err error) error {
	if errors.Is(err, image.ErrFormat) {
		return ErrUnsupportedFormat
	}
	return err
}

type Options struct {
	// Quality is only used by jpeg, defaults to 90.
	Quality int
}

func Encode(w io.Writer, img image.Image, format string, options *Options) error {
	if canvas, ok := img.(*diffimage.Canvas); ok {
		img = canvas.NRGBA()
	}

	var err error
	switch strings.ToLower(format) {
	case "png", "":
		err = png.Encode(w, img)
	case "jpeg", "jpg":
		quality := 90
		if options != nil && options.Quality > 0 {
			quality = options.Quality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case "bmp":
		err = bmp.Encode(w, img)
	case "tiff", "tif":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return &EncodeError{Format: format, Err: ErrUnsupportedFormat}
	}
	if err != nil {
		return &EncodeError{Format: format, Err: xerrors.Errorf("failed to write image: %w", err)}
	}
	return nil
}

func EncodeBytes(img image.Image, format string, options *Options) ([]byte, error) {
	var buffer bytes.Buffer
	if err := Encode(&buffer, img, format, options); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "bmp":
		return "image/bmp"
	case "tiff", "tif":
		return "image/tiff"
	default:
		return "image/png"
	}
}

func Extension(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return ".jpeg"
	case "bmp":
		return ".bmp"
	case "tiff", "tif":
		return ".tiff"
	default:
		return ".png"
	}
}
