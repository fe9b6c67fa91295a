package flame

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Image is a tone-mapped RGBA image, rows top to bottom. Color is not
// premultiplied by alpha.
type Image struct {
	width  int
	height int
	data   []uint8 // RGBA format, 4 bytes per pixel
}

// NewImage creates a new image with the given dimensions.
func NewImage(width, height int) *Image {
	return &Image{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the image.
func (m *Image) Width() int {
	return m.width
}

// Height returns the height of the image.
func (m *Image) Height() int {
	return m.height
}

// Data returns the raw pixel data (RGBA format).
func (m *Image) Data() []uint8 {
	return m.data
}

// RGBA returns the pixel at (x, y), or zero outside the image.
func (m *Image) RGBA(x, y int) [4]uint8 {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return [4]uint8{}
	}
	i := (y*m.width + x) * 4
	return [4]uint8{m.data[i], m.data[i+1], m.data[i+2], m.data[i+3]}
}

// flipVertical reverses the row order in place.
func (m *Image) flipVertical() {
	stride := m.width * 4
	tmp := make([]uint8, stride)
	for top, bot := 0, m.height-1; top < bot; top, bot = top+1, bot-1 {
		a := m.data[top*stride : (top+1)*stride]
		b := m.data[bot*stride : (bot+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

// ToImage converts the image to an image.NRGBA.
func (m *Image) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.width, m.height))
	copy(img.Pix, m.data)
	return img
}

// Scale returns a copy resampled to width×height with Catmull-Rom.
func (m *Image) Scale(width, height int) *Image {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), m.ToImage(), m.Bounds(), draw.Src, nil)
	out := NewImage(width, height)
	copy(out.data, dst.Pix)
	return out
}

// Format is an output file format.
type Format int

// Supported output formats.
const (
	FormatPNG Format = iota
	FormatBMP
	FormatTIFF
)

// String returns the usual file extension without the dot.
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks a format from the file extension. Unknown
// extensions select PNG.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return FormatBMP
	case ".tif", ".tiff":
		return FormatTIFF
	default:
		return FormatPNG
	}
}

// Encode writes the image to w in format f.
func (m *Image) Encode(w io.Writer, f Format) error {
	img := m.ToImage()
	switch f {
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("flame: unsupported format %v", f)
	}
}

// Save writes the image to path in the format implied by its extension.
func (m *Image) Save(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := m.Encode(f, FormatFromPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// At implements the image.Image interface.
func (m *Image) At(x, y int) color.Color {
	p := m.RGBA(x, y)
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Bounds implements the image.Image interface.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// ColorModel implements the image.Image interface.
func (m *Image) ColorModel() color.Model {
	return color.NRGBAModel
}
