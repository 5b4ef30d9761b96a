// Package page defines the page values that flow through the pipeline: the
// uncompressed raster produced by a scan and its JPEG-compressed form.
package page

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/folio/pkg/device"
)

// ErrUnsupportedFrame indicates device parameters that do not map onto a
// single-pass 8-bit page.
var ErrUnsupportedFrame = errors.New("unsupported frame")

// Format is the pixel layout of a page.
type Format int

const (
	RGB Format = iota
	Gray
)

func (f Format) String() string {
	if f == Gray {
		return "gray"
	}
	return "rgb"
}

// Components returns the samples per pixel.
func (f Format) Components() int {
	if f == Gray {
		return 1
	}
	return 3
}

// ColorSpace returns the PDF color space name of the format.
func (f Format) ColorSpace() string {
	if f == Gray {
		return "DeviceGray"
	}
	return "DeviceRGB"
}

// Raw is an uncompressed page of 8-bit samples, rows packed without padding.
type Raw struct {
	Pixels []byte
	Width  int
	Height int
	Format Format
}

// Stride is the byte length of one row.
func (r Raw) Stride() int {
	return r.Width * r.Format.Components()
}

// Validate checks the pixel buffer against the declared geometry.
func (r Raw) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid page geometry %dx%d", r.Width, r.Height)
	}
	if want := r.Stride() * r.Height; len(r.Pixels) != want {
		return fmt.Errorf("pixel buffer is %d bytes, want %d", len(r.Pixels), want)
	}
	return nil
}

// FromParameters builds a Raw page from an assembled buffer. Row padding
// beyond the pixel payload is stripped.
func FromParameters(p device.Parameters, buf []byte) (Raw, error) {
	var format Format
	switch p.Format {
	case device.FrameRGB:
		format = RGB
	case device.FrameGray:
		format = Gray
	default:
		return Raw{}, fmt.Errorf("%w: %s frames", ErrUnsupportedFrame, p.Format)
	}
	if p.Depth != 8 {
		return Raw{}, fmt.Errorf("%w: depth %d", ErrUnsupportedFrame, p.Depth)
	}
	if len(buf) != p.PageBytes() {
		return Raw{}, fmt.Errorf("buffer is %d bytes, want %d", len(buf), p.PageBytes())
	}

	raw := Raw{
		Width:  p.PixelsPerLine,
		Height: p.Lines,
		Format: format,
	}

	stride := raw.Stride()
	if stride == p.BytesPerLine {
		raw.Pixels = buf
		return raw, nil
	}

	raw.Pixels = make([]byte, stride*p.Lines)
	for y := range p.Lines {
		copy(raw.Pixels[y*stride:(y+1)*stride], buf[y*p.BytesPerLine:])
	}
	return raw, nil
}

// Encoded is a JPEG-compressed page. It is not modified after creation.
type Encoded struct {
	Data   []byte `json:"-"`
	Format Format `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Size returns the compressed byte length.
func (e Encoded) Size() int {
	return len(e.Data)
}
