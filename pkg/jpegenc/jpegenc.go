// Package jpegenc compresses raw pages to baseline or progressive JPEG
// through a growable block sink.
package jpegenc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/dlecorfec/progjpeg"

	"github.com/JaimeStill/folio/pkg/page"
)

// ErrEncode wraps every failure to compress a page.
var ErrEncode = errors.New("jpeg encode failed")

const (
	MinQuality     = 0
	MaxQuality     = 100
	DefaultQuality = 75
)

// Encoder converts raw pages to JPEG. The zero value encodes baseline JPEG
// at quality 0 with DefaultBlockSize blocks.
type Encoder struct {
	Quality     int
	BlockSize   int
	Progressive bool
}

// Encode compresses raw. Rows are copied into the compressor input one
// scanline at a time; the compressed stream is written into a BlockBuffer
// which is finalized once the compressor returns.
func (e Encoder) Encode(raw page.Raw) (page.Encoded, error) {
	if e.Quality < MinQuality || e.Quality > MaxQuality {
		return page.Encoded{}, fmt.Errorf(
			"%w: quality %d outside [%d, %d]",
			ErrEncode, e.Quality, MinQuality, MaxQuality,
		)
	}
	if err := raw.Validate(); err != nil {
		return page.Encoded{}, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	img, err := input(raw)
	if err != nil {
		return page.Encoded{}, err
	}

	sink := NewBlockBuffer(e.BlockSize)
	opts := &progjpeg.Options{
		Quality:     e.Quality,
		Progressive: e.Progressive,
	}
	if err := progjpeg.Encode(sink, img, opts); err != nil {
		return page.Encoded{}, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return page.Encoded{
		Data:   sink.Finalize(),
		Format: raw.Format,
		Width:  raw.Width,
		Height: raw.Height,
	}, nil
}

func input(raw page.Raw) (image.Image, error) {
	rect := image.Rect(0, 0, raw.Width, raw.Height)
	stride := raw.Stride()

	switch raw.Format {
	case page.Gray:
		img := image.NewGray(rect)
		for y := range raw.Height {
			copy(img.Pix[y*img.Stride:], raw.Pixels[y*stride:(y+1)*stride])
		}
		return img, nil
	case page.RGB:
		img := image.NewRGBA(rect)
		for y := range raw.Height {
			row := raw.Pixels[y*stride : (y+1)*stride]
			dst := img.Pix[y*img.Stride:]
			for x := range raw.Width {
				dst[x*4+0] = row[x*3+0]
				dst[x*4+1] = row[x*3+1]
				dst[x*4+2] = row[x*3+2]
				dst[x*4+3] = 0xff
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: unsupported format %d", ErrEncode, int(raw.Format))
}

// Inspect reads the header of a JPEG stream and reports its geometry and
// color format.
func Inspect(data []byte) (width, height int, format page.Format, err error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("inspect jpeg: %w", err)
	}

	format = page.RGB
	if cfg.ColorModel == color.GrayModel {
		format = page.Gray
	}
	return cfg.Width, cfg.Height, format, nil
}

// Verify checks that the stream of enc matches its declared geometry.
func Verify(enc page.Encoded) error {
	w, h, f, err := Inspect(enc.Data)
	if err != nil {
		return err
	}
	if w != enc.Width || h != enc.Height || f != enc.Format {
		return fmt.Errorf(
			"jpeg is %dx%d %s, page declares %dx%d %s",
			w, h, f, enc.Width, enc.Height, enc.Format,
		)
	}
	return nil
}
