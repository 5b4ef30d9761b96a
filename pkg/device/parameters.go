package device

import "fmt"

// FrameFormat describes how samples of a frame are laid out.
type FrameFormat int

const (
	FrameGray FrameFormat = iota
	FrameRGB
	FrameRed
	FrameGreen
	FrameBlue
)

func (f FrameFormat) String() string {
	switch f {
	case FrameGray:
		return "gray"
	case FrameRGB:
		return "rgb"
	case FrameRed:
		return "red"
	case FrameGreen:
		return "green"
	case FrameBlue:
		return "blue"
	}
	return fmt.Sprintf("frame(%d)", int(f))
}

// Components returns the samples per pixel of the frame format.
func (f FrameFormat) Components() int {
	if f == FrameRGB {
		return 3
	}
	return 1
}

// Page geometry limits. MaxPageBytes admits a letter page at 1200 dpi in
// 16-bit RGB; anything larger is treated as a device fault.
const (
	MaxPageBytes = 1 << 30
	MaxDepth     = 16
)

// Parameters describe the page a Reader is about to deliver.
type Parameters struct {
	Format        FrameFormat `json:"format"`
	LastFrame     bool        `json:"last_frame"`
	BytesPerLine  int         `json:"bytes_per_line"`
	PixelsPerLine int         `json:"pixels_per_line"`
	Lines         int         `json:"lines"`
	Depth         int         `json:"depth"`
}

// PageBytes is the total byte size of the page.
func (p Parameters) PageBytes() int {
	return p.BytesPerLine * p.Lines
}

// Validate rejects geometry that cannot describe a finite page.
func (p Parameters) Validate() error {
	if p.Format < FrameGray || p.Format > FrameBlue {
		return fmt.Errorf("%w: unknown frame format %d", ErrProtocolViolation, int(p.Format))
	}
	if p.BytesPerLine <= 0 {
		return fmt.Errorf("%w: bytes_per_line %d", ErrProtocolViolation, p.BytesPerLine)
	}
	if p.PixelsPerLine <= 0 {
		return fmt.Errorf("%w: pixels_per_line %d", ErrProtocolViolation, p.PixelsPerLine)
	}
	if p.Lines <= 0 {
		return fmt.Errorf("%w: lines %d", ErrProtocolViolation, p.Lines)
	}
	if p.Depth <= 0 || p.Depth > MaxDepth {
		return fmt.Errorf("%w: depth %d", ErrProtocolViolation, p.Depth)
	}
	if err := CheckPageBytes(p.BytesPerLine, p.Lines); err != nil {
		return err
	}
	if p.PixelsPerLine > p.BytesPerLine*8 {
		return fmt.Errorf(
			"%w: %d pixels cannot fit %d bytes per line",
			ErrProtocolViolation, p.PixelsPerLine, p.BytesPerLine,
		)
	}

	bits := p.PixelsPerLine * p.Format.Components() * p.Depth
	if need := (bits + 7) / 8; p.BytesPerLine < need {
		return fmt.Errorf(
			"%w: bytes_per_line %d below %d required by %d pixels",
			ErrProtocolViolation, p.BytesPerLine, need, p.PixelsPerLine,
		)
	}
	return nil
}

// CheckPageBytes rejects a page of bytesPerLine*lines bytes above
// MaxPageBytes without overflowing the product.
func CheckPageBytes(bytesPerLine, lines int) error {
	if bytesPerLine > MaxPageBytes/lines {
		return fmt.Errorf(
			"%w: page of %d bytes x %d lines exceeds %d bytes",
			ErrProtocolViolation, bytesPerLine, lines, MaxPageBytes,
		)
	}
	return nil
}
