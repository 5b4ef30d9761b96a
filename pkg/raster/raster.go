// Package raster assembles scanline-aligned page buffers from device reads
// of arbitrary length.
package raster

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/folio/pkg/device"
)

var (
	// ErrOverflow indicates the device delivered more bytes than its
	// parameters declared for the page.
	ErrOverflow = errors.New("raster overflow")
	// ErrIncomplete indicates the page ended before every line arrived.
	ErrIncomplete = errors.New("incomplete page")
)

// Assembler accumulates bytes into a page of lines*bytesPerLine bytes.
// Incoming bytes are staged one scanline at a time; each completed scanline
// is copied to the next line offset of the page.
type Assembler struct {
	page  []byte
	line  []byte
	stage int
	lines int
}

// New allocates an assembler for the given geometry. Pages above
// device.MaxPageBytes are rejected before any allocation.
func New(bytesPerLine, lines int) (*Assembler, error) {
	if bytesPerLine <= 0 || lines <= 0 {
		return nil, fmt.Errorf(
			"%w: page geometry %d bytes x %d lines",
			device.ErrProtocolViolation, bytesPerLine, lines,
		)
	}
	if err := device.CheckPageBytes(bytesPerLine, lines); err != nil {
		return nil, err
	}
	return &Assembler{
		page: make([]byte, bytesPerLine*lines),
		line: make([]byte, bytesPerLine),
	}, nil
}

// Write consumes p. A write that would run past the end of the page is
// rejected whole with ErrOverflow and leaves the assembler unchanged.
func (a *Assembler) Write(p []byte) (int, error) {
	if a.Len()+len(p) > len(a.page) {
		return 0, fmt.Errorf(
			"%w: %d bytes after %d of %d",
			ErrOverflow, len(p), a.Len(), len(a.page),
		)
	}

	n := len(p)
	for len(p) > 0 {
		c := copy(a.line[a.stage:], p)
		a.stage += c
		p = p[c:]

		if a.stage == len(a.line) {
			copy(a.page[a.lines*len(a.line):], a.line)
			a.lines++
			a.stage = 0
		}
	}
	return n, nil
}

// Len is the number of bytes consumed so far.
func (a *Assembler) Len() int {
	return a.lines*len(a.line) + a.stage
}

// Size is the declared page size in bytes.
func (a *Assembler) Size() int {
	return len(a.page)
}

// Lines is the number of scanlines flushed into the page.
func (a *Assembler) Lines() int {
	return a.lines
}

// Staged is the number of bytes of the next scanline held in staging.
func (a *Assembler) Staged() int {
	return a.stage
}

// Complete reports whether every scanline has been flushed.
func (a *Assembler) Complete() bool {
	return a.lines*len(a.line) == len(a.page)
}

// Progress is the completed share of the page as a percentage.
func (a *Assembler) Progress() int {
	return a.Len() * 100 / len(a.page)
}

// Page returns the assembled buffer once complete.
func (a *Assembler) Page() ([]byte, error) {
	if !a.Complete() {
		return nil, fmt.Errorf(
			"%w: %d of %d bytes",
			ErrIncomplete, a.Len(), len(a.page),
		)
	}
	return a.page, nil
}
