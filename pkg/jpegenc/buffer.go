package jpegenc

import (
	"errors"
	"slices"
)

// DefaultBlockSize is the growth increment of a BlockBuffer.
const DefaultBlockSize = 16 * 1024

// ErrFinalized is returned when writing to a finalized BlockBuffer.
var ErrFinalized = errors.New("block buffer finalized")

// BlockBuffer is a growable sink that allocates its backing store in
// fixed-size blocks. A new buffer holds one block with the cursor at its
// start; when the cursor reaches the end of the store another block is
// appended and writing continues at its start. Finalize truncates the
// unwritten tail of the last block.
//
// BlockBuffer implements io.Writer, io.ByteWriter and a no-op Flush so
// compressors that detect buffered writers write straight into it.
type BlockBuffer struct {
	buf       []byte
	pos       int
	block     int
	blocks    int
	finalized bool
}

// NewBlockBuffer allocates the first block. Non-positive sizes use
// DefaultBlockSize.
func NewBlockBuffer(blockSize int) *BlockBuffer {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &BlockBuffer{
		buf:    make([]byte, blockSize),
		block:  blockSize,
		blocks: 1,
	}
}

// grow appends one block and returns the capacity now available.
func (b *BlockBuffer) grow() int {
	b.buf = slices.Grow(b.buf, b.block)[:len(b.buf)+b.block]
	b.blocks++
	return len(b.buf) - b.pos
}

func (b *BlockBuffer) Write(p []byte) (int, error) {
	if b.finalized {
		return 0, ErrFinalized
	}

	n := 0
	for len(p) > 0 {
		if b.pos == len(b.buf) {
			b.grow()
		}
		c := copy(b.buf[b.pos:], p)
		b.pos += c
		n += c
		p = p[c:]
	}
	return n, nil
}

func (b *BlockBuffer) WriteByte(c byte) error {
	if b.finalized {
		return ErrFinalized
	}
	if b.pos == len(b.buf) {
		b.grow()
	}
	b.buf[b.pos] = c
	b.pos++
	return nil
}

// Flush is a no-op; bytes land in the buffer as they are written.
func (b *BlockBuffer) Flush() error {
	return nil
}

// Remaining is the unwritten capacity of the current block.
func (b *BlockBuffer) Remaining() int {
	return len(b.buf) - b.pos
}

// Blocks is the number of blocks allocated so far.
func (b *BlockBuffer) Blocks() int {
	return b.blocks
}

// Len is the number of bytes written.
func (b *BlockBuffer) Len() int {
	return b.pos
}

// Finalize drops the unwritten tail and returns the written bytes. Further
// writes fail; calling Finalize again returns the same bytes.
func (b *BlockBuffer) Finalize() []byte {
	if !b.finalized {
		b.buf = b.buf[:b.pos:b.pos]
		b.finalized = true
	}
	return b.buf
}
