package saned

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/JaimeStill/folio/pkg/device"
)

// Remote procedure numbers.
const (
	rpcInit                 = 0
	rpcGetDevices           = 1
	rpcOpen                 = 2
	rpcClose                = 3
	rpcGetOptionDescriptors = 4
	rpcControlOption        = 5
	rpcGetParameters        = 6
	rpcStart                = 7
	rpcCancel               = 8
	rpcAuthorize            = 9
	rpcExit                 = 10
)

// Control option actions.
const (
	actionGet     = 0
	actionSet     = 1
	actionSetAuto = 2
)

// infoReloadOptions is set in a control reply when the option table changed.
const infoReloadOptions = 1 << 1

// protocolVersion is version code 1.0.3.
const protocolVersion = 1<<24 | 3

// recordEnd terminates the image data stream.
const recordEnd = 0xffffffff

// maxString bounds strings and arrays read from the wire.
const maxString = 1 << 20

type encoder struct {
	w   *bufio.Writer
	err error
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{w: bufio.NewWriter(w)}
}

func (e *encoder) word(v int32) {
	if e.err != nil {
		return
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, e.err = e.w.Write(b[:])
}

func (e *encoder) bool(v bool) {
	if v {
		e.word(1)
	} else {
		e.word(0)
	}
}

// str writes a length-prefixed, NUL-terminated string.
func (e *encoder) str(s string) {
	e.word(int32(len(s) + 1))
	if e.err != nil {
		return
	}
	if _, e.err = e.w.WriteString(s); e.err != nil {
		return
	}
	e.err = e.w.WriteByte(0)
}

// nullStr writes the encoding of a NULL string.
func (e *encoder) nullStr() {
	e.word(0)
}

func (e *encoder) raw(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

type decoder struct {
	r   *bufio.Reader
	err error
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: bufio.NewReader(r)}
}

func (d *decoder) word() int32 {
	if d.err != nil {
		return 0
	}
	var b [4]byte
	if _, d.err = io.ReadFull(d.r, b[:]); d.err != nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b[:]))
}

func (d *decoder) bool() bool {
	return d.word() != 0
}

// length reads an array or string length and bounds it.
func (d *decoder) length() int {
	n := d.word()
	if d.err != nil {
		return 0
	}
	if n < 0 || n > maxString {
		d.err = fmt.Errorf("%w: length %d", device.ErrProtocolViolation, n)
		return 0
	}
	return int(n)
}

func (d *decoder) str() string {
	n := d.length()
	if d.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	if _, d.err = io.ReadFull(d.r, b); d.err != nil {
		return ""
	}
	if b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b)
}

// ptr reads a pointer marker and reports whether a value follows.
func (d *decoder) ptr() bool {
	return d.word() == 0 && d.err == nil
}

func (d *decoder) status() error {
	code := d.word()
	if d.err != nil {
		return d.err
	}
	return device.StatusFromCode(int(code))
}

func (d *decoder) raw(p []byte) {
	if d.err != nil {
		return
	}
	_, d.err = io.ReadFull(d.r, p)
}

func (d *decoder) fail() error {
	if d.err == nil {
		return nil
	}
	if d.err == io.EOF || d.err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: connection closed mid-message", device.ErrProtocolViolation)
	}
	return d.err
}

func writeDevice(e *encoder, info device.Info) {
	e.str(info.Name)
	e.str(info.Vendor)
	e.str(info.Model)
	e.str(info.Type)
}

func readDevice(d *decoder) device.Info {
	return device.Info{
		Name:   d.str(),
		Vendor: d.str(),
		Model:  d.str(),
		Type:   d.str(),
	}
}

func writeOption(e *encoder, o device.Option) {
	e.str(o.Name)
	e.str(o.Title)
	e.str(o.Description)
	e.word(int32(o.Type))
	e.word(int32(o.Unit))
	e.word(int32(o.Size))
	e.word(int32(o.Capabilities))
	e.word(int32(o.Constraint.Kind))

	switch o.Constraint.Kind {
	case device.ConstraintRange:
		e.word(0)
		e.word(o.Constraint.Range.Min)
		e.word(o.Constraint.Range.Max)
		e.word(o.Constraint.Range.Quant)
	case device.ConstraintWordList:
		e.word(int32(len(o.Constraint.Words) + 1))
		e.word(int32(len(o.Constraint.Words)))
		for _, w := range o.Constraint.Words {
			e.word(w)
		}
	case device.ConstraintStringList:
		e.word(int32(len(o.Constraint.Strings) + 1))
		for _, s := range o.Constraint.Strings {
			e.str(s)
		}
		e.nullStr()
	}
}

func readOption(d *decoder) device.Option {
	o := device.Option{
		Name:         d.str(),
		Title:        d.str(),
		Description:  d.str(),
		Type:         device.ValueType(d.word()),
		Unit:         device.Unit(d.word()),
		Size:         int(d.word()),
		Capabilities: device.Capability(d.word()),
	}
	o.Constraint.Kind = device.ConstraintKind(d.word())

	switch o.Constraint.Kind {
	case device.ConstraintNone:
	case device.ConstraintRange:
		if d.ptr() {
			o.Constraint.Range = device.Range{Min: d.word(), Max: d.word(), Quant: d.word()}
		}
	case device.ConstraintWordList:
		n := d.length()
		words := make([]int32, 0, n)
		for range n {
			words = append(words, d.word())
		}
		// The first element is the list's own count.
		if len(words) > 0 {
			words = words[1:]
		}
		o.Constraint.Words = words
	case device.ConstraintStringList:
		n := d.length()
		for range n {
			if s := d.str(); s != "" {
				o.Constraint.Strings = append(o.Constraint.Strings, s)
			}
		}
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: constraint type %d", device.ErrProtocolViolation, o.Constraint.Kind)
		}
	}
	return o
}

// writeValue encodes an option value as an array: bytes for strings, words
// for everything else.
func writeValue(e *encoder, opt device.Option, v device.Value) {
	switch opt.Type {
	case device.TypeString:
		buf := make([]byte, opt.Size)
		copy(buf, v.Str)
		e.word(int32(len(buf)))
		e.raw(buf)
	case device.TypeBool:
		e.word(1)
		e.bool(v.Bool)
	case device.TypeInt, device.TypeFixed:
		e.word(1)
		e.word(v.Word)
	default:
		e.word(0)
	}
}

func valueSize(opt device.Option) int32 {
	switch opt.Type {
	case device.TypeString:
		return int32(opt.Size)
	case device.TypeBool, device.TypeInt, device.TypeFixed:
		return 4
	}
	return 0
}

// readValue decodes an array-encoded value of type t.
func readValue(d *decoder, t device.ValueType) device.Value {
	n := d.length()
	v := device.Value{Type: t}
	switch t {
	case device.TypeString:
		b := make([]byte, n)
		d.raw(b)
		if i := indexNUL(b); i >= 0 {
			b = b[:i]
		}
		v.Str = string(b)
	default:
		for i := range n {
			w := d.word()
			if i == 0 {
				v.Word = w
				v.Bool = w != 0
			}
		}
	}
	return v
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

func writeParameters(e *encoder, p device.Parameters) {
	e.word(int32(p.Format))
	e.bool(p.LastFrame)
	e.word(int32(p.BytesPerLine))
	e.word(int32(p.PixelsPerLine))
	e.word(int32(p.Lines))
	e.word(int32(p.Depth))
}

func readParameters(d *decoder) device.Parameters {
	return device.Parameters{
		Format:        device.FrameFormat(d.word()),
		LastFrame:     d.bool(),
		BytesPerLine:  int(d.word()),
		PixelsPerLine: int(d.word()),
		Lines:         int(d.word()),
		Depth:         int(d.word()),
	}
}
