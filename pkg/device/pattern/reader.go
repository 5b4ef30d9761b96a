package pattern

import (
	"io"

	"github.com/JaimeStill/folio/pkg/device"
)

type reader struct {
	session   *session
	params    device.Parameters
	readSize  int
	pos       int
	cancelled bool
}

func (r *reader) Parameters() (device.Parameters, error) {
	return r.params, nil
}

// length is the number of bytes the device will deliver, including
// injected surplus or shortfall.
func (r *reader) length() int {
	n := r.params.BytesPerLine*r.params.Lines + r.session.dev.Faults.Extra - r.session.dev.Faults.Truncate
	return max(n, 0)
}

func (r *reader) Read(p []byte) (int, error) {
	if r.cancelled {
		return 0, device.StatusCancelled
	}

	faults := r.session.dev.Faults
	if faults.Read != nil && r.pos >= faults.ReadAfter {
		return 0, faults.Read
	}

	remaining := r.length() - r.pos
	if remaining <= 0 {
		return 0, io.EOF
	}

	n := min(len(p), r.readSize, remaining)
	if faults.Read != nil && r.pos < faults.ReadAfter {
		n = min(n, faults.ReadAfter-r.pos)
	}
	for i := range n {
		p[i] = r.sample(r.pos + i)
	}
	r.pos += n

	name := r.session.dev.Info.Name
	r.session.backend.record(name, func(st *Stats) { st.Reads++ })
	if fn := r.session.dev.OnRead; fn != nil {
		fn(r.pos)
	}
	return n, nil
}

// sample returns the byte at offset off of the generated page: a diagonal
// gradient per channel, zero in row padding and surplus.
func (r *reader) sample(off int) byte {
	bpl := r.params.BytesPerLine
	if bpl <= 0 || off >= bpl*r.params.Lines {
		return 0
	}

	comps := r.params.Format.Components()
	y := off / bpl
	col := off % bpl
	if col >= r.params.PixelsPerLine*comps {
		return 0
	}

	x, c := col/comps, col%comps
	return byte((x + y + c*85) % 256)
}

func (r *reader) Cancel() error {
	if !r.cancelled {
		r.cancelled = true
		r.session.backend.record(r.session.dev.Info.Name, func(st *Stats) { st.Cancelled++ })
	}
	return nil
}

// Sample exposes the generated byte at offset off of a page with the given
// parameters.
func Sample(p device.Parameters, off int) byte {
	r := reader{params: p}
	return r.sample(off)
}
