// Package device defines the boundary between the scan pipeline and a
// scanner backend: device discovery, option descriptors, sessions, and the
// per-page byte stream.
package device

import "context"

// Info identifies a scanner known to a backend.
type Info struct {
	Name   string `json:"name"`
	Vendor string `json:"vendor"`
	Model  string `json:"model"`
	Type   string `json:"type"`
}

// Backend discovers devices and opens sessions on them. A Backend is
// created once at startup and shared by reference.
type Backend interface {
	// Name identifies the backend implementation.
	Name() string
	// Devices lists the scanners currently reachable.
	Devices(ctx context.Context) ([]Info, error)
	// Open starts an exclusive session on the named device.
	Open(ctx context.Context, name string) (Session, error)
}

// Session is an open device. Exactly one goroutine owns a Session at a time
// and must Close it on every exit path.
type Session interface {
	// Info returns the identity of the opened device.
	Info() Info
	// Options fetches the current option descriptors. Index 0 is the
	// option count pseudo-option on most devices.
	Options() ([]Option, error)
	// SetValue sets option index to v.
	SetValue(index int, v Value) error
	// SetAuto lets the device choose the value of option index.
	SetAuto(index int) error
	// Start begins acquiring one page.
	Start() (Reader, error)
	// Close releases the device.
	Close() error
}

// Reader streams the bytes of one page.
type Reader interface {
	// Parameters describes the page being acquired.
	Parameters() (Parameters, error)
	// Read fills p with the next bytes of the page. End of page is
	// reported as io.EOF; a zero-length read with a nil error also ends
	// the page.
	Read(p []byte) (int, error)
	// Cancel stops acquisition. It is safe to call after the page ended.
	Cancel() error
}

// FindOption returns the option with the given name.
func FindOption(opts []Option, name string) (Option, bool) {
	for _, o := range opts {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}
