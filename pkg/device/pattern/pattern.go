// Package pattern provides an in-process scanner backend that produces a
// deterministic gradient page. It mirrors the option table and behavior of a
// small flatbed scanner and supports fault injection for exercising error
// paths.
package pattern

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/JaimeStill/folio/pkg/device"
)

// DefaultDevice is the name of the device created by Default.
const DefaultDevice = "pattern:0"

// Letter-width defaults used when a Device does not fix its geometry.
const (
	defaultWidthIn  = 8.5
	defaultHeightIn = 11.0
	defaultReadSize = 32 * 1024
)

// Page fixes the geometry of the generated page. Zero Width or Height
// derives the geometry from the negotiated resolution.
type Page struct {
	Format  device.FrameFormat
	Width   int
	Height  int
	Padding int
}

// Faults injects failures into a device.
type Faults struct {
	Open       error
	Start      error
	Read       error
	ReadAfter  int
	Extra      int
	Truncate   int
	Parameters *device.Parameters
	SetValue   map[string]error
}

// Device describes one simulated scanner.
type Device struct {
	Info device.Info
	Page Page
	// ReadSize caps the bytes returned by a single read.
	ReadSize int
	// Options replaces the default option table.
	Options []device.Option
	Faults  Faults
	// OnRead runs after every read that returned data, with the running
	// byte count.
	OnRead func(total int)
}

// Stats counts backend activity for a device.
type Stats struct {
	Opened    int
	Closed    int
	Started   int
	Reads     int
	Cancelled int
}

// Backend serves a fixed set of simulated devices.
type Backend struct {
	mu      sync.Mutex
	devices []Device
	open    map[string]bool
	stats   map[string]*Stats
}

// New creates a backend serving devices.
func New(devices ...Device) *Backend {
	b := &Backend{
		devices: devices,
		open:    make(map[string]bool),
		stats:   make(map[string]*Stats),
	}
	for _, d := range devices {
		b.stats[d.Info.Name] = &Stats{}
	}
	return b
}

// Default creates a backend with one letter-size device.
func Default() *Backend {
	return New(Device{
		Info: device.Info{
			Name:   DefaultDevice,
			Vendor: "Folio",
			Model:  "Pattern Flatbed",
			Type:   "virtual device",
		},
		Page: Page{Format: device.FrameRGB},
	})
}

func (b *Backend) Name() string {
	return "pattern"
}

func (b *Backend) Devices(ctx context.Context) ([]device.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos := make([]device.Info, len(b.devices))
	for i, d := range b.devices {
		infos[i] = d.Info
	}
	return infos, nil
}

func (b *Backend) Open(ctx context.Context, name string) (device.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, ok := b.find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", device.ErrNotFound, name)
	}
	if d.Faults.Open != nil {
		return nil, d.Faults.Open
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open[d.Info.Name] {
		return nil, device.StatusDeviceBusy
	}
	b.open[d.Info.Name] = true
	b.stats[d.Info.Name].Opened++

	opts := d.Options
	if opts == nil {
		opts = DefaultOptions()
	}

	s := &session{
		backend: b,
		dev:     d,
		options: append([]device.Option(nil), opts...),
		values:  make(map[int]device.Value),
	}
	return s, nil
}

// Stats returns a snapshot of the counters for the named device.
func (b *Backend) Stats(name string) Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.stats[name]; ok {
		return *s
	}
	return Stats{}
}

// IsOpen reports whether a session on the named device is open.
func (b *Backend) IsOpen(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open[name]
}

func (b *Backend) find(name string) (Device, bool) {
	if name == "" && len(b.devices) > 0 {
		return b.devices[0], true
	}
	for _, d := range b.devices {
		if d.Info.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

func (b *Backend) record(name string, fn func(s *Stats)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.stats[name])
}

func (b *Backend) release(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.open, name)
	b.stats[name].Closed++
}

// DefaultOptions returns the option table of the simulated flatbed.
func DefaultOptions() []device.Option {
	const settable = device.CapSoftSelect | device.CapSoftDetect

	return []device.Option{
		{Index: 0, Title: "Number of options", Type: device.TypeInt, Size: 4, Capabilities: device.CapSoftDetect},
		{Index: 1, Title: "Scan Mode", Type: device.TypeGroup},
		{
			Index: 2, Name: "mode", Title: "Scan mode", Type: device.TypeString, Size: 16,
			Capabilities: settable | device.CapAutomatic,
			Constraint: device.Constraint{
				Kind: device.ConstraintStringList, Strings: []string{"Color", "Gray"},
			},
		},
		{
			Index: 3, Name: device.NameResolution, Title: "Scan resolution", Type: device.TypeInt,
			Unit: device.UnitDPI, Size: 4, Capabilities: settable,
			Constraint: device.Constraint{
				Kind: device.ConstraintWordList, Words: []int32{75, 100, 150, 200, 300, 600},
			},
		},
		{
			Index: 4, Name: "source", Title: "Scan source", Type: device.TypeString, Size: 16,
			Capabilities: settable,
			Constraint: device.Constraint{
				Kind: device.ConstraintStringList, Strings: []string{"Flatbed"},
			},
		},
		{Index: 5, Title: "Enhancement", Type: device.TypeGroup},
		{
			Index: 6, Name: "brightness", Title: "Brightness", Type: device.TypeInt,
			Unit: device.UnitPercent, Size: 4, Capabilities: settable | device.CapAutomatic,
			Constraint: device.Constraint{
				Kind: device.ConstraintRange, Range: device.Range{Min: -100, Max: 100, Quant: 1},
			},
		},
		{
			Index: 7, Name: "gamma", Title: "Gamma", Type: device.TypeFixed, Size: 4,
			Capabilities: settable | device.CapAdvanced,
			Constraint: device.Constraint{
				Kind: device.ConstraintRange,
				Range: device.Range{
					Min: device.FloatToFixed(0.5), Max: device.FloatToFixed(4),
				},
			},
		},
		{Index: 8, Name: "lamp-off", Title: "Lamp off", Type: device.TypeButton, Capabilities: settable},
		{Index: 9, Name: "firmware", Title: "Firmware", Type: device.TypeString, Size: 16, Capabilities: device.CapSoftDetect},
	}
}

type session struct {
	backend *Backend
	dev     Device
	options []device.Option
	values  map[int]device.Value
	closed  bool
}

func (s *session) Info() device.Info {
	return s.dev.Info
}

func (s *session) Options() ([]device.Option, error) {
	return s.options, nil
}

func (s *session) option(index int) (device.Option, error) {
	for _, o := range s.options {
		if o.Index == index {
			return o, nil
		}
	}
	return device.Option{}, device.StatusInvalid
}

func (s *session) SetValue(index int, v device.Value) error {
	opt, err := s.option(index)
	if err != nil {
		return err
	}
	if err := s.dev.Faults.SetValue[opt.Name]; err != nil {
		return err
	}
	if err := opt.Check(v); err != nil {
		return device.StatusInvalid
	}
	s.values[index] = v
	return nil
}

func (s *session) SetAuto(index int) error {
	opt, err := s.option(index)
	if err != nil {
		return err
	}
	if !opt.Automatic() {
		return device.StatusInvalid
	}
	delete(s.values, index)
	return nil
}

func (s *session) value(name string) (device.Value, bool) {
	opt, ok := device.FindOption(s.options, name)
	if !ok {
		return device.Value{}, false
	}
	v, ok := s.values[opt.Index]
	return v, ok
}

func (s *session) parameters() device.Parameters {
	if p := s.dev.Faults.Parameters; p != nil {
		return *p
	}

	format := s.dev.Page.Format
	if v, ok := s.value("mode"); ok {
		format = device.FrameRGB
		if v.Str == "Gray" {
			format = device.FrameGray
		}
	}

	width, height := s.dev.Page.Width, s.dev.Page.Height
	if width == 0 || height == 0 {
		dpi := 150.0
		if v, ok := s.value(device.NameResolution); ok {
			dpi = float64(v.Word)
		}
		width = int(math.Round(defaultWidthIn * dpi))
		height = int(math.Round(defaultHeightIn * dpi))
	}

	return device.Parameters{
		Format:        format,
		LastFrame:     true,
		BytesPerLine:  width*format.Components() + s.dev.Page.Padding,
		PixelsPerLine: width,
		Lines:         height,
		Depth:         8,
	}
}

func (s *session) Start() (device.Reader, error) {
	if s.closed {
		return nil, device.StatusInvalid
	}
	if err := s.dev.Faults.Start; err != nil {
		return nil, err
	}
	s.backend.record(s.dev.Info.Name, func(st *Stats) { st.Started++ })

	readSize := s.dev.ReadSize
	if readSize <= 0 {
		readSize = defaultReadSize
	}

	return &reader{
		session:  s,
		params:   s.parameters(),
		readSize: readSize,
	}, nil
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.backend.release(s.dev.Info.Name)
	return nil
}
