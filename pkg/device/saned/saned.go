// Package saned is a device backend that speaks the SANE network protocol
// to a saned daemon. Every session owns its own control connection; image
// data for a page arrives on a second connection opened by Start.
package saned

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/JaimeStill/folio/pkg/device"
)

// Backend opens sessions against one saned daemon.
type Backend struct {
	cfg    Config
	dialer net.Dialer
	logger *slog.Logger
}

// New creates a backend. cfg must be finalized.
func New(cfg *Config, logger *slog.Logger) *Backend {
	return &Backend{
		cfg:    *cfg,
		dialer: net.Dialer{Timeout: cfg.DialTimeoutDuration()},
		logger: logger.With("backend", "saned", "address", cfg.Address),
	}
}

func (b *Backend) Name() string {
	return "saned"
}

// Devices lists the scanners exported by the daemon.
func (b *Backend) Devices(ctx context.Context) ([]device.Info, error) {
	c, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.exit()

	return c.devices()
}

// Open connects, looks up name, and opens it. An empty name opens the
// daemon's first device.
func (b *Backend) Open(ctx context.Context, name string) (device.Session, error) {
	c, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}

	info, handle, err := c.open(name)
	if err != nil {
		c.exit()
		return nil, err
	}

	b.logger.Debug("session opened", "device", info.Name, "handle", handle)
	return &session{
		conn:   c,
		handle: handle,
		info:   info,
		logger: b.logger.With("device", info.Name),
	}, nil
}

func (b *Backend) connect(ctx context.Context) (*conn, error) {
	nc, err := b.dialer.DialContext(ctx, "tcp", b.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("dial saned: %w", err)
	}

	c := &conn{
		nc:      nc,
		enc:     newEncoder(nc),
		dec:     newDecoder(nc),
		timeout: b.cfg.IOTimeoutDuration(),
		dialer:  b.dialer,
	}
	if err := c.init(b.cfg.Username); err != nil {
		nc.Close()
		return nil, err
	}
	return c, nil
}

// conn is a control connection. It is not safe for concurrent use.
type conn struct {
	nc      net.Conn
	enc     *encoder
	dec     *decoder
	timeout time.Duration
	dialer  net.Dialer
}

// call writes a request built by req and arms the read deadline for its
// reply.
func (c *conn) call(rpc int32, req func(e *encoder)) error {
	if c.timeout > 0 {
		c.nc.SetDeadline(time.Now().Add(c.timeout))
	}
	c.enc.word(rpc)
	if req != nil {
		req(c.enc)
	}
	if err := c.enc.flush(); err != nil {
		return fmt.Errorf("write rpc %d: %w", rpc, err)
	}
	return nil
}

func (c *conn) init(username string) error {
	err := c.call(rpcInit, func(e *encoder) {
		e.word(protocolVersion)
		e.str(username)
	})
	if err != nil {
		return err
	}

	status := c.dec.status()
	version := c.dec.word()
	if err := c.dec.fail(); err != nil {
		return err
	}
	if status != nil {
		return fmt.Errorf("init: %w", status)
	}
	if major := version >> 24; major != 1 {
		return fmt.Errorf("%w: protocol major version %d", device.ErrProtocolViolation, major)
	}
	return nil
}

func (c *conn) devices() ([]device.Info, error) {
	if err := c.call(rpcGetDevices, nil); err != nil {
		return nil, err
	}

	status := c.dec.status()
	n := c.dec.length()
	var infos []device.Info
	for range n {
		if c.dec.ptr() {
			infos = append(infos, readDevice(c.dec))
		}
	}
	if err := c.dec.fail(); err != nil {
		return nil, err
	}
	if status != nil {
		return nil, fmt.Errorf("get devices: %w", status)
	}
	return infos, nil
}

func (c *conn) open(name string) (device.Info, int32, error) {
	infos, err := c.devices()
	if err != nil {
		return device.Info{}, 0, err
	}

	info, ok := lookup(infos, name)
	if !ok {
		return device.Info{}, 0, fmt.Errorf("%w: %s", device.ErrNotFound, name)
	}

	if err := c.call(rpcOpen, func(e *encoder) { e.str(info.Name) }); err != nil {
		return device.Info{}, 0, err
	}

	status := c.dec.status()
	handle := c.dec.word()
	resource := c.dec.str()
	if err := c.dec.fail(); err != nil {
		return device.Info{}, 0, err
	}
	if resource != "" {
		return device.Info{}, 0, fmt.Errorf("open %s: resource %q: %w", info.Name, resource, device.StatusAccessDenied)
	}
	if status != nil {
		return device.Info{}, 0, fmt.Errorf("open %s: %w", info.Name, status)
	}
	return info, handle, nil
}

func lookup(infos []device.Info, name string) (device.Info, bool) {
	if name == "" {
		if len(infos) == 0 {
			return device.Info{}, false
		}
		return infos[0], true
	}
	for _, info := range infos {
		if info.Name == name {
			return info, true
		}
	}
	return device.Info{}, false
}

// exit ends the protocol session and closes the socket. saned sends no
// reply to EXIT.
func (c *conn) exit() error {
	c.call(rpcExit, nil)
	return c.nc.Close()
}

// dummy reads the single word reply of CLOSE and CANCEL.
func (c *conn) dummy() error {
	c.dec.word()
	return c.dec.fail()
}

type session struct {
	conn    *conn
	handle  int32
	info    device.Info
	options []device.Option
	reader  *reader
	closed  bool
	logger  *slog.Logger
}

func (s *session) Info() device.Info {
	return s.info
}

func (s *session) Options() ([]device.Option, error) {
	if s.closed {
		return nil, device.StatusInvalid
	}
	if s.options != nil {
		return s.options, nil
	}

	c := s.conn
	if err := c.call(rpcGetOptionDescriptors, func(e *encoder) { e.word(s.handle) }); err != nil {
		return nil, err
	}

	n := c.dec.length()
	opts := make([]device.Option, 0, n)
	for i := range n {
		if !c.dec.ptr() {
			continue
		}
		o := readOption(c.dec)
		o.Index = i
		opts = append(opts, o)
	}
	if err := c.dec.fail(); err != nil {
		return nil, fmt.Errorf("get option descriptors: %w", err)
	}

	s.options = opts
	return opts, nil
}

func (s *session) option(index int) (device.Option, error) {
	opts, err := s.Options()
	if err != nil {
		return device.Option{}, err
	}
	for _, o := range opts {
		if o.Index == index {
			return o, nil
		}
	}
	return device.Option{}, fmt.Errorf("option %d: %w", index, device.StatusInvalid)
}

func (s *session) SetValue(index int, v device.Value) error {
	opt, err := s.option(index)
	if err != nil {
		return err
	}
	_, err = s.control(opt, actionSet, v)
	return err
}

func (s *session) SetAuto(index int) error {
	opt, err := s.option(index)
	if err != nil {
		return err
	}
	_, err = s.control(opt, actionSetAuto, device.Value{Type: opt.Type})
	return err
}

// control issues CONTROL_OPTION and returns the value the device settled on.
func (s *session) control(opt device.Option, action int32, v device.Value) (device.Value, error) {
	c := s.conn
	err := c.call(rpcControlOption, func(e *encoder) {
		e.word(s.handle)
		e.word(int32(opt.Index))
		e.word(action)
		e.word(int32(opt.Type))
		if action == actionSetAuto {
			e.word(0)
			e.word(0)
			return
		}
		e.word(valueSize(opt))
		writeValue(e, opt, v)
	})
	if err != nil {
		return device.Value{}, err
	}

	status := c.dec.status()
	info := c.dec.word()
	valueType := device.ValueType(c.dec.word())
	c.dec.word() // value size
	got := readValue(c.dec, valueType)
	resource := c.dec.str()
	if err := c.dec.fail(); err != nil {
		return device.Value{}, err
	}
	if resource != "" {
		return device.Value{}, fmt.Errorf("set %s: resource %q: %w", opt.Name, resource, device.StatusAccessDenied)
	}
	if status != nil {
		return device.Value{}, status
	}

	if info&infoReloadOptions != 0 {
		s.options = nil
	}
	return got, nil
}

// Start triggers acquisition, connects the data channel, and fetches the
// page parameters.
func (s *session) Start() (device.Reader, error) {
	if s.closed {
		return nil, device.StatusInvalid
	}
	if s.reader != nil {
		s.reader.Cancel()
	}

	c := s.conn
	if err := c.call(rpcStart, func(e *encoder) { e.word(s.handle) }); err != nil {
		return nil, err
	}

	status := c.dec.status()
	port := c.dec.word()
	c.dec.word() // byte order, only meaningful for 16-bit samples
	resource := c.dec.str()
	if err := c.dec.fail(); err != nil {
		return nil, err
	}
	if resource != "" {
		return nil, fmt.Errorf("start: resource %q: %w", resource, device.StatusAccessDenied)
	}
	if status != nil {
		return nil, status
	}

	host, _, err := net.SplitHostPort(c.nc.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("data address: %w", err)
	}
	data, err := c.dialer.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, fmt.Errorf("dial data channel: %w", err)
	}

	r := &reader{session: s, data: data, dec: newDecoder(data)}
	s.reader = r

	params, err := s.parameters()
	if err != nil {
		r.Cancel()
		return nil, err
	}
	r.params = params
	return r, nil
}

func (s *session) parameters() (device.Parameters, error) {
	c := s.conn
	if err := c.call(rpcGetParameters, func(e *encoder) { e.word(s.handle) }); err != nil {
		return device.Parameters{}, err
	}

	status := c.dec.status()
	params := readParameters(c.dec)
	if err := c.dec.fail(); err != nil {
		return device.Parameters{}, err
	}
	if status != nil {
		return device.Parameters{}, fmt.Errorf("get parameters: %w", status)
	}
	return params, nil
}

func (s *session) cancel() error {
	c := s.conn
	if err := c.call(rpcCancel, func(e *encoder) { e.word(s.handle) }); err != nil {
		return err
	}
	return c.dummy()
}

// Close cancels any running page, closes the handle, and ends the
// connection.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.reader != nil {
		errs = append(errs, s.reader.Cancel())
	}

	c := s.conn
	if err := c.call(rpcClose, func(e *encoder) { e.word(s.handle) }); err == nil {
		errs = append(errs, c.dummy())
	} else {
		errs = append(errs, err)
	}
	errs = append(errs, c.exit())

	s.logger.Debug("session closed")
	return errors.Join(errs...)
}

// reader serves the record stream of the data connection.
type reader struct {
	session   *session
	data      net.Conn
	dec       *decoder
	params    device.Parameters
	remaining int
	err       error
	cancelled bool
}

func (r *reader) Parameters() (device.Parameters, error) {
	return r.params, nil
}

func (r *reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	for r.remaining == 0 {
		if t := r.session.conn.timeout; t > 0 {
			r.data.SetReadDeadline(time.Now().Add(t))
		}
		n := uint32(r.dec.word())
		if err := r.dec.fail(); err != nil {
			r.err = fmt.Errorf("read record: %w", err)
			return 0, r.err
		}
		if n == recordEnd {
			r.err = r.end()
			return 0, r.err
		}
		r.remaining = int(n)
	}

	n := min(len(p), r.remaining)
	r.dec.raw(p[:n])
	if err := r.dec.fail(); err != nil {
		r.err = fmt.Errorf("read record: %w", err)
		return 0, r.err
	}
	r.remaining -= n
	return n, nil
}

// end reads the status byte that follows the end marker.
func (r *reader) end() error {
	var b [1]byte
	r.dec.raw(b[:])
	if err := r.dec.fail(); err != nil {
		return fmt.Errorf("read final status: %w", err)
	}
	status := device.Status(b[0])
	if status == device.StatusEOF || status == device.StatusGood {
		return io.EOF
	}
	if err := device.StatusFromCode(int(status)); err != nil {
		return err
	}
	return io.EOF
}

// Cancel tells the daemon to stop and closes the data connection. The
// reader reports StatusCancelled afterwards.
func (r *reader) Cancel() error {
	if r.cancelled {
		return nil
	}
	r.cancelled = true
	if r.err == nil {
		r.err = device.StatusCancelled
	}
	if r.session.reader == r {
		r.session.reader = nil
	}

	err := r.session.cancel()
	if cerr := r.data.Close(); err == nil {
		err = cerr
	}
	return err
}
