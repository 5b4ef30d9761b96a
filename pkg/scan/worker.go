// Package scan runs the acquisition state machine for one page: open the
// device, negotiate options, read the page, release the device, and encode
// the result. Each run executes on its own OS thread and reports its
// progress over a small buffered channel.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/JaimeStill/folio/pkg/cancel"
	"github.com/JaimeStill/folio/pkg/device"
	"github.com/JaimeStill/folio/pkg/jpegenc"
	"github.com/JaimeStill/folio/pkg/negotiate"
	"github.com/JaimeStill/folio/pkg/page"
	"github.com/JaimeStill/folio/pkg/raster"
)

// EventBuffer is the capacity of the event channel returned by Start.
const EventBuffer = 4

// Mode selects the resolution and quality defaults of a scan.
type Mode int

const (
	ModePage Mode = iota
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "page"
}

// ParseMode converts "page" or "preview".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "page":
		return ModePage, nil
	case "preview":
		return ModePreview, nil
	}
	return 0, fmt.Errorf("unknown scan mode %q", s)
}

// Request describes one scan. A zero Resolution or nil Quality uses the
// configured value for Mode; an empty Device uses the configured device.
// Overrides are layered over the configured option overrides.
type Request struct {
	Device     string
	Mode       Mode
	Resolution int
	Quality    *int
	Overrides  map[string]string
}

// Worker starts scans against a backend.
type Worker struct {
	backend device.Backend
	cfg     Config
	logger  *slog.Logger
}

// NewWorker creates a worker. cfg must be finalized.
func NewWorker(backend device.Backend, cfg *Config, logger *slog.Logger) *Worker {
	return &Worker{
		backend: backend,
		cfg:     *cfg,
		logger:  logger.With("system", "scan"),
	}
}

// Backend returns the backend the worker scans with.
func (w *Worker) Backend() device.Backend {
	return w.backend
}

// Config returns the worker's scan configuration.
func (w *Worker) Config() Config {
	return w.cfg
}

// Start runs req on a dedicated OS thread and returns its events. The
// channel carries exactly one terminal event, then closes. If the consumer
// stops reading and cancels the token, pending events may be dropped.
func (w *Worker) Start(req Request, token cancel.Token) <-chan Event {
	events := make(chan Event, EventBuffer)

	r := &run{
		worker: w,
		req:    w.Resolve(req),
		token:  token,
		events: events,
	}
	r.logger = w.logger.With("device", r.req.Device, "mode", r.req.Mode)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(events)

		r.execute()
	}()

	return events
}

// Scan runs req to completion, reporting progress percentages to progress
// if it is non-nil. Cancelling ctx cancels the scan at its next checkpoint.
func (w *Worker) Scan(ctx context.Context, req Request, progress func(int)) (page.Encoded, error) {
	for ev := range w.Start(req, cancel.FromContext(ctx)) {
		switch ev.Kind {
		case KindProgress:
			if progress != nil {
				progress(ev.Percent)
			}
		case KindDone:
			return *ev.Page, nil
		case KindError:
			return page.Encoded{}, ev.Err
		case KindCancelled:
			return page.Encoded{}, ErrCancelled
		}
	}
	return page.Encoded{}, ErrCancelled
}

// Resolve fills the empty fields of req from the configuration and layers
// its overrides over the configured ones.
func (w *Worker) Resolve(req Request) Request {
	if req.Device == "" {
		req.Device = w.cfg.Device
	}
	if req.Resolution == 0 {
		req.Resolution = w.cfg.Resolution(req.Mode)
	}
	if req.Quality == nil {
		q := w.cfg.Quality(req.Mode)
		req.Quality = &q
	}
	req.Overrides = negotiate.MergeOverrides(w.cfg.Overrides(req.Device), req.Overrides)
	return req
}

// errAbandoned marks a run whose consumer went away mid-send.
var errAbandoned = errors.New("event consumer gone")

type run struct {
	worker *Worker
	req    Request
	token  cancel.Token
	events chan<- Event
	logger *slog.Logger

	session device.Session
	reader  device.Reader
}

// emit delivers ev. A send that would block gives way to cancellation so an
// abandoned consumer never stalls the worker.
func (r *run) emit(ev Event) error {
	select {
	case r.events <- ev:
		return nil
	default:
	}

	select {
	case r.events <- ev:
		return nil
	case <-r.token.Done():
		return errAbandoned
	}
}

func (r *run) cancelled() bool {
	return r.token.Check() == cancel.Cancelled
}

// release stops the read channel and closes the session. It runs on every
// exit path and is safe to call more than once.
func (r *run) release() {
	if r.reader != nil {
		if err := r.reader.Cancel(); err != nil {
			r.logger.Warn("cancel read failed", "error", err)
		}
		r.reader = nil
	}
	if r.session != nil {
		if err := r.session.Close(); err != nil {
			r.logger.Warn("close session failed", "error", err)
		}
		r.session = nil
	}
}

func (r *run) fail(err error) {
	r.release()
	r.logger.Error("scan failed", "error", err)
	r.emit(Event{Kind: KindError, Err: err})
}

func (r *run) abort() {
	r.release()
	r.logger.Info("scan cancelled")
	r.emit(Event{Kind: KindCancelled})
}

func (r *run) execute() {
	start := time.Now()

	if err := r.emit(Event{Kind: KindPrepare}); err != nil {
		r.abort()
		return
	}
	if r.cancelled() {
		r.abort()
		return
	}

	raw, err := r.acquire()
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, errAbandoned):
		r.abort()
		return
	case err != nil:
		r.fail(err)
		return
	}

	if r.cancelled() {
		r.abort()
		return
	}
	if err := r.emit(Event{Kind: KindEncoding}); err != nil {
		r.abort()
		return
	}

	enc, err := jpegenc.Encoder{
		Quality:     *r.req.Quality,
		BlockSize:   r.worker.cfg.BlockSizeBytes(),
		Progressive: r.worker.cfg.Progressive,
	}.Encode(raw)
	if err != nil {
		r.fail(err)
		return
	}

	r.logger.Info(
		"scan complete",
		"width", enc.Width,
		"height", enc.Height,
		"bytes", enc.Size(),
		"duration", time.Since(start),
	)
	r.emit(Event{Kind: KindDone, Page: &enc})
}

// acquire covers the Negotiating, Reading and Stopping states and returns the
// assembled raw page with the device already released.
func (r *run) acquire() (page.Raw, error) {
	session, err := r.worker.backend.Open(context.Background(), r.req.Device)
	if err != nil {
		return page.Raw{}, fmt.Errorf("open device %q: %w", r.req.Device, err)
	}
	r.session = session
	r.logger.Debug("device opened", "name", session.Info().Name, "model", session.Info().Model)

	opts, err := session.Options()
	if err != nil {
		return page.Raw{}, fmt.Errorf("get options: %w", err)
	}

	report := negotiate.Negotiate(session, opts, negotiate.Settings{
		Resolution: r.req.Resolution,
		Overrides:  r.req.Overrides,
	}, r.logger)
	r.logger.Debug("options negotiated", "options", len(report.Results), "failed", len(report.Failed()))

	if r.cancelled() {
		return page.Raw{}, ErrCancelled
	}

	reader, err := session.Start()
	if err != nil {
		return page.Raw{}, fmt.Errorf("start scan: %w", err)
	}
	r.reader = reader

	params, err := reader.Parameters()
	if err != nil {
		return page.Raw{}, fmt.Errorf("get parameters: %w", err)
	}
	if err := params.Validate(); err != nil {
		return page.Raw{}, err
	}
	r.logger.Debug(
		"scan parameters",
		"format", params.Format,
		"bytes_per_line", params.BytesPerLine,
		"pixels_per_line", params.PixelsPerLine,
		"lines", params.Lines,
		"depth", params.Depth,
	)

	buf, err := r.read(reader, params)
	if err != nil {
		return page.Raw{}, err
	}

	if err := r.emit(Event{Kind: KindStopping}); err != nil {
		return page.Raw{}, err
	}
	r.release()

	return page.FromParameters(params, buf)
}

func (r *run) read(reader device.Reader, params device.Parameters) ([]byte, error) {
	asm, err := raster.New(params.BytesPerLine, params.Lines)
	if err != nil {
		return nil, err
	}

	if err := r.emit(Event{Kind: KindProgress, Percent: 0}); err != nil {
		return nil, err
	}

	step := r.worker.cfg.ProgressStep
	chunk := make([]byte, r.worker.cfg.ChunkSizeBytes())
	last := 0

	for {
		if r.cancelled() {
			return nil, ErrCancelled
		}

		n, err := reader.Read(chunk)
		if n > 0 {
			if _, werr := asm.Write(chunk[:n]); werr != nil {
				return nil, werr
			}
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		if p := asm.Progress(); p < 100 && p-last >= step {
			last = p
			if err := r.emit(Event{Kind: KindProgress, Percent: p}); err != nil {
				return nil, err
			}
		}
	}

	page, err := asm.Page()
	if err != nil {
		return nil, err
	}

	if err := r.emit(Event{Kind: KindProgress, Percent: 100}); err != nil {
		return nil, err
	}
	return page, nil
}
