package scans

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/pkg/cancel"
	"github.com/JaimeStill/folio/pkg/device"
	"github.com/JaimeStill/folio/pkg/page"
	"github.com/JaimeStill/folio/pkg/scan"
)

// subscriberBuffer is the capacity of each subscriber channel. A slow
// subscriber misses progress events but always receives the terminal one.
const subscriberBuffer = 16

type entry struct {
	job    Job
	source *cancel.Source
	page   *page.Encoded
	err    error
	subs   map[chan scan.Event]struct{}
	done   chan struct{}
}

func (e *entry) snapshot() *Job {
	j := e.job
	return &j
}

// terminal rebuilds the terminal event of a finished job.
func (e *entry) terminal() scan.Event {
	switch e.job.Status {
	case StatusDone:
		return scan.Event{Kind: scan.KindDone, Page: e.page}
	case StatusError:
		return scan.Event{Kind: scan.KindError, Err: e.err}
	}
	return scan.Event{Kind: scan.KindCancelled}
}

type manager struct {
	worker    *scan.Worker
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time

	mu       sync.Mutex
	jobs     map[uuid.UUID]*entry
	busy     map[string]uuid.UUID
	closed   bool
	inflight sync.WaitGroup
}

// New creates the scan job system. Finished jobs are forgotten once they
// are older than retention; zero keeps them until removed.
func New(worker *scan.Worker, retention time.Duration, logger *slog.Logger) System {
	return &manager{
		worker:    worker,
		logger:    logger.With("system", "scans"),
		retention: retention,
		now:       time.Now,
		jobs:      make(map[uuid.UUID]*entry),
		busy:      make(map[string]uuid.UUID),
	}
}

func (m *manager) Handler() *Handler {
	return NewHandler(m, m.logger)
}

func (m *manager) Devices(ctx context.Context) ([]device.Info, error) {
	return m.worker.Backend().Devices(ctx)
}

func (m *manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune()

	jobs := make([]Job, 0, len(m.jobs))
	for _, e := range m.jobs {
		jobs = append(jobs, e.job)
	}
	slices.SortFunc(jobs, func(a, b Job) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return jobs
}

func (m *manager) Start(cmd StartCommand) (*Job, error) {
	req, err := cmd.request()
	if err != nil {
		return nil, err
	}
	req = m.worker.Resolve(req)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrShuttingDown
	}

	m.prune()

	if _, ok := m.busy[req.Device]; ok {
		return nil, ErrDeviceBusy
	}

	source, token := cancel.New()
	e := &entry{
		job: Job{
			ID:         uuid.New(),
			Device:     req.Device,
			Mode:       req.Mode.String(),
			Status:     StatusRunning,
			Stage:      scan.KindPrepare.String(),
			Resolution: req.Resolution,
			Quality:    *req.Quality,
			StartedAt:  m.now(),
		},
		source: source,
		subs:   make(map[chan scan.Event]struct{}),
		done:   make(chan struct{}),
	}

	m.jobs[e.job.ID] = e
	m.busy[req.Device] = e.job.ID

	events := m.worker.Start(req, token)

	m.inflight.Add(1)
	go m.pump(e, events)

	m.logger.Info("scan started", "id", e.job.ID, "device", req.Device, "mode", req.Mode)
	return e.snapshot(), nil
}

func (m *manager) pump(e *entry, events <-chan scan.Event) {
	defer m.inflight.Done()

	finished := false
	for ev := range events {
		m.apply(e, ev)
		if ev.Kind.Terminal() {
			finished = true
		}
	}

	// A closed stream without a terminal event means the worker abandoned
	// its consumer; the job is reported as cancelled.
	if !finished {
		m.apply(e, scan.Event{Kind: scan.KindCancelled})
	}
}

func (m *manager) apply(e *entry, ev scan.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.job.Finished() {
		return
	}

	e.job.apply(ev, m.now())

	switch ev.Kind {
	case scan.KindDone:
		e.page = ev.Page
	case scan.KindError:
		e.err = ev.Err
	}

	for ch := range e.subs {
		deliver(ch, ev)
	}

	if !ev.Kind.Terminal() {
		return
	}

	for ch := range e.subs {
		close(ch)
	}
	e.subs = nil

	if m.busy[e.job.Device] == e.job.ID {
		delete(m.busy, e.job.Device)
	}
	e.source.Close()
	close(e.done)

	logger := m.logger.With("id", e.job.ID, "device", e.job.Device)
	switch ev.Kind {
	case scan.KindDone:
		logger.Info("scan finished", "width", e.job.Width, "height", e.job.Height, "size", e.job.Size)
	case scan.KindError:
		logger.Error("scan failed", "error", ev.Err)
	case scan.KindCancelled:
		logger.Info("scan cancelled")
	}
}

// deliver never blocks the pump. Progress is dropped for a full channel; a
// terminal event evicts the oldest queued event to make room.
func deliver(ch chan scan.Event, ev scan.Event) {
	select {
	case ch <- ev:
		return
	default:
	}

	if !ev.Kind.Terminal() {
		return
	}

	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

func (m *manager) Find(id uuid.UUID) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

func (m *manager) Cancel(id uuid.UUID) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if !e.job.Finished() {
		e.source.Cancel()
		m.logger.Info("scan cancel requested", "id", id)
	}
	return e.snapshot(), nil
}

func (m *manager) Wait(ctx context.Context, id uuid.UUID) (*Job, error) {
	m.mu.Lock()
	e, err := m.lookup(id)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return e.snapshot(), nil
}

func (m *manager) Subscribe(ctx context.Context, id uuid.UUID) (<-chan scan.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	ch := make(chan scan.Event, subscriberBuffer)

	if e.job.Finished() {
		ch <- e.terminal()
		close(ch)
		return ch, nil
	}

	ch <- scan.Event{Kind: scan.KindProgress, Percent: e.job.Progress}
	e.subs[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-e.done:
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	}()

	return ch, nil
}

func (m *manager) Result(id uuid.UUID) (*page.Encoded, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	switch e.job.Status {
	case StatusRunning:
		return nil, ErrNotFinished
	case StatusDone:
		return e.page, nil
	}
	return nil, ErrNoPage
}

func (m *manager) Remove(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	if !e.job.Finished() {
		e.source.Cancel()
	}
	delete(m.jobs, id)
	return nil
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, e := range m.jobs {
		if !e.job.Finished() {
			e.source.Cancel()
		}
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("scans stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scan shutdown: %w", ctx.Err())
	}
}

func (m *manager) lookup(id uuid.UUID) (*entry, error) {
	e, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// prune drops finished jobs past retention. Callers hold mu.
func (m *manager) prune() {
	if m.retention <= 0 {
		return
	}
	cutoff := m.now().Add(-m.retention)
	for id, e := range m.jobs {
		if e.job.FinishedAt != nil && e.job.FinishedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}
