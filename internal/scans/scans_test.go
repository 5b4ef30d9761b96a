package scans_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/internal/scans"
	"github.com/JaimeStill/folio/pkg/device"
	"github.com/JaimeStill/folio/pkg/device/pattern"
	"github.com/JaimeStill/folio/pkg/scan"
)

const testDevice = "pattern:test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quality(q int) *int {
	return &q
}

// gate holds a scan inside its first read until released.
type gate struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) onRead(int) {
	g.once.Do(func() { close(g.started) })
	<-g.release
}

func testDeviceConfig(g *gate) pattern.Device {
	d := pattern.Device{
		Info:     device.Info{Name: testDevice, Vendor: "Folio", Model: "Test"},
		Page:     pattern.Page{Format: device.FrameGray, Width: 120, Height: 160},
		ReadSize: 4096,
	}
	if g != nil {
		d.OnRead = g.onRead
	}
	return d
}

func newSystem(t *testing.T, devices ...pattern.Device) (scans.System, *pattern.Backend) {
	t.Helper()
	backend := pattern.New(devices...)
	cfg := &scan.Config{Device: testDevice}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	sys := scans.New(scan.NewWorker(backend, cfg, discardLogger()), time.Hour, discardLogger())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sys.Shutdown(ctx)
	})
	return sys, backend
}

func wait(t *testing.T, sys scans.System, id uuid.UUID) *scans.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	job, err := sys.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	return job
}

func waitStarted(t *testing.T, g *gate) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(10 * time.Second):
		t.Fatal("scan never reached its first read")
	}
}

func TestStartCompletes(t *testing.T) {
	sys, backend := newSystem(t, testDeviceConfig(nil))

	job, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if job.Status != scans.StatusRunning {
		t.Errorf("status: got %s, want running", job.Status)
	}
	if job.Device != testDevice {
		t.Errorf("device: got %q", job.Device)
	}
	if job.Mode != "page" {
		t.Errorf("mode: got %q", job.Mode)
	}
	if job.Resolution != 300 {
		t.Errorf("resolution: got %d, want configured 300", job.Resolution)
	}
	if job.Quality != 85 {
		t.Errorf("quality: got %d, want configured 85", job.Quality)
	}

	done := wait(t, sys, job.ID)
	if done.Status != scans.StatusDone {
		t.Fatalf("status: got %s (%s), want done", done.Status, done.Error)
	}
	if done.Progress != 100 {
		t.Errorf("progress: got %d", done.Progress)
	}
	if done.Width != 120 || done.Height != 160 {
		t.Errorf("geometry: got %dx%d", done.Width, done.Height)
	}
	if done.FinishedAt == nil {
		t.Error("finished_at not set")
	}

	pg, err := sys.Result(job.ID)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if pg.Size() != done.Size || pg.Size() == 0 {
		t.Errorf("page size: got %d, job reports %d", pg.Size(), done.Size)
	}
	if backend.IsOpen(testDevice) {
		t.Error("device left open")
	}
}

func TestStartQualityZero(t *testing.T) {
	sys, _ := newSystem(t, testDeviceConfig(nil))

	job, err := sys.Start(scans.StartCommand{Quality: quality(0)})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if job.Quality != 0 {
		t.Errorf("quality: got %d, want 0", job.Quality)
	}

	done := wait(t, sys, job.ID)
	if done.Status != scans.StatusDone {
		t.Fatalf("status: got %s (%s), want done", done.Status, done.Error)
	}
}

func TestStartInvalid(t *testing.T) {
	sys, _ := newSystem(t, testDeviceConfig(nil))

	tests := []struct {
		name string
		cmd  scans.StartCommand
	}{
		{"unknown mode", scans.StartCommand{Mode: "duplex"}},
		{"negative resolution", scans.StartCommand{Resolution: -1}},
		{"quality above 100", scans.StartCommand{Quality: quality(101)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sys.Start(tt.cmd)
			if !errors.Is(err, scans.ErrInvalidRequest) {
				t.Errorf("got %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestDeviceBusy(t *testing.T) {
	g := newGate()
	sys, _ := newSystem(t, testDeviceConfig(g))

	first, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, g)

	if _, err := sys.Start(scans.StartCommand{Device: testDevice}); !errors.Is(err, scans.ErrDeviceBusy) {
		t.Errorf("second start: got %v, want ErrDeviceBusy", err)
	}

	close(g.release)
	wait(t, sys, first.ID)

	second, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("start after completion: %v", err)
	}
	wait(t, sys, second.ID)
}

func TestCancel(t *testing.T) {
	g := newGate()
	sys, backend := newSystem(t, testDeviceConfig(g))

	job, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, g)

	if _, err := sys.Result(job.ID); !errors.Is(err, scans.ErrNotFinished) {
		t.Errorf("Result while running: got %v, want ErrNotFinished", err)
	}

	if _, err := sys.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	close(g.release)

	done := wait(t, sys, job.ID)
	if done.Status != scans.StatusCancelled {
		t.Errorf("status: got %s, want cancelled", done.Status)
	}
	if _, err := sys.Result(job.ID); !errors.Is(err, scans.ErrNoPage) {
		t.Errorf("Result after cancel: got %v, want ErrNoPage", err)
	}
	if backend.IsOpen(testDevice) {
		t.Error("device left open")
	}

	again, err := sys.Cancel(job.ID)
	if err != nil {
		t.Fatalf("second Cancel failed: %v", err)
	}
	if again.Status != scans.StatusCancelled {
		t.Errorf("second cancel changed status to %s", again.Status)
	}
}

func TestScanError(t *testing.T) {
	d := testDeviceConfig(nil)
	d.Faults.Start = device.StatusCoverOpen
	sys, _ := newSystem(t, d)

	job, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := wait(t, sys, job.ID)
	if done.Status != scans.StatusError {
		t.Fatalf("status: got %s, want error", done.Status)
	}
	if !strings.Contains(done.Error, device.StatusCoverOpen.Error()) {
		t.Errorf("error: got %q", done.Error)
	}

	events, err := sys.Subscribe(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	ev := <-events
	if ev.Kind != scan.KindError || !errors.Is(ev.Err, device.StatusCoverOpen) {
		t.Errorf("replayed terminal: got %v %v", ev.Kind, ev.Err)
	}
	if _, ok := <-events; ok {
		t.Error("channel not closed after terminal event")
	}
}

func TestSubscribe(t *testing.T) {
	g := newGate()
	sys, _ := newSystem(t, testDeviceConfig(g))

	job, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, g)

	events, err := sys.Subscribe(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	close(g.release)

	var got []scan.Event
	for ev := range events {
		got = append(got, ev)
	}

	if len(got) < 2 {
		t.Fatalf("got %d events, want at least 2", len(got))
	}
	if got[0].Kind != scan.KindProgress {
		t.Errorf("first event: got %s, want progress snapshot", got[0].Kind)
	}
	last := got[len(got)-1]
	if last.Kind != scan.KindDone || last.Page == nil {
		t.Errorf("last event: got %s", last.Kind)
	}
	for _, ev := range got[:len(got)-1] {
		if ev.Kind.Terminal() {
			t.Errorf("terminal event %s before the end", ev.Kind)
		}
	}
}

func TestSubscribeContextEnds(t *testing.T) {
	g := newGate()
	sys, _ := newSystem(t, testDeviceConfig(g))
	defer close(g.release)

	job, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, g)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := sys.Subscribe(ctx, job.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	cancel()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				current, _ := sys.Find(job.ID)
				if current.Status != scans.StatusRunning {
					t.Errorf("unsubscribing changed status to %s", current.Status)
				}
				return
			}
		case <-timeout:
			t.Fatal("subscription not closed after context cancel")
		}
	}
}

func TestRemove(t *testing.T) {
	sys, _ := newSystem(t, testDeviceConfig(nil))

	job, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	wait(t, sys, job.ID)

	if err := sys.Remove(job.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := sys.Find(job.ID); !errors.Is(err, scans.ErrNotFound) {
		t.Errorf("Find after remove: got %v, want ErrNotFound", err)
	}
	if err := sys.Remove(job.ID); !errors.Is(err, scans.ErrNotFound) {
		t.Errorf("second Remove: got %v, want ErrNotFound", err)
	}
	if len(sys.List()) != 0 {
		t.Error("List not empty after remove")
	}
}

func TestShutdown(t *testing.T) {
	g := newGate()
	sys, backend := newSystem(t, testDeviceConfig(g))

	job, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- sys.Shutdown(ctx) }()
	close(g.release)

	if err := <-errc; err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	current, _ := sys.Find(job.ID)
	if current.Status != scans.StatusCancelled {
		t.Errorf("status: got %s, want cancelled", current.Status)
	}
	if backend.IsOpen(testDevice) {
		t.Error("device left open")
	}
	if _, err := sys.Start(scans.StartCommand{}); !errors.Is(err, scans.ErrShuttingDown) {
		t.Errorf("Start after shutdown: got %v, want ErrShuttingDown", err)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", scans.ErrNotFound, http.StatusNotFound},
		{"busy", scans.ErrDeviceBusy, http.StatusConflict},
		{"not finished", scans.ErrNotFinished, http.StatusConflict},
		{"no page", scans.ErrNoPage, http.StatusConflict},
		{"invalid", scans.ErrInvalidRequest, http.StatusBadRequest},
		{"shutting down", scans.ErrShuttingDown, http.StatusServiceUnavailable},
		{"device not found", device.ErrNotFound, http.StatusNotFound},
		{"device io", device.StatusIOError, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scans.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
