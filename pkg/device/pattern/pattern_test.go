package pattern_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/JaimeStill/folio/pkg/device"
	"github.com/JaimeStill/folio/pkg/device/pattern"
)

func TestDevices(t *testing.T) {
	b := pattern.Default()

	infos, err := b.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != pattern.DefaultDevice {
		t.Errorf("devices = %+v", infos)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Devices(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOpen(t *testing.T) {
	b := pattern.Default()
	ctx := context.Background()

	t.Run("unknown device", func(t *testing.T) {
		if _, err := b.Open(ctx, "missing"); !errors.Is(err, device.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("empty name opens first device", func(t *testing.T) {
		s, err := b.Open(ctx, "")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer s.Close()
		if s.Info().Name != pattern.DefaultDevice {
			t.Errorf("name = %q", s.Info().Name)
		}
	})

	t.Run("busy while open", func(t *testing.T) {
		s, err := b.Open(ctx, pattern.DefaultDevice)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if _, err := b.Open(ctx, pattern.DefaultDevice); !errors.Is(err, device.StatusDeviceBusy) {
			t.Errorf("err = %v, want device busy", err)
		}
		s.Close()
		s.Close()

		if b.IsOpen(pattern.DefaultDevice) {
			t.Error("device still open after Close")
		}
		s2, err := b.Open(ctx, pattern.DefaultDevice)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		s2.Close()
	})

	st := b.Stats(pattern.DefaultDevice)
	if st.Opened != st.Closed {
		t.Errorf("opened %d closed %d", st.Opened, st.Closed)
	}
}

func TestSessionOptions(t *testing.T) {
	b := pattern.Default()
	s, err := b.Open(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	opts, err := s.Options()
	if err != nil {
		t.Fatal(err)
	}
	res, ok := device.FindOption(opts, device.NameResolution)
	if !ok {
		t.Fatal("resolution option missing")
	}

	if err := s.SetValue(res.Index, device.IntValue(300)); err != nil {
		t.Errorf("SetValue(300) failed: %v", err)
	}
	if err := s.SetValue(res.Index, device.IntValue(1200)); !errors.Is(err, device.StatusInvalid) {
		t.Errorf("SetValue(1200) err = %v, want invalid", err)
	}
	if err := s.SetAuto(res.Index); !errors.Is(err, device.StatusInvalid) {
		t.Errorf("SetAuto on manual option err = %v, want invalid", err)
	}

	mode, _ := device.FindOption(opts, "mode")
	if err := s.SetAuto(mode.Index); err != nil {
		t.Errorf("SetAuto(mode) failed: %v", err)
	}
	if err := s.SetValue(99, device.IntValue(1)); !errors.Is(err, device.StatusInvalid) {
		t.Errorf("unknown index err = %v, want invalid", err)
	}
}

func TestReadPage(t *testing.T) {
	b := pattern.New(pattern.Device{
		Info:     device.Info{Name: "p"},
		Page:     pattern.Page{Format: device.FrameRGB, Width: 10, Height: 4, Padding: 2},
		ReadSize: 7,
	})
	s, err := b.Open(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	r, err := s.Start()
	if err != nil {
		t.Fatal(err)
	}
	params, err := r.Parameters()
	if err != nil {
		t.Fatal(err)
	}
	if params.BytesPerLine != 32 || params.PixelsPerLine != 10 || params.Lines != 4 {
		t.Fatalf("params = %+v", params)
	}

	var got []byte
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 7 {
			t.Fatalf("read %d bytes, cap is 7", n)
		}
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}

	if len(got) != params.PageBytes() {
		t.Fatalf("read %d bytes, want %d", len(got), params.PageBytes())
	}
	for i, v := range got {
		if v != pattern.Sample(params, i) {
			t.Fatalf("byte %d = %d, want %d", i, v, pattern.Sample(params, i))
		}
	}
	// Padding bytes at the end of each row are zero.
	if got[30] != 0 || got[31] != 0 {
		t.Errorf("padding = %d %d, want 0 0", got[30], got[31])
	}

	if err := r.Cancel(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Read(buf); !errors.Is(err, device.StatusCancelled) {
		t.Errorf("read after cancel err = %v, want cancelled", err)
	}
	if st := b.Stats("p"); st.Cancelled != 1 || st.Started != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestParametersFollowOptions(t *testing.T) {
	b := pattern.Default()
	s, err := b.Open(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	opts, _ := s.Options()
	res, _ := device.FindOption(opts, device.NameResolution)
	mode, _ := device.FindOption(opts, "mode")
	if err := s.SetValue(res.Index, device.IntValue(100)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetValue(mode.Index, device.StringValue("Gray")); err != nil {
		t.Fatal(err)
	}

	r, err := s.Start()
	if err != nil {
		t.Fatal(err)
	}
	p, _ := r.Parameters()
	if p.Format != device.FrameGray || p.PixelsPerLine != 850 || p.Lines != 1100 || p.BytesPerLine != 850 {
		t.Errorf("params = %+v", p)
	}
}
