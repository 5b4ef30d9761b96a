package scans_test

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JaimeStill/folio/internal/scans"
	"github.com/JaimeStill/folio/pkg/routes"
)

func newServer(t *testing.T, sys scans.System) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return v
}

func TestHandlerDevices(t *testing.T) {
	sys, _ := newSystem(t, testDeviceConfig(nil))
	srv := newServer(t, sys)

	res, err := http.Get(srv.URL + "/devices")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", res.StatusCode)
	}

	devices := decode[[]map[string]string](t, res)
	if len(devices) != 1 || devices[0]["name"] != testDevice {
		t.Errorf("devices: got %v", devices)
	}
}

func TestHandlerScanLifecycle(t *testing.T) {
	sys, _ := newSystem(t, testDeviceConfig(nil))
	srv := newServer(t, sys)

	res, err := http.Post(srv.URL+"/scans", "application/json", strings.NewReader(`{"mode":"page","quality":70}`))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("start status: got %d", res.StatusCode)
	}
	job := decode[scans.Job](t, res)

	wait(t, sys, job.ID)

	res, err = http.Get(srv.URL + "/scans/" + job.ID.String())
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	found := decode[scans.Job](t, res)
	if found.Status != scans.StatusDone {
		t.Errorf("status: got %s", found.Status)
	}

	res, err = http.Get(srv.URL + "/scans/" + job.ID.String() + "/image")
	if err != nil {
		t.Fatalf("image failed: %v", err)
	}
	defer res.Body.Close()
	if ct := res.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("content-type: got %s", ct)
	}
	var buf bytes.Buffer
	buf.ReadFrom(res.Body)
	cfg, err := jpeg.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("image is not a JPEG: %v", err)
	}
	if cfg.Width != 120 || cfg.Height != 160 {
		t.Errorf("image size: got %dx%d", cfg.Width, cfg.Height)
	}

	res, err = http.Get(srv.URL + "/scans")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if jobs := decode[[]scans.Job](t, res); len(jobs) != 1 {
		t.Errorf("list: got %d jobs", len(jobs))
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/scans/"+job.ID.String(), nil)
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Errorf("delete status: got %d", res.StatusCode)
	}
}

func TestHandlerErrors(t *testing.T) {
	g := newGate()
	sys, _ := newSystem(t, testDeviceConfig(g))
	defer close(g.release)
	srv := newServer(t, sys)

	running, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, g)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"invalid id", "GET", "/scans/not-a-uuid", "", http.StatusBadRequest},
		{"unknown id", "GET", "/scans/" + uuid.NewString(), "", http.StatusNotFound},
		{"bad body", "POST", "/scans", "{", http.StatusBadRequest},
		{"bad mode", "POST", "/scans", `{"mode":"duplex"}`, http.StatusBadRequest},
		{"busy", "POST", "/scans", `{}`, http.StatusConflict},
		{"image not ready", "GET", "/scans/" + running.ID.String() + "/image", "", http.StatusConflict},
		{"cancel unknown", "POST", "/scans/" + uuid.NewString() + "/cancel", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			res, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			res.Body.Close()
			if res.StatusCode != tt.want {
				t.Errorf("status: got %d, want %d", res.StatusCode, tt.want)
			}
		})
	}
}

func TestHandlerEventsWebsocket(t *testing.T) {
	g := newGate()
	sys, _ := newSystem(t, testDeviceConfig(g))
	srv := newServer(t, sys)

	job, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, g)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/scans/" + job.ID.String() + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	close(g.release)

	var kinds []string
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var msg struct {
			Kind    string `json:"kind"`
			Percent *int   `json:"percent"`
			Width   int    `json:"width"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			t.Fatalf("read failed: %v", err)
		}
		kinds = append(kinds, msg.Kind)
		if msg.Kind == "done" && msg.Width != 120 {
			t.Errorf("done width: got %d", msg.Width)
		}
	}

	if len(kinds) == 0 || kinds[len(kinds)-1] != "done" {
		t.Errorf("events: got %v, want done last", kinds)
	}
}

func TestHandlerCancel(t *testing.T) {
	g := newGate()
	sys, _ := newSystem(t, testDeviceConfig(g))
	srv := newServer(t, sys)

	job, err := sys.Start(scans.StartCommand{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, g)

	res, err := http.Post(srv.URL+"/scans/"+job.ID.String()+"/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Errorf("cancel status: got %d", res.StatusCode)
	}

	close(g.release)
	if done := wait(t, sys, job.ID); done.Status != scans.StatusCancelled {
		t.Errorf("status: got %s, want cancelled", done.Status)
	}
}
