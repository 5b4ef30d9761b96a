package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/folio/internal/config"
	"github.com/JaimeStill/folio/internal/infrastructure"
	"github.com/JaimeStill/folio/pkg/database"
	"github.com/JaimeStill/folio/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=foliostore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/foliostore;"

func newInfra(t *testing.T) *infrastructure.Infrastructure {
	t.Helper()
	db := database.Config{Host: "127.0.0.1", Port: 1, Name: "folio", User: "folio", ConnTimeout: "1s"}
	if err := db.Finalize(nil); err != nil {
		t.Fatalf("database finalize: %v", err)
	}

	infra, err := infrastructure.New(&config.Config{
		Database: db,
		Storage:  storage.Config{ContainerName: "documents", ConnectionString: azuriteConnString},
		Scanner:  config.ScannerConfig{Backend: config.BackendPattern},
	})
	if err != nil {
		t.Fatalf("infrastructure.New: %v", err)
	}
	t.Cleanup(func() { infra.Database.Connection().Close() })
	return infra
}

func probe(t *testing.T, h http.Handler, path string) (int, status) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

	var body status
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, body
}

func TestProbes(t *testing.T) {
	infra := newInfra(t)
	router := buildRouter(infra)

	if code, body := probe(t, router, "/healthz"); code != http.StatusOK || body.Status != "ok" {
		t.Errorf("healthz: got %d %+v", code, body)
	}

	if code, body := probe(t, router, "/readyz"); code != http.StatusServiceUnavailable || body.Status != "not ready" {
		t.Errorf("readyz before startup: got %d %+v", code, body)
	}

	infra.Lifecycle.WaitForStartup()

	code, body := probe(t, router, "/readyz")
	if code != http.StatusServiceUnavailable || body.Status != "degraded" || body.Error == "" {
		t.Errorf("readyz with unreachable database: got %d %+v", code, body)
	}
}
