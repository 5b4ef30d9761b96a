package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/folio/internal/api"
	"github.com/JaimeStill/folio/internal/config"
	"github.com/JaimeStill/folio/internal/infrastructure"
	"github.com/JaimeStill/folio/pkg/database"
	"github.com/JaimeStill/folio/pkg/middleware"
	"github.com/JaimeStill/folio/pkg/openapi"
	"github.com/JaimeStill/folio/pkg/pagination"
	"github.com/JaimeStill/folio/pkg/scan"
	"github.com/JaimeStill/folio/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=foliostore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/foliostore;"

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	scanCfg := scan.Config{}
	if err := scanCfg.Finalize(nil); err != nil {
		t.Fatalf("scan Finalize failed: %v", err)
	}

	return &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "15m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "folio",
			User:            "folio",
			Password:        "folio",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "documents",
			ConnectionString: azuriteConnString,
		},
		API: config.APIConfig{
			BasePath: "/api",
			CORS: middleware.CORSConfig{
				Enabled: false,
			},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
			OpenAPI: openapi.Config{
				Title: "Folio API",
			},
		},
		Scanner: config.ScannerConfig{
			Backend:      config.BackendPattern,
			JobRetention: "30m",
			Scan:         scanCfg,
		},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig(t)

	m, err := api.NewModule(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestModuleRoutes(t *testing.T) {
	cfg := validConfig(t)

	m, err := api.NewModule(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	tests := []struct {
		name string
		path string
		want int
	}{
		{"devices", "/api/devices", http.StatusOK},
		{"scans", "/api/scans", http.StatusOK},
		{"drafts", "/api/drafts", http.StatusOK},
		{"unknown scan", "/api/scans/00000000-0000-0000-0000-000000000000", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestOpenAPIDocument(t *testing.T) {
	cfg := validConfig(t)

	m, err := api.NewModule(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/api/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var spec openapi.Spec
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if spec.Info.Title != "Folio API" || spec.Info.Version != "0.1.0" {
		t.Errorf("info: got %+v", spec.Info)
	}

	tests := []struct {
		path string
		has  func(*openapi.PathItem) bool
	}{
		{"/api/documents", func(p *openapi.PathItem) bool { return p.Get != nil && p.Post != nil }},
		{"/api/devices", func(p *openapi.PathItem) bool { return p.Get != nil }},
		{"/api/scans/{id}/events", func(p *openapi.PathItem) bool { return p.Get != nil }},
		{"/api/drafts/{id}/finalize", func(p *openapi.PathItem) bool { return p.Post != nil }},
		{"/api/drafts/{id}/pages/{index}", func(p *openapi.PathItem) bool { return p.Get != nil && p.Delete != nil }},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			item, ok := spec.Paths[tt.path]
			if !ok || !tt.has(item) {
				t.Errorf("path %s missing or incomplete", tt.path)
			}
		})
	}

	for _, name := range []string{"Document", "Job", "ScanEvent", "Draft"} {
		if _, ok := spec.Components.Schemas[name]; !ok {
			t.Errorf("missing schema %s", name)
		}
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig(t)
	runtime := api.NewRuntime(cfg, setupInfra(t, cfg))

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Scan.PageDPI != 300 {
		t.Errorf("scan page dpi: got %d, want 300", runtime.Scan.PageDPI)
	}
	if runtime.JobRetention.Minutes() != 30 {
		t.Errorf("job retention: got %s, want 30m", runtime.JobRetention)
	}
	if runtime.Creator != "folio 0.1.0" {
		t.Errorf("creator: got %q", runtime.Creator)
	}
	if runtime.Scanner == nil {
		t.Error("runtime scanner is nil")
	}
	if runtime.Logger == nil {
		t.Error("runtime logger is nil")
	}
	if runtime.Lifecycle == nil {
		t.Error("runtime lifecycle is nil")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig(t)
	runtime := api.NewRuntime(cfg, setupInfra(t, cfg))

	domain := api.NewDomain(runtime)
	if domain.Documents == nil || domain.Scans == nil || domain.Drafts == nil {
		t.Fatalf("NewDomain() left a system nil: %+v", domain)
	}
}
