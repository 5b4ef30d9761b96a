package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/internal/documents"
	"github.com/JaimeStill/folio/pkg/pagination"
	"github.com/JaimeStill/folio/pkg/routes"
)

type mockSystem struct {
	listFn     func(ctx context.Context, page pagination.PageRequest, filters documents.Filters) (*pagination.PageResult[documents.Document], error)
	findFn     func(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	createFn   func(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error)
	deleteFn   func(ctx context.Context, id uuid.UUID) error
	downloadFn func(ctx context.Context, id uuid.UUID) (*documents.Document, io.ReadCloser, error)
}

func (m *mockSystem) Handler(maxUploadSize int64) *documents.Handler {
	return newTestHandler(m, maxUploadSize)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters documents.Filters) (*pagination.PageResult[documents.Document], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Create(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) Download(ctx context.Context, id uuid.UUID) (*documents.Document, io.ReadCloser, error) {
	return m.downloadFn(ctx, id)
}

func newTestHandler(sys documents.System, maxUploadSize int64) *documents.Handler {
	return documents.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		maxUploadSize,
	)
}

func setupMux(sys *mockSystem) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler(1<<20).Routes())
	return mux
}

func sampleDoc() documents.Document {
	return documents.Document{
		ID:          uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Title:       "Lease",
		Filename:    "lease.pdf",
		ContentType: documents.ContentType,
		SizeBytes:   9,
		PageCount:   3,
		DPI:         ptr(300),
		Source:      documents.SourceScan,
		StorageKey:  "documents/550e8400-e29b-41d4-a716-446655440000/lease.pdf",
		CreatedAt:   time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestHandlerList(t *testing.T) {
	doc := sampleDoc()
	var captured documents.Filters
	var capturedPage pagination.PageRequest

	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, f documents.Filters) (*pagination.PageResult[documents.Document], error) {
			captured, capturedPage = f, page
			result := pagination.NewPageResult([]documents.Document{doc}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}
	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/documents?source=scan&title=lease&page_size=5", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result pagination.PageResult[documents.Document]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].ID != doc.ID {
		t.Errorf("data = %+v", result.Data)
	}
	if captured.Source == nil || *captured.Source != "scan" {
		t.Errorf("source filter = %v, want scan", captured.Source)
	}
	if captured.Title == nil || *captured.Title != "lease" {
		t.Errorf("title filter = %v, want lease", captured.Title)
	}
	if capturedPage.PageSize != 5 {
		t.Errorf("page size = %d, want 5", capturedPage.PageSize)
	}
}

func TestHandlerFind(t *testing.T) {
	doc := sampleDoc()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*documents.Document, error) {
			if id != doc.ID {
				return nil, documents.ErrNotFound
			}
			return &doc, nil
		},
	}
	mux := setupMux(sys)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/documents/" + doc.ID.String(), http.StatusOK},
		{"invalid uuid", "/documents/not-a-uuid", http.StatusBadRequest},
		{"not found", "/documents/" + uuid.NewString(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerDownload(t *testing.T) {
	doc := sampleDoc()
	sys := &mockSystem{
		downloadFn: func(_ context.Context, id uuid.UUID) (*documents.Document, io.ReadCloser, error) {
			if id != doc.ID {
				return nil, nil, documents.ErrNotFound
			}
			return &doc, io.NopCloser(strings.NewReader("%PDF-1.4")), nil
		},
	}
	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/"+doc.ID.String()+"/download", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content-type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="lease.pdf"`) {
		t.Errorf("content-disposition = %q", cd)
	}
	if rec.Body.String() != "%PDF-1.4" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/documents/"+uuid.NewString()+"/download", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d, want 404", rec.Code)
	}
}

func multipartBody(t *testing.T, title, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if title != "" {
		writer.WriteField("title", title)
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(data)
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestHandlerUpload(t *testing.T) {
	t.Run("creates document from multipart form", func(t *testing.T) {
		var captured documents.CreateCommand
		sys := &mockSystem{
			createFn: func(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
				captured = cmd
				doc := sampleDoc()
				doc.Source = cmd.Source
				return &doc, nil
			},
		}
		mux := setupMux(sys)

		body, ct := multipartBody(t, "Lease", "lease.pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		if captured.Title != "Lease" || captured.Filename != "lease.pdf" {
			t.Errorf("command = %+v", captured)
		}
		if captured.Source != documents.SourceUpload {
			t.Errorf("source = %q, want upload", captured.Source)
		}
		if string(captured.Data) != "%PDF-1.4" {
			t.Errorf("data = %q", captured.Data)
		}
	})

	t.Run("missing file returns 400", func(t *testing.T) {
		mux := setupMux(&mockSystem{})

		body, ct := multipartBody(t, "Lease", "", nil)
		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid pdf returns 422", func(t *testing.T) {
		sys := &mockSystem{
			createFn: func(_ context.Context, _ documents.CreateCommand) (*documents.Document, error) {
				return nil, documents.ErrNotPDF
			},
		}
		mux := setupMux(sys)

		body, ct := multipartBody(t, "", "notes.txt", []byte("hello"))
		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("oversized body returns 413", func(t *testing.T) {
		mux := http.NewServeMux()
		routes.Register(mux, newTestHandler(&mockSystem{}, 64).Routes())

		body, ct := multipartBody(t, "", "big.pdf", bytes.Repeat([]byte("x"), 4096))
		req := httptest.NewRequest("POST", "/documents", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})
}

func TestHandlerSearch(t *testing.T) {
	var captured documents.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, f documents.Filters) (*pagination.PageResult[documents.Document], error) {
			captured = f
			result := pagination.NewPageResult([]documents.Document{}, 0, 1, 20)
			return &result, nil
		},
	}
	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/documents/search", strings.NewReader(`{"page":1,"source":"upload"}`))
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.Source == nil || *captured.Source != "upload" {
		t.Errorf("source filter = %v, want upload", captured.Source)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/documents/search", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rec.Code)
	}
}

func TestHandlerDelete(t *testing.T) {
	doc := sampleDoc()
	sys := &mockSystem{
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			if id != doc.ID {
				return documents.ErrNotFound
			}
			return nil
		},
	}
	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/documents/"+doc.ID.String(), nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/documents/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}
