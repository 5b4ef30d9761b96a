package drafts_test

import (
	"context"
	"encoding/json"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/internal/documents"
	"github.com/JaimeStill/folio/internal/drafts"
	"github.com/JaimeStill/folio/internal/scans"
	"github.com/JaimeStill/folio/pkg/routes"
)

func serve(f *fixture, method, path, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	routes.Register(mux, f.drafts.Handler().Routes())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandlerWorkflow(t *testing.T) {
	f := newFixture(t)
	f.docs.createFn = func(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
		return &documents.Document{ID: uuid.New(), Title: cmd.Title, Filename: cmd.Filename}, nil
	}

	rec := serve(f, "POST", "/drafts", `{"title":"Receipt","resolution":150}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var d drafts.Draft
	json.NewDecoder(rec.Body).Decode(&d)
	base := "/drafts/" + d.ID.String()

	rec = serve(f, "POST", base+"/scan", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("scan status = %d: %s", rec.Code, rec.Body)
	}
	var job scans.Job
	json.NewDecoder(rec.Body).Decode(&job)
	if job.Resolution != 150 {
		t.Errorf("scan resolution = %d, want 150", job.Resolution)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := f.scans.Wait(ctx, job.ID); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	rec = serve(f, "POST", base+"/accept", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("accept status = %d: %s", rec.Code, rec.Body)
	}

	rec = serve(f, "GET", base+"/pages/0", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("page status = %d", rec.Code)
	}
	if _, err := jpeg.DecodeConfig(rec.Body); err != nil {
		t.Errorf("page is not a JPEG: %v", err)
	}

	rec = serve(f, "POST", base+"/finalize", `{"filename":"receipt"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("finalize status = %d: %s", rec.Code, rec.Body)
	}
	var doc documents.Document
	json.NewDecoder(rec.Body).Decode(&doc)
	if doc.Filename != "receipt.pdf" {
		t.Errorf("filename = %q, want receipt.pdf", doc.Filename)
	}

	rec = serve(f, "GET", base, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("finalized draft status = %d, want 404", rec.Code)
	}
}

func TestHandlerErrors(t *testing.T) {
	f := newFixture(t)
	d, _ := f.drafts.Create(drafts.CreateCommand{})
	base := "/drafts/" + d.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad create body", "POST", "/drafts", "{", http.StatusBadRequest},
		{"invalid id", "GET", "/drafts/nope", "", http.StatusBadRequest},
		{"unknown draft", "POST", "/drafts/" + uuid.NewString() + "/scan", "", http.StatusNotFound},
		{"accept without scan", "POST", base + "/accept", "", http.StatusConflict},
		{"finalize empty", "POST", base + "/finalize", "", http.StatusConflict},
		{"bad page index", "GET", base + "/pages/x", "", http.StatusBadRequest},
		{"missing page", "GET", base + "/pages/0", "", http.StatusNotFound},
		{"discard", "DELETE", base, "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(f, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
