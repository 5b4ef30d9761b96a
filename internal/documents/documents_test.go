package documents_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/JaimeStill/folio/internal/documents"
	"github.com/JaimeStill/folio/pkg/query"
	"github.com/JaimeStill/folio/pkg/storage"
)

func ptr[T any](v T) *T { return &v }

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", documents.ErrNotFound, http.StatusNotFound},
		{"duplicate", documents.ErrDuplicate, http.StatusConflict},
		{"file too large", documents.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"invalid file", documents.ErrInvalidFile, http.StatusBadRequest},
		{"invalid id", documents.ErrInvalidID, http.StatusBadRequest},
		{"invalid request", documents.ErrInvalidRequest, http.StatusBadRequest},
		{"missing blob", fmt.Errorf("download document blob: %w", storage.ErrNotFound), http.StatusNotFound},
		{"not a pdf", fmt.Errorf("%w: bad header", documents.ErrNotPDF), http.StatusUnprocessableEntity},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("find failed: %w", documents.ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := documents.MapHTTPStatus(tt.err)
			if got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	t.Run("all params present", func(t *testing.T) {
		values := url.Values{
			"title":    {"invoice"},
			"filename": {"march"},
			"source":   {"scan"},
		}

		f := documents.FiltersFromQuery(values)

		if f.Title == nil || *f.Title != "invoice" {
			t.Errorf("Title = %v, want invoice", f.Title)
		}
		if f.Filename == nil || *f.Filename != "march" {
			t.Errorf("Filename = %v, want march", f.Filename)
		}
		if f.Source == nil || *f.Source != "scan" {
			t.Errorf("Source = %v, want scan", f.Source)
		}
	})

	t.Run("empty params yield nil fields", func(t *testing.T) {
		f := documents.FiltersFromQuery(url.Values{})

		if f.Title != nil || f.Filename != nil || f.Source != nil {
			t.Errorf("got %+v, want all nil", f)
		}
	})
}

func TestFiltersApply(t *testing.T) {
	projection := query.
		NewProjectionMap("public", "documents", "d").
		Project("title", "Title").
		Project("filename", "Filename").
		Project("source", "Source")

	t.Run("no filters produces no WHERE clause", func(t *testing.T) {
		b := query.NewBuilder(projection)
		documents.Filters{}.Apply(b)
		sql, args := b.BuildCount()

		wantSQL := "SELECT COUNT(*) FROM public.documents d"
		if sql != wantSQL {
			t.Errorf("sql = %q, want %q", sql, wantSQL)
		}
		if len(args) != 0 {
			t.Errorf("args = %v, want empty", args)
		}
	})

	t.Run("title contains filter", func(t *testing.T) {
		b := query.NewBuilder(projection)
		documents.Filters{Title: ptr("invoice")}.Apply(b)
		_, args := b.BuildCount()

		if len(args) != 1 || args[0] != "%invoice%" {
			t.Errorf("args = %v, want [%%invoice%%]", args)
		}
	})

	t.Run("source equals filter", func(t *testing.T) {
		b := query.NewBuilder(projection)
		documents.Filters{Source: ptr("upload")}.Apply(b)
		_, args := b.BuildCount()

		if len(args) != 1 {
			t.Fatalf("args length = %d, want 1", len(args))
		}
		if v, ok := args[0].(*string); !ok || *v != "upload" {
			t.Errorf("args[0] = %v, want *upload", args[0])
		}
	})

	t.Run("multiple filters combine with AND", func(t *testing.T) {
		b := query.NewBuilder(projection)
		documents.Filters{
			Title:    ptr("invoice"),
			Filename: ptr("march"),
			Source:   ptr("scan"),
		}.Apply(b)
		_, args := b.BuildCount()

		if len(args) != 3 {
			t.Errorf("args length = %d, want 3", len(args))
		}
	})
}
