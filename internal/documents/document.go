// Package documents stores finished PDF documents: metadata in PostgreSQL
// and file content in blob storage. Documents arrive from finalized drafts
// or from direct upload.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Sources of a document.
const (
	SourceScan   = "scan"
	SourceUpload = "upload"
)

// ContentType is the only content type a document carries.
const ContentType = "application/pdf"

// Document represents a stored PDF with its metadata and blob storage reference.
// DPI is the scan resolution and is nil for uploaded files.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	PageCount   int       `json:"page_count"`
	DPI         *int      `json:"dpi"`
	Source      string    `json:"source"`
	StorageKey  string    `json:"storage_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateCommand carries the data needed to validate, upload, and register a
// new document. Data holds the PDF bytes. An empty Title falls back to the
// filename without its extension.
type CreateCommand struct {
	Data     []byte
	Title    string
	Filename string
	DPI      *int
	Source   string
}
