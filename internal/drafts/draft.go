// Package drafts collects scanned pages into multi-page documents. A draft
// scans one page at a time through the scans system; each finished page is
// either accepted onto the end of the draft or forgotten. Finalizing a draft
// binds its pages into one PDF and stores it as a document.
package drafts

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/pkg/page"
)

// Draft is a snapshot of a multi-page document under construction.
type Draft struct {
	ID         uuid.UUID         `json:"id"`
	Title      string            `json:"title"`
	Device     string            `json:"device"`
	Resolution int               `json:"resolution"`
	Quality    *int              `json:"quality,omitempty"`
	Options    map[string]string `json:"options,omitempty"`
	Pages      []Page            `json:"pages"`
	Scan       *uuid.UUID        `json:"scan,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Page describes an accepted page.
type Page struct {
	Index  int         `json:"index"`
	Format page.Format `json:"format"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Size   int         `json:"size"`
}

// CreateCommand opens a draft. A zero Resolution or omitted Quality uses
// the configured page defaults; an empty Device uses the configured device.
// Every page of the draft is scanned with these settings.
type CreateCommand struct {
	Title      string            `json:"title"`
	Device     string            `json:"device"`
	Resolution int               `json:"resolution"`
	Quality    *int              `json:"quality,omitempty"`
	Options    map[string]string `json:"options"`
}

// FinalizeCommand names the document produced by Finalize. An empty
// Filename is derived from the title.
type FinalizeCommand struct {
	Filename string `json:"filename"`
}

func (c FinalizeCommand) filename(title string) string {
	name := strings.TrimSpace(c.Filename)
	if name == "" {
		name = strings.TrimSpace(title)
	}
	if name == "" {
		name = "document"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

type draft struct {
	Draft
	pages      []page.Encoded
	finalizing bool
}

func (d *draft) snapshot() *Draft {
	s := d.Draft
	s.Pages = make([]Page, len(d.pages))
	for i, p := range d.pages {
		s.Pages[i] = Page{Index: i, Format: p.Format, Width: p.Width, Height: p.Height, Size: p.Size()}
	}
	if d.Scan != nil {
		id := *d.Scan
		s.Scan = &id
	}
	return &s
}
