package api

import (
	"github.com/JaimeStill/folio/internal/documents"
	"github.com/JaimeStill/folio/internal/drafts"
	"github.com/JaimeStill/folio/internal/scans"
	"github.com/JaimeStill/folio/pkg/scan"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents documents.System
	Scans     scans.System
	Drafts    drafts.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	scansSystem := scans.New(
		scan.NewWorker(runtime.Scanner, &runtime.Scan, runtime.Logger),
		runtime.JobRetention,
		runtime.Logger,
	)

	draftsSystem := drafts.New(
		scansSystem,
		docsSystem,
		drafts.Defaults{
			Device:     runtime.Scan.Device,
			Resolution: runtime.Scan.PageDPI,
			Creator:    runtime.Creator,
		},
		runtime.Logger,
	)

	return &Domain{
		Documents: docsSystem,
		Scans:     scansSystem,
		Drafts:    draftsSystem,
	}
}
