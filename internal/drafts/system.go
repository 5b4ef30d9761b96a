package drafts

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/internal/documents"
	"github.com/JaimeStill/folio/internal/scans"
	"github.com/JaimeStill/folio/pkg/page"
)

// System defines the public contract for draft operations. Page order is
// the order of Accept calls, and pages change only while no scan of the
// draft is running.
type System interface {
	Handler() *Handler

	List() []Draft
	Create(cmd CreateCommand) (*Draft, error)
	Find(id uuid.UUID) (*Draft, error)

	// Scan starts a page scan for the draft.
	Scan(id uuid.UUID) (*scans.Job, error)
	// Accept appends the finished scan's page to the draft.
	Accept(id uuid.UUID) (*Draft, error)
	// Forget drops the draft's scan, cancelling it if it is still running.
	Forget(id uuid.UUID) (*Draft, error)

	Page(id uuid.UUID, index int) (*page.Encoded, error)
	RemovePage(id uuid.UUID, index int) (*Draft, error)

	// Finalize binds the accepted pages into one PDF, stores it as a
	// document, and closes the draft.
	Finalize(ctx context.Context, id uuid.UUID, cmd FinalizeCommand) (*documents.Document, error)
	Discard(id uuid.UUID) error
}
