package documents

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/pkg/pagination"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Download returns the document record and a reader over its PDF
	// bytes. The caller closes the reader.
	Download(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error)
}
