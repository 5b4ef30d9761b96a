package drafts

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/folio/internal/documents"
	"github.com/JaimeStill/folio/internal/scans"
)

// Domain errors for draft operations.
var (
	ErrNotFound       = errors.New("draft not found")
	ErrBusy           = errors.New("draft has a scan in progress")
	ErrPending        = errors.New("draft has a scanned page awaiting accept or forget")
	ErrNoScan         = errors.New("draft has no scan to accept")
	ErrEmpty          = errors.New("draft has no pages")
	ErrPageNotFound   = errors.New("page not found")
	ErrCorruptPage    = errors.New("page does not match its encoded image")
	ErrInvalidRequest = errors.New("invalid draft request")
)

// MapHTTPStatus maps draft domain errors to appropriate HTTP status codes.
// Errors from the scans and documents systems keep their own mapping.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBusy),
		errors.Is(err, ErrPending),
		errors.Is(err, ErrNoScan),
		errors.Is(err, ErrEmpty):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrCorruptPage):
		return http.StatusInternalServerError
	case errors.Is(err, documents.ErrNotFound),
		errors.Is(err, documents.ErrDuplicate),
		errors.Is(err, documents.ErrNotPDF):
		return documents.MapHTTPStatus(err)
	}
	return scans.MapHTTPStatus(err)
}
