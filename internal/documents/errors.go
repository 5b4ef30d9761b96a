package documents

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/folio/pkg/storage"
)

// Domain errors for document operations.
var (
	ErrNotFound       = errors.New("document not found")
	ErrDuplicate      = errors.New("document already exists")
	ErrFileTooLarge   = errors.New("file exceeds maximum upload size")
	ErrInvalidFile    = errors.New("invalid file")
	ErrInvalidID      = errors.New("invalid document id")
	ErrInvalidRequest = errors.New("invalid request body")
	ErrNotPDF         = errors.New("file is not a valid PDF")
)

// MapHTTPStatus maps document domain errors to HTTP status codes, deferring
// to the storage mapping for blob errors.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ErrInvalidFile) || errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrNotPDF) {
		return http.StatusUnprocessableEntity
	}
	return storage.MapHTTPStatus(err)
}
