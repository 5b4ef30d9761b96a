package scans

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/folio/pkg/device"
)

// Domain errors for scan job operations.
var (
	ErrNotFound       = errors.New("scan not found")
	ErrDeviceBusy     = errors.New("device has a scan in progress")
	ErrNotFinished    = errors.New("scan has not finished")
	ErrNoPage         = errors.New("scan did not produce a page")
	ErrInvalidRequest = errors.New("invalid scan request")
	ErrShuttingDown   = errors.New("scanner is shutting down")
)

// MapHTTPStatus maps scan domain errors to appropriate HTTP status codes.
// Anything else is treated as a device error.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDeviceBusy),
		errors.Is(err, ErrNotFinished),
		errors.Is(err, ErrNoPage):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable
	}
	return device.MapHTTPStatus(err)
}
