package device

import (
	"errors"
	"fmt"
	"net/http"
)

// Status is a device status code as reported by the backend.
type Status int

const (
	StatusGood Status = iota
	StatusUnsupported
	StatusCancelled
	StatusDeviceBusy
	StatusInvalid
	StatusEOF
	StatusJammed
	StatusNoDocs
	StatusCoverOpen
	StatusIOError
	StatusNoMem
	StatusAccessDenied
)

var statusText = map[Status]string{
	StatusGood:         "success",
	StatusUnsupported:  "operation not supported",
	StatusCancelled:    "operation cancelled",
	StatusDeviceBusy:   "device busy",
	StatusInvalid:      "invalid argument",
	StatusEOF:          "no more data available",
	StatusJammed:       "document feeder jammed",
	StatusNoDocs:       "document feeder out of documents",
	StatusCoverOpen:    "scanner cover is open",
	StatusIOError:      "error during device I/O",
	StatusNoMem:        "out of memory",
	StatusAccessDenied: "access to resource has been denied",
}

func (s Status) Error() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return fmt.Sprintf("unknown status %d", int(s))
}

// StatusFromCode converts a wire status code. StatusGood yields nil. Codes
// outside the known set are protocol violations.
func StatusFromCode(code int) error {
	s := Status(code)
	if s == StatusGood {
		return nil
	}
	if _, ok := statusText[s]; !ok {
		return fmt.Errorf("%w: status code %d", ErrProtocolViolation, code)
	}
	return s
}

var (
	// ErrProtocolViolation indicates the backend reported data that breaks
	// the device contract, such as non-positive page geometry.
	ErrProtocolViolation = errors.New("device protocol violation")
	// ErrNotFound indicates the requested device is not known to the backend.
	ErrNotFound = errors.New("device not found")
	// ErrConstraint indicates a value failed the option's constraint check.
	ErrConstraint = errors.New("value violates option constraint")
	// ErrNotSettable indicates the option cannot be set by software.
	ErrNotSettable = errors.New("option is not settable")
	// ErrUnsupportedType indicates the option type cannot carry a value.
	ErrUnsupportedType = errors.New("option type does not carry a value")
)

// MapHTTPStatus maps device errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, StatusDeviceBusy):
		return http.StatusConflict
	case errors.Is(err, StatusAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, StatusJammed),
		errors.Is(err, StatusNoDocs),
		errors.Is(err, StatusCoverOpen):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConstraint),
		errors.Is(err, ErrNotSettable),
		errors.Is(err, StatusInvalid):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
