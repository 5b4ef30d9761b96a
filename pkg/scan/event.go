package scan

import (
	"encoding/json"
	"errors"

	"github.com/JaimeStill/folio/pkg/page"
)

// ErrCancelled is returned by Collect when the scan was cancelled.
var ErrCancelled = errors.New("scan cancelled")

// Kind identifies a scan lifecycle event.
type Kind int

const (
	KindPrepare Kind = iota
	KindProgress
	KindStopping
	KindEncoding
	KindDone
	KindError
	KindCancelled
)

var kindNames = [...]string{
	KindPrepare:   "prepare",
	KindProgress:  "progress",
	KindStopping:  "stopping",
	KindEncoding:  "encoding",
	KindDone:      "done",
	KindError:     "error",
	KindCancelled: "cancelled",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Terminal reports whether k ends a scan.
func (k Kind) Terminal() bool {
	return k == KindDone || k == KindError || k == KindCancelled
}

// Event is one step of a scan. Percent is set for progress events, Page
// for done, and Err for error.
type Event struct {
	Kind    Kind
	Percent int
	Page    *page.Encoded
	Err     error
}

// MarshalJSON renders the event for consumers that only need its shape.
func (e Event) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind    Kind   `json:"kind"`
		Percent *int   `json:"percent,omitempty"`
		Width   int    `json:"width,omitempty"`
		Height  int    `json:"height,omitempty"`
		Size    int    `json:"size,omitempty"`
		Error   string `json:"error,omitempty"`
	}{Kind: e.Kind}

	if e.Kind == KindProgress {
		out.Percent = &e.Percent
	}
	if e.Page != nil {
		out.Width, out.Height, out.Size = e.Page.Width, e.Page.Height, e.Page.Size()
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	return json.Marshal(out)
}

// Collect drains events and returns the scanned page. A stream that closes
// without a terminal event was abandoned and reports ErrCancelled.
func Collect(events <-chan Event) (page.Encoded, error) {
	for ev := range events {
		switch ev.Kind {
		case KindDone:
			return *ev.Page, nil
		case KindError:
			return page.Encoded{}, ev.Err
		case KindCancelled:
			return page.Encoded{}, ErrCancelled
		}
	}
	return page.Encoded{}, ErrCancelled
}
