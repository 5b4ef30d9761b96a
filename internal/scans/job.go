package scans

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/pkg/scan"
)

// Status is the lifecycle state of a scan job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Job is a snapshot of one scan. Stage is the kind of the most recent
// worker event.
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Device     string     `json:"device"`
	Mode       string     `json:"mode"`
	Status     Status     `json:"status"`
	Stage      string     `json:"stage"`
	Progress   int        `json:"progress"`
	Error      string     `json:"error,omitempty"`
	Width      int        `json:"width,omitempty"`
	Height     int        `json:"height,omitempty"`
	Size       int        `json:"size,omitempty"`
	Resolution int        `json:"resolution"`
	Quality    int        `json:"quality"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the job reached a terminal state.
func (j Job) Finished() bool {
	return j.Status != StatusRunning
}

// StartCommand requests a scan. Empty or zero fields and an omitted Quality
// use the configured scanner defaults. Options are per-scan option overrides keyed by option
// name.
type StartCommand struct {
	Device     string            `json:"device"`
	Mode       string            `json:"mode"`
	Resolution int               `json:"resolution"`
	Quality    *int              `json:"quality,omitempty"`
	Options    map[string]string `json:"options"`
}

func (c StartCommand) request() (scan.Request, error) {
	mode, err := scan.ParseMode(c.Mode)
	if err != nil {
		return scan.Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if c.Resolution < 0 {
		return scan.Request{}, fmt.Errorf("%w: negative resolution", ErrInvalidRequest)
	}
	if c.Quality != nil && (*c.Quality < 0 || *c.Quality > 100) {
		return scan.Request{}, fmt.Errorf("%w: quality must be between 0 and 100", ErrInvalidRequest)
	}
	return scan.Request{
		Device:     c.Device,
		Mode:       mode,
		Resolution: c.Resolution,
		Quality:    c.Quality,
		Overrides:  c.Options,
	}, nil
}

func (j *Job) apply(ev scan.Event, now time.Time) {
	j.Stage = ev.Kind.String()

	switch ev.Kind {
	case scan.KindProgress:
		j.Progress = ev.Percent
	case scan.KindDone:
		j.Status = StatusDone
		j.Progress = 100
		j.Width, j.Height, j.Size = ev.Page.Width, ev.Page.Height, ev.Page.Size()
	case scan.KindError:
		j.Status = StatusError
		j.Error = ev.Err.Error()
	case scan.KindCancelled:
		j.Status = StatusCancelled
	}

	if ev.Kind.Terminal() {
		j.FinishedAt = &now
	}
}
