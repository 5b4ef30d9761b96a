// Package scans runs scan jobs against the shared scanner backend and
// relays their progress to HTTP and websocket clients.
package scans

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/pkg/device"
	"github.com/JaimeStill/folio/pkg/page"
	"github.com/JaimeStill/folio/pkg/scan"
)

// System defines the public contract for scan job operations.
type System interface {
	Handler() *Handler

	Devices(ctx context.Context) ([]device.Info, error)
	List() []Job
	Start(cmd StartCommand) (*Job, error)
	Find(id uuid.UUID) (*Job, error)
	Cancel(id uuid.UUID) (*Job, error)
	Wait(ctx context.Context, id uuid.UUID) (*Job, error)

	// Subscribe streams the job's remaining events. The channel closes
	// after the terminal event or when ctx ends. A finished job yields its
	// terminal event alone.
	Subscribe(ctx context.Context, id uuid.UUID) (<-chan scan.Event, error)

	// Result returns the page of a job that finished with StatusDone.
	Result(id uuid.UUID) (*page.Encoded, error)

	// Remove forgets a job, cancelling it first if it is still running.
	Remove(id uuid.UUID) error

	// Shutdown cancels every running job and waits for the workers to
	// release their devices.
	Shutdown(ctx context.Context) error
}
