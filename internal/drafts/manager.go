package drafts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/folio/internal/documents"
	"github.com/JaimeStill/folio/internal/scans"
	"github.com/JaimeStill/folio/pkg/jpegenc"
	"github.com/JaimeStill/folio/pkg/page"
	"github.com/JaimeStill/folio/pkg/pdf"
)

// Defaults holds the scan settings a draft falls back to.
type Defaults struct {
	Device     string
	Resolution int
	Creator    string
}

type manager struct {
	scans     scans.System
	documents documents.System
	defaults  Defaults
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	drafts map[uuid.UUID]*draft
}

// New creates the draft system.
func New(
	scanSys scans.System,
	docs documents.System,
	defaults Defaults,
	logger *slog.Logger,
) System {
	return &manager{
		scans:     scanSys,
		documents: docs,
		defaults:  defaults,
		logger:    logger.With("system", "drafts"),
		now:       time.Now,
		drafts:    make(map[uuid.UUID]*draft),
	}
}

func (m *manager) Handler() *Handler {
	return NewHandler(m, m.logger)
}

func (m *manager) List() []Draft {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Draft, 0, len(m.drafts))
	for _, d := range m.drafts {
		out = append(out, *d.snapshot())
	}
	slices.SortFunc(out, func(a, b Draft) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

func (m *manager) Create(cmd CreateCommand) (*Draft, error) {
	if cmd.Resolution < 0 {
		return nil, fmt.Errorf("%w: negative resolution", ErrInvalidRequest)
	}
	if cmd.Quality != nil && (*cmd.Quality < 0 || *cmd.Quality > 100) {
		return nil, fmt.Errorf("%w: quality must be between 0 and 100", ErrInvalidRequest)
	}

	now := m.now()
	d := &draft{
		Draft: Draft{
			ID:         uuid.New(),
			Title:      strings.TrimSpace(cmd.Title),
			Device:     cmd.Device,
			Resolution: cmd.Resolution,
			Options:    maps.Clone(cmd.Options),
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
	if d.Device == "" {
		d.Device = m.defaults.Device
	}
	if d.Resolution == 0 {
		d.Resolution = m.defaults.Resolution
	}
	if cmd.Quality != nil {
		q := *cmd.Quality
		d.Quality = &q
	}

	m.mu.Lock()
	m.drafts[d.ID] = d
	m.mu.Unlock()

	m.logger.Info("draft created", "id", d.ID, "title", d.Title, "resolution", d.Resolution)
	return d.snapshot(), nil
}

func (m *manager) Find(id uuid.UUID) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return d.snapshot(), nil
}

func (m *manager) Scan(id uuid.UUID) (*scans.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if d.finalizing {
		return nil, ErrBusy
	}

	if d.Scan != nil {
		job, err := m.scans.Find(*d.Scan)
		switch {
		case errors.Is(err, scans.ErrNotFound):
		case err != nil:
			return nil, err
		case job.Status == scans.StatusRunning:
			return nil, ErrBusy
		case job.Status == scans.StatusDone:
			return nil, ErrPending
		}
		m.clearScan(d)
	}

	job, err := m.scans.Start(scans.StartCommand{
		Device:     d.Device,
		Mode:       "page",
		Resolution: d.Resolution,
		Quality:    d.Quality,
		Options:    d.Options,
	})
	if err != nil {
		return nil, err
	}

	d.Scan = &job.ID
	d.UpdatedAt = m.now()

	m.logger.Info("draft page scan started", "id", id, "scan", job.ID, "page", len(d.pages))
	return job, nil
}

func (m *manager) Accept(id uuid.UUID) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if d.finalizing {
		return nil, ErrBusy
	}
	if d.Scan == nil {
		return nil, ErrNoScan
	}

	pg, err := m.scans.Result(*d.Scan)
	switch {
	case errors.Is(err, scans.ErrNotFinished):
		return nil, ErrBusy
	case errors.Is(err, scans.ErrNoPage), errors.Is(err, scans.ErrNotFound):
		m.clearScan(d)
		return nil, ErrNoScan
	case err != nil:
		return nil, err
	}

	d.pages = append(d.pages, *pg)
	m.clearScan(d)

	m.logger.Info("draft page accepted", "id", id, "pages", len(d.pages))
	return d.snapshot(), nil
}

func (m *manager) Forget(id uuid.UUID) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if d.Scan != nil {
		m.clearScan(d)
		m.logger.Info("draft scan forgotten", "id", id)
	}
	return d.snapshot(), nil
}

func (m *manager) Page(id uuid.UUID, index int) (*page.Encoded, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.pages) {
		return nil, ErrPageNotFound
	}
	pg := d.pages[index]
	return &pg, nil
}

func (m *manager) RemovePage(id uuid.UUID, index int) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if d.finalizing || m.scanRunning(d) {
		return nil, ErrBusy
	}
	if index < 0 || index >= len(d.pages) {
		return nil, ErrPageNotFound
	}

	d.pages = slices.Delete(d.pages, index, index+1)
	d.UpdatedAt = m.now()
	return d.snapshot(), nil
}

func (m *manager) Finalize(ctx context.Context, id uuid.UUID, cmd FinalizeCommand) (*documents.Document, error) {
	d, pages, err := m.beginFinalize(id)
	if err != nil {
		return nil, err
	}

	doc, err := m.finalize(ctx, d, pages, cmd)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		d.finalizing = false
		return nil, err
	}

	delete(m.drafts, id)
	m.logger.Info("draft finalized", "id", id, "document", doc.ID, "pages", len(pages))
	return doc, nil
}

// beginFinalize claims the draft so no scan or page change can interleave
// with PDF assembly.
func (m *manager) beginFinalize(id uuid.UUID) (*draft, []page.Encoded, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	if d.finalizing || m.scanRunning(d) {
		return nil, nil, ErrBusy
	}
	if len(d.pages) == 0 {
		return nil, nil, ErrEmpty
	}
	if d.Scan != nil {
		m.clearScan(d)
	}

	d.finalizing = true
	return d, slices.Clone(d.pages), nil
}

func (m *manager) finalize(
	ctx context.Context,
	d *draft,
	pages []page.Encoded,
	cmd FinalizeCommand,
) (*documents.Document, error) {
	if err := verifyPages(ctx, pages); err != nil {
		return nil, err
	}

	asm := pdf.NewAssembler(d.Title, float64(d.Resolution))
	if m.defaults.Creator != "" {
		asm.SetCreator(m.defaults.Creator)
	}
	for _, p := range pages {
		if err := asm.Add(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPage, err)
		}
	}

	var buf bytes.Buffer
	if _, err := asm.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("assemble pdf: %w", err)
	}

	dpi := d.Resolution
	return m.documents.Create(ctx, documents.CreateCommand{
		Data:     buf.Bytes(),
		Title:    d.Title,
		Filename: cmd.filename(d.Title),
		DPI:      &dpi,
		Source:   documents.SourceScan,
	})
}

// verifyPages checks every page's JPEG header against its declared
// geometry concurrently.
func verifyPages(ctx context.Context, pages []page.Encoded) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, p := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := jpegenc.Verify(p); err != nil {
				return fmt.Errorf("%w: page %d: %v", ErrCorruptPage, i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *manager) Discard(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return err
	}
	if d.finalizing {
		return ErrBusy
	}
	if d.Scan != nil {
		m.clearScan(d)
	}
	delete(m.drafts, id)

	m.logger.Info("draft discarded", "id", id, "pages", len(d.pages))
	return nil
}

func (m *manager) lookup(id uuid.UUID) (*draft, error) {
	d, ok := m.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *manager) scanRunning(d *draft) bool {
	if d.Scan == nil {
		return false
	}
	job, err := m.scans.Find(*d.Scan)
	return err == nil && job.Status == scans.StatusRunning
}

// clearScan removes the draft's scan job, cancelling it if still running.
// Callers hold mu.
func (m *manager) clearScan(d *draft) {
	if err := m.scans.Remove(*d.Scan); err != nil && !errors.Is(err, scans.ErrNotFound) {
		m.logger.Warn("scan remove failed", "id", d.ID, "scan", *d.Scan, "error", err)
	}
	d.Scan = nil
	d.UpdatedAt = m.now()
}
