package drafts

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/folio/pkg/handlers"
	"github.com/JaimeStill/folio/pkg/routes"
)

// Handler provides HTTP endpoints for draft operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "drafts"),
	}
}

// Routes returns the route group definition for draft endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/drafts",
		Tags:   []string{"Drafts"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: Spec.List},
			{Method: "POST", Pattern: "", Handler: h.Create, OpenAPI: Spec.Create},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: Spec.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Discard, OpenAPI: Spec.Discard},
			{Method: "POST", Pattern: "/{id}/scan", Handler: h.Scan, OpenAPI: Spec.Scan},
			{Method: "POST", Pattern: "/{id}/accept", Handler: h.Accept, OpenAPI: Spec.Accept},
			{Method: "POST", Pattern: "/{id}/forget", Handler: h.Forget, OpenAPI: Spec.Forget},
			{Method: "POST", Pattern: "/{id}/finalize", Handler: h.Finalize, OpenAPI: Spec.Finalize},
			{Method: "GET", Pattern: "/{id}/pages/{index}", Handler: h.Page, OpenAPI: Spec.Page},
			{Method: "DELETE", Pattern: "/{id}/pages/{index}", Handler: h.RemovePage, OpenAPI: Spec.RemovePage},
		},
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.List())
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	d, err := h.sys.Create(cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, d)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	d, err := h.sys.Find(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

// Scan starts a page scan; follow it through the scans endpoints.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	job, err := h.sys.Scan(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, job)
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.sys.Accept)
}

func (h *Handler) Forget(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.sys.Forget)
}

// Finalize accepts an optional JSON FinalizeCommand body and responds with
// the stored document.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var cmd FinalizeCommand
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
			return
		}
	}

	doc, err := h.sys.Finalize(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, doc)
}

func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.sys.Discard(id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Page returns the JPEG of an accepted page.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	id, index, ok := h.pagePath(w, r)
	if !ok {
		return
	}

	pg, err := h.sys.Page(id, index)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(pg.Size()))
	w.WriteHeader(http.StatusOK)
	w.Write(pg.Data)
}

func (h *Handler) RemovePage(w http.ResponseWriter, r *http.Request) {
	id, index, ok := h.pagePath(w, r)
	if !ok {
		return
	}

	d, err := h.sys.RemovePage(id, index)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(uuid.UUID) (*Draft, error)) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	d, err := op(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) pagePath(w http.ResponseWriter, r *http.Request) (uuid.UUID, int, bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return uuid.Nil, 0, false
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return uuid.Nil, 0, false
	}
	return id, index, true
}
