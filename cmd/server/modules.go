package main

import (
	"net/http"

	"github.com/JaimeStill/folio/internal/api"
	"github.com/JaimeStill/folio/internal/config"
	"github.com/JaimeStill/folio/internal/infrastructure"
	"github.com/JaimeStill/folio/pkg/handlers"
	"github.com/JaimeStill/folio/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

type status struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// buildRouter registers the probes. /readyz fails while startup runs, after
// shutdown begins, and while the database does not answer. The scanner is
// not part of readiness: documents stay browsable when it is offline.
func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, status{Status: "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, status{Status: "not ready"})
			return
		}
		if err := infra.Database.Health(r.Context()); err != nil {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, status{Status: "degraded", Error: err.Error()})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, status{Status: "ready"})
	})

	return router
}
