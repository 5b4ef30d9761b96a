package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/folio/internal/config"
	"github.com/JaimeStill/folio/internal/documents"
	"github.com/JaimeStill/folio/internal/drafts"
	"github.com/JaimeStill/folio/internal/scans"
	"github.com/JaimeStill/folio/pkg/openapi"
	"github.com/JaimeStill/folio/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) error {
	groups := []routes.Group{
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Scans.Handler().Routes(),
		domain.Drafts.Handler().Routes(),
	}

	routes.Register(mux, groups...)

	specBytes, err := openapi.MarshalJSON(buildSpec(cfg, groups))
	if err != nil {
		return fmt.Errorf("marshal openapi: %w", err)
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	return nil
}

func buildSpec(cfg *config.Config, groups []routes.Group) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.Configure(&cfg.API.OpenAPI)

	spec.Components.AddSchemas(documents.Spec.Schemas())
	spec.Components.AddSchemas(scans.Spec.Schemas())
	spec.Components.AddSchemas(drafts.Spec.Schemas())

	routes.Describe(spec, cfg.API.BasePath, groups...)
	return spec
}
