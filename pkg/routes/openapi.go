package routes

import (
	"strings"

	"github.com/JaimeStill/folio/pkg/openapi"
)

// Describe adds every documented route in groups to spec. Paths are
// prefixed with basePath; operations without tags take their group's.
func Describe(spec *openapi.Spec, basePath string, groups ...Group) {
	for _, g := range groups {
		g.Walk(func(path string, tags []string, r Route) {
			if r.OpenAPI == nil {
				return
			}
			op := *r.OpenAPI
			if len(op.Tags) == 0 {
				op.Tags = tags
			}

			path = basePath + path
			item, ok := spec.Paths[path]
			if !ok {
				item = &openapi.PathItem{}
				spec.Paths[path] = item
			}

			switch strings.ToUpper(r.Method) {
			case "GET":
				item.Get = &op
			case "POST":
				item.Post = &op
			case "PUT":
				item.Put = &op
			case "DELETE":
				item.Delete = &op
			}
		})
	}
}
