package routes

import "net/http"

// Group organizes routes under a common prefix. Tags apply to the group's
// routes and are inherited by children that declare none.
type Group struct {
	Prefix   string
	Tags     []string
	Routes   []Route
	Children []Group
}

// Walk calls fn for every route in the group tree with its full path and
// effective tags.
func (g Group) Walk(fn func(path string, tags []string, r Route)) {
	g.walk("", nil, fn)
}

func (g Group) walk(prefix string, tags []string, fn func(string, []string, Route)) {
	prefix += g.Prefix
	if len(g.Tags) > 0 {
		tags = g.Tags
	}
	for _, r := range g.Routes {
		fn(prefix+r.Pattern, tags, r)
	}
	for _, child := range g.Children {
		child.walk(prefix, tags, fn)
	}
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		g.Walk(func(path string, _ []string, r Route) {
			mux.HandleFunc(r.Method+" "+path, r.Handler)
		})
	}
}
