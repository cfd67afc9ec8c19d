package routes

import (
	"iter"
	"net/http"
)

// Group nests routes and child groups under a shared prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Walk yields each route with its full "METHOD /prefix/pattern" form,
// parents before children.
func Walk(groups ...Group) iter.Seq2[string, Route] {
	return func(yield func(string, Route) bool) {
		walk("", groups, yield)
	}
}

func walk(prefix string, groups []Group, yield func(string, Route) bool) bool {
	for _, g := range groups {
		base := prefix + g.Prefix
		for _, r := range g.Routes {
			if !yield(r.Method+" "+base+r.Pattern, r) {
				return false
			}
		}
		if !walk(base, g.Children, yield) {
			return false
		}
	}
	return true
}

// Register adds every route in groups to mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for pattern, r := range Walk(groups...) {
		mux.HandleFunc(pattern, r.Handler)
	}
}

// Patterns returns the full pattern of every route in groups.
func Patterns(groups ...Group) []string {
	var out []string
	for pattern := range Walk(groups...) {
		out = append(out, pattern)
	}
	return out
}
