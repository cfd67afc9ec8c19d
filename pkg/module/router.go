package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/rancoqc/pkg/middleware"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

// Router sends requests to the module whose prefix matches the first path
// segment. Anything else goes to the native mux.
type Router struct {
	modules map[string]*Module
	native  *http.ServeMux
}

func NewRouter() *Router {
	return &Router{
		modules: make(map[string]*Module),
		native:  http.NewServeMux(),
	}
}

// HandleNative registers a handler on the native mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// MountRoutes registers groups on the native mux behind chain. The station
// endpoints that predate the /api prefix are mounted this way.
func (r *Router) MountRoutes(chain middleware.Chain, groups ...routes.Group) {
	inner := http.NewServeMux()
	routes.Register(inner, groups...)
	handler := chain.Then(inner)

	for _, pattern := range routes.Patterns(groups...) {
		r.native.Handle(pattern, handler)
	}
}

// Mount registers m under its prefix. Mounting two modules at the same
// prefix panics.
func (r *Router) Mount(m *Module) {
	if _, exists := r.modules[m.prefix]; exists {
		panic(fmt.Errorf("%w: %s already mounted", ErrInvalidPrefix, m.prefix))
	}
	r.modules[m.prefix] = m
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	path := trimTrailingSlash(req.URL.Path)
	if path != req.URL.Path {
		req = withPath(req, path)
	}

	if m, ok := r.modules[firstSegment(path)]; ok {
		m.Serve(w, req)
		return
	}
	r.native.ServeHTTP(w, req)
}

func firstSegment(path string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return "/" + seg
}

func trimTrailingSlash(path string) string {
	if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
		return trimmed
	}
	return "/"
}
