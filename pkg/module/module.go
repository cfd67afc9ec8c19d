// Package module mounts prefixed sub-routers, each with its own middleware
// chain, next to a native mux for root-level endpoints.
package module

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/rancoqc/pkg/middleware"
)

// ErrInvalidPrefix is the panic value for a prefix that is not a single
// "/segment".
var ErrInvalidPrefix = errors.New("invalid module prefix")

// Module strips its prefix and hands the request to an inner router behind
// the module's middleware chain.
type Module struct {
	prefix string
	router http.Handler
	chain  middleware.Chain
}

// New creates a Module mounted at prefix, e.g. "/api". It panics with
// ErrInvalidPrefix when prefix is empty, relative, or has more than one
// segment.
func New(prefix string, router http.Handler, mws ...middleware.Func) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{
		prefix: prefix,
		router: router,
		chain:  middleware.New(mws...),
	}
}

// Handler returns the inner router wrapped in the module's chain.
func (m *Module) Handler() http.Handler {
	return m.chain.Then(m.router)
}

func (m *Module) Prefix() string {
	return m.prefix
}

// Serve dispatches req to the inner router with the prefix removed from its
// path. req itself is not modified.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	m.Handler().ServeHTTP(w, withPath(req, stripPrefix(req.URL.Path, m.prefix)))
}

// Use appends mw to the module's chain.
func (m *Module) Use(mw middleware.Func) {
	m.chain = m.chain.Append(mw)
}

func withPath(req *http.Request, path string) *http.Request {
	out := req.Clone(req.Context())
	out.URL.Path = path
	out.URL.RawPath = ""
	return out
}

func stripPrefix(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		return "/"
	}
	return rest
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("%w: empty", ErrInvalidPrefix)
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("%w: %q must start with /", ErrInvalidPrefix, prefix)
	case len(prefix) == 1 || strings.Contains(prefix[1:], "/"):
		return fmt.Errorf("%w: %q must be a single segment", ErrInvalidPrefix, prefix)
	}
	return nil
}
