// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JaimeStill/rancoqc/internal/auth"
	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/internal/infrastructure"
	"github.com/JaimeStill/rancoqc/pkg/lifecycle"
	"github.com/JaimeStill/rancoqc/pkg/middleware"
	"github.com/JaimeStill/rancoqc/pkg/module"
	"github.com/JaimeStill/rancoqc/pkg/openapi"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

// API is the mounted HTTP surface: the base-path module plus the root-level
// station endpoints, sharing one middleware stack.
type API struct {
	Module *module.Module
	Domain *Domain

	legacy []routes.Group
	chain  middleware.Chain
}

// New creates the API with all domain handlers and middleware.
func New(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*API, error) {
	runtime, err := NewRuntime(ctx, cfg, infra)
	if err != nil {
		return nil, err
	}
	domain := NewDomain(cfg, runtime)
	set := buildRoutes(domain, cfg, runtime)

	spec, err := openapi.Marshal(buildSpec(cfg, set))
	if err != nil {
		return nil, fmt.Errorf("openapi spec: %w", err)
	}

	mux := http.NewServeMux()
	routes.Register(mux, set.module...)
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))

	chain := middleware.New(
		middleware.CORS(&cfg.API.CORS),
		middleware.Logger(runtime.Logger),
		middleware.Metrics(runtime.Metrics),
		auth.Middleware(runtime.Verifier, cfg.Auth.CookieName, runtime.Logger),
	)

	return &API{
		Module: module.New(cfg.API.BasePath, mux, chain...),
		Domain: domain,
		legacy: set.legacy,
		chain:  chain,
	}, nil
}

// Mount registers the module and the root-level endpoints on router.
func (a *API) Mount(router *module.Router) {
	router.Mount(a.Module)
	router.MountRoutes(a.chain, a.legacy...)
}

// Start registers the startup replay of the pending cache.
func (a *API) Start(lc *lifecycle.Coordinator) error {
	return a.Domain.Pending.Start(lc)
}
