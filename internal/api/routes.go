package api

import (
	"github.com/JaimeStill/rancoqc/internal/auth"
	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

// routeSet splits the API into groups served under the base path and the
// root-level endpoints operator stations call directly.
type routeSet struct {
	module []routes.Group
	legacy []routes.Group
}

func buildRoutes(domain *Domain, cfg *config.Config, runtime *Runtime) routeSet {
	guard := auth.NewGuard(runtime.Verifier, runtime.Logger)
	maxBody := cfg.API.MaxBodySizeBytes()

	recordsHandler := domain.Records.Handler(domain.Pending, maxBody)
	pendingHandler := domain.Pending.Handler(maxBody)
	labelsHandler := domain.Labels.Handler(maxBody)
	analysesHandler := domain.Analyses.Handler(cfg.API.MaxUploadSizeBytes(), maxBody)

	return routeSet{
		module: []routes.Group{
			auth.NewHandler(cfg.Auth.CookieName, runtime.Logger).Routes(),
			guard.Protect(labelsHandler.Routes()),
			recordsHandler.Routes(),
			pendingHandler.Routes(),
			analysesHandler.Routes(),
		},
		legacy: []routes.Group{
			guard.Protect(recordsHandler.Legacy()),
			guard.Protect(pendingHandler.Legacy()),
			guard.Protect(labelsHandler.Legacy()),
			guard.Protect(analysesHandler.Legacy()),
		},
	}
}
