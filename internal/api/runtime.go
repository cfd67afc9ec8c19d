package api

import (
	"context"
	"fmt"

	"github.com/JaimeStill/rancoqc/internal/auth"
	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/internal/detector"
	"github.com/JaimeStill/rancoqc/internal/infrastructure"
	"github.com/JaimeStill/rancoqc/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and the
// clients the domain systems share.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Verifier   auth.Verifier
	Detector   *detector.Client
}

// NewRuntime creates an API runtime with a module-scoped logger. OIDC
// verification performs provider discovery through ctx.
func NewRuntime(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*Runtime, error) {
	logger := infra.Logger.With("module", "api")

	verifier, err := auth.NewVerifier(ctx, &cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth verifier: %w", err)
	}

	det, err := detector.New(&cfg.Detector, logger)
	if err != nil {
		return nil, fmt.Errorf("detector client: %w", err)
	}

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Storage:   infra.Storage,
			Cache:     infra.Cache,
			Events:    infra.Events,
			Metrics:   infra.Metrics,
		},
		Pagination: cfg.API.Pagination,
		Verifier:   verifier,
		Detector:   det,
	}, nil
}
