package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/rancoqc/internal/api"
	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/internal/infrastructure"
	"github.com/JaimeStill/rancoqc/pkg/module"
)

type Modules struct {
	API *api.API
}

func NewModules(ctx context.Context, infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.New(ctx, cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	m.API.Mount(router)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		status := infra.Lifecycle.Status()
		if !infra.Lifecycle.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "not ready",
				"systems": status,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ready",
			"systems": status,
		})
	})

	router.HandleNative("GET /metrics", infra.Metrics.Handler().ServeHTTP)

	return router
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
