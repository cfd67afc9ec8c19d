package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/internal/infrastructure"
	"github.com/JaimeStill/rancoqc/pkg/telemetry"
)

type Server struct {
	infra     *infrastructure.Infrastructure
	modules   *Modules
	http      *httpServer
	telemetry telemetry.ShutdownFunc
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	shutdownTracing, err := telemetry.Init(&cfg.Telemetry, cfg.Version, os.Stderr)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra.Lifecycle.Context(), infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"auth", cfg.Auth.Mode,
	)

	return &Server{
		infra:     infra,
		modules:   modules,
		http:      newHTTPServer(&cfg.Server, router, infra.Logger),
		telemetry: shutdownTracing,
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.modules.API.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	if err := s.http.Listen(); err != nil {
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.infra.Logger.Warn("startup finished with errors", "error", err)
			return
		}
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Errors reports a listener that stopped on its own.
func (s *Server) Errors() <-chan error {
	return s.http.Errors()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Drain requests before the pool, cache and event connection close
	// underneath them.
	errs := []error{s.http.Shutdown(ctx)}
	errs = append(errs, s.infra.Lifecycle.Shutdown(timeout))

	if err := s.telemetry(ctx); err != nil {
		s.infra.Logger.Error("tracer shutdown failed", "error", err)
	}

	s.infra.Logger.Info("rancoqc stopped")
	return errors.Join(errs...)
}
