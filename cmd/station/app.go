package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/client"
	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/internal/history"
	"github.com/JaimeStill/rancoqc/internal/profiles"
	"github.com/JaimeStill/rancoqc/internal/session"
	"github.com/JaimeStill/rancoqc/internal/station"
	"github.com/JaimeStill/rancoqc/internal/submission"
)

var errUsage = errors.New("invalid usage")

type app struct {
	station *station.Station
	out     io.Writer
}

func newApp(cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	c, err := client.New(&cfg.Station)
	if err != nil {
		return nil, err
	}

	registry := profiles.NewRegistry(c, logger)
	pipeline := submission.New(c, c, logger)

	st := station.New(station.Components{
		Sessions:  session.New(c, session.NewFileCache(cfg.Station.StatePath), logger),
		Registry:  registry,
		Workspace: analysis.NewWorkspace(registry, logger),
		Pipeline:  pipeline,
		History:   history.New(c, pipeline, logger),
		Analyzer:  c,
	}, cfg.Station.StreamBudgetDuration(), logger)

	return &app{station: st, out: out}, nil
}

// begin resolves the session every command except logout needs.
func (a *app) begin(ctx context.Context) (*session.Session, error) {
	sess, err := a.station.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("sign in through the web portal first: %w", err)
	}
	return sess, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printResult(r analysis.Result) {
	a.printf("profile: %s\n", a.station.Profile().Name)
	for label, n := range r.Counts.All() {
		a.printf("  %-24s %d\n", label, n)
	}
	a.printf("total: %d\n", r.Total())
	if r.State == analysis.Synced {
		a.printf("synced: %s\n", r.RemoteID)
	}
}
