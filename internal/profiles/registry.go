package profiles

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LabelSource fetches and persists profile label sets, keyed by wire id.
type LabelSource interface {
	Labels(ctx context.Context, profile string) ([]string, error)
	AddLabel(ctx context.Context, profile, label string) error
}

// Registry owns the active profile and the in-memory label set per profile.
type Registry struct {
	source LabelSource
	logger *slog.Logger

	mu     sync.RWMutex
	active Profile
	labels map[ID][]string
}

// NewRegistry creates a registry whose active profile is reception QC.
func NewRegistry(source LabelSource, logger *slog.Logger) *Registry {
	return &Registry{
		source: source,
		logger: logger.With("system", "profiles"),
		active: Resolve(""),
		labels: make(map[ID][]string),
	}
}

// Select makes the resolved profile active and returns it.
func (r *Registry) Select(id string) Profile {
	p := Resolve(id)

	r.mu.Lock()
	r.active = p
	r.mu.Unlock()

	r.logger.Info("profile selected", "profile", p.ID)
	return p
}

// Active returns the active profile.
func (r *Registry) Active() Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Labels loads the label set of p from the source. An empty set from the
// source means the built-ins. When the source fails the set already in
// memory is kept, or the built-in set is used if none was loaded.
func (r *Registry) Labels(ctx context.Context, p Profile) []string {
	labels, err := r.source.Labels(ctx, p.Wire)
	if err != nil {
		r.logger.Warn("label fetch failed, keeping current set", "profile", p.ID, "error", err)
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.labels[p.ID]; !ok {
			r.labels[p.ID] = p.Builtin()
		}
		return slices.Clone(r.labels[p.ID])
	}
	if len(labels) == 0 {
		labels = p.Builtin()
	}

	r.mu.Lock()
	r.labels[p.ID] = slices.Clone(labels)
	r.mu.Unlock()

	return labels
}

// Preload loads the label sets of every known profile concurrently.
func (r *Registry) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range All() {
		g.Go(func() error {
			r.Labels(ctx, p)
			return ctx.Err()
		})
	}
	return g.Wait()
}

// Available returns the in-memory label set of p, or its built-in set
// if it has not been loaded.
func (r *Registry) Available(p Profile) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if labels, ok := r.labels[p.ID]; ok {
		return slices.Clone(labels)
	}
	return p.Builtin()
}

// Has reports whether label is in the available set of p. Matching is exact
// and case-sensitive.
func (r *Registry) Has(p Profile, label string) bool {
	return slices.Contains(r.Available(p), label)
}

// AddLabel persists a new label for p and appends it to the in-memory set.
// A label already in the set is rejected without contacting the source.
// When persistence fails a *PersistError is returned and the set is unchanged.
func (r *Registry) AddLabel(ctx context.Context, p Profile, label string) error {
	if r.Has(p, label) {
		r.logger.Warn("label already exists", "profile", p.ID, "label", label)
		return ErrDuplicateLabel
	}

	if err := r.source.AddLabel(ctx, p.Wire, label); err != nil {
		return &PersistError{Profile: p.ID, Label: label, Err: err}
	}

	r.mu.Lock()
	if _, ok := r.labels[p.ID]; !ok {
		r.labels[p.ID] = p.Builtin()
	}
	if !slices.Contains(r.labels[p.ID], label) {
		r.labels[p.ID] = append(r.labels[p.ID], label)
	}
	r.mu.Unlock()

	r.logger.Info("label added", "profile", p.ID, "label", label)
	return nil
}
