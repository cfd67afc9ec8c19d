package profiles_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/JaimeStill/rancoqc/internal/profiles"
)

type mockSource struct {
	mu       sync.Mutex
	labelsFn func(profile string) ([]string, error)
	addFn    func(profile, label string) error
	adds     int
}

func (m *mockSource) Labels(_ context.Context, profile string) ([]string, error) {
	if m.labelsFn == nil {
		return nil, errors.New("unreachable")
	}
	return m.labelsFn(profile)
}

func (m *mockSource) AddLabel(_ context.Context, profile, label string) error {
	m.mu.Lock()
	m.adds++
	m.mu.Unlock()
	if m.addFn == nil {
		return nil
	}
	return m.addFn(profile, label)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		input string
		want  profiles.ID
	}{
		{"reception-qc", profiles.ReceptionQC},
		{"qc_recepcion", profiles.ReceptionQC},
		{"packing_qc", profiles.PackingQC},
		{"packing-qc", profiles.PackingQC},
		{"contramuestra", profiles.CounterSample},
		{"counter-sample", profiles.CounterSample},
		{"", profiles.ReceptionQC},
		{"PACKING_QC", profiles.ReceptionQC},
		{"unknown", profiles.ReceptionQC},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := profiles.Resolve(tt.input).ID; got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestProfileMetadata(t *testing.T) {
	packing := profiles.Resolve("packing-qc")
	if !packing.RequiresPackingFields {
		t.Error("packing requires packing fields = false")
	}
	if packing.Title != "Packing QC T25" {
		t.Errorf("title = %s", packing.Title)
	}
	if got := packing.Describe("DESCARTE"); got != "Detecciones en zona de descarte" {
		t.Errorf("describe = %s", got)
	}

	reception := profiles.Resolve("")
	if reception.RequiresPackingFields {
		t.Error("reception requires packing fields = true")
	}
	if len(reception.Builtin()) != 19 {
		t.Errorf("builtin labels = %d, want 19", len(reception.Builtin()))
	}
	if got := reception.Describe("NEW"); got != profiles.DefaultDescription {
		t.Errorf("describe unknown = %s", got)
	}
}

func TestBuiltinIsCopy(t *testing.T) {
	p := profiles.Resolve("")
	labels := p.Builtin()
	labels[0] = "CHANGED"

	if p.Builtin()[0] == "CHANGED" {
		t.Error("builtin set mutated through returned slice")
	}
}

func TestRegistrySelect(t *testing.T) {
	r := profiles.NewRegistry(&mockSource{}, testLogger())

	if r.Active().ID != profiles.ReceptionQC {
		t.Errorf("initial active = %s, want reception-qc", r.Active().ID)
	}

	r.Select("packing_qc")
	if r.Active().ID != profiles.PackingQC {
		t.Errorf("active = %s, want packing-qc", r.Active().ID)
	}

	r.Select("bogus")
	if r.Active().ID != profiles.ReceptionQC {
		t.Errorf("active = %s, want reception-qc", r.Active().ID)
	}
}

func TestRegistryLabels(t *testing.T) {
	p := profiles.Resolve("packing-qc")

	t.Run("remote set", func(t *testing.T) {
		src := &mockSource{labelsFn: func(profile string) ([]string, error) {
			if profile != "packing_qc" {
				t.Errorf("profile = %s, want packing_qc", profile)
			}
			return []string{"BANDEJA_1", "CAJA ROTA"}, nil
		}}
		r := profiles.NewRegistry(src, testLogger())

		got := r.Labels(context.Background(), p)
		if !slices.Equal(got, []string{"BANDEJA_1", "CAJA ROTA"}) {
			t.Errorf("labels = %v", got)
		}
		if !r.Has(p, "CAJA ROTA") {
			t.Error("loaded label not available")
		}
	})

	t.Run("fallback on failure", func(t *testing.T) {
		r := profiles.NewRegistry(&mockSource{}, testLogger())

		got := r.Labels(context.Background(), p)
		if !slices.Equal(got, p.Builtin()) {
			t.Errorf("labels = %v, want built-in set", got)
		}
	})

	t.Run("failure keeps loaded set", func(t *testing.T) {
		online := true
		src := &mockSource{labelsFn: func(string) ([]string, error) {
			if !online {
				return nil, errors.New("unreachable")
			}
			return []string{"BANDEJA_1"}, nil
		}}
		r := profiles.NewRegistry(src, testLogger())
		ctx := context.Background()

		r.Labels(ctx, p)
		if err := r.AddLabel(ctx, p, "CAJA ROTA"); err != nil {
			t.Fatalf("add label: %v", err)
		}

		online = false
		got := r.Labels(ctx, p)
		if !slices.Equal(got, []string{"BANDEJA_1", "CAJA ROTA"}) {
			t.Errorf("labels = %v, want loaded set", got)
		}
		if !r.Has(p, "CAJA ROTA") {
			t.Error("added label lost after failed fetch")
		}
	})
}

func TestRegistryPreload(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	src := &mockSource{labelsFn: func(profile string) ([]string, error) {
		mu.Lock()
		seen[profile] = true
		mu.Unlock()
		return []string{profile + "-label"}, nil
	}}
	r := profiles.NewRegistry(src, testLogger())

	if err := r.Preload(context.Background()); err != nil {
		t.Fatalf("preload: %v", err)
	}

	for _, p := range profiles.All() {
		if !seen[p.Wire] {
			t.Errorf("profile %s not loaded", p.Wire)
		}
		if !r.Has(p, p.Wire+"-label") {
			t.Errorf("profile %s label missing", p.Wire)
		}
	}
}

func TestRegistryAddLabel(t *testing.T) {
	p := profiles.Resolve("")

	t.Run("duplicate rejected without network", func(t *testing.T) {
		src := &mockSource{}
		r := profiles.NewRegistry(src, testLogger())

		err := r.AddLabel(context.Background(), p, "RUSSET")
		if !errors.Is(err, profiles.ErrDuplicateLabel) {
			t.Errorf("err = %v, want ErrDuplicateLabel", err)
		}
		if src.adds != 0 {
			t.Errorf("source calls = %d, want 0", src.adds)
		}
	})

	t.Run("case sensitive", func(t *testing.T) {
		src := &mockSource{}
		r := profiles.NewRegistry(src, testLogger())

		if err := r.AddLabel(context.Background(), p, "russet"); err != nil {
			t.Fatalf("add: %v", err)
		}
		if !r.Has(p, "russet") || !r.Has(p, "RUSSET") {
			t.Error("both case variants should be available")
		}
	})

	t.Run("persisted label appended", func(t *testing.T) {
		r := profiles.NewRegistry(&mockSource{}, testLogger())

		if err := r.AddLabel(context.Background(), p, "GOLPE SOL"); err != nil {
			t.Fatalf("add: %v", err)
		}
		labels := r.Available(p)
		if labels[len(labels)-1] != "GOLPE SOL" {
			t.Errorf("last label = %s, want GOLPE SOL", labels[len(labels)-1])
		}
	})

	t.Run("persist failure", func(t *testing.T) {
		cause := errors.New("503")
		r := profiles.NewRegistry(&mockSource{addFn: func(string, string) error { return cause }}, testLogger())

		err := r.AddLabel(context.Background(), p, "GOLPE SOL")

		var perr *profiles.PersistError
		if !errors.As(err, &perr) {
			t.Fatalf("err = %v, want *PersistError", err)
		}
		if !errors.Is(err, cause) {
			t.Error("PersistError does not unwrap to cause")
		}
		if r.Has(p, "GOLPE SOL") {
			t.Error("unpersisted label added to set")
		}
	})
}
