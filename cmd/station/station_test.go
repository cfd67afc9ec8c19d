package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/config"
)

func TestCountFlags(t *testing.T) {
	var c countFlags
	for _, v := range []string{"RUSSET=2", " HIJUELO = 1", "RUSSET=3"} {
		if err := c.Set(v); err != nil {
			t.Fatalf("Set(%q): %v", v, err)
		}
	}

	counts := c.counts()
	if got := counts.Labels(); len(got) != 2 || got[0] != "RUSSET" || got[1] != "HIJUELO" {
		t.Errorf("labels = %v, want [RUSSET HIJUELO]", got)
	}
	if n, _ := counts.Get("RUSSET"); n != 5 {
		t.Errorf("RUSSET = %d, want 5", n)
	}

	for _, bad := range []string{"RUSSET", "=2", "RUSSET=x"} {
		if err := c.Set(bad); err == nil {
			t.Errorf("Set(%q) accepted", bad)
		}
	}
}

func TestFormFlags(t *testing.T) {
	f := formFlags{distribution: "Red", guide: "G-1", lot: "L-7", fruits: 100}
	form := f.form()

	if form.Distribution != analysis.Red {
		t.Errorf("distribution = %s, want roja", form.Distribution)
	}
	if form.Lot != "L-7" || form.FruitCount != 100 {
		t.Errorf("form = %+v", form)
	}
}

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/session_check", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"authenticated": true,
			"email":         "ana@ranco.cl",
			"name":          "Ana",
			"role":          "operator",
		})
	})
	mux.HandleFunc("GET /database_status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"db_connected":  false,
			"local_pending": 2,
			"local_failed":  1,
			"local_synced":  4,
		})
	})
	mux.HandleFunc("POST /sync_pending_data", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		if in["user_name"] != "Ana" {
			t.Errorf("user_name = %q, want Ana", in["user_name"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":     true,
			"sync_result": map[string]any{"synced": 2, "errors": 0, "message": "Sincronizados: 2, Errores: 0"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, serverURL string) (*app, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{Station: config.StationConfig{
		ServerURL:    serverURL,
		Timeout:      "5s",
		StreamBudget: "5s",
		StatePath:    filepath.Join(t.TempDir(), "state.json"),
	}}

	var out bytes.Buffer
	a, err := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), &out)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return a, &out
}

func TestStatusCommand(t *testing.T) {
	a, out := newTestApp(t, fakeBackend(t).URL)

	if err := runStatus(context.Background(), a, nil); err != nil {
		t.Fatalf("status: %v", err)
	}

	got := out.String()
	for _, want := range []string{"operator: Ana", "remote store: unreachable", "2 pending, 1 failed, 4 synced"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestSyncCommand(t *testing.T) {
	a, out := newTestApp(t, fakeBackend(t).URL)

	if err := runSync(context.Background(), a, nil); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out.String(), "Sincronizados: 2, Errores: 0") {
		t.Errorf("output = %q, want sync message", out.String())
	}
}

func TestManualRequiresCounts(t *testing.T) {
	a, _ := newTestApp(t, fakeBackend(t).URL)

	err := runManual(context.Background(), a, []string{
		"-distribution", "roja", "-guide", "G-1", "-lot", "L-1", "-fruits", "50",
	})
	if err == nil {
		t.Fatal("manual entry without counts accepted")
	}
}
