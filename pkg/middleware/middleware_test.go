package middleware_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/rancoqc/pkg/metrics"
	"github.com/JaimeStill/rancoqc/pkg/middleware"
)

func tag(order *[]string, name string) middleware.Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	chain := middleware.New(tag(&order, "first"), tag(&order, "second"))

	handler := chain.Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "handler" {
		t.Errorf("order = %v, want [first second handler]", order)
	}
}

func TestChainAppendLeavesReceiver(t *testing.T) {
	var order []string
	base := middleware.New(tag(&order, "base"))
	extended := base.Append(tag(&order, "extra"))

	if len(base) != 1 {
		t.Errorf("base len = %d, want 1", len(base))
	}
	if len(extended) != 2 {
		t.Errorf("extended len = %d, want 2", len(extended))
	}
}

func TestChainNilHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.New().Then(nil).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		cfg        middleware.CORSConfig
		origin     string
		wantOrigin string
		wantVary   bool
	}{
		{
			name:   "disabled",
			cfg:    middleware.CORSConfig{Enabled: false, Origins: []string{"http://qc.local"}},
			origin: "http://qc.local",
		},
		{
			name:       "allowed origin",
			cfg:        middleware.CORSConfig{Enabled: true, Origins: []string{"http://qc.local"}},
			origin:     "http://qc.local",
			wantOrigin: "http://qc.local",
			wantVary:   true,
		},
		{
			name:     "denied origin",
			cfg:      middleware.CORSConfig{Enabled: true, Origins: []string{"http://qc.local"}},
			origin:   "http://other.local",
			wantVary: true,
		},
		{
			name:       "wildcard",
			cfg:        middleware.CORSConfig{Enabled: true, Origins: []string{"*"}},
			origin:     "http://tablet.local",
			wantOrigin: "http://tablet.local",
			wantVary:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Origin", tt.origin)
			middleware.CORS(&tt.cfg)(ok).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow-origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Vary") == "Origin"; got != tt.wantVary {
				t.Errorf("vary origin = %v, want %v", got, tt.wantVary)
			}
			if rec.Header().Get("Access-Control-Allow-Methods") != "" {
				t.Error("allow-methods set on a simple request")
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"http://qc.local"}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	var called bool
	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	t.Run("preflight", func(t *testing.T) {
		called = false
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("OPTIONS", "/api/labels", nil)
		req.Header.Set("Origin", "http://qc.local")
		req.Header.Set("Access-Control-Request-Method", "POST")
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
		if called {
			t.Error("handler ran for preflight")
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
			t.Errorf("allow-methods = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
			t.Errorf("max-age = %q, want 600", got)
		}
	})

	t.Run("plain options", func(t *testing.T) {
		called = false
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("OPTIONS", "/api/labels", nil)
		req.Header.Set("Origin", "http://qc.local")
		handler.ServeHTTP(rec, req)

		if !called {
			t.Error("handler skipped for OPTIONS without a request method")
		}
	})
}

func TestCORSConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := middleware.CORSConfig{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if len(cfg.AllowedMethods) != 3 {
			t.Errorf("allowed methods = %v, want 3 entries", cfg.AllowedMethods)
		}
		if cfg.MaxAge != 600 {
			t.Errorf("max age = %d, want 600", cfg.MaxAge)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("TEST_CORS_ENABLED", "true")
		t.Setenv("TEST_CORS_ORIGINS", "http://a.local, ,http://b.local")
		t.Setenv("TEST_CORS_METHODS", "get,post")

		cfg := middleware.CORSConfig{}
		env := &middleware.CORSEnv{
			Enabled:        "TEST_CORS_ENABLED",
			Origins:        "TEST_CORS_ORIGINS",
			AllowedMethods: "TEST_CORS_METHODS",
		}
		if err := cfg.Finalize(env); err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if !cfg.Enabled {
			t.Error("enabled = false, want true")
		}
		if len(cfg.Origins) != 2 || cfg.Origins[1] != "http://b.local" {
			t.Errorf("origins = %v, want [http://a.local http://b.local]", cfg.Origins)
		}
		if len(cfg.AllowedMethods) != 2 || cfg.AllowedMethods[0] != "GET" {
			t.Errorf("methods = %v, want [GET POST]", cfg.AllowedMethods)
		}
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("TEST_CORS_ENABLED", "maybe")

		cfg := middleware.CORSConfig{}
		if err := cfg.Finalize(&middleware.CORSEnv{Enabled: "TEST_CORS_ENABLED"}); err == nil {
			t.Error("expected error for unparsable bool")
		}
	})

	t.Run("wildcard with credentials", func(t *testing.T) {
		cfg := middleware.CORSConfig{Origins: []string{"*"}, AllowCredentials: true}
		if err := cfg.Finalize(nil); !errors.Is(err, middleware.ErrWildcardCredentials) {
			t.Errorf("err = %v, want ErrWildcardCredentials", err)
		}
	})
}

func TestLoggerPassesStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestMetricsCountsByStatus(t *testing.T) {
	m := metrics.New()
	handler := middleware.Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for range 2 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/save_to_cache", nil))
	}

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "201")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
}
