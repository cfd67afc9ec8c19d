package module_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/rancoqc/pkg/middleware"
	"github.com/JaimeStill/rancoqc/pkg/module"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

func TestNewInvalidPrefixPanics(t *testing.T) {
	for _, prefix := range []string{"", "/", "api", "/api/v1"} {
		t.Run(prefix, func(t *testing.T) {
			defer func() {
				err, _ := recover().(error)
				if !errors.Is(err, module.ErrInvalidPrefix) {
					t.Errorf("New(%q) panic = %v, want ErrInvalidPrefix", prefix, err)
				}
			}()
			module.New(prefix, http.NewServeMux())
		})
	}
}

func TestServePrefixStripping(t *testing.T) {
	mux := http.NewServeMux()

	var receivedPath string
	mux.HandleFunc("GET /defects/{profile}", func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
	})

	m := module.New("/api", mux)
	req := httptest.NewRequest("GET", "/api/defects/packing_qc", nil)
	m.Serve(httptest.NewRecorder(), req)

	if receivedPath != "/defects/packing_qc" {
		t.Errorf("inner path = %s, want /defects/packing_qc", receivedPath)
	}
	if req.URL.Path != "/api/defects/packing_qc" {
		t.Errorf("caller path changed to %s", req.URL.Path)
	}
}

func TestModuleMiddleware(t *testing.T) {
	var seen []string
	mark := func(name string) middleware.Func {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = append(seen, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	m := module.New("/api", http.NotFoundHandler(), mark("ctor"))
	m.Use(mark("use"))
	m.Serve(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/labels", nil))

	if len(seen) != 2 || seen[0] != "ctor" || seen[1] != "use" {
		t.Errorf("middleware order = %v, want [ctor use]", seen)
	}
}

func TestMountDuplicatePrefixPanics(t *testing.T) {
	router := module.NewRouter()
	router.Mount(module.New("/api", http.NewServeMux()))

	defer func() {
		if recover() == nil {
			t.Error("second Mount at /api did not panic")
		}
	}()
	router.Mount(module.New("/api", http.NewServeMux()))
}

func TestRouterDispatch(t *testing.T) {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /session_check", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", apiMux))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	tests := []struct {
		path string
		want string
	}{
		{"/api/session_check", "api"},
		{"/api/session_check/", "api"},
		{"/healthz", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.want)
			}
		})
	}
}

func TestMountRoutesAppliesMiddleware(t *testing.T) {
	var wrapped int
	mw := middleware.New(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped++
			next.ServeHTTP(w, r)
		})
	})

	router := module.NewRouter()
	router.MountRoutes(mw, routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/save_to_cache", Handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
			}},
			{Method: "GET", Pattern: "/get_analysis_history", Handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}},
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/save_to_cache", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/get_analysis_history", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	if wrapped != 2 {
		t.Errorf("middleware calls = %d, want 2", wrapped)
	}
}
