package pending_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/pending"
	"github.com/JaimeStill/rancoqc/pkg/routes"
)

func setupMux(c pending.System) *http.ServeMux {
	h := c.Handler(1 << 20)
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes(), h.Legacy())
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewReader(body)))

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return rec, out
}

func TestHandlerRoundTrip(t *testing.T) {
	rec := &fakeRecorder{}
	mux := setupMux(openCache(t, rec))

	body, _ := json.Marshal(payload("Maria Soto", "L-1"))
	res, out := do(t, mux, "POST", "/save_to_cache", body)
	if res.Code != http.StatusCreated {
		t.Fatalf("save status = %d, want 201", res.Code)
	}
	if id, _ := out["cache_id"].(string); len(id) != 26 {
		t.Errorf("cache_id = %v, want a ulid", out["cache_id"])
	}

	_, out = do(t, mux, "GET", "/pending?status=pending", nil)
	if out["count"] != float64(1) {
		t.Errorf("pending count = %v, want 1", out["count"])
	}

	res, out = do(t, mux, "POST", "/sync_pending_data", []byte(`{"user_name":"Maria Soto"}`))
	if res.Code != http.StatusOK {
		t.Fatalf("sync status = %d, want 200", res.Code)
	}
	raw, _ := json.Marshal(out["sync_result"])
	var report analysis.SyncReport
	json.Unmarshal(raw, &report)
	if report.Synced != 1 {
		t.Errorf("sync_result = %+v, want 1 synced", report)
	}
	if rec.logs[0].UserName != "Maria Soto" {
		t.Errorf("logged user = %q, want Maria Soto", rec.logs[0].UserName)
	}

	_, out = do(t, mux, "POST", "/clear_local_cache", nil)
	if out["cleared"] != float64(1) || out["success"] != true {
		t.Errorf("clear = %v, want 1 cleared", out)
	}
}

func TestHandlerSyncWithoutBody(t *testing.T) {
	mux := setupMux(openCache(t, &fakeRecorder{}))

	res, out := do(t, mux, "POST", "/sync_pending_data", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	result, _ := out["sync_result"].(map[string]any)
	if !strings.Contains(result["message"].(string), "No hay datos") {
		t.Errorf("message = %v", result["message"])
	}
}

func TestHandlerSaveRejectsInvalid(t *testing.T) {
	mux := setupMux(openCache(t, &fakeRecorder{}))

	p := payload("", "L-1")
	body, _ := json.Marshal(p)
	res, out := do(t, mux, "POST", "/save_to_cache", body)
	if res.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.Code)
	}
	if out["success"] != false {
		t.Errorf("success = %v, want false", out["success"])
	}
}

func TestHandlerListRejectsUnknownStatus(t *testing.T) {
	mux := setupMux(openCache(t, &fakeRecorder{}))

	res, _ := do(t, mux, "GET", "/pending?status=lost", nil)
	if res.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.Code)
	}
}
