package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/profiles"
)

type mockLabels struct {
	available map[string]bool
	addFn     func(label string) error
	added     []string
}

func (m *mockLabels) Has(_ profiles.Profile, label string) bool {
	return m.available[label]
}

func (m *mockLabels) AddLabel(_ context.Context, _ profiles.Profile, label string) error {
	m.added = append(m.added, label)
	if m.addFn != nil {
		return m.addFn(label)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeResponse(t *testing.T, body string) analysis.AnalyzeResponse {
	t.Helper()
	var resp analysis.AnalyzeResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func newWorkspace(labels *mockLabels) *analysis.Workspace {
	if labels == nil {
		labels = &mockLabels{}
	}
	return analysis.NewWorkspace(labels, testLogger())
}

func sum(c analysis.Counts) int {
	total := 0
	for _, n := range c.All() {
		total += n
	}
	return total
}

func TestCountsPreserveOrder(t *testing.T) {
	body := `{"RUSSET":2,"HIJUELO":0,"DAÑO TRIPS":5,"VIROSIS":1}`

	var c analysis.Counts
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []string{"RUSSET", "HIJUELO", "DAÑO TRIPS", "VIROSIS"}
	if !slices.Equal(c.Labels(), want) {
		t.Errorf("labels = %v, want %v", c.Labels(), want)
	}
	if c.Total() != 8 {
		t.Errorf("total = %d, want 8", c.Total())
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != body {
		t.Errorf("marshal = %s, want %s", out, body)
	}
}

func TestCountsUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
		wantErr bool
	}{
		{"null", `null`, 0, false},
		{"empty", `{}`, 0, false},
		{"negative clamped", `{"A":-3}`, 1, false},
		{"fraction", `{"A":1.5}`, 0, true},
		{"array", `[1,2]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c analysis.Counts
			err := json.Unmarshal([]byte(tt.body), &c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c.Len() != tt.wantLen {
				t.Errorf("len = %d, want %d", c.Len(), tt.wantLen)
			}
			if n, _ := c.Get("A"); n < 0 {
				t.Errorf("count = %d, want non-negative", n)
			}
		})
	}
}

func TestCountsCloneIndependent(t *testing.T) {
	var c analysis.Counts
	c.Set("RUSSET", 1)

	clone := c.Clone()
	clone.Set("RUSSET", 9)
	clone.Set("HIJUELO", 1)

	if n, _ := c.Get("RUSSET"); n != 1 {
		t.Errorf("original RUSSET = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("original len = %d, want 1", c.Len())
	}
}

func TestIngestReproducesResponse(t *testing.T) {
	resp := decodeResponse(t, `{
		"success": true,
		"results": {"HC ESTRELLA": 3, "RUSSET": 1, "MACHUCON": 2},
		"total_cherries": 99,
		"timestamp": "2026-03-02 10:15:00",
		"zones_loaded": 19
	}`)
	ws := newWorkspace(nil)

	r := ws.Ingest(resp, analysis.SourceUploadedFile)

	if !slices.Equal(r.Counts.Labels(), []string{"HC ESTRELLA", "RUSSET", "MACHUCON"}) {
		t.Errorf("labels = %v", r.Counts.Labels())
	}
	if r.Total() != 6 {
		t.Errorf("total = %d, want 6 (recomputed)", r.Total())
	}
	if r.ManuallyAltered {
		t.Error("manually altered = true, want false")
	}
	if r.State != analysis.Unsynced {
		t.Errorf("state = %s, want unsynced", r.State)
	}
	if r.Timestamp.Hour() != 10 || r.Timestamp.Minute() != 15 {
		t.Errorf("timestamp = %v", r.Timestamp)
	}
}

func TestIngestPersistedResponseIsSynced(t *testing.T) {
	resp := decodeResponse(t, `{"success":true,"results":{"RUSSET":1},"analysis_id":"rec-7","database_status":"saved_to_postgresql"}`)
	ws := newWorkspace(nil)

	r := ws.Ingest(resp, analysis.SourceManualEntry)
	if r.State != analysis.Synced || r.RemoteID != "rec-7" {
		t.Errorf("state = %s id = %s, want synced rec-7", r.State, r.RemoteID)
	}
}

func TestIngestResetsManualFlag(t *testing.T) {
	ws := newWorkspace(nil)
	ws.Ingest(analysis.AnalyzeResponse{}, analysis.SourceUploadedFile)
	if _, err := ws.Add("RUSSET", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	r := ws.Ingest(analysis.AnalyzeResponse{}, analysis.SourceUploadedFile)
	if r.ManuallyAltered {
		t.Error("manually altered survived ingest")
	}
}

func TestEditsKeepTotalConsistent(t *testing.T) {
	ws := newWorkspace(nil)
	ws.Ingest(decodeResponse(t, `{"results":{"A":2,"B":0,"C":5}}`), analysis.SourceUploadedFile)

	labels := []string{"A", "B", "C", "D"}
	rng := rand.New(rand.NewPCG(1, 2))

	for i := range 500 {
		label := labels[rng.IntN(len(labels))]
		var err error
		if rng.IntN(2) == 0 {
			_, err = ws.Adjust(label, rng.IntN(7)-3)
		} else {
			_, err = ws.SetCount(label, rng.IntN(10)-4)
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}

		r, err := ws.Snapshot()
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if r.Total() != sum(r.Counts) {
			t.Fatalf("step %d: total = %d, sum = %d", i, r.Total(), sum(r.Counts))
		}
		for label, n := range r.Counts.All() {
			if n < 0 {
				t.Fatalf("step %d: %s = %d", i, label, n)
			}
		}
	}
}

func TestAdjustAbsentLabelClampsToExplicitZero(t *testing.T) {
	ws := newWorkspace(nil)
	ws.Ingest(decodeResponse(t, `{"results":{"HIJUELO":2}}`), analysis.SourceUploadedFile)

	n, err := ws.Adjust("RUSSET", -1)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if n != 0 {
		t.Errorf("RUSSET = %d, want 0", n)
	}

	r, _ := ws.Snapshot()
	got, ok := r.Counts.Get("RUSSET")
	if !ok || got != 0 {
		t.Errorf("RUSSET = (%d, %v), want explicit zero", got, ok)
	}
	if r.ManuallyAltered {
		t.Error("adjust set the manual flag")
	}
}

func TestSetCountInput(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"7", 7},
		{" 3 ", 3},
		{"-4", 0},
		{"abc", 0},
		{"", 0},
		{"2.5", 0},
	}

	ws := newWorkspace(nil)
	ws.Ingest(analysis.AnalyzeResponse{}, analysis.SourceUploadedFile)

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ws.SetCountInput("RUSSET", tt.raw)
			if err != nil {
				t.Fatalf("set: %v", err)
			}
			if got != tt.want {
				t.Errorf("SetCountInput(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAddNew(t *testing.T) {
	p := profiles.Resolve("reception-qc")

	t.Run("existing profile label rejected without network", func(t *testing.T) {
		labels := &mockLabels{available: map[string]bool{"RUSSET": true}}
		ws := newWorkspace(labels)
		ws.Ingest(decodeResponse(t, `{"results":{"HIJUELO":1}}`), analysis.SourceUploadedFile)

		_, err := ws.AddNew(context.Background(), p, "RUSSET", 2, true)
		if !errors.Is(err, analysis.ErrLabelExists) {
			t.Fatalf("err = %v, want ErrLabelExists", err)
		}
		if len(labels.added) != 0 {
			t.Errorf("persistence calls = %d, want 0", len(labels.added))
		}

		r, _ := ws.Snapshot()
		if r.Counts.Len() != 1 || r.ManuallyAltered {
			t.Errorf("result mutated: %v manual=%v", r.Counts.Labels(), r.ManuallyAltered)
		}
	})

	t.Run("new label without persistence", func(t *testing.T) {
		labels := &mockLabels{}
		ws := newWorkspace(labels)
		ws.Ingest(analysis.AnalyzeResponse{}, analysis.SourceUploadedFile)

		out, err := ws.AddNew(context.Background(), p, "NEW_DEFECT", 3, false)
		if err != nil {
			t.Fatalf("add new: %v", err)
		}
		if out.Persist != analysis.PersistNotRequested {
			t.Errorf("persist = %s, want not-requested", out.Persist)
		}
		if len(labels.added) != 0 {
			t.Errorf("persistence calls = %d, want 0", len(labels.added))
		}

		r, _ := ws.Snapshot()
		if !slices.Equal(r.Counts.Labels(), []string{"NEW_DEFECT"}) {
			t.Errorf("labels = %v", r.Counts.Labels())
		}
		if r.Total() != 3 {
			t.Errorf("total = %d, want 3", r.Total())
		}
		if !r.ManuallyAltered {
			t.Error("manually altered = false, want true")
		}
	})

	t.Run("persistence failure still applies count", func(t *testing.T) {
		cause := errors.New("store unreachable")
		labels := &mockLabels{addFn: func(string) error { return cause }}
		ws := newWorkspace(labels)
		ws.Ingest(analysis.AnalyzeResponse{}, analysis.SourceUploadedFile)

		out, err := ws.AddNew(context.Background(), p, "  GOLPE SOL  ", 2, true)
		if err != nil {
			t.Fatalf("add new: %v", err)
		}
		if out.Persist != analysis.PersistFailed || !errors.Is(out.PersistErr, cause) {
			t.Errorf("outcome = %+v, want persist failed", out)
		}

		r, _ := ws.Snapshot()
		if n, _ := r.Counts.Get("GOLPE SOL"); n != 2 {
			t.Errorf("GOLPE SOL = %d, want 2", n)
		}
	})

	t.Run("persisted and incremented", func(t *testing.T) {
		labels := &mockLabels{}
		ws := newWorkspace(labels)
		ws.Ingest(decodeResponse(t, `{"results":{"GOLPE SOL":1}}`), analysis.SourceUploadedFile)

		out, err := ws.AddNew(context.Background(), p, "GOLPE SOL", 2, true)
		if err != nil {
			t.Fatalf("add new: %v", err)
		}
		if out.Persist != analysis.Persisted || out.Count != 3 {
			t.Errorf("outcome = %+v, want persisted count 3", out)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		ws := newWorkspace(nil)
		ws.Ingest(analysis.AnalyzeResponse{}, analysis.SourceUploadedFile)

		if _, err := ws.AddNew(context.Background(), p, "   ", 1, false); !errors.Is(err, analysis.ErrEmptyLabel) {
			t.Errorf("blank label err = %v", err)
		}
		if _, err := ws.AddNew(context.Background(), p, "X", 0, false); !errors.Is(err, analysis.ErrInvalidCount) {
			t.Errorf("zero count err = %v", err)
		}
	})
}

func TestEditsRequireActiveResult(t *testing.T) {
	ws := newWorkspace(nil)
	p := profiles.Resolve("")

	checks := map[string]error{}
	_, checks["adjust"] = ws.Adjust("A", 1)
	_, checks["set"] = ws.SetCount("A", 1)
	_, checks["add"] = ws.Add("A", 1)
	_, checks["add new"] = ws.AddNew(context.Background(), p, "A", 1, false)
	_, checks["snapshot"] = ws.Snapshot()
	checks["mark synced"] = ws.MarkSynced(0, "x")
	checks["mark failed"] = ws.MarkSyncFailed(0)

	for name, err := range checks {
		if !errors.Is(err, analysis.ErrNoActiveResult) {
			t.Errorf("%s err = %v, want ErrNoActiveResult", name, err)
		}
	}
}

func TestSyncStateTransitions(t *testing.T) {
	ws := newWorkspace(nil)
	gen := ws.Ingest(analysis.AnalyzeResponse{}, analysis.SourceUploadedFile).Generation

	if err := ws.MarkSyncFailed(gen); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	r, _ := ws.Snapshot()
	if r.State != analysis.SyncFailed {
		t.Errorf("state = %s, want sync-failed", r.State)
	}

	if err := ws.MarkSynced(gen, "rec-1"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := ws.MarkSyncFailed(gen); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	r, _ = ws.Snapshot()
	if r.State != analysis.Synced || r.RemoteID != "rec-1" {
		t.Errorf("state = %s id = %s, want synced rec-1", r.State, r.RemoteID)
	}
}

func TestSyncStateIgnoresReplacedResult(t *testing.T) {
	ws := newWorkspace(nil)
	old := ws.Ingest(analysis.AnalyzeResponse{}, analysis.SourceUploadedFile)

	ws.Reset()
	if err := ws.MarkSynced(old.Generation, "rec-old"); !errors.Is(err, analysis.ErrNoActiveResult) {
		t.Errorf("after reset err = %v, want ErrNoActiveResult", err)
	}

	current := ws.Ingest(analysis.AnalyzeResponse{}, analysis.SourceUploadedFile)
	if current.Generation == old.Generation {
		t.Fatal("new result reuses generation")
	}

	if err := ws.MarkSynced(old.Generation, "rec-old"); !errors.Is(err, analysis.ErrStaleResult) {
		t.Errorf("mark synced err = %v, want ErrStaleResult", err)
	}
	if err := ws.MarkSyncFailed(old.Generation); !errors.Is(err, analysis.ErrStaleResult) {
		t.Errorf("mark failed err = %v, want ErrStaleResult", err)
	}

	r, _ := ws.Snapshot()
	if r.State != analysis.Unsynced || r.RemoteID != "" {
		t.Errorf("state = %s id = %q, want unsynced with no id", r.State, r.RemoteID)
	}
}

func TestFormValidate(t *testing.T) {
	base := analysis.Form{
		Distribution:  analysis.Red,
		ShippingGuide: "G-100",
		Lot:           "L-2201",
		FruitCount:    100,
	}

	tests := []struct {
		name    string
		profile string
		mutate  func(*analysis.Form)
		want    []string
	}{
		{"reception complete", "reception-qc", func(*analysis.Form) {}, nil},
		{"packing without packing fields", "packing-qc", func(*analysis.Form) {}, []string{"num-proceso", "id-caja"}},
		{"packing missing box", "packing-qc", func(f *analysis.Form) { f.ProcessNumber = "P-4" }, []string{"id-caja"}},
		{"packing complete", "packing-qc", func(f *analysis.Form) { f.ProcessNumber = "P-4"; f.BoxID = "C-9" }, nil},
		{"blank lot", "counter-sample", func(f *analysis.Form) { f.Lot = "  " }, []string{"lote"}},
		{"zero fruit", "reception-qc", func(f *analysis.Form) { f.FruitCount = 0 }, []string{"num-frutos"}},
		{"no distribution", "reception-qc", func(f *analysis.Form) { f.Distribution = "" }, []string{"distribucion"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mutate(&f)

			err := f.Validate(profiles.Resolve(tt.profile))
			if tt.want == nil {
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				return
			}

			var verr *analysis.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if !slices.Equal(verr.Fields, tt.want) {
				t.Errorf("fields = %v, want %v", verr.Fields, tt.want)
			}
		})
	}
}

func TestParseDistribution(t *testing.T) {
	for input, want := range map[string]analysis.Distribution{
		"red": analysis.Red, "roja": analysis.Red, "Bicolor": analysis.Bicolor,
	} {
		got, ok := analysis.ParseDistribution(input)
		if !ok || got != want {
			t.Errorf("ParseDistribution(%q) = (%s, %v)", input, got, ok)
		}
	}
	if _, ok := analysis.ParseDistribution("amarilla"); ok {
		t.Error("unknown distribution accepted")
	}
}

func TestFormDataPackingFields(t *testing.T) {
	f := analysis.Form{Distribution: analysis.Bicolor, ShippingGuide: "G", Lot: "L", FruitCount: 5, ProcessNumber: "P", BoxID: "B"}

	reception := f.Data(profiles.Resolve("reception-qc"), "Ana")
	if reception.ProcessNumber != nil || reception.BoxID != nil {
		t.Error("reception form carries packing fields")
	}
	if reception.Profile != "qc_recepcion" || reception.AnalysisType != "qc-recepcion" {
		t.Errorf("profile = %s type = %s", reception.Profile, reception.AnalysisType)
	}

	packing := f.Data(profiles.Resolve("packing-qc"), "Ana")
	if packing.ProcessNumber == nil || *packing.ProcessNumber != "P" || packing.BoxID == nil || *packing.BoxID != "B" {
		t.Error("packing form missing packing fields")
	}
}

func TestPayload(t *testing.T) {
	ws := newWorkspace(nil)
	ws.Ingest(decodeResponse(t, `{"results":{"B":1,"A":2},"zones_loaded":2,"processed_image":"/api/images/p.jpg"}`), analysis.SourceUploadedFile)
	r, _ := ws.Snapshot()

	payload := analysis.Payload(r, analysis.FormData{User: "Ana"}, analysis.SourceUploadedFile)

	if payload.AnalysisData.SourceType != "uploaded_file" {
		t.Errorf("source = %s", payload.AnalysisData.SourceType)
	}
	if payload.ResultsData.TotalCherries != 3 {
		t.Errorf("total = %d, want 3", payload.ResultsData.TotalCherries)
	}
	if payload.ResultsData.ConfidenceUsed != analysis.DefaultConfidence {
		t.Errorf("confidence = %v, want default", payload.ResultsData.ConfidenceUsed)
	}
	if payload.ResultsData.ProcessedImage == nil || *payload.ResultsData.ProcessedImage != "/api/images/p.jpg" {
		t.Error("processed image missing")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		ResultsData struct {
			Results          json.RawMessage `json:"results"`
			DetectionsByZone json.RawMessage `json:"detections_by_zone"`
		} `json:"results_data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(decoded.ResultsData.Results) != `{"B":1,"A":2}` {
		t.Errorf("results = %s", decoded.ResultsData.Results)
	}
	if string(decoded.ResultsData.DetectionsByZone) != `{}` {
		t.Errorf("detections = %s", decoded.ResultsData.DetectionsByZone)
	}
}

func TestRecordPayload(t *testing.T) {
	var results analysis.Counts
	results.Set("RUSSET", 4)

	payload := analysis.RecordPayload(analysis.Record{
		ID: "local-1", UserName: "Ana", Profile: "contramuestra", Lot: "L-1",
		FruitCount: 50, TotalDetections: 4, ZonesAnalyzed: 19, Results: results,
	})

	if payload.AnalysisData.SourceType != analysis.SourceHistoricalUpload {
		t.Errorf("source = %s", payload.AnalysisData.SourceType)
	}
	if payload.AnalysisData.ConfidenceUsed != 0.8 {
		t.Errorf("confidence = %v, want 0.8", payload.AnalysisData.ConfidenceUsed)
	}
	if !slices.Equal(payload.ResultsData.ZonesAvailable, []string{"RUSSET"}) {
		t.Errorf("zones = %v", payload.ResultsData.ZonesAvailable)
	}
	if payload.AnalysisData.CacheID != "local-1" {
		t.Errorf("cache id = %q, want local-1", payload.AnalysisData.CacheID)
	}

	synced := analysis.RecordPayload(analysis.Record{ID: "rec-9", Synced: true, Results: results})
	if synced.AnalysisData.CacheID != "" {
		t.Errorf("synced record cache id = %q, want empty", synced.AnalysisData.CacheID)
	}
}
