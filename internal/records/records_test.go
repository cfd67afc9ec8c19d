package records_test

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/records"
)

func ptr[T any](v T) *T { return &v }

func validPayload() analysis.UploadPayload {
	var counts analysis.Counts
	counts.Set("RUSSET", 3)
	counts.Set("HIJUELO", 0)
	counts.Set("DAÑO TRIPS", 2)

	return analysis.UploadPayload{
		AnalysisData: analysis.AnalysisData{SourceType: analysis.SourceUploadedFile, ConfidenceUsed: 0.8},
		FormData: analysis.FormData{
			User:          "Maria Soto",
			Profile:       "qc_recepcion",
			AnalysisType:  "qc-recepcion",
			Distribution:  "roja",
			ShippingGuide: "GS-4411",
			Lot:           "L-88",
			FruitCount:    100,
		},
		ResultsData: analysis.ResultsData{
			Results:       counts,
			TotalCherries: 5,
			ZonesLoaded:   19,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*analysis.UploadPayload)
		valid  bool
	}{
		{"complete reception payload", func(*analysis.UploadPayload) {}, true},
		{"packing with both fields", func(p *analysis.UploadPayload) {
			p.FormData.Profile = "packing_qc"
			p.FormData.ProcessNumber = ptr("P-7")
			p.FormData.BoxID = ptr("C-12")
		}, true},
		{"packing without box id", func(p *analysis.UploadPayload) {
			p.FormData.Profile = "packing_qc"
			p.FormData.ProcessNumber = ptr("P-7")
		}, false},
		{"packing with empty process number", func(p *analysis.UploadPayload) {
			p.FormData.Profile = "packing_qc"
			p.FormData.ProcessNumber = ptr("")
			p.FormData.BoxID = ptr("C-12")
		}, false},
		{"zero fruit count", func(p *analysis.UploadPayload) { p.FormData.FruitCount = 0 }, false},
		{"missing lot", func(p *analysis.UploadPayload) { p.FormData.Lot = "" }, false},
		{"missing operator", func(p *analysis.UploadPayload) { p.FormData.User = "" }, false},
		{"unknown profile", func(p *analysis.UploadPayload) { p.FormData.Profile = "otro" }, false},
		{"confidence above one", func(p *analysis.UploadPayload) { p.AnalysisData.ConfidenceUsed = 1.5 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(&p)

			err := records.Validate(p)
			if tt.valid && err != nil {
				t.Fatalf("validate: %v", err)
			}
			if !tt.valid {
				var verr *records.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("err = %v, want *ValidationError", err)
				}
				if !errors.Is(err, records.ErrInvalidPayload) {
					t.Error("ValidationError does not unwrap to ErrInvalidPayload")
				}
				if len(verr.Details) == 0 {
					t.Error("no validation details")
				}
			}
		})
	}
}

func TestAnalysisRecord(t *testing.T) {
	var counts analysis.Counts
	counts.Set("B", 1)
	counts.Set("A", 2)

	a := records.Analysis{
		UserName:      "Maria Soto",
		Lot:           "L-88",
		ProcessNumber: ptr("P-7"),
		Results:       counts,
	}
	rec := a.Record()

	if !rec.Synced {
		t.Error("synced = false, want true")
	}
	if rec.ProcessNumber != "P-7" || rec.BoxID != "" {
		t.Errorf("packing fields = %q/%q, want P-7/empty", rec.ProcessNumber, rec.BoxID)
	}
	if got := strings.Join(rec.Results.Labels(), ","); got != "B,A" {
		t.Errorf("labels = %s, want B,A", got)
	}

	rec.Results.Set("C", 9)
	if a.Results.Len() != 2 {
		t.Error("record shares counts with the stored analysis")
	}
}

func TestRecordPayloadValidates(t *testing.T) {
	var counts analysis.Counts
	counts.Set("RUSSET", 3)

	tests := []struct {
		name    string
		rec     analysis.Record
		process *string
		box     *string
	}{
		{
			name: "packing record keeps process and box",
			rec: analysis.Record{
				ID: "01J9Z", UserName: "Ana", Profile: "packing_qc", AnalysisType: "packing-qc",
				Distribution: "D-1", ShippingGuide: "G-1", Lot: "L-1", FruitCount: 40,
				ProcessNumber: "P-7", BoxID: "C-12", Results: counts,
			},
			process: ptr("P-7"),
			box:     ptr("C-12"),
		},
		{
			name: "reception record sends null packing fields",
			rec: analysis.Record{
				ID: "01J9Y", UserName: "Ana", Profile: "qc_recepcion", AnalysisType: "qc-recepcion",
				Distribution: "D-1", ShippingGuide: "G-1", Lot: "L-2", FruitCount: 40,
				ProcessNumber: "stale", Results: counts,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := analysis.RecordPayload(tt.rec)

			if err := records.Validate(payload); err != nil {
				t.Fatalf("validate: %v", err)
			}
			if !equalPtr(payload.FormData.ProcessNumber, tt.process) {
				t.Errorf("num_proceso = %v, want %v", payload.FormData.ProcessNumber, tt.process)
			}
			if !equalPtr(payload.FormData.BoxID, tt.box) {
				t.Errorf("id_caja = %v, want %v", payload.FormData.BoxID, tt.box)
			}
		})
	}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestFiltersFromQuery(t *testing.T) {
	f := records.FiltersFromQuery(url.Values{
		"user_name":     {"Maria Soto"},
		"analysis_type": {"packing-qc"},
	})
	if f.UserName == nil || *f.UserName != "Maria Soto" {
		t.Errorf("user_name = %v, want Maria Soto", f.UserName)
	}
	if f.AnalysisType == nil || *f.AnalysisType != "packing-qc" {
		t.Errorf("analysis_type = %v, want packing-qc", f.AnalysisType)
	}
	if f.Lot != nil || f.Profile != nil || f.From != nil {
		t.Error("unset filters are not nil")
	}
}

func TestFiltersDateRange(t *testing.T) {
	f := records.FiltersFromQuery(url.Values{
		"from": {"2024-12-01"},
		"to":   {"2024-12-03"},
	})
	if f.From == nil || !f.From.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", f.From)
	}
	if f.To == nil || !f.To.Equal(time.Date(2024, 12, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to = %v, want the day after the inclusive bound", f.To)
	}

	if bad := records.FiltersFromQuery(url.Values{"from": {"yesterday"}}); bad.From != nil {
		t.Errorf("unparseable from = %v, want nil", bad.From)
	}
}
