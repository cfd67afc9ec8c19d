package export_test

import (
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/export"
	"github.com/JaimeStill/rancoqc/internal/profiles"
)

var exportedAt = time.Date(2026, 3, 2, 14, 30, 5, 0, time.UTC)

func lines(t *testing.T, data []byte) []string {
	t.Helper()
	s := string(data)
	if !strings.HasPrefix(s, "\ufeff") {
		t.Fatal("missing byte-order mark")
	}
	return strings.Split(strings.TrimPrefix(s, "\ufeff"), "\n")
}

func sampleResult() analysis.Result {
	var r analysis.Result
	r.Counts.Set("RUSSET", 2)
	r.Counts.Set("HIJUELO", 0)
	r.Counts.Set("VIROSIS", 1)
	r.ZonesLoaded = 19
	return r
}

func sampleForm() analysis.Form {
	return analysis.Form{
		Distribution:  analysis.Red,
		ShippingGuide: "G-100",
		Lot:           "L-2201",
		FruitCount:    100,
		ProcessNumber: "P-4",
		BoxID:         "C-9",
	}
}

func TestReportLayout(t *testing.T) {
	data := export.Report(sampleResult(), sampleForm(), "Ana Rojas", profiles.Resolve("reception-qc"), exportedAt)
	got := lines(t, data)

	want := []string{
		`"REPORTE DE ANÁLISIS RANCOQC"`,
		`""`,
		`"INFORMACIÓN GENERAL"`,
		`"Usuario:","Ana Rojas"`,
		`"Fecha y Hora:","02-03-2026, 14:30:05"`,
		`"Módulo:","RECEPCION"`,
		`"Tipo de Análisis:","QC RECEPCION"`,
		`""`,
		`"DATOS DE LA MUESTRA"`,
		`"Distribución:","roja"`,
		`"Guía SII:","G-100"`,
		`"Lote:","L-2201"`,
		`"Número de Frutos:","100"`,
		`""`,
		`"RESULTADOS DEL ANÁLISIS"`,
		`"Total de Defectos Detectados:","3"`,
		`"Zonas Analizadas:","19"`,
		`""`,
		`"DETALLE DE DEFECTOS"`,
		`"Zona/Defecto","Cantidad","Porcentaje"`,
		`"RUSSET","2","66.67%"`,
		`"HIJUELO","0","0.00%"`,
		`"VIROSIS","1","33.33%"`,
	}

	if len(got) != len(want) {
		t.Fatalf("rows = %d, want %d\n%s", len(got), len(want), data)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestReportPackingRows(t *testing.T) {
	data := string(export.Report(sampleResult(), sampleForm(), "Ana", profiles.Resolve("packing-qc"), exportedAt))

	for _, row := range []string{`"Número de Proceso:","P-4"`, `"ID de Caja:","C-9"`, `"Módulo:","PACKING"`, `"Tipo de Análisis:","PACKING QC"`} {
		if !strings.Contains(data, row) {
			t.Errorf("missing row %s", row)
		}
	}

	reception := string(export.Report(sampleResult(), sampleForm(), "Ana", profiles.Resolve("reception-qc"), exportedAt))
	if strings.Contains(reception, "ID de Caja") {
		t.Error("reception report carries packing rows")
	}
}

func TestReportEmptyCounts(t *testing.T) {
	got := lines(t, export.Report(analysis.Result{}, sampleForm(), "Ana", profiles.Resolve(""), exportedAt))

	if last := got[len(got)-1]; last != `"Zona/Defecto","Cantidad","Porcentaje"` {
		t.Errorf("last row = %s, want detail header", last)
	}
}

func TestReportEscapesQuotes(t *testing.T) {
	form := sampleForm()
	form.Lot = `L "A"`

	data := string(export.Report(sampleResult(), form, "Ana", profiles.Resolve(""), exportedAt))
	if !strings.Contains(data, `"Lote:","L ""A"""`) {
		t.Errorf("embedded quotes not doubled:\n%s", data)
	}
}

func TestFilenames(t *testing.T) {
	local := exportedAt.In(time.FixedZone("CLT", -3*3600))

	if got := export.Filename("L-2201", local); got != "RancoQC_Analisis_L-2201_20260302T143005.csv" {
		t.Errorf("Filename = %s", got)
	}
	if got := export.HistoryFilename(local); got != "RancoQC_Historial_20260302T143005.csv" {
		t.Errorf("HistoryFilename = %s", got)
	}

	rec := analysis.Record{ID: "42", Lot: "L-9"}
	if got := export.RecordFilename(rec, local); got != "RancoQC_L-9_42_2026-03-02.csv" {
		t.Errorf("RecordFilename = %s", got)
	}
}

func TestRecordReport(t *testing.T) {
	var results analysis.Counts
	results.Set("MACHUCON", 1)
	results.Set("RUSSET", 3)

	rec := analysis.Record{
		ID:              "42",
		Timestamp:       time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC),
		UserName:        "Ana",
		AnalysisType:    "packing_qc",
		Profile:         "packing_qc",
		Distribution:    "bicolor",
		Lot:             "L-9",
		FruitCount:      50,
		TotalDetections: 4,
		ZonesAnalyzed:   8,
		Results:         results,
	}

	data := string(export.RecordReport(rec))
	for _, row := range []string{
		`"ID:","42"`,
		`"Fecha y Hora:","01-03-2026, 09:05"`,
		`"Tipo de Análisis:","Packing QC"`,
		`"Perfil:","Packing QC"`,
		`"Total de Detecciones:","4"`,
		`"DETALLE POR ZONA"`,
		"\"MACHUCON\",\"1\",\"25.00%\"\n\"RUSSET\",\"3\",\"75.00%\"",
	} {
		if !strings.Contains(data, row) {
			t.Errorf("missing %s", row)
		}
	}

	rec.Results = analysis.Counts{}
	if strings.Contains(string(export.RecordReport(rec)), "DETALLE POR ZONA") {
		t.Error("detail section present without results")
	}
}

func TestHistoryTable(t *testing.T) {
	records := []analysis.Record{
		{ID: "1", UserName: "Ana", Profile: "qc_recepcion", AnalysisType: "qc_recepcion", Synced: true},
		{ID: "local-2", UserName: "Luis", Profile: "unknown", AnalysisType: "unknown"},
	}

	got := lines(t, export.HistoryTable(records, "Ana", exportedAt))

	if len(got) != 8 {
		t.Fatalf("rows = %d, want 8", len(got))
	}
	if got[3] != `"Total de Registros:","2"` {
		t.Errorf("count row = %s", got[3])
	}
	if !strings.HasPrefix(got[6], `"1","-","Ana","QC Recepción","QC Recepción"`) || !strings.HasSuffix(got[6], `"Sincronizado"`) {
		t.Errorf("synced row = %s", got[6])
	}
	if !strings.Contains(got[7], `"unknown","unknown"`) || !strings.HasSuffix(got[7], `"Pendiente"`) {
		t.Errorf("pending row = %s", got[7])
	}
}
