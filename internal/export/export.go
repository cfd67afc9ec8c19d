// Package export renders analyses and history as spreadsheet-compatible
// CSV: UTF-8 with a byte-order mark, every cell quoted.
package export

import (
	"strings"
	"time"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/profiles"
)

const (
	// DateTimeLayout renders report timestamps in Chilean day-first order.
	DateTimeLayout = "02-01-2006, 15:04:05"
	// RecordTimeLayout renders history timestamps to the minute.
	RecordTimeLayout = "02-01-2006, 15:04"

	stampLayout = "20060102T150405"
	dayLayout   = "2006-01-02"
)

// Report renders the active result with its form. Detail rows follow the
// insertion order of the counts and shares are taken against the total.
func Report(r analysis.Result, form analysis.Form, user string, p profiles.Profile, now time.Time) []byte {
	var s sheet
	total := r.Counts.Total()

	s.row("REPORTE DE ANÁLISIS RANCOQC")
	s.blank()
	s.row("INFORMACIÓN GENERAL")
	s.row("Usuario:", user)
	s.row("Fecha y Hora:", now.Format(DateTimeLayout))
	s.row("Módulo:", strings.ToUpper(p.Module))
	s.row("Tipo de Análisis:", strings.ToUpper(strings.Replace(p.AnalysisType, "-", " ", 1)))
	s.blank()

	s.row("DATOS DE LA MUESTRA")
	s.row("Distribución:", string(form.Distribution))
	s.row("Guía SII:", form.ShippingGuide)
	s.row("Lote:", form.Lot)
	s.row("Número de Frutos:", itoa(form.FruitCount))
	if p.RequiresPackingFields {
		s.row("Número de Proceso:", form.ProcessNumber)
		s.row("ID de Caja:", form.BoxID)
	}
	s.blank()

	s.row("RESULTADOS DEL ANÁLISIS")
	s.row("Total de Defectos Detectados:", itoa(total))
	s.row("Zonas Analizadas:", itoa(r.ZonesLoaded))
	s.blank()

	s.row("DETALLE DE DEFECTOS")
	s.row("Zona/Defecto", "Cantidad", "Porcentaje")
	for label, n := range r.Counts.All() {
		s.row(label, itoa(n), share(n, total))
	}

	return s.bytes()
}

// Filename names an analysis report by lot and UTC timestamp.
func Filename(lot string, now time.Time) string {
	return "RancoQC_Analisis_" + lot + "_" + now.UTC().Format(stampLayout) + ".csv"
}

// RecordReport renders one history record. The detail section is omitted
// when the record carries no counts.
func RecordReport(rec analysis.Record) []byte {
	var s sheet

	s.row("REPORTE DE ANÁLISIS RANCOQC")
	s.blank()
	s.row("INFORMACIÓN GENERAL")
	s.row("ID:", rec.ID)
	s.row("Usuario:", rec.UserName)
	s.row("Fecha y Hora:", recordTime(rec.Timestamp))
	s.row("Tipo de Análisis:", profiles.DisplayName(rec.AnalysisType))
	s.row("Perfil:", profiles.DisplayName(rec.Profile))
	s.blank()

	s.row("DATOS DE LA MUESTRA")
	s.row("Distribución:", rec.Distribution)
	s.row("Guía SII:", rec.ShippingGuide)
	s.row("Lote:", rec.Lot)
	s.row("Número de Frutos:", itoa(rec.FruitCount))
	s.blank()

	s.row("RESULTADOS DEL ANÁLISIS")
	s.row("Total de Detecciones:", itoa(rec.TotalDetections))
	s.row("Zonas Analizadas:", itoa(rec.ZonesAnalyzed))
	s.blank()

	if rec.Results.Len() > 0 {
		s.row("DETALLE POR ZONA")
		s.row("Zona/Defecto", "Cantidad", "Porcentaje")
		for label, n := range rec.Results.All() {
			s.row(label, itoa(n), share(n, rec.TotalDetections))
		}
	}

	return s.bytes()
}

// RecordFilename names a record report by lot, id and UTC day.
func RecordFilename(rec analysis.Record, now time.Time) string {
	return "RancoQC_" + rec.Lot + "_" + rec.ID + "_" + now.UTC().Format(dayLayout) + ".csv"
}

// HistoryTable renders records as one row each under a short header.
func HistoryTable(records []analysis.Record, user string, now time.Time) []byte {
	var s sheet

	s.row("HISTORIAL DE ANÁLISIS RANCOQC")
	s.row("Fecha de Exportación:", now.Format(DateTimeLayout))
	s.row("Usuario:", user)
	s.row("Total de Registros:", itoa(len(records)))
	s.blank()

	s.row("ID", "Fecha/Hora", "Usuario", "Tipo", "Perfil", "Distribución",
		"Guía SII", "Lote", "Núm. Frutos", "Detecciones", "Zonas", "Estado")

	for _, rec := range records {
		state := "Pendiente"
		if rec.Synced {
			state = "Sincronizado"
		}
		s.row(
			rec.ID,
			recordTime(rec.Timestamp),
			rec.UserName,
			profiles.DisplayName(rec.AnalysisType),
			profiles.DisplayName(rec.Profile),
			rec.Distribution,
			rec.ShippingGuide,
			rec.Lot,
			itoa(rec.FruitCount),
			itoa(rec.TotalDetections),
			itoa(rec.ZonesAnalyzed),
			state,
		)
	}

	return s.bytes()
}

// HistoryFilename names a history export by UTC timestamp.
func HistoryFilename(now time.Time) string {
	return "RancoQC_Historial_" + now.UTC().Format(stampLayout) + ".csv"
}

func recordTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(RecordTimeLayout)
}
