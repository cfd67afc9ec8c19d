// Package profiles defines the inspection profiles and the registry that
// resolves each profile's defect labels.
package profiles

import "slices"

// ID names an inspection profile.
type ID string

const (
	ReceptionQC   ID = "reception-qc"
	PackingQC     ID = "packing-qc"
	CounterSample ID = "counter-sample"
)

// DefaultDescription is shown for labels without a specific description.
const DefaultDescription = "Defecto detectado en zona específica"

// Profile is the display metadata and built-in label set of one inspection profile.
type Profile struct {
	ID ID
	// Wire is the identifier exchanged with the backend.
	Wire string
	// Name is the short display name used in reports.
	Name         string
	Description  string
	Title        string
	Module       string
	AnalysisType string
	// RequiresPackingFields marks profiles whose forms carry a process
	// number and a box id.
	RequiresPackingFields bool

	builtin      []string
	descriptions map[string]string
}

var qcLabels = []string{
	"FRUTO DOBLE", "HIJUELO", "DAÑO TRIPS", "DAÑO PLAGA", "VIROSIS",
	"FRUTO DEFORME", "HC ESTRELLA", "RUSSET", "HC MEDIALUNA", "HC SATURA",
	"PICADA DE PAJARO", "HERIDA ABIERTA", "PUDRICION HUMEDA", "PUDRICION SECA",
	"FRUTO DESHIDRATADO", "CRACKING CICATRIZADO", "SUTURA DE FORMA",
	"FRUTO SIN PEDICELO", "MACHUCON",
}

var qcDescriptions = map[string]string{
	"FRUTO DOBLE":          "Desarrollo anormal con duplicación",
	"HIJUELO":              "Brote secundario no deseado",
	"DAÑO TRIPS":           "Daño específico por trips",
	"DAÑO PLAGA":           "Daño causado por insectos plaga",
	"VIROSIS":              "Síntomas de infección viral",
	"FRUTO DEFORME":        "Desarrollo anormal de la forma",
	"HC ESTRELLA":          "Hendidura característica en forma de estrella",
	"RUSSET":               "Rugosidad superficial característica",
	"HC MEDIALUNA":         "Hendidura en forma de media luna",
	"HC SATURA":            "Hendidura de sutura saturada",
	"PICADA DE PAJARO":     "Perforaciones causadas por aves",
	"HERIDA ABIERTA":       "Lesión abierta en la superficie",
	"PUDRICION HUMEDA":     "Deterioro por hongos con humedad",
	"PUDRICION SECA":       "Deterioro sin presencia de humedad",
	"FRUTO DESHIDRATADO":   "Pérdida excesiva de humedad",
	"CRACKING CICATRIZADO": "Grietas que han cicatrizado",
	"SUTURA DE FORMA":      "Defecto en la línea de sutura",
	"FRUTO SIN PEDICELO":   "Ausencia del tallo del fruto",
	"MACHUCON":             "Daño físico por golpes o presión",
}

var packingLabels = []string{
	"BANDEJA_1", "BANDEJA_2", "BANDEJA_3", "BANDEJA_4",
	"CONTROL_CALIDAD", "DESCARTE", "EMPAQUE_FINAL", "ETIQUETADO",
}

var packingDescriptions = map[string]string{
	"BANDEJA_1":       "Detecciones en bandeja 1",
	"BANDEJA_2":       "Detecciones en bandeja 2",
	"BANDEJA_3":       "Detecciones en bandeja 3",
	"BANDEJA_4":       "Detecciones en bandeja 4",
	"CONTROL_CALIDAD": "Detecciones en zona de control de calidad",
	"DESCARTE":        "Detecciones en zona de descarte",
	"EMPAQUE_FINAL":   "Detecciones en zona de empaque final",
	"ETIQUETADO":      "Detecciones en zona de etiquetado",
}

var known = []Profile{
	{
		ID:           ReceptionQC,
		Wire:         "qc_recepcion",
		Name:         "QC Recepción",
		Description:  "Control de calidad en recepción",
		Title:        "QC Recepción T25",
		Module:       "recepcion",
		AnalysisType: "qc-recepcion",
		builtin:      qcLabels,
		descriptions: qcDescriptions,
	},
	{
		ID:                    PackingQC,
		Wire:                  "packing_qc",
		Name:                  "Packing QC",
		Description:           "Control de calidad en empaque",
		Title:                 "Packing QC T25",
		Module:                "packing",
		AnalysisType:          "packing-qc",
		RequiresPackingFields: true,
		builtin:               packingLabels,
		descriptions:          packingDescriptions,
	},
	{
		ID:           CounterSample,
		Wire:         "contramuestra",
		Name:         "Contramuestra",
		Description:  "Análisis de contramuestras",
		Title:        "Contramuestra T25",
		Module:       "contramuestra",
		AnalysisType: "contramuestra",
		builtin:      qcLabels,
		descriptions: qcDescriptions,
	},
}

// All returns the known profiles in selector order.
func All() []Profile {
	return slices.Clone(known)
}

// Resolve maps a profile id, wire id or analysis-type hint to a known
// profile. Unset or unrecognized values resolve to reception QC.
func Resolve(value string) Profile {
	if p, ok := Lookup(value); ok {
		return p
	}
	return known[0]
}

// Lookup is Resolve without the default.
func Lookup(value string) (Profile, bool) {
	for _, p := range known {
		if value == string(p.ID) || value == p.Wire || value == p.AnalysisType {
			return p, true
		}
	}
	return Profile{}, false
}

// DisplayName returns the report name of a profile given by any of its
// identifiers, or value itself when it names no known profile.
func DisplayName(value string) string {
	if p, ok := Lookup(value); ok {
		return p.Name
	}
	return value
}

// Builtin returns the label set used when the backend cannot be reached.
func (p Profile) Builtin() []string {
	return slices.Clone(p.builtin)
}

// Describe returns the display description of label within p.
func (p Profile) Describe(label string) string {
	if d, ok := p.descriptions[label]; ok {
		return d
	}
	return DefaultDescription
}
