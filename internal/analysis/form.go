package analysis

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/rancoqc/internal/profiles"
)

// Distribution is the fruit color category of a sample.
type Distribution string

const (
	Red     Distribution = "roja"
	Bicolor Distribution = "bicolor"
)

// ParseDistribution accepts the wire values and their English names.
func ParseDistribution(s string) (Distribution, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "roja", "red":
		return Red, true
	case "bicolor":
		return Bicolor, true
	}
	return "", false
}

// Form field keys reported by ValidationError.
const (
	FieldDistribution  = "distribucion"
	FieldShippingGuide = "guia-sii"
	FieldLot           = "lote"
	FieldFruitCount    = "num-frutos"
	FieldProcessNumber = "num-proceso"
	FieldBoxID         = "id-caja"
)

// Form is the sample metadata entered by the operator.
type Form struct {
	Distribution  Distribution
	ShippingGuide string
	Lot           string
	FruitCount    int
	ProcessNumber string
	BoxID         string
}

// ValidationError lists the form fields that block an action.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Validate checks the base fields and, for profiles that require them,
// the packing fields. A fruit count below one counts as missing.
func (f Form) Validate(p profiles.Profile) error {
	var missing []string

	if f.Distribution != Red && f.Distribution != Bicolor {
		missing = append(missing, FieldDistribution)
	}
	if blank(f.ShippingGuide) {
		missing = append(missing, FieldShippingGuide)
	}
	if blank(f.Lot) {
		missing = append(missing, FieldLot)
	}
	if f.FruitCount < 1 {
		missing = append(missing, FieldFruitCount)
	}
	if p.RequiresPackingFields {
		if blank(f.ProcessNumber) {
			missing = append(missing, FieldProcessNumber)
		}
		if blank(f.BoxID) {
			missing = append(missing, FieldBoxID)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Data renders the form as upload form data stamped with user. Packing
// fields are sent only for profiles that require them.
func (f Form) Data(p profiles.Profile, user string) FormData {
	data := FormData{
		User:          user,
		Profile:       p.Wire,
		AnalysisType:  p.AnalysisType,
		Distribution:  string(f.Distribution),
		ShippingGuide: strings.TrimSpace(f.ShippingGuide),
		Lot:           strings.TrimSpace(f.Lot),
		FruitCount:    f.FruitCount,
	}
	if p.RequiresPackingFields {
		process := strings.TrimSpace(f.ProcessNumber)
		box := strings.TrimSpace(f.BoxID)
		data.ProcessNumber = &process
		data.BoxID = &box
	}
	return data
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
