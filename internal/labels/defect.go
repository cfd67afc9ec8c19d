// Package labels stores the defect labels operators add to each inspection
// profile on top of the built-in sets.
package labels

import "time"

// Label sources reported by List.
const (
	SourceDatabase = "database"
	SourceBuiltin  = "builtin"
)

// Defect is a stored profile label.
type Defect struct {
	ID        int       `json:"id"`
	Profile   string    `json:"profile"`
	Defect    string    `json:"defect"`
	CreatedAt time.Time `json:"created_at"`
}

// List is the label set of one profile in insertion order.
type List struct {
	Profile string   `json:"profile"`
	Defects []string `json:"defects"`
	Source  string   `json:"source"`
}

// ProfileInfo describes a profile for the profile listing.
type ProfileInfo struct {
	Name                  string `json:"name"`
	Description           string `json:"description"`
	AnalysisType          string `json:"analysis_type"`
	RequiresPackingFields bool   `json:"requires_packing_fields"`
}
