package labels

import (
	"github.com/JaimeStill/rancoqc/pkg/query"
	"github.com/JaimeStill/rancoqc/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "profile_defects", "pd").
	Project("id", "ID").
	Project("profile", "Profile").
	Project("defect", "Defect").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{Field: "ID"}

func scanDefect(s repository.Scanner) (Defect, error) {
	var d Defect
	err := s.Scan(&d.ID, &d.Profile, &d.Defect, &d.CreatedAt)
	return d, err
}
