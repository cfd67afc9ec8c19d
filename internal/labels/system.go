package labels

import "context"

// System defines the public contract for profile label operations.
type System interface {
	Handler(maxBodySize int64) *Handler

	// List returns the stored labels of a profile, or its built-in set when
	// none are stored.
	List(ctx context.Context, profile string) (List, error)
	Add(ctx context.Context, profile, defect string) (*Defect, error)
	Profiles() map[string]ProfileInfo
}
