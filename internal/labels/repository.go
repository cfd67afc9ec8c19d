package labels

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/JaimeStill/rancoqc/internal/profiles"
	"github.com/JaimeStill/rancoqc/pkg/query"
	"github.com/JaimeStill/rancoqc/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a label repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "labels"),
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, maxBodySize)
}

func (r *repo) List(ctx context.Context, profile string) (List, error) {
	p, ok := profiles.Lookup(profile)
	if !ok {
		return List{}, fmt.Errorf("%w: %s", ErrUnknownProfile, profile)
	}

	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("Profile", p.Wire).
		Build()

	stored, err := repository.QueryMany(ctx, r.db, q, args, scanDefect)
	if err != nil {
		return List{}, fmt.Errorf("query defects: %w", err)
	}

	if len(stored) == 0 {
		return List{Profile: p.Wire, Defects: p.Builtin(), Source: SourceBuiltin}, nil
	}

	names := make([]string, len(stored))
	for i, d := range stored {
		names[i] = d.Defect
	}
	return List{Profile: p.Wire, Defects: names, Source: SourceDatabase}, nil
}

// Add stores defect for profile. The first stored label seeds the table
// with the built-in set so the profile keeps its defaults.
func (r *repo) Add(ctx context.Context, profile, defect string) (*Defect, error) {
	p, ok := profiles.Lookup(profile)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, profile)
	}

	defect = strings.TrimSpace(defect)
	if defect == "" {
		return nil, ErrEmptyDefect
	}

	const insert = `
		INSERT INTO profile_defects(profile, defect)
		VALUES ($1, $2)
		RETURNING id, profile, defect, created_at`

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Defect, error) {
		var stored int
		if err := tx.QueryRowContext(
			ctx,
			"SELECT COUNT(*) FROM profile_defects WHERE profile = $1",
			p.Wire,
		).Scan(&stored); err != nil {
			return Defect{}, err
		}

		if stored == 0 {
			builtin := p.Builtin()
			if slices.Contains(builtin, defect) {
				return Defect{}, ErrDuplicate
			}
			for _, label := range builtin {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO profile_defects(profile, defect)
					VALUES ($1, $2)
					ON CONFLICT (profile, defect) DO NOTHING`,
					p.Wire, label,
				); err != nil {
					return Defect{}, err
				}
			}
		}

		return repository.QueryOne(ctx, tx, insert, []any{p.Wire, defect}, scanDefect)
	})
	if err != nil {
		return nil, errMap.Map(err)
	}

	r.logger.Info("defect added", "profile", d.Profile, "defect", d.Defect)
	return &d, nil
}

func (r *repo) Profiles() map[string]ProfileInfo {
	out := make(map[string]ProfileInfo)
	for _, p := range profiles.All() {
		out[p.Wire] = ProfileInfo{
			Name:                  p.Name,
			Description:           p.Description,
			AnalysisType:          p.AnalysisType,
			RequiresPackingFields: p.RequiresPackingFields,
		}
	}
	return out
}
