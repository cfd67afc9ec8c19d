// Package submission sends finished analyses to the remote store and falls
// back to the backend's local pending cache when the store is unreachable.
package submission

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/profiles"
	"github.com/JaimeStill/rancoqc/internal/session"
)

// Store is the primary persistence path. Upload returns the remote id.
type Store interface {
	Upload(ctx context.Context, payload analysis.UploadPayload) (string, error)
}

// Cache is the fallback path used when the store rejects an upload.
type Cache interface {
	Save(ctx context.Context, payload analysis.UploadPayload) error
}

// Target is the result being submitted and receives its sync state. Marks
// name the generation of the snapshot they apply to and are refused once
// that result has been replaced.
type Target interface {
	Snapshot() (analysis.Result, error)
	MarkSynced(gen uint64, id string) error
	MarkSyncFailed(gen uint64) error
}

// Outcome is the terminal state of a submission.
type Outcome string

const (
	OutcomeSynced        Outcome = "synced"
	OutcomeStoredLocally Outcome = "stored-locally"
	OutcomeAlreadySynced Outcome = "already-synced"
	OutcomeFailed        Outcome = "failed"
)

// Receipt describes a completed submission. PrimaryErr is set when the
// result was stored locally.
type Receipt struct {
	Outcome    Outcome
	RemoteID   string
	PrimaryErr error
}

// Pipeline submits results with a single fallback attempt.
type Pipeline struct {
	store  Store
	cache  Cache
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a pipeline over store and cache.
func New(store Store, cache Cache, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		cache:  cache,
		logger: logger.With("system", "submission"),
		tracer: otel.Tracer("rancoqc/submission"),
	}
}

// Submit validates the session and form, then uploads the target's result.
// Nothing touches the network until both checks pass. A result that is
// already synced is reported as such without a network call. Otherwise the
// store is always tried before the cache and each path is tried once.
func (p *Pipeline) Submit(ctx context.Context, t Target, prof profiles.Profile, form analysis.Form, s *session.Session) (Receipt, error) {
	name, ok := session.SafeDisplayName(s)
	if !ok {
		return Receipt{Outcome: OutcomeFailed}, ErrUnsafeSession
	}
	if err := form.Validate(prof); err != nil {
		return Receipt{Outcome: OutcomeFailed}, err
	}

	result, err := t.Snapshot()
	if err != nil {
		return Receipt{Outcome: OutcomeFailed}, err
	}
	if result.State == analysis.Synced {
		return Receipt{Outcome: OutcomeAlreadySynced, RemoteID: result.RemoteID}, nil
	}

	ctx, span := p.tracer.Start(ctx, "submission.submit", trace.WithAttributes(
		attribute.String("profile", prof.Wire),
		attribute.String("lot", form.Lot),
		attribute.Int("total", result.Total()),
	))
	defer span.End()

	payload := analysis.Payload(result, form.Data(prof, name), analysis.SourceUploadedFile)

	id, primary := p.store.Upload(ctx, payload)
	if primary == nil {
		if err := t.MarkSynced(result.Generation, id); err != nil {
			p.logger.Warn("result replaced during upload", "id", id, "error", err)
		}
		span.SetAttributes(attribute.String("outcome", string(OutcomeSynced)))
		p.logger.Info("analysis synced", "id", id, "lot", form.Lot)
		return Receipt{Outcome: OutcomeSynced, RemoteID: id}, nil
	}

	p.logger.Warn("upload failed, saving to local cache", "lot", form.Lot, "error", primary)

	if fallback := p.cache.Save(ctx, payload); fallback != nil {
		p.logger.Error("local cache save failed", "lot", form.Lot, "error", fallback)
		if err := t.MarkSyncFailed(result.Generation); err != nil {
			p.logger.Warn("mark sync failed", "error", err)
		}
		err := &SubmitError{Primary: primary, Fallback: fallback}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return Receipt{Outcome: OutcomeFailed, PrimaryErr: primary}, err
	}

	span.SetAttributes(attribute.String("outcome", string(OutcomeStoredLocally)))
	p.logger.Info("analysis stored locally", "lot", form.Lot)
	return Receipt{Outcome: OutcomeStoredLocally, PrimaryErr: primary}, nil
}

// Resubmit uploads a history record that never reached the store. Synced
// records are returned as already synced without a network call. There is
// no cache fallback: the record already lives in the cache.
func (p *Pipeline) Resubmit(ctx context.Context, rec analysis.Record) (Receipt, error) {
	if rec.Synced {
		return Receipt{Outcome: OutcomeAlreadySynced, RemoteID: rec.ID}, nil
	}

	ctx, span := p.tracer.Start(ctx, "submission.resubmit", trace.WithAttributes(
		attribute.String("record", rec.ID),
	))
	defer span.End()

	id, err := p.store.Upload(ctx, analysis.RecordPayload(rec))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resubmit failed")
		return Receipt{Outcome: OutcomeFailed}, fmt.Errorf("resubmit %s: %w", rec.ID, err)
	}

	p.logger.Info("record resynced", "record", rec.ID, "id", id)
	return Receipt{Outcome: OutcomeSynced, RemoteID: id}, nil
}
