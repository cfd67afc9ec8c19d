package api

import (
	"github.com/JaimeStill/rancoqc/internal/analyses"
	"github.com/JaimeStill/rancoqc/internal/config"
	"github.com/JaimeStill/rancoqc/internal/labels"
	"github.com/JaimeStill/rancoqc/internal/pending"
	"github.com/JaimeStill/rancoqc/internal/records"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Records  records.System
	Pending  pending.System
	Labels   labels.System
	Analyses analyses.System
}

// NewDomain creates all domain systems from the API runtime. The pending
// cache replays into records, and analyses fall back to the cache.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	recordsSystem := records.New(
		runtime.Database.Conn(),
		runtime.Events,
		runtime.Metrics,
		runtime.Logger,
		runtime.Pagination,
	)

	pendingSystem := pending.New(
		runtime.Cache,
		recordsSystem,
		runtime.Metrics,
		runtime.Logger,
		cfg.Cache.MaxAttempts,
	)

	labelsSystem := labels.New(
		runtime.Database.Conn(),
		runtime.Logger,
	)

	analysesSystem := analyses.New(
		runtime.Detector,
		recordsSystem,
		pendingSystem,
		runtime.Storage,
		runtime.Metrics,
		runtime.Logger,
	)

	return &Domain{
		Records:  recordsSystem,
		Pending:  pendingSystem,
		Labels:   labelsSystem,
		Analyses: analysesSystem,
	}
}
