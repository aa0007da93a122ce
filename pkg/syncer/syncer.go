// Copyright 2024-2026 Aiku AI

// Package syncer drives the connector services from the directory: it plans
// creates, updates and deletes per entry and applies them.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aiku/james-sync/pkg/connector"
)

var (
	ErrRunInProgress = errors.New("a sync run is already in progress")
	// ErrEmptySource stops the clean phase when the source returned nothing
	// while the destination still has entries.
	ErrEmptySource = errors.New("source returned no entries")
)

// createNeedsValues lists the kinds whose CREATE writes nothing when every
// written attribute is empty. Such creates are skipped.
var createNeedsValues = map[connector.Kind]bool{
	connector.KindAliases:         true,
	connector.KindForwards:        true,
	connector.KindAddressMappings: true,
	connector.KindQuota:           true,
}

// Source lists the desired entries keyed by email.
type Source interface {
	Entries(ctx context.Context) (map[string]connector.Datasets, error)
}

// Services resolves the service of a kind. *connector.Connector implements it.
type Services interface {
	Service(kind connector.Kind) (connector.WritableService, error)
}

// Result summarizes one run of one kind.
type Result struct {
	RunID    uuid.UUID      `json:"run_id"`
	Kind     connector.Kind `json:"kind"`
	DryRun   bool           `json:"dry_run"`
	Created  int            `json:"created"`
	Updated  int            `json:"updated"`
	Deleted  int            `json:"deleted"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"-"`
	Seconds  float64        `json:"duration_seconds"`
}

type tally struct {
	created, updated, deleted, skipped, failed atomic.Int64
}

type Syncer struct {
	cfg      Config
	source   Source
	services Services
	log      zerolog.Logger

	running sync.Mutex
}

// New creates a syncer. cfg must have been post-processed.
func New(cfg Config, source Source, services Services, log zerolog.Logger) *Syncer {
	return &Syncer{
		cfg:      cfg,
		source:   source,
		services: services,
		log:      log.With().Str("component", "syncer").Logger(),
	}
}

// Run reads the source once and syncs the given kinds in order. It stops at
// the first kind that fails and returns the results gathered so far.
func (s *Syncer) Run(ctx context.Context, kinds ...connector.Kind) ([]*Result, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()
	if len(kinds) == 0 {
		kinds = s.cfg.SyncKinds()
	}
	services := make([]connector.WritableService, len(kinds))
	for i, kind := range kinds {
		svc, err := s.services.Service(kind)
		if err != nil {
			return nil, err
		}
		services[i] = svc
	}

	entries, err := s.source.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read source entries: %w", err)
	}
	results := make([]*Result, 0, len(kinds))
	for i, kind := range kinds {
		res, err := s.runKind(ctx, kind, services[i], entries)
		results = append(results, res)
		if err != nil {
			runErrors.WithLabelValues(string(kind)).Inc()
			return results, fmt.Errorf("sync of %s aborted: %w", kind, err)
		}
	}
	return results, nil
}

func (s *Syncer) runKind(ctx context.Context, kind connector.Kind, svc connector.WritableService, entries map[string]connector.Datasets) (*Result, error) {
	res := &Result{RunID: uuid.New(), Kind: kind, DryRun: s.cfg.DryRun, Started: time.Now()}
	log := s.log.With().Str("kind", string(kind)).Stringer("run_id", res.RunID).Logger()
	log.Info().Int("entries", len(entries)).Bool("dry_run", s.cfg.DryRun).Msg("Starting sync run")

	var counts tally
	ops := s.cfg.OperationsFor(kind)
	err := s.syncEntries(ctx, log, kind, ops, svc, entries, &counts)
	if err == nil {
		err = s.clean(ctx, log, ops, svc, entries, &counts)
	}

	res.Created = int(counts.created.Load())
	res.Updated = int(counts.updated.Load())
	res.Deleted = int(counts.deleted.Load())
	res.Skipped = int(counts.skipped.Load())
	res.Failed = int(counts.failed.Load())
	res.Duration = time.Since(res.Started)
	res.Seconds = res.Duration.Seconds()
	res.export()

	evt := log.Info()
	if err != nil {
		evt = log.Error().Err(err)
	}
	evt.Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("Finished sync run")
	return res, err
}

// syncEntries creates or updates every source entry.
func (s *Syncer) syncEntries(ctx context.Context, log zerolog.Logger, kind connector.Kind, ops Operations, svc connector.WritableService, entries map[string]connector.Datasets, counts *tally) error {
	plan := entryPlan{
		ops:         ops,
		writeIDs:    svc.GetWriteDatasetIDs(),
		needsValues: createNeedsValues[kind],
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, email := range sortedKeys(entries) {
		datasets := entries[email]
		g.Go(func() error {
			return s.syncEntry(gctx, log, svc, plan, email, datasets, counts)
		})
	}
	return g.Wait()
}

// entryPlan holds what syncEntry needs to decide on one entry.
type entryPlan struct {
	ops         Operations
	writeIDs    []string
	needsValues bool
}

func (s *Syncer) syncEntry(ctx context.Context, log zerolog.Logger, svc connector.WritableService, plan entryPlan, email string, datasets connector.Datasets, counts *tally) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bean, err := svc.GetBean(ctx, email, connector.Datasets{connector.AttrEmail: {email}})
	if err != nil {
		if errors.Is(err, connector.ErrCommunication) {
			return err
		}
		log.Warn().Err(err).Str("email", email).Msg("Failed to read destination entry")
		counts.failed.Add(1)
		return nil
	}

	var mod connector.Modifications
	if bean == nil {
		if plan.needsValues && !hasValues(plan.writeIDs, datasets) {
			counts.skipped.Add(1)
			return nil
		}
		mod = connector.Modifications{
			Operation:      connector.OperationCreate,
			MainIdentifier: email,
			Attributes:     datasets.Clone(),
		}
	} else {
		changed := Changes(plan.writeIDs, datasets, bean.Datasets())
		if len(changed) == 0 {
			counts.skipped.Add(1)
			return nil
		}
		mod = connector.Modifications{
			Operation:      connector.OperationUpdate,
			MainIdentifier: email,
			Attributes:     changed,
		}
	}
	if !plan.ops.Allows(mod.Operation) {
		log.Debug().Str("email", email).Stringer("operation", mod.Operation).Msg("Operation disabled, skipping entry")
		counts.skipped.Add(1)
		return nil
	}
	s.apply(ctx, log, svc, mod, counts)
	return nil
}

// clean deletes remote entries that are missing from the source. It refuses
// to run against an empty source.
func (s *Syncer) clean(ctx context.Context, log zerolog.Logger, ops Operations, svc connector.WritableService, entries map[string]connector.Datasets, counts *tally) error {
	if !ops.Allows(connector.OperationDelete) {
		log.Debug().Msg("Deletes disabled, skipping clean phase")
		return nil
	}
	pivots, err := svc.GetListPivots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list destination entries: %w", err)
	}
	known := make(map[string]struct{}, len(entries))
	for email := range entries {
		known[strings.ToLower(email)] = struct{}{}
	}
	var stale []string
	for _, email := range sortedKeys(pivots) {
		if _, ok := known[strings.ToLower(email)]; !ok {
			stale = append(stale, email)
		}
	}
	if len(entries) == 0 && len(stale) > 0 {
		log.Error().Int("remote_entries", len(stale)).Msg("Source is empty, refusing to delete every destination entry")
		return fmt.Errorf("%w: refusing to delete %d destination entries", ErrEmptySource, len(stale))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, email := range stale {
		mod := connector.Modifications{
			Operation:      connector.OperationDelete,
			MainIdentifier: email,
			Attributes:     pivots[email],
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.apply(gctx, log, svc, mod, counts)
			return nil
		})
	}
	return g.Wait()
}

func (s *Syncer) apply(ctx context.Context, log zerolog.Logger, svc connector.WritableService, mod connector.Modifications, counts *tally) {
	if s.cfg.DryRun {
		log.Info().
			Str("email", mod.MainIdentifier).
			Stringer("operation", mod.Operation).
			Strs("attributes", mod.Attributes.Names()).
			Msg("Planned modification")
	} else if !svc.Apply(ctx, mod) {
		counts.failed.Add(1)
		return
	}
	switch mod.Operation {
	case connector.OperationCreate:
		counts.created.Add(1)
	case connector.OperationUpdate:
		counts.updated.Add(1)
	case connector.OperationDelete:
		counts.deleted.Add(1)
	}
}

// Changes returns the source values of the written attributes whose value set
// differs from the destination. Attributes absent from the source are left
// alone.
func Changes(writeIDs []string, source, destination connector.Datasets) connector.Datasets {
	changed := make(connector.Datasets)
	for _, id := range writeIDs {
		want, present := source.Get(id)
		if !present {
			continue
		}
		if !sameValues(want, destination[id]) {
			changed[id] = slices.Clone(want)
		}
	}
	return changed
}

// hasValues reports whether any written attribute has a non-empty value.
func hasValues(writeIDs []string, datasets connector.Datasets) bool {
	for _, id := range writeIDs {
		for _, v := range datasets[id] {
			if v != "" {
				return true
			}
		}
	}
	return false
}

func sameValues(a, b []string) bool {
	set := func(values []string) map[string]struct{} {
		m := make(map[string]struct{}, len(values))
		for _, v := range values {
			if v != "" {
				m[v] = struct{}{}
			}
		}
		return m
	}
	sa, sb := set(a), set(b)
	if len(sa) != len(sb) {
		return false
	}
	for v := range sa {
		if _, ok := sb[v]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]connector.Datasets) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
