package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/history"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/services"
	"infobeamer-cms/internal/services/infobeamer"
	"infobeamer-cms/internal/slideshow"
)

// ScheduleName is the schedule whose pages mirror the live content.
const ScheduleName = "User Content"

// SetupStore is the part of the hosted API the reconciler writes through.
type SetupStore interface {
	GetSetup(ctx context.Context, id int64) (*infobeamer.Setup, error)
	UpdateSetup(ctx context.Context, id int64, cfg json.RawMessage) error
}

// SetupResult describes what happened to one setup.
type SetupResult struct {
	SetupID int64
	Outcome history.Outcome
	// Shown lists the asset ids the schedule displayed before this run.
	Shown []int64
	Err   error
}

// Report summarizes a reconciliation pass.
type Report struct {
	LiveIDs []int64
	Setups  []SetupResult
}

// Writes counts setups whose configuration was rewritten.
func (r Report) Writes() int {
	return r.count(history.OutcomeUpdated)
}

// Failures counts setups that could not be reconciled.
func (r Report) Failures() int {
	return r.count(history.OutcomeFailed)
}

func (r Report) count(outcome history.Outcome) int {
	n := 0
	for _, setup := range r.Setups {
		if setup.Outcome == outcome {
			n++
		}
	}
	return n
}

// Reconciler keeps the "User Content" schedule of every setup in line with
// the live asset set.
type Reconciler struct {
	store    SetupStore
	renderer *slideshow.Renderer
	logger   *slog.Logger
}

// NewReconciler wires a reconciler.
func NewReconciler(store SetupStore, renderer *slideshow.Renderer, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		renderer: renderer,
		logger:   logging.NewComponentLogger(logger, "syncer"),
	}
}

// Reconcile processes every setup independently. A setup is rewritten only
// when the set of asset ids shown by its "User Content" schedule differs from
// the live set; page order and tile details are not compared. Failures do not
// stop the remaining setups and are returned joined after all were attempted.
func (r *Reconciler) Reconcile(ctx context.Context, setupIDs []int64, live []assets.Asset) (Report, error) {
	report := Report{LiveIDs: assets.IDs(live)}

	pages, err := json.Marshal(r.renderer.Pages(live))
	if err != nil {
		return report, services.Wrap(services.ErrValidation, "syncer", "render", "encode pages", err)
	}

	desired := make(map[int64]struct{}, len(report.LiveIDs))
	for _, id := range report.LiveIDs {
		desired[id] = struct{}{}
	}

	r.logger.Info("live pages rendered",
		logging.Int("page_count", len(live)),
		logging.IDs("asset_ids", report.LiveIDs),
	)

	var errs []error
	for _, setupID := range setupIDs {
		result := r.reconcileSetup(services.WithSetupID(ctx, setupID), setupID, desired, pages)
		report.Setups = append(report.Setups, result)
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("setup %d: %w", setupID, result.Err))
		}
	}
	return report, errors.Join(errs...)
}

func (r *Reconciler) reconcileSetup(ctx context.Context, setupID int64, desired map[int64]struct{}, pages json.RawMessage) SetupResult {
	logger := logging.WithContext(ctx, r.logger)
	result := SetupResult{SetupID: setupID}

	fail := func(err error) SetupResult {
		result.Outcome = history.OutcomeFailed
		result.Err = err
		logging.ErrorWithContext(logger, "setup reconciliation failed", "setup_sync_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next sync run retries this setup"),
		)
		return result
	}

	setup, err := r.store.GetSetup(ctx, setupID)
	if err != nil {
		return fail(err)
	}
	raw, ok := setup.DefaultConfig()
	if !ok {
		return fail(services.Wrap(services.ErrValidation, "syncer", "read setup", "setup has no default configuration", nil))
	}

	doc, err := decodeSetupConfig(raw)
	if err != nil {
		return fail(err)
	}

	found := false
	changed := false
	shown := map[int64]struct{}{}
	for i := range doc.schedules {
		schedule := doc.schedules[i]
		if schedule.name() != ScheduleName {
			continue
		}
		found = true
		ids, foreign, err := schedule.contentAssets()
		if err != nil {
			return fail(err)
		}
		for id := range ids {
			shown[id] = struct{}{}
		}
		logger.Info("schedule shows assets", logging.IDs("asset_ids", sortedIDs(ids)))
		if foreign || !sameSet(ids, desired) {
			schedule["pages"] = pages
			changed = true
		}
	}
	result.Shown = sortedIDs(shown)

	if !found {
		result.Outcome = history.OutcomeNoSchedule
		logging.WarnWithContext(logger, "setup has no User Content schedule", "setup_schedule_missing",
			logging.String(logging.FieldErrorHint, "add a schedule named \"User Content\" to the setup"),
			logging.String(logging.FieldImpact, "setup left unchanged"),
		)
		return result
	}
	if !changed {
		result.Outcome = history.OutcomeUnchanged
		logger.Info("config has not changed, skipping update")
		return result
	}

	encoded, err := doc.encode()
	if err != nil {
		return fail(err)
	}
	logger.Info("config has changed, updating", logging.IDs("previous_asset_ids", result.Shown))
	if err := r.store.UpdateSetup(ctx, setupID, encoded); err != nil {
		return fail(err)
	}
	result.Outcome = history.OutcomeUpdated
	return result
}

func sameSet(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
