package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/history"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/services"
	"infobeamer-cms/internal/services/infobeamer"
)

// AssetLister lists hosted assets.
type AssetLister interface {
	ListAssets(ctx context.Context, allowCached bool) ([]infobeamer.RawAsset, error)
}

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, run history.Run) (string, error)
}

// RunOptions tunes a single sync invocation.
type RunOptions struct {
	// ForceReport sends the state report regardless of the clock.
	ForceReport bool
	// ReportMinute is the minute of the hour at which the state report is due.
	ReportMinute int
}

// RunResult is the outcome of one sync invocation.
type RunResult struct {
	RunID       string
	Report      Report
	StateReport *StateReport
}

// Runner performs one complete sync: list, project, select, reconcile, report.
type Runner struct {
	lister     AssetLister
	reconciler *Reconciler
	reporter   *Reporter
	recorder   Recorder
	setupIDs   []int64
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner wires a runner. recorder may be nil.
func NewRunner(lister AssetLister, reconciler *Reconciler, reporter *Reporter, recorder Recorder, setupIDs []int64, logger *slog.Logger) *Runner {
	return &Runner{
		lister:     lister,
		reconciler: reconciler,
		reporter:   reporter,
		recorder:   recorder,
		setupIDs:   append([]int64(nil), setupIDs...),
		logger:     logging.NewComponentLogger(logger, "sync"),
		now:        time.Now,
	}
}

// WithClock overrides the time source, primarily for tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	if now != nil {
		r.now = now
	}
	return r
}

// Run executes one sync. The returned error is non-nil when listing or
// projection failed or when any setup could not be reconciled.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	runID := history.NewRunID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)
	started := r.now()
	result := RunResult{RunID: runID}

	logger.Info("starting sync", logging.Int("setup_count", len(r.setupIDs)))

	report := opts.ForceReport || Due(started, opts.ReportMinute)
	// The state report reads a fresh listing.
	raws, err := r.lister.ListAssets(ctx, !report)
	var all []assets.Asset
	if err == nil {
		all, err = assets.ParseAll(raws)
	}
	if err != nil {
		logging.ErrorWithContext(logger, "listing assets failed", "asset_list_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check hosted api credentials and connectivity"),
		)
		r.record(ctx, history.Run{ID: runID, StartedAt: started, FinishedAt: r.now(), Error: err.Error(), Failures: 1})
		return result, err
	}

	if report && r.reporter != nil {
		logger.Info("broadcasting moderation state")
		stateReport := r.reporter.Report(ctx, all)
		result.StateReport = &stateReport
	}

	live := assets.Live(all, started.Unix(), false)
	result.Report, err = r.reconciler.Reconcile(ctx, r.setupIDs, live)

	run := history.Run{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: r.now(),
		LiveCount:  len(live),
		Writes:     result.Report.Writes(),
		Failures:   result.Report.Failures(),
		Reported:   result.StateReport != nil && !result.StateReport.Empty(),
	}
	for _, setup := range result.Report.Setups {
		outcome := history.SetupOutcome{SetupID: setup.SetupID, Outcome: setup.Outcome, ShownCount: len(setup.Shown)}
		if setup.Err != nil {
			outcome.Error = setup.Err.Error()
		}
		run.Setups = append(run.Setups, outcome)
	}
	if err != nil {
		run.Error = err.Error()
	}
	r.record(ctx, run)

	if err != nil {
		logging.ErrorWithContext(logger, "sync finished with failures", "sync_failed",
			logging.Int("failures", run.Failures),
			logging.Int("writes", run.Writes),
			logging.Error(err),
		)
		return result, err
	}
	logger.Info("updated everything",
		logging.Int("writes", run.Writes),
		logging.Int("live_count", run.LiveCount),
		logging.Duration("duration", run.Duration()),
	)
	return result, nil
}

func (r *Runner) record(ctx context.Context, run history.Run) {
	if r.recorder == nil {
		return
	}
	// Recorded even when the run's context was cancelled.
	if _, err := r.recorder.Record(context.WithoutCancel(ctx), run); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(r.logger, "recording sync run failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from history"),
		)
	}
}
