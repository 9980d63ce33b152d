package main

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"infobeamer-cms/internal/history"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var forceReport bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile every setup with the live content",
		Long: "Lists all assets, selects the confirmed ones inside their display window and rewrites the " +
			"\"User Content\" schedule of each configured setup whose content differs. At the configured " +
			"minute of every hour it also reports assets waiting for moderation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg := ctx.config

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire sync lock: %w", err)
			}
			if !ok {
				return errors.New("another sync run is in progress")
			}
			defer func() { _ = lock.Unlock() }()

			var recorder syncer.Recorder
			store, err := ctx.openHistory()
			if err != nil {
				logging.WarnWithContext(ctx.ensureLogger(), "run history unavailable", "history_open_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "this run is not recorded"),
				)
			} else {
				recorder = store
			}

			runner, err := ctx.newRunner(cmd.Context(), recorder)
			if err != nil {
				return err
			}
			result, runErr := runner.Run(cmd.Context(), syncer.RunOptions{
				ForceReport:  forceReport,
				ReportMinute: cfg.Sync.StateReportMinute,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %d live, %d written, %d failed\n",
				result.RunID, len(result.Report.LiveIDs), result.Report.Writes(), result.Report.Failures())
			if result.StateReport != nil && !result.StateReport.Empty() {
				fmt.Fprintln(out, result.StateReport.Text)
			}
			if store != nil {
				if _, err := store.Prune(cmd.Context(), history.DefaultRetention); err != nil {
					logging.WarnWithContext(ctx.ensureLogger(), "pruning run history failed", "history_prune_failed",
						logging.Error(err),
					)
				}
			}
			if runErr != nil {
				return fmt.Errorf("sync failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceReport, "report", false, "Send the moderation state report regardless of the clock")
	return cmd
}

func newStateReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "state-report",
		Short: "Report assets waiting for their owner or a moderator",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			service, err := ctx.moderationService(cmd.Context())
			if err != nil {
				return err
			}
			all, err := service.Assets(cmd.Context())
			if err != nil {
				return err
			}
			report := syncer.NewReporter(ctx.notifier(), ctx.ensureLogger()).Report(cmd.Context(), all)
			if report.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "No assets waiting for moderation")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Text)
			return nil
		},
	}
}
