package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"infobeamer-cms/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No sync runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortRunID(run.ID),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Duration().Round(1e6).String(),
					strconv.Itoa(run.LiveCount),
					strconv.Itoa(run.Writes),
					strconv.Itoa(run.Failures),
					yesNo(run.Reported),
					setupSummary(run.Setups),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Took", "Live", "Writes", "Failures", "Report", "Setups"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func setupSummary(setups []history.SetupOutcome) string {
	parts := make([]string, 0, len(setups))
	for _, setup := range setups {
		parts = append(parts, fmt.Sprintf("%d:%s", setup.SetupID, setup.Outcome))
	}
	return strings.Join(parts, " ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
