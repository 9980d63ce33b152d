package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"infobeamer-cms/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, cache, hosted API credentials and setups",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			client, err := ctx.ensureClient(cmd.Context())
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), ctx.config, client, ctx.cacheStore)

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				state := "ok"
				if !result.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{result.Name, state, result.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
