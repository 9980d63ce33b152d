package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/moderation"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect and moderate user content",
	}
	cmd.AddCommand(newAssetsListCommand(ctx))
	cmd.AddCommand(newAssetsLiveCommand(ctx))
	cmd.AddCommand(newAssetsPendingCommand(ctx))
	cmd.AddCommand(newAssetsModerateCommand(ctx, moderation.Confirm))
	cmd.AddCommand(newAssetsModerateCommand(ctx, moderation.Reject))
	cmd.AddCommand(newAssetsReviewCommand(ctx))
	cmd.AddCommand(newAssetsDeleteCommand(ctx))
	cmd.AddCommand(newAssetsWindowCommand(ctx))
	cmd.AddCommand(newAssetsUploadKeyCommand(ctx))
	return cmd
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	var stateFilter string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List managed assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			var filter assets.State
			if strings.TrimSpace(stateFilter) != "" {
				parsed, err := assets.ParseState(strings.ToLower(strings.TrimSpace(stateFilter)))
				if err != nil {
					return err
				}
				filter = parsed
			}
			service, err := ctx.moderationService(cmd.Context())
			if err != nil {
				return err
			}
			all, err := service.Assets(cmd.Context())
			if err != nil {
				return err
			}
			if filter != "" {
				filtered := all[:0]
				for _, asset := range all {
					if asset.State == filter {
						filtered = append(filtered, asset)
					}
				}
				all = filtered
			}
			return printAssets(cmd, all, asJSON)
		},
	}
	cmd.Flags().StringVar(&stateFilter, "state", "", "Only show assets in this state")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newAssetsLiveCommand(ctx *commandContext) *cobra.Command {
	var noTimeFilter bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "live",
		Short: "List the assets a sync run would show right now",
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
			return printAssets(cmd, assets.Live(all, time.Now().Unix(), noTimeFilter), asJSON)
		},
	}
	cmd.Flags().BoolVar(&noTimeFilter, "all", false, "Ignore display windows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newAssetsPendingCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List assets awaiting moderation",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			service, err := ctx.moderationService(cmd.Context())
			if err != nil {
				return err
			}
			waiting, err := service.AwaitingModeration(cmd.Context())
			if err != nil {
				return err
			}
			return printAssets(cmd, waiting, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newAssetsModerateCommand(ctx *commandContext, decision moderation.Decision) *cobra.Command {
	var moderator string

	cmd := &cobra.Command{
		Use:   string(decision) + " <asset-id>",
		Short: fmt.Sprintf("Record a %s decision for an asset", decision),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			id, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			who := strings.TrimSpace(moderator)
			if who == "" {
				if len(ctx.config.Moderation.AdminUsers) == 0 {
					return errors.New("no moderator given; pass --as or configure moderation.admin_users")
				}
				who = ctx.config.Moderation.AdminUsers[0]
			}
			if !ctx.config.IsAdmin(who) {
				return fmt.Errorf("%s is not listed in moderation.admin_users", who)
			}

			service, err := ctx.moderationService(cmd.Context())
			if err != nil {
				return err
			}
			asset, err := service.Moderate(cmd.Context(), id, who, decision)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %d is now %s (moderated by %s)\n", asset.ID, asset.State, asset.ModeratedBy)
			return nil
		},
	}
	cmd.Flags().StringVar(&moderator, "as", "", "Moderator identity recorded on the asset (defaults to the first admin)")
	return cmd
}

func printAssets(cmd *cobra.Command, list []assets.Asset, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, list)
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No assets")
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, asset := range list {
		rows = append(rows, []string{
			strconv.FormatInt(asset.ID, 10),
			asset.Filetype,
			asset.User,
			asset.State.String(),
			formatEpoch(asset.Starts),
			formatEpoch(asset.Ends),
			asset.ModeratedBy,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Type", "User", "State", "Starts", "Ends", "Moderated by"},
		rows,
		[]columnAlignment{alignRight},
	))
	return nil
}

func formatEpoch(epoch *int64) string {
	if epoch == nil {
		return "-"
	}
	return time.Unix(*epoch, 0).UTC().Format("2006-01-02 15:04")
}
