package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const windowLayout = "2006-01-02 15:04"

func newAssetsReviewCommand(ctx *commandContext) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "review <asset-id>",
		Short: "Submit a freshly uploaded asset for moderation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			id, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			user, err := requireUser(owner)
			if err != nil {
				return err
			}
			service, err := ctx.moderationService(cmd.Context())
			if err != nil {
				return err
			}
			state, err := service.RequestReview(cmd.Context(), id, user, ctx.config.IsAdmin(user))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %d is now %s\n", id, state)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "as", "", "Owner of the asset (e.g. github:alice)")
	return cmd
}

func newAssetsDeleteCommand(ctx *commandContext) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "delete <asset-id>",
		Short: "Mark an asset deleted on behalf of its owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			id, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			user, err := requireUser(owner)
			if err != nil {
				return err
			}
			service, err := ctx.moderationService(cmd.Context())
			if err != nil {
				return err
			}
			if err := service.Delete(cmd.Context(), id, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %d deleted\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "as", "", "Owner of the asset (e.g. github:alice)")
	return cmd
}

func newAssetsWindowCommand(ctx *commandContext) *cobra.Command {
	var owner, startsFlag, endsFlag string

	cmd := &cobra.Command{
		Use:   "window <asset-id>",
		Short: "Set or clear the display window of an asset",
		Long: "Set the display window of an asset. Bounds are epoch seconds or \"YYYY-MM-DD HH:MM\" in UTC;\n" +
			"an omitted bound leaves that side open.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			id, err := parseAssetID(args[0])
			if err != nil {
				return err
			}
			user, err := requireUser(owner)
			if err != nil {
				return err
			}
			starts, err := parseWindowBound(startsFlag)
			if err != nil {
				return fmt.Errorf("--starts: %w", err)
			}
			ends, err := parseWindowBound(endsFlag)
			if err != nil {
				return fmt.Errorf("--ends: %w", err)
			}
			service, err := ctx.moderationService(cmd.Context())
			if err != nil {
				return err
			}
			if err := service.SetWindow(cmd.Context(), id, user, starts, ends); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %d window: %s to %s\n", id, formatEpoch(starts), formatEpoch(ends))
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "as", "", "Owner of the asset (e.g. github:alice)")
	cmd.Flags().StringVar(&startsFlag, "starts", "", "Start of the display window")
	cmd.Flags().StringVar(&endsFlag, "ends", "", "End of the display window")
	return cmd
}

func newAssetsUploadKeyCommand(ctx *commandContext) *cobra.Command {
	var owner, filetype string

	cmd := &cobra.Command{
		Use:   "upload-key",
		Short: "Issue a single-use upload key for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			user, err := requireUser(owner)
			if err != nil {
				return err
			}
			service, err := ctx.moderationService(cmd.Context())
			if err != nil {
				return err
			}
			grant, err := service.PrepareUpload(cmd.Context(), user, strings.ToLower(strings.TrimSpace(filetype)))
			if err != nil {
				return err
			}
			return writeJSON(cmd, grant)
		},
	}
	cmd.Flags().StringVar(&owner, "as", "", "User the upload is issued to (e.g. github:alice)")
	cmd.Flags().StringVar(&filetype, "type", "image", "Media type: image or video")
	return cmd
}

func parseAssetID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid asset id %q", raw)
	}
	return id, nil
}

func requireUser(raw string) (string, error) {
	user := strings.TrimSpace(raw)
	if user == "" {
		return "", errors.New("no user given; pass --as")
	}
	return user, nil
}

func parseWindowBound(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &epoch, nil
	}
	parsed, err := time.ParseInLocation(windowLayout, raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("expected epoch seconds or %q, got %q", windowLayout, raw)
	}
	epoch := parsed.Unix()
	return &epoch, nil
}
