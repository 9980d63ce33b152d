package main

import (
	"strings"

	"github.com/spf13/cobra"

	"infobeamer-cms/internal/metrics"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Prometheus metrics",
	}
	cmd.AddCommand(newMetricsServeCommand(ctx))
	return cmd
}

func newMetricsServeCommand(ctx *commandContext) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve submission and device gauges on /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			client, err := ctx.ensureClient(cmd.Context())
			if err != nil {
				return err
			}
			registry, err := metrics.NewRegistry(client, ctx.ensureLogger())
			if err != nil {
				return err
			}
			address := strings.TrimSpace(listen)
			if address == "" {
				address = ctx.config.Metrics.Listen
			}
			server := metrics.NewServer(registry, ctx.ensureLogger())
			if err := server.Listen(address); err != nil {
				return err
			}
			return server.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (defaults to metrics.listen)")
	return cmd
}
