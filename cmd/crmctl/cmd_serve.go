package main

import (
	"context"
	"os/signal"
	"syscall"

	"crm-decision-engine/internal/api"
	"crm-decision-engine/internal/app"
	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/observability"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation HTTP API without Zeebe workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			obs := observability.New(cfg.App.Name, log)
			rt, err := app.BuildEngine(ctx, cfg, log, obs)
			if err != nil {
				return err
			}
			defer rt.Close()

			srv := api.NewServer(cfg.Server, rt.Engine, log)
			for name, check := range rt.ReadinessChecks() {
				srv.AddReadinessCheck(name, check)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
				defer cancel()
				_ = obs.Shutdown(shutdownCtx)
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Override server.port")
	return cmd
}
