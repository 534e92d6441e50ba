// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/encore/internal/api"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/scheduler"
	"github.com/tomtom215/encore/internal/supervisor"
	"github.com/tomtom215/encore/internal/supervisor/services"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the trigger API, the scheduler and state maintenance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					logging.Error().Err(err).Msg("Failed to close resources")
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// serve runs the supervisor tree until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	router := api.NewRouter(api.Deps{
		Pipelines: a.pipeline,
		Jobs:      a.processor,
		Progress:  a.tracker,
		Breakers:  a.breakers,
		Auth:      api.NewSecretAuth(cfg.Trigger.Secret, cfg.Trigger.AcceptJWT),
		RateLimit: api.RateLimitConfig{
			Requests: cfg.Server.RateLimitReqs,
			Window:   cfg.Server.RateLimitWindow,
			Disabled: cfg.Server.RateLimitReqs == 0,
		},
	})
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	if a.state.Persistent() {
		tree.AddStateService(services.NewStateGCService(a.state, 0))
	}

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(cfg.Scheduler, a.pipeline)
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		tree.AddWorkerService(sched)
		for name, next := range sched.NextRuns() {
			logging.Info().Str("pipeline", string(name)).Time("next_run", next).Msg("Pipeline scheduled")
		}
	}

	logging.Info().Str("version", version).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown requested, waiting for services to stop")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	} else {
		serveErr = nil
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Encore stopped")
	return serveErr
}
