package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tenantrx/recordsapi/cmd/recordsapi/cmd/cmdutil"
	"github.com/tenantrx/recordsapi/internal/auth"
	"github.com/tenantrx/recordsapi/internal/config"
	"github.com/tenantrx/recordsapi/internal/repository"
	"github.com/tenantrx/recordsapi/internal/server"
	"github.com/tenantrx/recordsapi/internal/services/catalog"
	"github.com/tenantrx/recordsapi/internal/services/iam"
	"github.com/tenantrx/recordsapi/internal/services/validation"
	"github.com/tenantrx/recordsapi/internal/telemetry"
)

const schemaCacheSize = 8

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the records API server",
	Long:  `Starts the HTTP server. Every /api/v1 request is resolved into a tenant-scoped security context.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireServing(); err != nil {
			return err
		}
		ctx := cmd.Context()

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, logger)
		if err != nil {
			return fmt.Errorf("initialize telemetry: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				logger.Warn().Err(err).Msg("telemetry shutdown failed")
			}
		}()

		rt, err := cmdutil.NewRuntime(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()
		logger.Info().Msg("Connected to registry database")

		validator, err := validation.NewDocumentValidator(schemaCacheSize)
		if err != nil {
			return err
		}

		authorizedClients := repository.NewBunAuthorizedClientRepository(rt.Router, validator)
		clientGuard := iam.NewClientGuard(authorizedClients, cfg.Resolution.ElevatedScopes...)
		loader := iam.NewContextLoader(
			repository.NewBunPermissionStore(rt.Router),
			clientGuard,
			repository.NewBunLoginValidator(rt.Router),
			iam.WithIdentitySystem(cfg.Resolution.IdentitySystem),
		)

		metrics, err := telemetry.NewResolutionMetrics()
		if err != nil {
			return fmt.Errorf("create resolution metrics: %w", err)
		}
		resolver := iam.NewResolver(loader, iam.NewPartialPolicy(partialOverrides(cfg.Resolution.PartialOverrides)), cfg.Okta.ResourceID, metrics)

		var verifiers []auth.Verifier
		if cfg.Legacy.Enabled() {
			v, err := auth.NewLegacyVerifier(cfg.Legacy.Issuer, []byte(cfg.Legacy.HMACSecret))
			if err != nil {
				return err
			}
			verifiers = append(verifiers, v)
		}
		if cfg.Okta.Enabled() {
			v, err := auth.NewOktaVerifier(cfg.Okta.Issuer, cfg.Okta.Audience, cfg.Okta.ResourceID)
			if err != nil {
				return err
			}
			verifiers = append(verifiers, v)
		}

		authorizer, err := iam.NewAuthorizer(repository.NewBunPolicyAdapter(ctx, rt.Registry))
		if err != nil {
			return fmt.Errorf("configure authorizer: %w", err)
		}

		clients := catalog.NewCache(repository.NewBunOAuthClientRepository(rt.Registry), cfg.Catalog.Size, cfg.Catalog.TTL)

		routerOpts := server.RouterOptions{
			Logger:        logger,
			Authenticator: auth.NewTokenAuthenticator(verifiers...),
			Resolver:      resolver,
			Authorizer:    authorizer,
			Clients:       clients,
			TenantParam:   cfg.Resolution.TenantParam,
		}
		if len(cfg.CORS.AllowedOrigins) > 0 {
			corsOpts := server.DefaultCORSOptions()
			corsOpts.AllowedOrigins = cfg.CORS.AllowedOrigins
			routerOpts.CORSOptions = &corsOpts
		}
		r := server.NewRouter(routerOpts)

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ServerAddr).Msg("Starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// SIGHUP reloads the role policy and re-reads tenant status.
		reload := make(chan os.Signal, 1)
		signal.Notify(reload, syscall.SIGHUP)

		for {
			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case sig := <-reload:
				logger.Info().Str("signal", sig.String()).Msg("Reloading role policy and tenant status")
				if err := authorizer.Reload(); err != nil {
					logger.Error().Err(err).Msg("Policy reload failed")
				}
				rt.Router.Recheck()

			case sig := <-shutdown:
				logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					srv.Close()
					return fmt.Errorf("graceful shutdown failed: %w", err)
				}

				logger.Info().Msg("Server stopped")
				return nil
			}
		}
	},
}

func partialOverrides(in []config.PartialOverride) []iam.PartialOverride {
	out := make([]iam.PartialOverride, 0, len(in))
	for _, o := range in {
		out = append(out, iam.PartialOverride{Pattern: o.Pattern, Method: o.Method, Partial: o.Partial})
	}
	return out
}

func init() {
	serveCmd.Flags().String("server-addr", "", "Listen address (env: RECORDS_SERVER_ADDR)")
	_ = viper.BindPFlag("server_addr", serveCmd.Flags().Lookup("server-addr"))
}
