package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-audit/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run seca-audit as a local REST API service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		eventsLimit, _ := cmd.Flags().GetInt("events-limit")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")
		trustedProxies, _ := cmd.Flags().GetStringSlice("trusted-proxies")

		services, err := appCtx.services()
		if err != nil {
			return err
		}

		server := api.NewServer(api.Config{
			Checks:      services.Checks,
			Profile:     services.Profile,
			Events:      services.Broker,
			AuthToken:   authToken,
			Logger:      appCtx.Logger.Named("api"),
			CORSOrigins: corsOrigins,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
			EventsLimit: eventsLimit,

			TrustedProxies: trustedProxies,
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// No WriteTimeout: /api/events is a long-lived stream.
			IdleTimeout: 120 * time.Second,
		}

		// Resolve the profile once so the first GET has something to show.
		if _, err := services.Profile.Refresh(); err != nil {
			cliLogger().Warnf("initial profile refresh failed: %v", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s API server listening on %s (results dir: %s)\n", colorInfo("→"), addr, appCtx.ResultsDir)
		fmt.Fprintf(cmd.OutOrStdout(), "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))

		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- httpServer.ListenAndServe()
		}()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s Shutdown requested, draining connections...\n", colorInfo("→"))

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Server shutdown complete\n", colorInfo("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the API server")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests")
	serveCmd.Flags().Int("events-limit", 20, "Default number of recent events to return")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "Rate limit burst size")
	serveCmd.Flags().StringSlice("trusted-proxies", []string{}, "Proxy IPs or CIDRs whose X-Forwarded-For is trusted for rate limiting")
	serveCmd.Flags().IntVar(&cliConfig.Check.TimeoutSecs, "timeout", defaultCheckTimeoutSeconds, "per-check timeout in seconds")
	serveCmd.Flags().IntVar(&cliConfig.Profile.StepTimeoutSecs, "step-timeout", defaultStepTimeoutSeconds, "timeout in seconds for each profile resolution step")
}
