package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
)

var checkCmd = &cobra.Command{
	Use:   "check <kind>...",
	Short: "Run one or more checks",
	Long: `Run the named checks concurrently and print their results.

Kinds: dns, proxy, firewall, ip_exposure, vpn, ipv6, https.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		kinds, err := parseKinds(args)
		if err != nil {
			return err
		}

		services, err := appCtx.services()
		if err != nil {
			return err
		}

		waits := make([]<-chan struct{}, 0, len(kinds))
		for _, kind := range kinds {
			done, err := services.Checks.RunCheck(kind)
			if err != nil {
				return fmt.Errorf("failed to start %s check: %w", kind, err)
			}
			waits = append(waits, done)
		}

		if err := waitAll(cmd.Context(), waits...); err != nil {
			return err
		}

		results := orderedResults(services.Checks.State().Results, kinds)
		return reportResults(cmd, results, appCtx.Config.Check)
	},
}

// parseKinds resolves user names to kinds, dropping repeats.
func parseKinds(args []string) ([]check.Kind, error) {
	seen := make(map[check.Kind]bool, len(args))
	kinds := make([]check.Kind, 0, len(args))
	for _, arg := range args {
		kind, err := check.ParseKind(arg)
		if err != nil {
			return nil, &UnknownKindError{Name: arg}
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// waitAll blocks until every channel closes or ctx ends.
func waitAll(ctx context.Context, waits ...<-chan struct{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, done := range waits {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func reportResults(cmd *cobra.Command, results []*check.Result, cfg CheckRuntimeConfig) error {
	out := cmd.OutOrStdout()
	if cfg.JSON {
		if err := writeJSON(out, results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	} else {
		renderResults(out, results)
		renderSummary(out, results)
	}

	problems := countProblems(results)
	cliLogger().Infof("checks=%d problems=%d", len(results), problems)
	if cfg.Strict && problems > 0 {
		return &ProblemsError{Problems: problems, Total: len(results)}
	}
	return nil
}

func addCheckRunFlags(c *cobra.Command) {
	c.Flags().IntVar(&cliConfig.Check.TimeoutSecs, "timeout", defaultCheckTimeoutSeconds, "per-check timeout in seconds")
	c.Flags().BoolVar(&cliConfig.Check.JSON, "json", false, "print results as JSON")
	c.Flags().BoolVar(&cliConfig.Check.Strict, "strict", true, "exit non-zero when any check fails or errors")
}

func init() {
	addCheckRunFlags(checkCmd)
}

