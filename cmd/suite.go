package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var suiteCmd = &cobra.Command{
	Use:   "suite",
	Short: "Run every check in the catalog",
	Long: `Run all checks concurrently and print the results in catalog order.

Checks that are already running are not started again, and the progress line
counts only the checks this suite started. Use --pdf to also write a PDF report
into the results directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config.Check

		services, err := appCtx.services()
		if err != nil {
			return err
		}
		kinds := services.Checks.Kinds()

		var printer *progressPrinter
		if !cfg.JSON {
			feed, unsubscribe := services.Broker.Subscribe()
			defer unsubscribe()
			printer = newProgressPrinter(cmd.ErrOrStderr(), len(kinds), "Suite")
			printer.Follow(feed)
			printer.Start()
		}

		done, err := services.Checks.RunSuite()
		if done == nil {
			if printer != nil {
				printer.Stop()
			}
			return fmt.Errorf("failed to start suite: %w", err)
		}
		if err != nil {
			cliLogger().Warnf("suite started with errors: %v", err)
		}

		waitErr := waitAll(cmd.Context(), done)
		if printer != nil {
			printer.Stop()
		}
		if waitErr != nil {
			return waitErr
		}

		results := orderedResults(services.Checks.State().Results, kinds)

		if cfg.PDFName != "" {
			path, err := writePDFReport(appCtx.ResultsDir, cfg.PDFName, newReportData(results, time.Now()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s PDF report written to %s\n", colorInfo("→"), path)
		}

		return reportResults(cmd, results, cfg)
	},
}

func init() {
	addCheckRunFlags(suiteCmd)
	suiteCmd.Flags().StringVar(&cliConfig.Check.PDFName, "pdf", "", "write a PDF report with this file name into the results directory")
	suiteCmd.Flags().Lookup("pdf").NoOptDefVal = " "
}
