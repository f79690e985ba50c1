package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/seca-audit/internal/logging"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show system information and data directory paths",
	Long: `Display seca-audit configuration information including:
  - Data directory locations
  - Configuration file path
  - Probe endpoints and timeouts`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		dataDir, err := getDataDir()
		if err != nil {
			return fmt.Errorf("failed to get data directory: %w", err)
		}

		configFile := viper.ConfigFileUsed()
		configExists := "✓ (loaded)"
		if configFile == "" {
			homeDir, _ := os.UserHomeDir()
			configFile = filepath.Join(homeDir, ".seca-audit.yaml")
			configExists = "✗ (using defaults)"
		}

		cfg := appCtx.Config
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "seca-audit System Information")
		fmt.Fprintln(out, "=============================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:          %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Version:           %s\n", Version)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:     %s\n", dataDir)
		fmt.Fprintf(out, "  Results Directory:  %s\n", appCtx.ResultsDir)
		fmt.Fprintf(out, "  Log File:           %s\n", filepath.Join(appCtx.LogDir, logging.FileName))
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Configuration File:   %s %s\n", configFile, configExists)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Probes:")
		fmt.Fprintf(out, "  Check timeout:      %ds\n", cfg.Check.TimeoutSecs)
		fmt.Fprintf(out, "  Step timeout:       %ds\n", cfg.Profile.StepTimeoutSecs)
		fmt.Fprintf(out, "  HTTPS host:         %s\n", orDefault(cfg.Probes.HTTPSHost))
		fmt.Fprintf(out, "  IPv6 target:        %s\n", orDefault(cfg.Probes.IPv6Target))
		fmt.Fprintf(out, "  Geo endpoint:       %s\n", orDefault(cfg.Probes.GeoEndpoint))
		fmt.Fprintf(out, "  Resolver config:    %s\n", orDefault(cfg.Probes.ResolvConf))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To override settings, create ~/.seca-audit.yaml with, for example:")
		fmt.Fprintln(out, "  results_dir: /custom/path/to/results")
		fmt.Fprintln(out, "  probes:")
		fmt.Fprintln(out, "    https_host: example.com")
		fmt.Fprintln(out, "Environment variables use the SECA_AUDIT_ prefix, e.g. SECA_AUDIT_CHECK_TIMEOUT_SECS=30.")

		return nil
	},
}

func orDefault(v string) string {
	if v == "" {
		return "(default)"
	}
	return v
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
