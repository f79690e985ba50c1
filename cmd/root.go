package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/khanhnv2901/seca-audit/internal/logging"
)

var cfgFile string
var verbose bool
var logger *zap.SugaredLogger

var rootCmd = &cobra.Command{
	Use:          "seca-audit",
	Short:        "Audit this machine's network security and privacy posture",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		applyConfigDefaults(cmd)

		resultsDir, err := getResultsDir(cliConfig.ResultsDir)
		if err != nil {
			return err
		}
		logDir, err := getLogDir(cliConfig.LogDir)
		if err != nil {
			return err
		}

		opts := logging.Options{Dir: logDir, Level: zapcore.InfoLevel}
		if verbose {
			opts.Console = cmd.ErrOrStderr()
			opts.Level = zapcore.DebugLevel
		}
		l, err := logging.New(opts)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l.Sugar()

		storeAppContext(cmd, &AppContext{
			Logger:     l,
			ResultsDir: resultsDir,
			LogDir:     logDir,
			Config:     cliConfig,
		})

		logger.Debugf("results_dir=%s log_dir=%s", resultsDir, logDir)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		getAppContext(cmd).close()
	},
}

// initConfig loads the optional config file and binds SECA_AUDIT_* variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".seca-audit")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("SECA_AUDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, colorError(err.Error()))
		getAppContext(rootCmd).close()
		stop()
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seca-audit.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "also log to stderr at debug level")

	rootCmd.PersistentFlags().StringVar(&cliConfig.Probes.HTTPSHost, "https-host", "", "host used by the HTTPS reachability probe")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Probes.GeoEndpoint, "geo-endpoint", "", "geolocation endpoint, %s is replaced with the IP")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Probes.IPv6Target, "ipv6-target", "", "host:port dialed to test IPv6 egress")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Probes.ResolvConf, "resolv-conf", "", "resolver configuration file")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Probes.DNSProbeName, "dns-probe-name", "", "name queried to discover the egress resolver")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(suiteCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
