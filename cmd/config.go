package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/seca-audit/internal/application"
)

const (
	defaultCheckTimeoutSeconds = 15
	defaultStepTimeoutSeconds  = 10
	defaultProbeRateLimit      = 2
	defaultGeoCacheSize        = 64
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	ResultsDir string
	LogDir     string
	Check      CheckRuntimeConfig
	Profile    ProfileRuntimeConfig
	Probes     ProbeConfig
}

// CheckRuntimeConfig consolidates flag-driven settings for check and suite.
type CheckRuntimeConfig struct {
	TimeoutSecs int
	JSON        bool
	Strict      bool
	PDFName     string
}

// ProfileRuntimeConfig holds network profile settings.
type ProfileRuntimeConfig struct {
	StepTimeoutSecs int
	JSON            bool
}

// ProbeConfig points the executors at their remote endpoints.
type ProbeConfig struct {
	IPEndpoints  []string
	GeoEndpoint  string
	HTTPSHost    string
	IPv6Target   string
	ResolvConf   string
	DNSProbeName string
	RateLimit    float64
	GeoCacheSize int
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Check: CheckRuntimeConfig{
			TimeoutSecs: defaultCheckTimeoutSeconds,
			Strict:      true,
		},
		Profile: ProfileRuntimeConfig{
			StepTimeoutSecs: defaultStepTimeoutSeconds,
		},
		Probes: ProbeConfig{
			RateLimit:    defaultProbeRateLimit,
			GeoCacheSize: defaultGeoCacheSize,
		},
	}
}

// Settings converts the CLI view into engine settings.
func (c *CLIConfig) Settings() application.Settings {
	return application.Settings{
		CheckTimeout: time.Duration(c.Check.TimeoutSecs) * time.Second,
		StepTimeout:  time.Duration(c.Profile.StepTimeoutSecs) * time.Second,
		IPEndpoints:  append([]string(nil), c.Probes.IPEndpoints...),
		GeoEndpoint:  c.Probes.GeoEndpoint,
		HTTPSHost:    c.Probes.HTTPSHost,
		IPv6Target:   c.Probes.IPv6Target,
		ResolvConf:   c.Probes.ResolvConf,
		DNSProbeName: c.Probes.DNSProbeName,
		RateLimit:    c.Probes.RateLimit,
		GeoCacheSize: c.Probes.GeoCacheSize,
	}
}

// applyConfigDefaults merges config file and environment values into the runtime
// config when the user did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	flags := cmd.Flags()

	if viper.IsSet("results_dir") {
		cliConfig.ResultsDir = viper.GetString("results_dir")
	}
	if viper.IsSet("log_dir") {
		cliConfig.LogDir = viper.GetString("log_dir")
	}

	if viper.IsSet("check.timeout_secs") {
		applyIntDefault(flags, "timeout", viper.GetInt("check.timeout_secs"), func(v int) {
			cliConfig.Check.TimeoutSecs = v
		})
	}
	if viper.IsSet("check.strict") {
		applyBoolDefault(flags, "strict", viper.GetBool("check.strict"), func(v bool) {
			cliConfig.Check.Strict = v
		})
	}
	if viper.IsSet("profile.step_timeout_secs") {
		applyIntDefault(flags, "step-timeout", viper.GetInt("profile.step_timeout_secs"), func(v int) {
			cliConfig.Profile.StepTimeoutSecs = v
		})
	}

	if viper.IsSet("probes.ip_endpoints") {
		cliConfig.Probes.IPEndpoints = viper.GetStringSlice("probes.ip_endpoints")
	}
	applyStringDefault(flags, "https-host", viper.GetString("probes.https_host"), func(v string) {
		cliConfig.Probes.HTTPSHost = v
	})
	applyStringDefault(flags, "geo-endpoint", viper.GetString("probes.geo_endpoint"), func(v string) {
		cliConfig.Probes.GeoEndpoint = v
	})
	applyStringDefault(flags, "ipv6-target", viper.GetString("probes.ipv6_target"), func(v string) {
		cliConfig.Probes.IPv6Target = v
	})
	applyStringDefault(flags, "resolv-conf", viper.GetString("probes.resolv_conf"), func(v string) {
		cliConfig.Probes.ResolvConf = v
	})
	applyStringDefault(flags, "dns-probe-name", viper.GetString("probes.dns_probe_name"), func(v string) {
		cliConfig.Probes.DNSProbeName = v
	})
	if viper.IsSet("probes.rate_limit") {
		cliConfig.Probes.RateLimit = viper.GetFloat64("probes.rate_limit")
	}
	if viper.IsSet("probes.geo_cache_size") {
		cliConfig.Probes.GeoCacheSize = viper.GetInt("probes.geo_cache_size")
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

// applyStringDefault ignores blank values so an unset key keeps the built-in default.
func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil || value == "" {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}
