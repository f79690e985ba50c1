package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestApplyIntDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("timeout", 0, "")

	var applied int
	applyIntDefault(flags, "timeout", 15, func(v int) {
		applied = v
	})
	if applied != 15 {
		t.Fatalf("expected setter to receive 15, got %d", applied)
	}

	// When flag already set, setter should not run.
	if err := flags.Set("timeout", "7"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = 0
	applyIntDefault(flags, "timeout", 20, func(v int) {
		applied = v
	})
	if applied != 0 {
		t.Fatalf("setter should not run when flag overridden, got %d", applied)
	}
}

func TestApplyBoolDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("strict", true, "")

	applied := true
	applyBoolDefault(flags, "strict", false, func(v bool) {
		applied = v
	})
	if applied {
		t.Fatal("expected setter to run with false")
	}

	if err := flags.Set("strict", "true"); err != nil {
		t.Fatalf("failed to set bool flag: %v", err)
	}
	applied = true
	applyBoolDefault(flags, "strict", false, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatalf("setter should not change value when flag already set")
	}
}

func TestApplyStringDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("https-host", "", "")

	var applied string
	applyStringDefault(flags, "https-host", "", func(v string) { applied = v })
	if applied != "" {
		t.Fatalf("blank value should be ignored, got %q", applied)
	}

	applyStringDefault(flags, "https-host", "example.com", func(v string) { applied = v })
	if applied != "example.com" {
		t.Fatalf("expected example.com, got %q", applied)
	}

	if err := flags.Set("https-host", "cli.example"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = ""
	applyStringDefault(flags, "https-host", "config.example", func(v string) { applied = v })
	if applied != "" {
		t.Fatalf("setter should not run when flag overridden, got %q", applied)
	}
}

func TestNewCLIConfigDefaults(t *testing.T) {
	cfg := newCLIConfig()

	if cfg.Check.TimeoutSecs != defaultCheckTimeoutSeconds {
		t.Errorf("expected check timeout %d, got %d", defaultCheckTimeoutSeconds, cfg.Check.TimeoutSecs)
	}
	if !cfg.Check.Strict {
		t.Error("expected strict mode by default")
	}
	if cfg.Profile.StepTimeoutSecs != defaultStepTimeoutSeconds {
		t.Errorf("expected step timeout %d, got %d", defaultStepTimeoutSeconds, cfg.Profile.StepTimeoutSecs)
	}
	if cfg.Probes.GeoCacheSize != defaultGeoCacheSize {
		t.Errorf("expected geo cache size %d, got %d", defaultGeoCacheSize, cfg.Probes.GeoCacheSize)
	}
}

func TestCLIConfigSettings(t *testing.T) {
	cfg := newCLIConfig()
	cfg.Check.TimeoutSecs = 30
	cfg.Profile.StepTimeoutSecs = 4
	cfg.Probes.IPEndpoints = []string{"https://ip.example"}
	cfg.Probes.HTTPSHost = "example.com"

	settings := cfg.Settings()
	if settings.CheckTimeout != 30*time.Second || settings.StepTimeout != 4*time.Second {
		t.Errorf("unexpected timeouts %+v", settings)
	}
	if settings.HTTPSHost != "example.com" || len(settings.IPEndpoints) != 1 {
		t.Errorf("unexpected probe settings %+v", settings)
	}

	// Settings must not alias the config slice.
	settings.IPEndpoints[0] = "mutated"
	if cfg.Probes.IPEndpoints[0] != "https://ip.example" {
		t.Error("settings aliased the config slice")
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	originalConfig := cliConfig
	cliConfig = newCLIConfig()
	viper.Reset()
	t.Cleanup(func() {
		cliConfig = originalConfig
		viper.Reset()
	})

	viper.Set("results_dir", "/tmp/seca-results")
	viper.Set("check.timeout_secs", 42)
	viper.Set("profile.step_timeout_secs", 3)
	viper.Set("probes.https_host", "config.example")
	viper.Set("probes.ip_endpoints", []string{"https://a.example", "https://b.example"})
	viper.Set("probes.geo_cache_size", 8)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("timeout", 0, "")
	cmd.Flags().String("https-host", "", "")
	if err := cmd.Flags().Set("timeout", "5"); err != nil {
		t.Fatalf("failed to set timeout flag: %v", err)
	}

	applyConfigDefaults(cmd)

	if cliConfig.ResultsDir != "/tmp/seca-results" {
		t.Errorf("expected results dir from config, got %q", cliConfig.ResultsDir)
	}
	if cliConfig.Check.TimeoutSecs != defaultCheckTimeoutSeconds {
		t.Errorf("explicit --timeout must win over config, got %d", cliConfig.Check.TimeoutSecs)
	}
	if cliConfig.Profile.StepTimeoutSecs != 3 {
		t.Errorf("expected step timeout from config, got %d", cliConfig.Profile.StepTimeoutSecs)
	}
	if cliConfig.Probes.HTTPSHost != "config.example" {
		t.Errorf("expected https host from config, got %q", cliConfig.Probes.HTTPSHost)
	}
	if len(cliConfig.Probes.IPEndpoints) != 2 {
		t.Errorf("expected two IP endpoints, got %v", cliConfig.Probes.IPEndpoints)
	}
	if cliConfig.Probes.GeoCacheSize != 8 {
		t.Errorf("expected geo cache size 8, got %d", cliConfig.Probes.GeoCacheSize)
	}
}

func TestApplyConfigDefaults_Environment(t *testing.T) {
	originalConfig := cliConfig
	cliConfig = newCLIConfig()
	viper.Reset()
	t.Cleanup(func() {
		cliConfig = originalConfig
		viper.Reset()
	})

	t.Setenv("SECA_AUDIT_CHECK_TIMEOUT_SECS", "33")
	t.Setenv("SECA_AUDIT_PROBES_IPV6_TARGET", "[2001:db8::1]:443")
	cfgFile = ""
	t.Setenv("HOME", t.TempDir())
	if err := initConfig(); err != nil {
		t.Fatalf("initConfig: %v", err)
	}

	applyConfigDefaults(&cobra.Command{Use: "test"})

	if cliConfig.Check.TimeoutSecs != 33 {
		t.Errorf("expected timeout from environment, got %d", cliConfig.Check.TimeoutSecs)
	}
	if cliConfig.Probes.IPv6Target != "[2001:db8::1]:443" {
		t.Errorf("expected ipv6 target from environment, got %q", cliConfig.Probes.IPv6Target)
	}
}
