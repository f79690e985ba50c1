package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/seca-audit/internal/application"
	checkapp "github.com/khanhnv2901/seca-audit/internal/application/check"
	networkapp "github.com/khanhnv2901/seca-audit/internal/application/network"
	"github.com/khanhnv2901/seca-audit/internal/checker"
	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/events"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/netprobe"
)

// setupTestAppContext installs an AppContext rooted in a temp data directory
// and returns a restore func.
func setupTestAppContext(t *testing.T) func() {
	t.Helper()

	original := globalAppContext
	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	resultsDir, err := getResultsDir("")
	if err != nil {
		t.Fatalf("failed to create results directory: %v", err)
	}
	logDir, err := getLogDir(filepath.Join(dataDir, "logs"))
	if err != nil {
		t.Fatalf("failed to create log directory: %v", err)
	}

	globalAppContext = &AppContext{
		Logger:     zaptest.NewLogger(t),
		ResultsDir: resultsDir,
		LogDir:     logDir,
		Config:     newCLIConfig(),
	}

	return func() {
		globalAppContext.close()
		globalAppContext = original
	}
}

type fixedLookup struct {
	ip  string
	err error
}

func (f fixedLookup) PublicIP(context.Context) (string, error) { return f.ip, f.err }

func (f fixedLookup) Locate(context.Context, string) (netprobe.Location, error) {
	return netprobe.Location{City: "Berlin", CountryCode: "DE", ISP: "Example Telecom", Latitude: 52.52, Longitude: 13.4, HasCoordinates: true}, nil
}

func staticOutcome(kind check.Kind, status check.CheckStatus, headline string) checker.Checker {
	return checker.Func{K: kind, Fn: func(context.Context) (check.Outcome, error) {
		outcome := check.NewOutcome(status, headline)
		outcome.AddDetail("Kind", string(kind))
		return outcome, nil
	}}
}

func failingChecker(kind check.Kind, err error) checker.Checker {
	return checker.Func{K: kind, Fn: func(context.Context) (check.Outcome, error) {
		return check.Outcome{}, err
	}}
}

// useTestServices wires fake executors and a fixed identity into the current
// AppContext so commands never touch the real network.
func useTestServices(t *testing.T, lookup networkapp.IdentityLookup, execs ...checker.Checker) *application.Container {
	t.Helper()
	logger := zaptest.NewLogger(t)
	broker := events.NewBroker()

	orch, err := checkapp.NewOrchestrator(execs, checkapp.Config{Logger: logger, Broker: broker})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	always := func(v bool) networkapp.Probe {
		return func(context.Context) (bool, error) { return v, nil }
	}
	resolver := networkapp.NewResolver(lookup, networkapp.Probes{
		VPN:   always(true),
		IPv6:  always(false),
		HTTPS: func(context.Context) (bool, error) { return false, errors.New("tls handshake timeout") },
	}, networkapp.Config{Logger: logger, Broker: broker})

	container := &application.Container{Broker: broker, Checks: orch, Profile: resolver}
	getAppContext(nil).Services = container
	return container
}

// allPassing returns one passing executor for every catalog kind.
func allPassing() []checker.Checker {
	var execs []checker.Checker
	for _, k := range check.Kinds() {
		execs = append(execs, staticOutcome(k, check.CheckStatusPass, k.Title()+" looks good"))
	}
	return execs
}

// runCommand executes c.RunE with its output captured.
func runCommand(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetContext(context.Background())
	t.Cleanup(func() {
		c.SetOut(nil)
		c.SetErr(nil)
	})
	err := c.RunE(c, args)
	return buf.String(), err
}
