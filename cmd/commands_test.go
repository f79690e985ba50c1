package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khanhnv2901/seca-audit/internal/checker"
	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/security"
)

func TestSuiteCommand_AllKindsInCatalogOrder(t *testing.T) {
	disableColor(t)
	defer setupTestAppContext(t)()
	useTestServices(t, fixedLookup{ip: "203.0.113.7"}, allPassing()...)

	output, err := runCommand(t, suiteCmd)
	if err != nil {
		t.Fatalf("suite command failed: %v", err)
	}

	last := -1
	for _, k := range check.Kinds() {
		at := strings.Index(output, k.Title()+" [pass]")
		if at < 0 {
			t.Fatalf("missing result for %s in:\n%s", k, output)
		}
		if at < last {
			t.Errorf("%s is out of catalog order", k)
		}
		last = at
	}
	if !strings.Contains(output, "[Suite] Progress:") {
		t.Errorf("expected progress line, got:\n%s", output)
	}
	if !strings.Contains(output, "7 checks: 7 pass") {
		t.Errorf("expected summary, got:\n%s", output)
	}
}

func TestSuiteCommand_ProgressCountsOnlyStartedKinds(t *testing.T) {
	disableColor(t)
	defer setupTestAppContext(t)()

	release := make(chan struct{})
	execs := allPassing()
	execs[0] = checker.Func{K: check.KindDNS, Fn: func(ctx context.Context) (check.Outcome, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return check.NewOutcome(check.CheckStatusPass, "late"), nil
	}}
	services := useTestServices(t, fixedLookup{ip: "203.0.113.7"}, execs...)
	defer close(release)

	if _, err := services.Checks.RunCheck(check.KindDNS); err != nil {
		t.Fatalf("RunCheck: %v", err)
	}

	output, err := runCommand(t, suiteCmd)
	if err != nil {
		t.Fatalf("suite command failed: %v", err)
	}
	if !strings.Contains(output, "Progress: 6/6 (100.0%)") {
		t.Errorf("expected progress sized to the six started kinds, got:\n%s", output)
	}
	if !services.Checks.IsRunning(check.KindDNS) {
		t.Error("the earlier dns run should still be in flight")
	}
}

func TestSuiteCommand_PDFReport(t *testing.T) {
	defer setupTestAppContext(t)()
	useTestServices(t, fixedLookup{ip: "203.0.113.7"}, allPassing()...)
	appCtx := getAppContext(nil)
	appCtx.Config.Check.JSON = true
	appCtx.Config.Check.PDFName = "weekly"

	output, err := runCommand(t, suiteCmd)
	if err != nil {
		t.Fatalf("suite command failed: %v", err)
	}
	if !strings.Contains(output, "PDF report written to") {
		t.Errorf("expected report path in output, got:\n%s", output)
	}

	data, err := os.ReadFile(filepath.Join(appCtx.ResultsDir, "weekly.pdf"))
	if err != nil {
		t.Fatalf("expected PDF in results dir: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Errorf("report is not a PDF")
	}
}

func TestSuiteCommand_PDFPathEscape(t *testing.T) {
	defer setupTestAppContext(t)()
	useTestServices(t, fixedLookup{ip: "203.0.113.7"}, allPassing()...)
	appCtx := getAppContext(nil)
	appCtx.Config.Check.JSON = true
	appCtx.Config.Check.PDFName = "../outside.pdf"

	_, err := runCommand(t, suiteCmd)
	if !errors.Is(err, security.ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
}

func TestSuiteCommand_JSONStrict(t *testing.T) {
	defer setupTestAppContext(t)()
	execs := allPassing()
	execs[2] = staticOutcome(check.KindFirewall, check.CheckStatusFail, "Firewall is disabled")
	useTestServices(t, fixedLookup{ip: "203.0.113.7"}, execs...)
	getAppContext(nil).Config.Check.JSON = true

	output, err := runCommand(t, suiteCmd)
	var problems *ProblemsError
	if !errors.As(err, &problems) || problems.Problems != 1 || problems.Total != 7 {
		t.Fatalf("expected 1 of 7 problems, got %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if len(decoded) != 7 || decoded[2]["kind"] != "firewall" || decoded[2]["status"] != "fail" {
		t.Errorf("unexpected suite JSON: %+v", decoded)
	}
}

func TestProfileCommand(t *testing.T) {
	disableColor(t)
	defer setupTestAppContext(t)()
	useTestServices(t, fixedLookup{ip: "203.0.113.7"})

	output, err := runCommand(t, profileCmd)
	if err != nil {
		t.Fatalf("profile command failed: %v", err)
	}
	for _, want := range []string{"203.0.113.7", "Berlin, DE", "Example Telecom", "52.52,13.4"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
	if !strings.Contains(output, "VPN active:") || strings.Contains(output, "never") {
		t.Errorf("expected a resolved profile, got:\n%s", output)
	}
}

func TestProfileCommand_IPFailure(t *testing.T) {
	defer setupTestAppContext(t)()
	useTestServices(t, fixedLookup{err: errors.New("all endpoints failed")})
	getAppContext(nil).Config.Profile.JSON = true

	output, err := runCommand(t, profileCmd)
	var profileErr *ProfileError
	if !errors.As(err, &profileErr) {
		t.Fatalf("expected ProfileError, got %v", err)
	}
	if !strings.Contains(profileErr.Message, "all endpoints failed") {
		t.Errorf("expected lookup failure in message, got %q", profileErr.Message)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if decoded["error"] == nil {
		t.Errorf("expected error field in JSON, got %+v", decoded)
	}
	if decoded["is_loading"] != false {
		t.Errorf("expected is_loading=false, got %v", decoded["is_loading"])
	}
}

func TestCatalogCommand(t *testing.T) {
	disableColor(t)
	_ = catalogCmd.Flags().Set("json", "false")

	output, err := runCommand(t, catalogCmd)
	if err != nil {
		t.Fatalf("catalog command failed: %v", err)
	}
	if !strings.HasPrefix(output, "1. DNS Configuration (dns)") {
		t.Errorf("expected DNS first, got:\n%s", output)
	}
	if !strings.Contains(output, "7. HTTPS Reachability (https)") {
		t.Errorf("expected HTTPS last, got:\n%s", output)
	}

	if err := catalogCmd.Flags().Set("json", "true"); err != nil {
		t.Fatalf("set json flag: %v", err)
	}
	t.Cleanup(func() { _ = catalogCmd.Flags().Set("json", "false") })

	output, err = runCommand(t, catalogCmd)
	if err != nil {
		t.Fatalf("catalog command failed: %v", err)
	}
	var entries []map[string]string
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(entries) != len(check.Kinds()) || entries[3]["kind"] != "ip_exposure" {
		t.Errorf("unexpected catalog JSON: %+v", entries)
	}
}

func TestInfoCommand(t *testing.T) {
	defer setupTestAppContext(t)()

	output, err := runCommand(t, infoCmd)
	if err != nil {
		t.Fatalf("info command failed: %v", err)
	}

	appCtx := getAppContext(nil)
	expected := []string{
		"seca-audit System Information",
		"Platform:",
		appCtx.ResultsDir,
		filepath.Join(appCtx.LogDir, "seca-audit.log"),
		"Check timeout:      15s",
		"SECA_AUDIT_",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var buf strings.Builder
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	if got := buf.String(); got != "seca-audit version "+Version+"\n" {
		t.Errorf("unexpected version output %q", got)
	}
}
