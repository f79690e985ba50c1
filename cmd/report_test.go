package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/security"
)

func sampleResults(t *testing.T) []*check.Result {
	t.Helper()
	finished := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	dns := check.NewOutcome(check.CheckStatusPass, "All resolvers are privacy resolvers")
	dns.AddDetail("Resolvers", "1.1.1.1, 9.9.9.9")

	exposure := check.NewOutcome(check.CheckStatusWarning, "Public IP 203.0.113.7 (München, DE)")
	exposure.AddDetail("ISP", "Example Telecom")
	exposure.AddNote("Sites you visit can see this location.")

	dnsResult, err := check.NewResult(check.KindDNS, dns, finished, 120*time.Millisecond)
	if err != nil {
		t.Fatalf("NewResult: %v", err)
	}
	exposureResult, err := check.NewResult(check.KindIPExposure, exposure, finished, 2*time.Second)
	if err != nil {
		t.Fatalf("NewResult: %v", err)
	}
	return []*check.Result{dnsResult, exposureResult}
}

func TestGeneratePDFReportBytes(t *testing.T) {
	data := ReportData{
		Hostname:    "test-mac",
		GeneratedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Results:     sampleResults(t),
	}

	pdf, err := generatePDFReportBytes(data)
	if err != nil {
		t.Fatalf("generatePDFReportBytes: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", pdf[:8])
	}
	if len(pdf) < 1000 {
		t.Errorf("PDF suspiciously small: %d bytes", len(pdf))
	}
}

func TestGeneratePDFReportBytes_NoResults(t *testing.T) {
	pdf, err := generatePDFReportBytes(ReportData{Hostname: "empty", GeneratedAt: time.Now()})
	if err != nil {
		t.Fatalf("generatePDFReportBytes: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatal("expected PDF header")
	}
}

func TestWritePDFReport(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	data := ReportData{Hostname: "test-mac", GeneratedAt: now, Results: sampleResults(t)}

	tests := []struct {
		name string
		file string
		want string
	}{
		{name: "default name", file: " ", want: "seca-audit-20260301T100000Z.pdf"},
		{name: "adds extension", file: "weekly", want: "weekly.pdf"},
		{name: "keeps extension", file: "Audit.PDF", want: "Audit.PDF"},
		{name: "subdirectory", file: "2026/march.pdf", want: filepath.Join("2026", "march.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := writePDFReport(dir, tt.file, data)
			if err != nil {
				t.Fatalf("writePDFReport: %v", err)
			}
			if path != filepath.Join(dir, tt.want) {
				t.Errorf("expected %s, got %s", filepath.Join(dir, tt.want), path)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("report not written: %v", err)
			}
		})
	}

	_, err := writePDFReport(dir, "../../etc/evil.pdf", data)
	if !errors.Is(err, security.ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
}

func TestStatusFill(t *testing.T) {
	r, g, b := statusFill(check.CheckStatusFail)
	r2, g2, b2 := statusFill(check.CheckStatusError)
	if r != r2 || g != g2 || b != b2 {
		t.Error("fail and error should share a fill colour")
	}
	if _, g, _ := statusFill(check.CheckStatusPass); g <= 230 {
		t.Error("pass should be tinted green")
	}
	if !strings.HasPrefix(defaultReportName(time.Unix(0, 0)), "seca-audit-19700101") {
		t.Errorf("unexpected default report name %s", defaultReportName(time.Unix(0, 0)))
	}
}
