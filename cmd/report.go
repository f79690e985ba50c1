package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/security"
	consts "github.com/khanhnv2901/seca-audit/internal/shared/constants"
)

// ReportData is what the PDF report renders.
type ReportData struct {
	Hostname    string
	GeneratedAt time.Time
	Results     []*check.Result
}

func newReportData(results []*check.Result, now time.Time) ReportData {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return ReportData{Hostname: host, GeneratedAt: now, Results: results}
}

// defaultReportName is used when --pdf is given without a file name.
func defaultReportName(now time.Time) string {
	return fmt.Sprintf("seca-audit-%s.pdf", now.UTC().Format("20060102T150405Z"))
}

// writePDFReport renders data into resultsDir/name. The name may not escape resultsDir.
func writePDFReport(resultsDir, name string, data ReportData) (string, error) {
	path, err := security.ResolveReportPath(resultsDir, name, defaultReportName(data.GeneratedAt))
	if err != nil {
		return "", fmt.Errorf("invalid report path: %w", err)
	}

	content, err := generatePDFReportBytes(data)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, content, consts.DefaultFilePerm); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func generatePDFReportBytes(data ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr("Security Posture Report: "+data.Hostname), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", data.GeneratedAt.Format(time.RFC3339)), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Summary section
	counts := make(map[check.CheckStatus]int)
	for _, r := range data.Results {
		counts[r.Status()]++
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Checks: %d | Pass: %d | Warning: %d | Fail: %d | Info: %d | Error: %d",
		len(data.Results),
		counts[check.CheckStatusPass],
		counts[check.CheckStatusWarning],
		counts[check.CheckStatusFail],
		counts[check.CheckStatusInfo],
		counts[check.CheckStatusError]), "", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Results", "", 1, "", false, 0, "")
	pdf.Ln(2)

	for _, r := range data.Results {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 11)
		red, green, blue := statusFill(r.Status())
		pdf.SetFillColor(red, green, blue)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s - %s", r.Kind().Title(), strings.ToUpper(r.Status().String()))), "", 1, "", true, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, tr(r.Headline()), "", "", false)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 4, tr(r.Kind().Summary()), "", 1, "", false, 0, "")

		pdf.SetFont("Arial", "", 8)
		for _, d := range r.Details() {
			pdf.MultiCell(0, 4, tr(fmt.Sprintf("  %s: %s", d.Label, d.Value)), "", "", false)
		}
		if notes := r.Notes(); len(notes) > 0 {
			pdf.SetFont("Arial", "I", 8)
			for _, note := range notes {
				if pdf.GetY() > 270 {
					pdf.AddPage()
				}
				pdf.MultiCell(0, 4, tr("  - "+note), "", "", false)
			}
		}
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 4, fmt.Sprintf("Finished %s in %s",
			r.FinishedAt().Format(time.RFC3339), formatDuration(r.Duration())), "", 1, "", false, 0, "")

		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func statusFill(status check.CheckStatus) (int, int, int) {
	switch status {
	case check.CheckStatusPass:
		return 220, 240, 220
	case check.CheckStatusWarning:
		return 250, 240, 200
	case check.CheckStatusFail, check.CheckStatusError:
		return 245, 215, 215
	}
	return 235, 235, 240
}
