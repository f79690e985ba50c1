package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	networkapp "github.com/khanhnv2901/seca-audit/internal/application/network"
	"github.com/khanhnv2901/seca-audit/internal/domain/check"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// orderedResults picks the results for kinds in catalog order, skipping kinds
// that have none.
func orderedResults(results map[check.Kind]*check.Result, kinds []check.Kind) []*check.Result {
	out := make([]*check.Result, 0, len(kinds))
	for _, k := range check.Kinds() {
		if !containsKind(kinds, k) {
			continue
		}
		if r, ok := results[k]; ok && r != nil {
			out = append(out, r)
		}
	}
	return out
}

func containsKind(kinds []check.Kind, k check.Kind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}

func countProblems(results []*check.Result) int {
	n := 0
	for _, r := range results {
		if r.Status().Problem() {
			n++
		}
	}
	return n
}

func renderResults(w io.Writer, results []*check.Result) {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		status := r.Status().String()
		fmt.Fprintf(w, "%s %s [%s] %s\n", statusSymbol(status), colorBold(r.Kind().Title()),
			formatStatusWithColor(status), formatDuration(r.Duration()))
		fmt.Fprintf(w, "  %s\n", r.Headline())
		for _, d := range r.Details() {
			fmt.Fprintf(w, "    %-18s %s\n", d.Label+":", d.Value)
		}
		for _, note := range r.Notes() {
			fmt.Fprintf(w, "    - %s\n", note)
		}
	}
}

func renderSummary(w io.Writer, results []*check.Result) {
	counts := make(map[check.CheckStatus]int)
	for _, r := range results {
		counts[r.Status()]++
	}
	fmt.Fprintf(w, "\n%d checks: %s pass, %s warning, %s fail, %s info, %s error\n",
		len(results),
		colorSuccess(counts[check.CheckStatusPass]),
		colorWarn(counts[check.CheckStatusWarning]),
		colorError(counts[check.CheckStatusFail]),
		colorInfo(counts[check.CheckStatusInfo]),
		colorError(counts[check.CheckStatusError]))
}

func renderProfile(w io.Writer, state networkapp.State) {
	snap := state.Snapshot
	value := func(v string, ok bool) string {
		if !ok {
			return "unknown"
		}
		return v
	}

	fmt.Fprintln(w, colorBold("Network profile"))
	fmt.Fprintf(w, "  %-16s %s\n", "Public IP:", value(snap.PublicIP()))
	fmt.Fprintf(w, "  %-16s %s\n", "Location:", value(snap.Geo()))
	fmt.Fprintf(w, "  %-16s %s\n", "ISP:", value(snap.ISP()))
	fmt.Fprintf(w, "  %-16s %s\n", "ASN:", value(snap.ASN()))
	fmt.Fprintf(w, "  %-16s %s\n", "Timezone:", value(snap.Timezone()))
	if coords, ok := snap.Coordinates(); ok {
		fmt.Fprintf(w, "  %-16s %s\n", "Coordinates:", coords.String())
	}
	fmt.Fprintf(w, "  %-16s %s\n", "VPN active:", yesNo(snap.VPNActive()))
	fmt.Fprintf(w, "  %-16s %s\n", "IPv6 enabled:", yesNo(snap.IPv6Enabled()))
	fmt.Fprintf(w, "  %-16s %s\n", "HTTPS works:", yesNo(snap.HTTPSReachable()))
	if at := snap.ResolvedAt(); !at.IsZero() {
		fmt.Fprintf(w, "  %-16s %s\n", "Resolved at:", at.Local().Format(time.RFC1123))
	} else {
		fmt.Fprintf(w, "  %-16s %s\n", "Resolved at:", "never")
	}
	if state.Error != "" {
		fmt.Fprintf(w, "  %s %s\n", colorError("Error:"), state.Error)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
