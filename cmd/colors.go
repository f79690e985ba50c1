package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass":
		return colorSuccess(status)
	case "warning", "warn":
		return colorWarn(status)
	case "info":
		return colorInfo(status)
	case "error", "fail", "failed":
		return colorError(status)
	default:
		return status
	}
}

// statusSymbol is the single-column marker printed before each result.
func statusSymbol(status string) string {
	switch strings.ToLower(status) {
	case "pass":
		return colorSuccess("✓")
	case "warning":
		return colorWarn("!")
	case "info":
		return colorInfo("i")
	case "fail", "error":
		return colorError("✗")
	}
	return "-"
}
