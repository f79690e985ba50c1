package cmd

import (
	"testing"

	"github.com/fatih/color"
)

func TestFormatStatusWithColor(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})

	tests := []struct {
		name   string
		status string
		want   string
	}{
		{name: "pass", status: "pass", want: "pass"},
		{name: "warning", status: "warning", want: "warning"},
		{name: "failure", status: "FAIL", want: "FAIL"},
		{name: "unknown", status: "pending", want: "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatStatusWithColor(tt.status); got != tt.want {
				t.Fatalf("formatStatusWithColor(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestStatusSymbol(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})

	tests := map[string]string{
		"pass":    "✓",
		"warning": "!",
		"info":    "i",
		"fail":    "✗",
		"error":   "✗",
		"other":   "-",
	}
	for status, want := range tests {
		if got := statusSymbol(status); got != want {
			t.Errorf("statusSymbol(%q) = %q, want %q", status, got, want)
		}
	}
}
