package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a report name would land outside the results directory.
var ErrPathEscape = errors.New("report path escapes results directory")

const reportExt = ".pdf"

// ResolveReportPath turns a user supplied report name into an absolute path
// inside resultsDir. A blank name uses fallback and a missing .pdf extension
// is appended. Absolute names are accepted only when they already point into
// resultsDir.
func ResolveReportPath(resultsDir, name, fallback string) (string, error) {
	if strings.TrimSpace(resultsDir) == "" {
		return "", errors.New("results directory is required")
	}
	root, err := filepath.Abs(resultsDir)
	if err != nil {
		return "", fmt.Errorf("resolve results directory: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	if name == "" {
		return "", errors.New("report name is required")
	}
	if !strings.EqualFold(filepath.Ext(name), reportExt) {
		name += reportExt
	}

	target := name
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}
	return target, nil
}
