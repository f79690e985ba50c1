package check

import (
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

// CheckStatus classifies a completed check. The values are distinct
// classifications, not an ordering of severity.
type CheckStatus string

const (
	CheckStatusPass    CheckStatus = "pass"
	CheckStatusWarning CheckStatus = "warning"
	CheckStatusFail    CheckStatus = "fail"
	CheckStatusInfo    CheckStatus = "info"
	// CheckStatusError means the probe itself could not produce a verdict.
	CheckStatusError CheckStatus = "error"
)

func (s CheckStatus) Valid() bool {
	switch s {
	case CheckStatusPass, CheckStatusWarning, CheckStatusFail, CheckStatusInfo, CheckStatusError:
		return true
	}
	return false
}

// Problem reports whether the status should make a strict run exit non-zero.
func (s CheckStatus) Problem() bool {
	return s == CheckStatusFail || s == CheckStatusError
}

func (s CheckStatus) String() string {
	return string(s)
}

func ParseStatus(raw string) (CheckStatus, error) {
	s := CheckStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", sharedErrors.ErrInvalidStatus, raw)
	}
	return s, nil
}
