package checker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/netprobe"
)

// Checker probes one kind. Returning an error means the probe could not
// produce a verdict; the orchestrator records that as an error result.
type Checker interface {
	Kind() check.Kind
	Check(ctx context.Context) (check.Outcome, error)
}

// IdentityLookup resolves the public IP and what is known about it.
type IdentityLookup interface {
	PublicIP(ctx context.Context) (string, error)
	Locate(ctx context.Context, ip string) (netprobe.Location, error)
}

// CommandRunner runs a system command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- callers pass fixed system binaries and flags.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
		}
		return out, fmt.Errorf("%s %s: %w (%s)", name, strings.Join(args, " "), err, msg)
	}
	return out, nil
}

// Func adapts a plain function into a Checker.
type Func struct {
	K  check.Kind
	Fn func(ctx context.Context) (check.Outcome, error)
}

func (f Func) Kind() check.Kind { return f.K }

func (f Func) Check(ctx context.Context) (check.Outcome, error) {
	return f.Fn(ctx)
}
