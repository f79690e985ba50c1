package checker

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/coreos/go-iptables/iptables"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

const defaultSocketFilter = "/usr/libexec/ApplicationFirewall/socketfilterfw"

// RuleLister lists the rules of one iptables chain.
type RuleLister interface {
	List(table, chain string) ([]string, error)
}

// FirewallChecker reports whether unsolicited inbound traffic is blocked.
type FirewallChecker struct {
	GOOS             string
	Run              CommandRunner
	SocketFilterPath string
	NewIPTables      func() (RuleLister, error)
}

type appFirewallState int

const (
	appFirewallUnknown appFirewallState = iota - 1
	appFirewallOff
	appFirewallOn
	appFirewallBlockAll
)

var globalStateRe = regexp.MustCompile(`State = (\d)`)

func (c *FirewallChecker) Kind() check.Kind { return check.KindFirewall }

func (c *FirewallChecker) Check(ctx context.Context) (check.Outcome, error) {
	goos := c.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	switch goos {
	case "darwin":
		return c.checkApplicationFirewall(ctx)
	case "linux":
		return c.checkIPTables()
	default:
		return check.Outcome{}, fmt.Errorf("%w: firewall inspection on %s", sharedErrors.ErrUnsupportedPlatform, goos)
	}
}

func (c *FirewallChecker) checkApplicationFirewall(ctx context.Context) (check.Outcome, error) {
	run := c.Run
	if run == nil {
		run = ExecRunner
	}
	path := c.SocketFilterPath
	if path == "" {
		path = defaultSocketFilter
	}

	out, err := run(ctx, path, "--getglobalstate")
	if err != nil {
		return check.Outcome{}, fmt.Errorf("failed to read firewall state: %w", err)
	}
	state := parseGlobalState(string(out))
	if state == appFirewallUnknown {
		return check.Outcome{}, fmt.Errorf("%w: %q", sharedErrors.ErrUnexpectedOutput, strings.TrimSpace(string(out)))
	}

	stealth, stealthErr := false, error(nil)
	if stealthOut, err := run(ctx, path, "--getstealthmode"); err != nil {
		stealthErr = err
	} else {
		stealth = parseStealthMode(string(stealthOut))
	}

	var outcome check.Outcome
	switch {
	case state == appFirewallOff:
		outcome = check.NewOutcome(check.CheckStatusFail, "Application firewall is disabled")
		outcome.AddNote("Enable it in System Settings > Network > Firewall.")
	case state == appFirewallBlockAll:
		outcome = check.NewOutcome(check.CheckStatusPass, "Firewall blocks all incoming connections")
	case stealth:
		outcome = check.NewOutcome(check.CheckStatusPass, "Firewall enabled with stealth mode")
	default:
		outcome = check.NewOutcome(check.CheckStatusWarning, "Firewall enabled, stealth mode off")
		outcome.AddNote("Stealth mode stops the machine answering probes such as ICMP ping.")
	}

	outcome.AddDetail("Backend", "Application Firewall")
	outcome.AddDetail("State", strings.TrimSpace(string(out)))
	if stealthErr != nil {
		outcome.AddNote("Stealth mode could not be read: %v", stealthErr)
	} else {
		outcome.AddDetail("Stealth mode", strconv.FormatBool(stealth))
	}
	return outcome, nil
}

func (c *FirewallChecker) checkIPTables() (check.Outcome, error) {
	newIPT := c.NewIPTables
	if newIPT == nil {
		newIPT = func() (RuleLister, error) { return iptables.New() }
	}
	ipt, err := newIPT()
	if err != nil {
		return check.Outcome{}, fmt.Errorf("failed to open iptables: %w", err)
	}
	rules, err := ipt.List("filter", "INPUT")
	if err != nil {
		return check.Outcome{}, fmt.Errorf("failed to list INPUT chain: %w", err)
	}

	policy := ""
	appended, blocking := 0, 0
	for _, rule := range rules {
		fields := strings.Fields(rule)
		switch {
		case len(fields) >= 3 && fields[0] == "-P" && fields[1] == "INPUT":
			policy = fields[2]
		case len(fields) >= 2 && fields[0] == "-A":
			appended++
			if strings.Contains(rule, "-j DROP") || strings.Contains(rule, "-j REJECT") {
				blocking++
			}
		}
	}
	if policy == "" {
		return check.Outcome{}, fmt.Errorf("%w: INPUT chain has no policy", sharedErrors.ErrUnexpectedOutput)
	}

	var outcome check.Outcome
	switch {
	case policy == "DROP" || policy == "REJECT":
		outcome = check.NewOutcome(check.CheckStatusPass, "Inbound traffic is dropped by default")
	case blocking > 0:
		outcome = check.NewOutcome(check.CheckStatusWarning, "Inbound policy is ACCEPT with filtering rules")
		outcome.AddNote("Anything not matched by a rule is accepted.")
	default:
		outcome = check.NewOutcome(check.CheckStatusFail, "No inbound filtering is configured")
	}
	outcome.AddDetail("Backend", "iptables")
	outcome.AddDetail("INPUT policy", policy)
	outcome.AddDetail("Rules", strconv.Itoa(appended))
	return outcome, nil
}

func parseGlobalState(out string) appFirewallState {
	if m := globalStateRe.FindStringSubmatch(out); m != nil {
		switch m[1] {
		case "0":
			return appFirewallOff
		case "1":
			return appFirewallOn
		case "2":
			return appFirewallBlockAll
		}
	}
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "disabled"):
		return appFirewallOff
	case strings.Contains(lower, "blocking all"):
		return appFirewallBlockAll
	case strings.Contains(lower, "enabled"):
		return appFirewallOn
	}
	return appFirewallUnknown
}

func parseStealthMode(out string) bool {
	lower := strings.ToLower(out)
	if strings.Contains(lower, "disabled") || strings.Contains(lower, " is off") {
		return false
	}
	return strings.Contains(lower, "enabled") || strings.Contains(lower, " is on")
}
