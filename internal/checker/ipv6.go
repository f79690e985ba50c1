package checker

import (
	"context"
	"net"
	"time"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/netprobe"
)

const defaultIPv6Target = "[2606:4700:4700::1111]:443"

// IPv6Checker reports global IPv6 connectivity, which can carry traffic
// around a VPN that only tunnels IPv4.
type IPv6Checker struct {
	GlobalAddrs func() ([]net.IP, error)
	Dial        netprobe.DialFunc
	Target      string
	Timeout     time.Duration
}

func (c *IPv6Checker) Kind() check.Kind { return check.KindIPv6 }

func (c *IPv6Checker) Check(ctx context.Context) (check.Outcome, error) {
	addrsFn := c.GlobalAddrs
	if addrsFn == nil {
		addrsFn = netprobe.GlobalIPv6Addrs
	}
	addrs, err := addrsFn()
	if err != nil {
		return check.Outcome{}, err
	}
	if len(addrs) == 0 {
		return check.NewOutcome(check.CheckStatusPass, "No globally routable IPv6 address"), nil
	}

	target := c.Target
	if target == "" {
		target = defaultIPv6Target
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reachable, err := netprobe.Reachable(dialCtx, c.Dial, "tcp6", target)
	if err != nil && ctx.Err() != nil {
		return check.Outcome{}, err
	}

	var outcome check.Outcome
	if reachable {
		outcome = check.NewOutcome(check.CheckStatusWarning, "IPv6 traffic reaches the internet")
		outcome.AddNote("Make sure any VPN in use also tunnels IPv6, or traffic can bypass it.")
	} else {
		outcome = check.NewOutcome(check.CheckStatusInfo, "Global IPv6 address assigned, no IPv6 egress")
		if err != nil {
			outcome.AddNote("IPv6 probe to %s timed out", target)
		}
	}
	outcome.AddDetail("Global addresses", joinIPs(addrs))
	outcome.AddDetail("Probe target", target)
	return outcome, nil
}
