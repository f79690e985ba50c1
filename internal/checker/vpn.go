package checker

import (
	"context"
	"net"
	"strings"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/netprobe"
)

// VPNChecker looks for an active tunnel interface.
type VPNChecker struct {
	Interfaces func(ctx context.Context) ([]netprobe.Interface, error)
}

func (c *VPNChecker) Kind() check.Kind { return check.KindVPN }

func (c *VPNChecker) Check(ctx context.Context) (check.Outcome, error) {
	list := c.Interfaces
	if list == nil {
		list = netprobe.ListInterfaces
	}
	ifaces, err := list(ctx)
	if err != nil {
		return check.Outcome{}, err
	}

	tunnels := netprobe.ActiveTunnels(ifaces)
	if len(tunnels) == 0 {
		outcome := check.NewOutcome(check.CheckStatusWarning, "No active VPN tunnel detected")
		outcome.AddNote("Traffic leaves through the local network provider.")
		return outcome, nil
	}

	names := make([]string, 0, len(tunnels))
	for _, t := range tunnels {
		names = append(names, t.Name)
	}
	outcome := check.NewOutcome(check.CheckStatusPass, "VPN tunnel active on "+strings.Join(names, ", "))
	for _, t := range tunnels {
		outcome.AddDetail(t.Name, joinIPs(t.Addrs))
	}
	return outcome, nil
}

func joinIPs(ips []net.IP) string {
	parts := make([]string, 0, len(ips))
	for _, ip := range ips {
		parts = append(parts, ip.String())
	}
	return strings.Join(parts, ", ")
}
