package checker

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/netprobe"
)

func interfacesReturning(ifaces []netprobe.Interface, err error) func(context.Context) ([]netprobe.Interface, error) {
	return func(context.Context) ([]netprobe.Interface, error) { return ifaces, err }
}

func TestVPNChecker(t *testing.T) {
	en0 := netprobe.Interface{Name: "en0", Up: true, Addrs: []net.IP{net.ParseIP("192.168.1.20")}}
	lo0 := netprobe.Interface{Name: "lo0", Up: true, Loopback: true, Addrs: []net.IP{net.ParseIP("127.0.0.1")}}
	idleTunnel := netprobe.Interface{Name: "utun0", Up: true, Addrs: []net.IP{net.ParseIP("fe80::1")}}
	wireguard := netprobe.Interface{Name: "utun4", Up: true, Addrs: []net.IP{net.ParseIP("10.64.0.2")}}

	testCases := []struct {
		name     string
		ifaces   []netprobe.Interface
		expected check.CheckStatus
		headline string
	}{
		{name: "No tunnels", ifaces: []netprobe.Interface{lo0, en0}, expected: check.CheckStatusWarning, headline: "No active VPN tunnel detected"},
		{name: "Idle system tunnel", ifaces: []netprobe.Interface{lo0, en0, idleTunnel}, expected: check.CheckStatusWarning, headline: "No active VPN tunnel detected"},
		{name: "Active tunnel", ifaces: []netprobe.Interface{en0, idleTunnel, wireguard}, expected: check.CheckStatusPass, headline: "VPN tunnel active on utun4"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &VPNChecker{Interfaces: interfacesReturning(tc.ifaces, nil)}
			outcome, err := c.Check(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome.Status != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, outcome.Status)
			}
			if outcome.Headline != tc.headline {
				t.Errorf("expected headline %q, got %q", tc.headline, outcome.Headline)
			}
		})
	}
}

func TestVPNChecker_InterfaceError(t *testing.T) {
	c := &VPNChecker{Interfaces: interfacesReturning(nil, errors.New("route socket closed"))}
	if _, err := c.Check(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
