package netprobe

import (
	"context"
	"fmt"
	"net"
	"strings"

	sockaddr "github.com/hashicorp/go-sockaddr"
	gopsnet "github.com/shirou/gopsutil/v3/net"

	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

// Interface is the subset of interface state the probes care about.
type Interface struct {
	Name     string
	Up       bool
	Loopback bool
	Addrs    []net.IP
}

// tunnelPrefixes are interface name prefixes used by VPN clients on macOS and Linux.
var tunnelPrefixes = []string{"utun", "tun", "tap", "wg", "ppp", "ipsec", "gpd", "tailscale", "nordlynx", "zt"}

// ListInterfaces reads the interface table.
func ListInterfaces(ctx context.Context) ([]Interface, error) {
	stats, err := gopsnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrNoInterfaces, err)
	}

	out := make([]Interface, 0, len(stats))
	for _, st := range stats {
		iface := Interface{Name: st.Name}
		for _, flag := range st.Flags {
			switch flag {
			case "up":
				iface.Up = true
			case "loopback":
				iface.Loopback = true
			}
		}
		for _, addr := range st.Addrs {
			if ip := parseInterfaceAddr(addr.Addr); ip != nil {
				iface.Addrs = append(iface.Addrs, ip)
			}
		}
		out = append(out, iface)
	}
	return out, nil
}

func parseInterfaceAddr(raw string) net.IP {
	raw = strings.TrimSpace(raw)
	if ip, _, err := net.ParseCIDR(stripZone(raw)); err == nil {
		return ip
	}
	return net.ParseIP(stripZone(raw))
}

// stripZone drops an IPv6 zone ("fe80::1%en0/64" -> "fe80::1/64").
func stripZone(s string) string {
	pct := strings.Index(s, "%")
	if pct < 0 {
		return s
	}
	slash := strings.Index(s[pct:], "/")
	if slash < 0 {
		return s[:pct]
	}
	return s[:pct] + s[pct+slash:]
}

// IsTunnelName reports whether name looks like a VPN tunnel interface.
func IsTunnelName(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range tunnelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// ActiveTunnels returns tunnel interfaces that are up and carry a routable
// address. macOS keeps several idle utun devices with only link-local
// addresses, which do not count.
func ActiveTunnels(ifaces []Interface) []Interface {
	var out []Interface
	for _, iface := range ifaces {
		if !iface.Up || iface.Loopback || !IsTunnelName(iface.Name) {
			continue
		}
		for _, ip := range iface.Addrs {
			if isRoutable(ip) {
				out = append(out, iface)
				break
			}
		}
	}
	return out
}

func isRoutable(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		return !v4.IsLoopback() && !v4.IsLinkLocalUnicast() && !v4.IsUnspecified()
	}
	return IsGlobalIPv6(ip)
}

// IsGlobalIPv6 reports whether ip is a global unicast IPv6 address.
// Link-local, ULA, multicast, loopback and IPv4-mapped addresses are not.
func IsGlobalIPv6(ip net.IP) bool {
	ip16 := ip.To16()
	if ip16 == nil || ip16.To4() != nil {
		return false
	}
	if ip16.IsUnspecified() || ip16.IsLoopback() || ip16.IsLinkLocalUnicast() {
		return false
	}
	// ULA fc00::/7
	if ip16[0]&0xfe == 0xfc {
		return false
	}
	// multicast ff00::/8
	if ip16[0] == 0xff {
		return false
	}
	return true
}

// GlobalIPv6Addrs lists global IPv6 addresses on interfaces that are up.
func GlobalIPv6Addrs() ([]net.IP, error) {
	ifAddrs, err := sockaddr.GetAllInterfaces()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrNoInterfaces, err)
	}

	var out []net.IP
	for _, ifAddr := range ifAddrs {
		if ifAddr.Interface.Flags&net.FlagUp == 0 || ifAddr.Interface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if ifAddr.SockAddr.Type() != sockaddr.TypeIPv6 {
			continue
		}
		v6 := sockaddr.ToIPv6Addr(ifAddr.SockAddr)
		if v6 == nil {
			continue
		}
		if ip := *v6.NetIP(); IsGlobalIPv6(ip) {
			out = append(out, ip)
		}
	}
	return out, nil
}
