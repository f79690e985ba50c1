package check

import (
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

// Kind identifies one security/privacy probe in the fixed catalog.
type Kind string

const (
	KindDNS        Kind = "dns"
	KindProxy      Kind = "proxy"
	KindFirewall   Kind = "firewall"
	KindIPExposure Kind = "ip_exposure"
	KindVPN        Kind = "vpn"
	KindIPv6       Kind = "ipv6"
	KindHTTPS      Kind = "https"
)

// Metadata is the static display information attached to a kind.
type Metadata struct {
	Title   string
	Summary string
}

type catalogEntry struct {
	kind Kind
	meta Metadata
}

// catalog is the display order. It is never mutated after init.
var catalog = []catalogEntry{
	{KindDNS, Metadata{
		Title:   "DNS Configuration",
		Summary: "Checks which resolvers answer your DNS queries and whether they are privacy-respecting.",
	}},
	{KindProxy, Metadata{
		Title:   "Proxy Detection",
		Summary: "Looks for system and environment proxies that could observe or rewrite traffic.",
	}},
	{KindFirewall, Metadata{
		Title:   "Firewall Posture",
		Summary: "Inspects the packet filter to confirm unsolicited inbound connections are blocked.",
	}},
	{KindIPExposure, Metadata{
		Title:   "IP & GeoIP Exposure",
		Summary: "Shows the public IP address and location that remote services can see.",
	}},
	{KindVPN, Metadata{
		Title:   "VPN Presence",
		Summary: "Detects an active tunnel interface carrying traffic off this machine.",
	}},
	{KindIPv6, Metadata{
		Title:   "IPv6 Exposure",
		Summary: "Checks for globally routable IPv6 that may bypass an IPv4-only VPN.",
	}},
	{KindHTTPS, Metadata{
		Title:   "HTTPS Reachability",
		Summary: "Opens a TLS connection to a well-known host and verifies the certificate chain.",
	}},
}

var (
	catalogIndex = make(map[Kind]int, len(catalog))
	kindAliases  = map[string]Kind{
		"ip":                 KindIPExposure,
		"geoip":              KindIPExposure,
		"ipexposure":         KindIPExposure,
		"https_reachability": KindHTTPS,
		"tls":                KindHTTPS,
	}
)

func init() {
	for i, entry := range catalog {
		catalogIndex[entry.kind] = i
	}
}

// Kinds returns every kind in catalog order.
func Kinds() []Kind {
	out := make([]Kind, len(catalog))
	for i, entry := range catalog {
		out[i] = entry.kind
	}
	return out
}

// ParseKind resolves a user supplied name to a Kind.
func ParseKind(raw string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.ReplaceAll(name, "-", "_")
	if k := Kind(name); k.Valid() {
		return k, nil
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", sharedErrors.ErrUnknownKind, raw)
}

// Valid reports whether k belongs to the catalog.
func (k Kind) Valid() bool {
	_, ok := catalogIndex[k]
	return ok
}

// Index returns the catalog position of k, or -1 for unknown kinds.
func (k Kind) Index() int {
	if i, ok := catalogIndex[k]; ok {
		return i
	}
	return -1
}

func (k Kind) Metadata() (Metadata, bool) {
	i, ok := catalogIndex[k]
	if !ok {
		return Metadata{}, false
	}
	return catalog[i].meta, true
}

func (k Kind) Title() string {
	if meta, ok := k.Metadata(); ok {
		return meta.Title
	}
	return string(k)
}

func (k Kind) Summary() string {
	meta, _ := k.Metadata()
	return meta.Summary
}

func (k Kind) String() string {
	return string(k)
}
