package checker

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

const (
	defaultResolvConf   = "/etc/resolv.conf"
	defaultDNSProbeName = "whoami.akamai.net"
)

// knownResolvers maps public resolver addresses with a published privacy policy to their operator.
var knownResolvers = map[string]string{
	"1.1.1.1":              "Cloudflare",
	"1.0.0.1":              "Cloudflare",
	"2606:4700:4700::1111": "Cloudflare",
	"2606:4700:4700::1001": "Cloudflare",
	"9.9.9.9":              "Quad9",
	"149.112.112.112":      "Quad9",
	"2620:fe::fe":          "Quad9",
	"2620:fe::9":           "Quad9",
	"8.8.8.8":              "Google Public DNS",
	"8.8.4.4":              "Google Public DNS",
	"2001:4860:4860::8888": "Google Public DNS",
	"2001:4860:4860::8844": "Google Public DNS",
	"208.67.222.222":       "OpenDNS",
	"208.67.220.220":       "OpenDNS",
	"94.140.14.14":         "AdGuard DNS",
	"94.140.15.15":         "AdGuard DNS",
	"194.242.2.2":          "Mullvad DNS",
}

// DNSChecker classifies the configured resolvers and learns which resolver
// actually reaches the internet on our behalf.
type DNSChecker struct {
	ResolvConf string
	// ProbeName answers with the address of the recursive resolver that asked.
	ProbeName string
	Timeout   time.Duration

	LoadConfig func(path string) (*dns.ClientConfig, error)
	Exchange   func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error)
}

func (d *DNSChecker) Kind() check.Kind { return check.KindDNS }

func (d *DNSChecker) Check(ctx context.Context) (check.Outcome, error) {
	path := d.ResolvConf
	if path == "" {
		path = defaultResolvConf
	}
	load := d.LoadConfig
	if load == nil {
		load = dns.ClientConfigFromFile
	}

	cfg, err := load(path)
	if err != nil {
		return check.Outcome{}, fmt.Errorf("failed to read resolver configuration: %w", err)
	}
	if cfg == nil || len(cfg.Servers) == 0 {
		return check.Outcome{}, sharedErrors.ErrNoResolvers
	}

	var known, local, unknown []string
	for _, server := range cfg.Servers {
		label := server
		ip := net.ParseIP(strings.SplitN(server, "%", 2)[0])
		switch {
		case ip == nil:
			unknown = append(unknown, label)
		case knownResolvers[ip.String()] != "":
			known = append(known, fmt.Sprintf("%s (%s)", server, knownResolvers[ip.String()]))
		case ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast():
			local = append(local, label)
		default:
			unknown = append(unknown, label)
		}
	}

	var outcome check.Outcome
	switch {
	case len(unknown) > 0:
		outcome = check.NewOutcome(check.CheckStatusWarning, "Unrecognized public DNS resolver in use")
		outcome.AddNote("Queries to %s are visible to an operator without a known privacy policy.", strings.Join(unknown, ", "))
	case len(local) > 0:
		outcome = check.NewOutcome(check.CheckStatusInfo, "DNS is handled by a local resolver")
		outcome.AddNote("The router or local stub decides which upstream resolver is used.")
	default:
		outcome = check.NewOutcome(check.CheckStatusPass, "DNS queries go to a privacy-respecting resolver")
	}

	outcome.AddDetail("Known resolvers", strings.Join(known, ", "))
	outcome.AddDetail("Local resolvers", strings.Join(local, ", "))
	outcome.AddDetail("Other resolvers", strings.Join(unknown, ", "))
	outcome.AddDetail("Search domains", strings.Join(cfg.Search, ", "))

	egress, err := d.egressResolvers(ctx, cfg)
	if err != nil {
		outcome.AddNote("Egress resolver lookup failed: %v", err)
	} else {
		outcome.AddDetail("Egress resolver", strings.Join(egress, ", "))
	}

	return outcome, nil
}

// egressResolvers asks the first configured resolver for ProbeName; the A
// records in the answer are the public addresses of the recursor in use.
func (d *DNSChecker) egressResolvers(ctx context.Context, cfg *dns.ClientConfig) ([]string, error) {
	name := d.ProbeName
	if name == "" {
		name = defaultDNSProbeName
	}
	port := cfg.Port
	if port == "" {
		port = "53"
	}
	exchange := d.Exchange
	if exchange == nil {
		exchange = d.defaultExchange
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)
	msg.RecursionDesired = true

	resp, err := exchange(ctx, msg, net.JoinHostPort(cfg.Servers[0], port))
	if err != nil {
		return nil, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("resolver answered %s", dns.RcodeToString[resp.Rcode])
	}

	var out []string
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			out = append(out, a.A.String())
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no A records for %s", name)
	}
	return out, nil
}

func (d *DNSChecker) defaultExchange(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := &dns.Client{Net: "udp", Timeout: timeout}
	resp, _, err := client.ExchangeContext(ctx, m, addr)
	return resp, err
}
