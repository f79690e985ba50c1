package checker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/url"
	"runtime"
	"strings"

	"golang.org/x/net/http/httpproxy"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
)

// ProxyChecker looks for proxies configured in the environment and, on
// macOS, in the system network settings.
type ProxyChecker struct {
	GOOS        string
	Environment func() *httpproxy.Config
	Run         CommandRunner
}

type proxyEndpoint struct {
	Source string
	Scheme string
	Host   string
	Port   string
}

func (p proxyEndpoint) local() bool {
	if strings.EqualFold(p.Host, "localhost") {
		return true
	}
	ip := net.ParseIP(p.Host)
	return ip != nil && ip.IsLoopback()
}

func (p proxyEndpoint) address() string {
	if p.Port == "" {
		return p.Host
	}
	return net.JoinHostPort(p.Host, p.Port)
}

type systemProxySettings struct {
	Proxies       []proxyEndpoint
	PACURL        string
	AutoDiscovery bool
}

func (c *ProxyChecker) Kind() check.Kind { return check.KindProxy }

func (c *ProxyChecker) Check(ctx context.Context) (check.Outcome, error) {
	goos := c.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	envFn := c.Environment
	if envFn == nil {
		envFn = httpproxy.FromEnvironment
	}
	run := c.Run
	if run == nil {
		run = ExecRunner
	}

	var proxies []proxyEndpoint
	env := envFn()
	if env != nil {
		for _, item := range []struct{ scheme, raw string }{
			{"HTTP", env.HTTPProxy},
			{"HTTPS", env.HTTPSProxy},
		} {
			if ep, ok := parseProxyURL("environment", item.scheme, item.raw); ok {
				proxies = append(proxies, ep)
			}
		}
	}

	var system systemProxySettings
	if goos == "darwin" {
		out, err := run(ctx, "scutil", "--proxy")
		if err != nil {
			return check.Outcome{}, fmt.Errorf("failed to read system proxy settings: %w", err)
		}
		system = parseScutilProxy(out)
		proxies = append(proxies, system.Proxies...)
	}

	var remote, local []string
	for _, ep := range proxies {
		entry := fmt.Sprintf("%s %s (%s)", ep.Scheme, ep.address(), ep.Source)
		if ep.local() {
			local = append(local, entry)
		} else {
			remote = append(remote, entry)
		}
	}

	var outcome check.Outcome
	insecurePAC := strings.HasPrefix(strings.ToLower(system.PACURL), "http://")
	switch {
	case insecurePAC:
		outcome = check.NewOutcome(check.CheckStatusFail, "Proxy auto-config is fetched over plain HTTP")
		outcome.AddNote("Anyone on the network path can replace the PAC file and redirect traffic.")
	case len(remote) > 0:
		outcome = check.NewOutcome(check.CheckStatusWarning, "Traffic is routed through a remote proxy")
	case system.PACURL != "" || system.AutoDiscovery:
		outcome = check.NewOutcome(check.CheckStatusWarning, "Proxy auto-configuration is enabled")
		if system.AutoDiscovery {
			outcome.AddNote("WPAD auto-discovery lets the local network choose a proxy.")
		}
	case len(local) > 0:
		outcome = check.NewOutcome(check.CheckStatusInfo, "A local proxy is in use")
	default:
		outcome = check.NewOutcome(check.CheckStatusPass, "No proxy configured")
	}

	outcome.AddDetail("Remote proxies", strings.Join(remote, ", "))
	outcome.AddDetail("Local proxies", strings.Join(local, ", "))
	outcome.AddDetail("PAC URL", system.PACURL)
	if env != nil {
		outcome.AddDetail("Proxy bypass", env.NoProxy)
	}
	return outcome, nil
}

func parseProxyURL(source, scheme, raw string) (proxyEndpoint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return proxyEndpoint{}, false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return proxyEndpoint{}, false
	}
	return proxyEndpoint{Source: source, Scheme: scheme, Host: u.Hostname(), Port: u.Port()}, true
}

// parseScutilProxy reads the dictionary printed by `scutil --proxy`.
func parseScutilProxy(out []byte) systemProxySettings {
	values := make(map[string]string)
	depth := 0
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasSuffix(line, "{") {
			depth++
			continue
		}
		if line == "}" {
			depth--
			continue
		}
		// nested arrays such as ExceptionsList
		if depth != 1 {
			continue
		}
		key, value, ok := strings.Cut(line, " : ")
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	var settings systemProxySettings
	for _, scheme := range []string{"HTTP", "HTTPS", "SOCKS"} {
		if values[scheme+"Enable"] != "1" || values[scheme+"Proxy"] == "" {
			continue
		}
		settings.Proxies = append(settings.Proxies, proxyEndpoint{
			Source: "system",
			Scheme: scheme,
			Host:   values[scheme+"Proxy"],
			Port:   values[scheme+"Port"],
		})
	}
	if values["ProxyAutoConfigEnable"] == "1" {
		settings.PACURL = values["ProxyAutoConfigURLString"]
	}
	settings.AutoDiscovery = values["ProxyAutoDiscoveryEnable"] == "1"
	return settings
}
