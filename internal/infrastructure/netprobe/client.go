package netprobe

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
)

// Family restricts outbound connections to one address family.
type Family string

const (
	FamilyAny  Family = ""
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

func (f Family) network() string {
	switch f {
	case FamilyIPv4:
		return "tcp4"
	case FamilyIPv6:
		return "tcp6"
	default:
		return ""
	}
}

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// NewHTTPClient returns a pooled client that only dials the given family.
func NewHTTPClient(family Family, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   6 * time.Second,
		KeepAlive: 15 * time.Second,
	}

	transport := cleanhttp.DefaultPooledTransport()
	if network := family.network(); network != "" {
		transport.DialContext = func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		}
	}
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// HTTPSReachable reports whether a HEAD request to target gets any HTTP
// response. Transport failures mean unreachable. Only cancellation of ctx is
// returned as an error.
func HTTPSReachable(ctx context.Context, client *http.Client, target string) (bool, error) {
	if client == nil {
		client = cleanhttp.DefaultClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, nil
	}
	_ = resp.Body.Close()
	return true, nil
}

// Reachable dials addr and closes the connection straight away.
func Reachable(ctx context.Context, dial DialFunc, network, addr string) (bool, error) {
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	conn, err := dial(ctx, network, addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, nil
	}
	_ = conn.Close()
	return true, nil
}
