package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	consts "github.com/khanhnv2901/seca-audit/internal/shared/constants"
)

const defaultHTTPSHost = "www.apple.com"

// weakCipherSuites are negotiated suites that still work but should not be used.
var weakCipherSuites = map[uint16]bool{
	tls.TLS_RSA_WITH_RC4_128_SHA:            true,
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA:       true,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA:        true,
	tls.TLS_RSA_WITH_AES_256_CBC_SHA:        true,
	tls.TLS_ECDHE_ECDSA_WITH_RC4_128_SHA:    true,
	tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA:      true,
	tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA: true,
}

// TLSDialFunc opens a verified TLS connection.
type TLSDialFunc func(ctx context.Context, network, addr string, cfg *tls.Config) (*tls.Conn, error)

// HTTPSChecker opens a TLS connection to a well-known host. A certificate
// that does not verify usually means something on the path is intercepting
// TLS.
type HTTPSChecker struct {
	Host         string
	Port         string
	Timeout      time.Duration
	ExpiryWindow time.Duration
	// RootCAs overrides the system pool; tests use it.
	RootCAs *x509.CertPool
	Dial    TLSDialFunc
	Now     func() time.Time
}

func (c *HTTPSChecker) Kind() check.Kind { return check.KindHTTPS }

func (c *HTTPSChecker) Check(ctx context.Context) (check.Outcome, error) {
	host := c.Host
	if host == "" {
		host = defaultHTTPSHost
	}
	port := c.Port
	if port == "" {
		port = "443"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	window := c.ExpiryWindow
	if window <= 0 {
		window = consts.TLSSoonExpiryWindow
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	dial := c.Dial
	if dial == nil {
		dial = defaultTLSDial
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg := &tls.Config{ServerName: host, RootCAs: c.RootCAs, MinVersion: tls.VersionTLS10} // #nosec G402 -- older versions are accepted so they can be reported.
	conn, err := dial(dialCtx, "tcp", net.JoinHostPort(host, port), cfg)
	if err != nil {
		if reason, ok := verificationFailure(err); ok {
			outcome := check.NewOutcome(check.CheckStatusFail, "TLS certificate for "+host+" did not verify")
			outcome.AddDetail("Reason", reason)
			outcome.AddNote("A proxy, captive portal or security product may be intercepting HTTPS.")
			return outcome, nil
		}
		return check.Outcome{}, fmt.Errorf("failed to reach %s: %w", host, err)
	}
	defer conn.Close()

	state := conn.ConnectionState()
	var leaf *x509.Certificate
	if len(state.PeerCertificates) > 0 {
		leaf = state.PeerCertificates[0]
	}

	var warnings []string
	if state.Version < tls.VersionTLS12 {
		warnings = append(warnings, fmt.Sprintf("Negotiated %s; TLS 1.2 or newer is expected", tlsVersionName(state.Version)))
	}
	if weakCipherSuites[state.CipherSuite] {
		warnings = append(warnings, fmt.Sprintf("Weak cipher suite %s", tls.CipherSuiteName(state.CipherSuite)))
	}
	if leaf != nil && leaf.NotAfter.Sub(now()) < window {
		warnings = append(warnings, fmt.Sprintf("Certificate expires %s", leaf.NotAfter.UTC().Format(time.RFC3339)))
	}

	var outcome check.Outcome
	if len(warnings) > 0 {
		outcome = check.NewOutcome(check.CheckStatusWarning, "HTTPS works with weak parameters")
		for _, w := range warnings {
			outcome.AddNote("%s", w)
		}
	} else {
		outcome = check.NewOutcome(check.CheckStatusPass, fmt.Sprintf("HTTPS reachable over %s", tlsVersionName(state.Version)))
	}

	outcome.AddDetail("Host", host)
	outcome.AddDetail("TLS version", tlsVersionName(state.Version))
	outcome.AddDetail("Cipher suite", tls.CipherSuiteName(state.CipherSuite))
	if leaf != nil {
		outcome.AddDetail("Issuer", leaf.Issuer.CommonName)
		outcome.AddDetail("Expires", leaf.NotAfter.UTC().Format(time.RFC3339))
	}
	return outcome, nil
}

func defaultTLSDial(ctx context.Context, network, addr string, cfg *tls.Config) (*tls.Conn, error) {
	d := &tls.Dialer{NetDialer: &net.Dialer{}, Config: cfg}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return conn.(*tls.Conn), nil
}

// verificationFailure reports whether err came from certificate checks
// rather than from the network.
func verificationFailure(err error) (string, bool) {
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	var verifyErr *tls.CertificateVerificationError

	switch {
	case errors.As(err, &unknownAuthority):
		return "certificate signed by an unknown authority", true
	case errors.As(err, &hostname):
		return "certificate is not valid for this host", true
	case errors.As(err, &invalid):
		return "certificate is invalid: " + invalid.Error(), true
	case errors.As(err, &verifyErr):
		return verifyErr.Error(), true
	}
	return "", false
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS13:
		return "TLS 1.3"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS10:
		return "TLS 1.0"
	}
	return fmt.Sprintf("0x%04x", v)
}
