package services

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/qcat/internal/shared"
	"golang.org/x/net/proxy"
)

const defaultRelayUserAgent = "qcat"

// encodeURIComponent leaves these unescaped, [url.QueryEscape] does not.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// TransportPlan describes how outbound requests leave the process.
//
// SOCKS egress and relay rewriting are independent: either, both or neither may be set.
type TransportPlan struct {
	socksAddr string
	socksUser string
	socksPass string
	relayBase string
	userAgent string
}

// NewTransportPlan validates the optional SOCKS endpoint and relay base URL.
//
// The SOCKS endpoint may be "host:port", "user:pass@host:port" or carry a socks5:// scheme.
// userAgent is sent only while a relay is active and defaults to "qcat".
func NewTransportPlan(socksEndpoint, relayBaseURL, userAgent string) (TransportPlan, error) {
	var plan TransportPlan

	if socksEndpoint = strings.TrimSpace(socksEndpoint); socksEndpoint != "" {
		if !strings.Contains(socksEndpoint, "://") {
			socksEndpoint = "socks5://" + socksEndpoint
		}
		u, err := url.Parse(socksEndpoint)
		if err != nil {
			return TransportPlan{}, fmt.Errorf("%w: socks5 proxy: %v", shared.ErrConfiguration, err)
		}
		if u.Scheme != "socks5" && u.Scheme != "socks5h" {
			return TransportPlan{}, fmt.Errorf("%w: unsupported proxy scheme %q", shared.ErrConfiguration, u.Scheme)
		}
		if u.Host == "" || u.Port() == "" {
			return TransportPlan{}, fmt.Errorf("%w: socks5 proxy needs host:port", shared.ErrConfiguration)
		}
		plan.socksAddr = u.Host
		if u.User != nil {
			plan.socksUser = u.User.Username()
			plan.socksPass, _ = u.User.Password()
		}
	}

	if relayBaseURL = strings.TrimSpace(relayBaseURL); relayBaseURL != "" {
		u, err := url.Parse(relayBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return TransportPlan{}, fmt.Errorf("%w: relay url %q", shared.ErrConfiguration, relayBaseURL)
		}
		plan.relayBase = relayBaseURL
		plan.userAgent = userAgent
		if strings.TrimSpace(plan.userAgent) == "" {
			plan.userAgent = defaultRelayUserAgent
		}
	}

	return plan, nil
}

// NewTransportPlanFromConfig builds a plan from the transport section of the config.
func NewTransportPlanFromConfig(cfg shared.TransportConfig) (TransportPlan, error) {
	return NewTransportPlan(cfg.SOCKS5Proxy, cfg.RelayURL, cfg.RelayUserAgent)
}

func (p TransportPlan) UsesSOCKS() bool { return p.socksAddr != "" }
func (p TransportPlan) UsesRelay() bool { return p.relayBase != "" }

// Mode names the active combination for logs: "direct", "socks", "relay" or "socks+relay".
func (p TransportPlan) Mode() string {
	switch {
	case p.UsesSOCKS() && p.UsesRelay():
		return "socks+relay"
	case p.UsesSOCKS():
		return "socks"
	case p.UsesRelay():
		return "relay"
	default:
		return "direct"
	}
}

// HTTPClient builds a client whose connections all egress through the SOCKS proxy when one is set.
//
// Both plaintext and TLS legs share the proxied dialer.
func (p TransportPlan) HTTPClient(timeout time.Duration) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	// Egress follows the plan only; HTTP(S)_PROXY from the environment is ignored.
	tr.Proxy = nil

	if p.UsesSOCKS() {
		var auth *proxy.Auth
		if p.socksUser != "" {
			auth = &proxy.Auth{User: p.socksUser, Password: p.socksPass}
		}

		dialer, err := proxy.SOCKS5("tcp", p.socksAddr, auth, &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("%w: socks5 dialer: %v", shared.ErrConfiguration, err)
		}
		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("%w: socks5 dialer does not support contexts", shared.ErrConfiguration)
		}

		tr.DialContext = cd.DialContext
	}

	return &http.Client{Timeout: timeout, Transport: tr}, nil
}

// Target returns the URL to dial for target: the target itself, or the relay base with the
// percent-encoded target appended.
func (p TransportPlan) Target(target string) string {
	if !p.UsesRelay() {
		return target
	}
	return p.relayBase + componentUnescaper.Replace(url.QueryEscape(target))
}

// Decorate applies per-request headers of the plan. It only sets User-Agent while a relay is active.
func (p TransportPlan) Decorate(req *http.Request) {
	if p.UsesRelay() {
		req.Header.Set("User-Agent", p.userAgent)
	}
}
