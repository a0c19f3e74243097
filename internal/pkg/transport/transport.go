// Package transport builds the HTTP transport shared by the dispatcher and
// the media loader.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Default dial and handshake limits. The per-attempt request timeout is
// enforced by the dispatcher, not here.
const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// Options controls transport construction.
type Options struct {
	DialTimeout time.Duration
	// DenyPrivate rejects connections whose remote address is loopback,
	// private or link-local. Media URLs come from server content, so the
	// media client can opt in.
	DenyPrivate bool
	// Tracing wraps the transport with otelhttp so every attempt is a span.
	Tracing bool
	// TracerProvider overrides the global provider for transport spans.
	TracerProvider trace.TracerProvider
}

// New returns a RoundTripper with TLS 1.2 as the floor.
func New(opts Options) http.RoundTripper {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}

	dial := dialer.DialContext
	if opts.DenyPrivate {
		dial = denyPrivate(dialer)
	}

	var rt http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dial,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: DefaultHandshakeTimeout,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	if opts.Tracing {
		var otelOpts []otelhttp.Option
		if opts.TracerProvider != nil {
			otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
		}
		rt = otelhttp.NewTransport(rt, otelOpts...)
	}
	return rt
}

// NewClient wraps New in an http.Client without a client-wide timeout.
func NewClient(opts Options) *http.Client {
	return &http.Client{Transport: New(opts)}
}

func denyPrivate(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		ip := net.ParseIP(host)
		if ip == nil {
			conn.Close()
			return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
		}

		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			conn.Close()
			return nil, fmt.Errorf("access to private IP %s is denied", ip)
		}

		return conn, nil
	}
}
