package classify

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/kendovivi/timebank-client/internal/domain"
)

// ValidateURL rejects URLs the transport could never send. It runs before
// a request is queued so a bad URL fails without a network attempt.
func ValidateURL(raw string) *domain.APIError {
	if strings.TrimSpace(raw) == "" {
		return domain.NewAPIError(domain.KindInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return domain.NewAPIError(domain.KindInvalidURL).WithCause(err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.NewAPIError(domain.KindInvalidURL)
	}
	return nil
}

// Transport maps a failure that happened before any response was received.
// Timeouts, DNS failures and refused connections read as Offline; anything
// else (TLS, resets, cancellation) is a generic transport failure.
func Transport(err error) *domain.APIError {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return domain.NewAPIError(domain.KindInvalidURL).WithCause(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewAPIError(domain.KindOffline).WithCause(err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.NewAPIError(domain.KindOffline).WithCause(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewAPIError(domain.KindOffline).WithCause(err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return domain.NewAPIError(domain.KindOffline).WithCause(err)
	}

	return domain.NewAPIError(domain.KindTransport).WithCause(err)
}

// Retryable reports whether a transport failure may be retried. Everything
// is retryable except caller cancellation and invalid URLs.
func Retryable(ctx context.Context, err *domain.APIError) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	return err.Kind != domain.KindInvalidURL
}
