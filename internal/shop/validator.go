package shop

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"go.uber.org/zap"
)

// Validation failure reasons. Handlers render the error text verbatim in the
// response body, so these read as user-facing messages.
var (
	// ErrUnparseable means the candidate string could not be parsed as a URL,
	// or parsed without a host component.
	ErrUnparseable = errors.New("url is not parseable")

	// ErrNotABase means the URL cannot serve as a base URL yet still reports
	// a host.
	ErrNotABase = errors.New("url cannot serve as a base url")

	// ErrUnresolvable means the DNS lookup for the URL host returned no
	// addresses. An unreachable resolver is indistinguishable from a
	// nonexistent domain; both surface as this error.
	ErrUnresolvable = errors.New("url host does not resolve")

	// ErrMissingURL means a submission carried neither url nor donationUrl.
	ErrMissingURL = errors.New("either url or donationUrl is required")
)

// HostResolver performs DNS address lookups. *net.Resolver satisfies it.
type HostResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Validator decides whether a URL string is acceptable to persist and whether
// a shop submission as a whole is acceptable. It holds no shared state beyond
// the resolver; calls are safe to run with full concurrency. The DNS lookup
// suspends only the calling goroutine.
type Validator struct {
	resolver HostResolver
	logger   *zap.Logger
}

// NewValidator constructs a Validator. A nil resolver falls back to
// net.DefaultResolver; a nil logger falls back to zap.NewNop().
func NewValidator(resolver HostResolver, logger *zap.Logger) *Validator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{resolver: resolver, logger: logger}
}

// NormalizeURL checks that raw parses as a URL with a host whose DNS lookup
// yields at least one address. A single lookup per call, no caching, no
// retry; the lookup inherits the resolver's default timeout.
func (v *Validator) NormalizeURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnparseable, raw)
	}

	if cannotBeABase(u) {
		return ErrNotABase
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: %q has no host", ErrUnparseable, raw)
	}

	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		v.logger.Debug("dns lookup failed", zap.String("host", host), zap.Error(err))
		return fmt.Errorf("%w: %s", ErrUnresolvable, host)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s", ErrUnresolvable, host)
	}
	return nil
}

// cannotBeABase reports whether a URL is opaque yet still carries a host, a
// shape that cannot anchor relative references. url.Parse never produces it
// (an opaque URL always parses with an empty Host), so through NormalizeURL
// the check only matters for url.URL values built programmatically.
func cannotBeABase(u *url.URL) bool {
	return u.Opaque != "" && u.Host != ""
}

// ValidateShop gates a submission before any store access. At least one of
// URL and DonationURL must be present; the first one present is resolved via
// NormalizeURL and any failure surfaces as-is.
func (v *Validator) ValidateShop(ctx context.Context, candidate NewShop) error {
	switch {
	case candidate.URL != nil:
		return v.NormalizeURL(ctx, *candidate.URL)
	case candidate.DonationURL != nil:
		return v.NormalizeURL(ctx, *candidate.DonationURL)
	default:
		return ErrMissingURL
	}
}
