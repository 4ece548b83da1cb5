package shop

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	addrs map[string][]net.IPAddr
	err   error
}

func (f *fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.addrs[host], nil
}

func resolverFor(hosts ...string) *fakeResolver {
	addrs := make(map[string][]net.IPAddr, len(hosts))
	for _, h := range hosts {
		addrs[h] = []net.IPAddr{{IP: net.IPv4(93, 184, 216, 34)}}
	}
	return &fakeResolver{addrs: addrs}
}

func strPtr(s string) *string { return &s }

func TestNormalizeURL_Resolvable(t *testing.T) {
	t.Parallel()

	v := NewValidator(resolverFor("www.example.org"), nil)
	err := v.NormalizeURL(context.Background(), "http://www.example.org")
	require.NoError(t, err)
}

func TestNormalizeURL_UnresolvableHost(t *testing.T) {
	t.Parallel()

	v := NewValidator(resolverFor(), nil)
	err := v.NormalizeURL(context.Background(), "http://www.lol")
	require.ErrorIs(t, err, ErrUnresolvable)
}

func TestNormalizeURL_ResolverError(t *testing.T) {
	t.Parallel()

	v := NewValidator(&fakeResolver{err: errors.New("no servers")}, nil)
	err := v.NormalizeURL(context.Background(), "http://www.example.org")
	require.ErrorIs(t, err, ErrUnresolvable)
}

func TestNormalizeURL_Malformed(t *testing.T) {
	t.Parallel()

	v := NewValidator(resolverFor(), nil)
	err := v.NormalizeURL(context.Background(), "http://[::1")
	require.ErrorIs(t, err, ErrUnparseable)
}

func TestNormalizeURL_NoHost(t *testing.T) {
	t.Parallel()

	v := NewValidator(resolverFor(), nil)

	// schemeless strings parse as a bare path with no host
	err := v.NormalizeURL(context.Background(), "www.example.org")
	require.ErrorIs(t, err, ErrUnparseable)

	// opaque URLs carry no host either
	err = v.NormalizeURL(context.Background(), "mailto:shop@example.org")
	require.ErrorIs(t, err, ErrUnparseable)
}

func TestCannotBeABase(t *testing.T) {
	t.Parallel()

	// url.Parse leaves Host empty for opaque URLs, so the shape has to be
	// built by hand to exercise the check.
	require.True(t, cannotBeABase(&url.URL{Scheme: "mailto", Opaque: "shop@example.org", Host: "example.org"}))
	require.False(t, cannotBeABase(&url.URL{Scheme: "mailto", Opaque: "shop@example.org"}))
	require.False(t, cannotBeABase(&url.URL{Scheme: "http", Host: "www.example.org"}))
}

func TestValidateShop_MissingBothURLs(t *testing.T) {
	t.Parallel()

	v := NewValidator(resolverFor("www.example.org"), nil)
	err := v.ValidateShop(context.Background(), NewShop{Title: "T"})
	require.ErrorIs(t, err, ErrMissingURL)
}

func TestValidateShop_URLOnly(t *testing.T) {
	t.Parallel()

	v := NewValidator(resolverFor("www.example.org"), nil)
	candidate := NewShop{Title: "T", URL: strPtr("http://www.example.org")}
	require.NoError(t, v.ValidateShop(context.Background(), candidate))
}

func TestValidateShop_DonationURLOnly(t *testing.T) {
	t.Parallel()

	v := NewValidator(resolverFor("donate.example.org"), nil)
	candidate := NewShop{Title: "T", DonationURL: strPtr("https://donate.example.org/box")}
	require.NoError(t, v.ValidateShop(context.Background(), candidate))
}

func TestValidateShop_URLTakesPrecedence(t *testing.T) {
	t.Parallel()

	// only the contact URL is resolved when both fields are set
	v := NewValidator(resolverFor("www.example.org"), nil)
	candidate := NewShop{
		Title:       "T",
		URL:         strPtr("http://www.example.org"),
		DonationURL: strPtr("http://unresolvable.invalid"),
	}
	require.NoError(t, v.ValidateShop(context.Background(), candidate))
}

func TestValidateShop_UnresolvableURL(t *testing.T) {
	t.Parallel()

	v := NewValidator(resolverFor(), nil)
	candidate := NewShop{Title: "T", URL: strPtr("http://www.lol")}
	err := v.ValidateShop(context.Background(), candidate)
	require.ErrorIs(t, err, ErrUnresolvable)
}
